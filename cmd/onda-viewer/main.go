// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

// Command onda-viewer is a minimal BroadcastChannel subscriber: the
// "external GUI collaborator" spec.md §1 treats purely as an interface.
// It connects, subscribes to a tag prefix, and prints every matching
// SubscriberMessage it receives until interrupted.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slaclab/onda-go/internal/broadcast"
	"github.com/slaclab/onda-go/internal/transport"
)

func main() {
	var url string
	var tag string

	root := &cobra.Command{
		Use:   "onda-viewer",
		Short: "subscribe to a running monitor's BroadcastChannel and print messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(url, tag)
		},
	}
	root.Flags().StringVar(&url, "url", broadcast.DefaultAddr, "BroadcastChannel endpoint")
	root.Flags().StringVar(&tag, "tag", "", "tag prefix to subscribe to (e.g. view:omdata)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func watch(url, tag string) error {
	sub, err := broadcast.Dial(url, tag)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer sub.Close()

	for {
		gotTag, payload, err := sub.Next()
		if err != nil {
			return fmt.Errorf("subscription ended: %w", err)
		}
		record, decErr := transport.DecodePayload(payload)
		if decErr != nil {
			fmt.Fprintf(os.Stderr, "%s: undecodable payload: %v\n", gotTag, decErr)
			continue
		}
		rendered, _ := json.Marshal(record)
		fmt.Printf("%s %s\n", gotTag, rendered)
	}
}

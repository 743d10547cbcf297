// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

// Command onda-monitor launches the real-time detector monitor fabric: one
// aggregator and a configurable number of workers sharing a single YAML
// configuration (spec.md §6).
//
// Grounded on the cfgpath/pool-size flag conventions exercised by
// cmd/agent/command (command_test.go's MakeCommand/"cfgpath" flag) in the
// teacher, re-expressed here as a real (non-fx) cobra root command, since
// the teacher's actual command wiring lives entirely behind its
// dependency-injection framework with no free-standing analog to adapt.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/extract"
	"github.com/slaclab/onda-go/internal/fabric"
	"github.com/slaclab/onda-go/internal/logging"
)

var (
	cfgPath       string
	poolSize      int
	logLevel      string
	broadcastAddr string
	processorID   string
)

func main() {
	root := &cobra.Command{
		Use:   "onda-monitor",
		Short: "real-time distributed monitor for streaming detector data",
	}
	root.PersistentFlags().StringVar(&cfgPath, "cfgpath", "", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level: debug, info, warn, error")

	root.AddCommand(newRunCommand())
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the fabric: one aggregator (rank 0) and pool-size-1 workers",
		RunE:  runFabric,
	}
	cmd.Flags().IntVar(&poolSize, "pool-size", 2, "total ranks, including the aggregator")
	cmd.Flags().StringVar(&broadcastAddr, "broadcast-addr", "", "BroadcastChannel endpoint (default tcp://127.0.0.1:12321)")
	cmd.Flags().StringVar(&processorID, "processor", "crystallography", "Processor plugin identifier: crystallography, xes, cheetah")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the monitor version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("onda-monitor (dev)")
		},
	}
}

func runFabric(cmd *cobra.Command, args []string) error {
	logging.SetLevel(logLevel)
	log := logging.For("cli")

	if cfgPath == "" {
		return fmt.Errorf("--cfgpath is required")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.BindPFlags(flagsExcluding(cmd.Flags(), "cfgpath")); err != nil {
		log.WithError(err).Warn("could not bind CLI flags over configuration")
	}

	sourceID, err := cfg.SourceIdentifier()
	if err != nil {
		return err
	}
	required, err := cfg.RequiredData()
	if err != nil {
		return err
	}

	if hint, ok, _ := cfg.PoolSizeHint(); ok && !cmd.Flags().Changed("pool-size") {
		poolSize = hint
	}

	result := fabric.Run(fabric.RunOptions{
		PoolSize:         poolSize,
		Config:           cfg,
		SourceIdentifier: sourceID,
		ExtractFuncs:     extract.Builtins(),
		RequiredData:     required,
		ProcessorID:      processorID,
		BroadcastAddr:    broadcastAddr,
	})

	if result.Err != nil {
		log.WithError(result.Err).Error("run ended with error")
	}
	if result.ExitCode() != 0 {
		os.Exit(result.ExitCode())
	}
	return nil
}

// flagsExcluding returns a copy of a flag set with name removed, so that
// purely CLI-only flags (the config file path itself) never shadow a
// same-named YAML key via BindPFlags.
func flagsExcluding(flags *pflag.FlagSet, name string) *pflag.FlagSet {
	out := pflag.NewFlagSet("bound", pflag.ContinueOnError)
	flags.VisitAll(func(f *pflag.Flag) {
		if !strings.EqualFold(f.Name, name) {
			out.AddFlag(f)
		}
	})
	return out
}

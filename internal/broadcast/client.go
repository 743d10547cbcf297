// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package broadcast

import (
	"fmt"
	"net"
)

// Subscriber is a minimal BroadcastChannel client: the external GUI
// collaborator this spec treats as an interface only (spec.md §1). It
// exists so cmd/onda-viewer and tests can exercise the wire protocol
// end-to-end without a real visualization front-end.
type Subscriber struct {
	conn net.Conn
}

// Dial connects to addr and subscribes with the given tag prefix
// (spec.md §4.4: "Each GUI subscribes with a specific tag").
func Dial(addr, tagPrefix string) (*Subscriber, error) {
	network, hostport := splitEndpoint(addr)
	conn, err := net.Dial(network, hostport)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "%s\n", tagPrefix); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn}, nil
}

// Next blocks for the next matching (tag, payload) frame.
func (s *Subscriber) Next() (tag string, payload []byte, err error) {
	return readFrame(s.conn)
}

// Close disconnects the subscriber.
func (s *Subscriber) Close() error {
	return s.conn.Close()
}

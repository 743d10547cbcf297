// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

// Package transport implements the worker<->aggregator wire protocol
// (spec.md §4.5, §6): length-prefixed, self-describing records carrying
// one of three discriminants — DATA, DIE, DEAD — encoded with msgpack, the
// teacher's own serialization choice and the self-describing format
// spec.md's design notes (§9) call for.
//
// Grounded on original_source/src/om/parallelization_layer/mpi.py, whose
// _DIETAG/_DEADTAG constants and (payload, rank) isend tuples this
// Envelope type re-expresses as a statically typed, msgpack-encoded frame
// carried over a Go channel rather than an MPI tag.
package transport

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/slaclab/onda-go/internal/errs"
)

// Kind discriminates the three message classes of the control plane.
type Kind uint8

const (
	// Data carries a (payload, worker_rank) tuple produced by Process or
	// EndWorker, or the {"end": true} END sentinel when End is true.
	Data Kind = iota
	// Die requests immediate worker shutdown (aggregator -> worker).
	Die
	// Dead confirms a worker has shut down (worker -> aggregator).
	Dead
)

func (k Kind) String() string {
	switch k {
	case Data:
		return "DATA"
	case Die:
		return "DIE"
	case Dead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// Envelope is one frame of the worker<->aggregator channel.
type Envelope struct {
	Kind Kind
	Rank int
	// End marks the END sentinel: a DATA-class message with no payload
	// fields other than the end marker (spec.md §4.5).
	End bool
	// Payload is the msgpack-encoded ReducedPayload, present only on
	// ordinary (non-END) DATA frames.
	Payload []byte
}

// wireEnvelope is the concrete msgpack-serialized shape; kept distinct
// from Envelope so Payload can stay pre-encoded bytes in memory (avoiding
// a decode/re-encode round trip for frames the aggregator just forwards
// during SHUTDOWN drains).
type wireEnvelope struct {
	Kind    uint8
	Rank    int
	End     bool
	Payload []byte
}

// EncodeData builds and encodes a DATA envelope carrying payload (already
// msgpack-encoded by EncodePayload).
func EncodeData(rank int, payload []byte) ([]byte, error) {
	return encode(wireEnvelope{Kind: uint8(Data), Rank: rank, Payload: payload})
}

// EncodeEnd builds and encodes the END sentinel for rank.
func EncodeEnd(rank int) ([]byte, error) {
	return encode(wireEnvelope{Kind: uint8(Data), Rank: rank, End: true})
}

// EncodeDie builds and encodes a DIE control message.
func EncodeDie(rank int) ([]byte, error) {
	return encode(wireEnvelope{Kind: uint8(Die), Rank: rank})
}

// EncodeDead builds and encodes a DEAD confirmation.
func EncodeDead(rank int) ([]byte, error) {
	return encode(wireEnvelope{Kind: uint8(Dead), Rank: rank})
}

func encode(w wireEnvelope) ([]byte, error) {
	b, err := msgpack.Marshal(w)
	if err != nil {
		return nil, &errs.TransportError{Rank: w.Rank, Op: "encode", Cause: err}
	}
	return b, nil
}

// Decode parses a raw frame back into an Envelope.
func Decode(raw []byte) (Envelope, error) {
	var w wireEnvelope
	if err := msgpack.Unmarshal(raw, &w); err != nil {
		return Envelope{}, &errs.TransportError{Op: "decode", Cause: err}
	}
	if w.Kind > uint8(Dead) {
		return Envelope{}, &errs.TransportError{Rank: w.Rank, Op: "decode", Cause: fmt.Errorf("unknown message kind %d", w.Kind)}
	}
	return Envelope{Kind: Kind(w.Kind), Rank: w.Rank, End: w.End, Payload: w.Payload}, nil
}

// EncodePayload msgpack-encodes a ReducedPayload for inclusion in a DATA
// envelope. Payload is typed as map[string]interface{} here rather than
// importing the processing package's Payload alias, to keep transport
// free of a dependency on domain logic.
func EncodePayload(payload map[string]interface{}) ([]byte, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, &errs.TransportError{Op: "encode-payload", Cause: err}
	}
	return b, nil
}

// DecodePayload reverses EncodePayload.
func DecodePayload(raw []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return nil, &errs.TransportError{Op: "decode-payload", Cause: err}
	}
	return m, nil
}

// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

// Package processing implements the Processor contract (spec.md §4.3): the
// sole component allowed to hold domain state. Workers run Process; the
// aggregator runs Collect and the two End* flush hooks. The fabric treats
// every Payload as opaque.
//
// Three built-in Processors are registered under the names the original
// monitor used (src/om/processing_layer/__init__.py): "crystallography",
// "xes", and "cheetah".
package processing

import (
	"fmt"

	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/extract"
)

// Payload is a ReducedPayload (spec.md §3): a mapping produced by a
// worker's Process call and addressed to the aggregator. Must be
// serializable by the transport.
type Payload map[string]interface{}

// Publication is a (tag, payload) pair Collect or EndAggregator asks the
// fabric to hand to the BroadcastChannel. Keeping this decoupled from the
// broadcast package (rather than having Processor call it directly) keeps
// Processor implementations free of transport concerns, matching spec.md
// §4.4's "the aggregator publishes without knowing subscriber identities" —
// here a Processor doesn't even know about subscribers or sockets, only tags.
type Publication struct {
	Tag     string
	Payload Payload
}

// Processor is the per-run domain logic plugin (spec.md §4.3).
type Processor interface {
	// InitializeWorker performs one-time per-worker setup (masks,
	// calibration tables, geometry).
	InitializeWorker(rank, poolSize int, cfg *config.Config) error

	// InitializeAggregator performs one-time aggregator setup (empty
	// histograms, zeroed deques).
	InitializeAggregator(rank, poolSize int, cfg *config.Config) error

	// Process is a pure function of the extracted record and per-worker
	// state; must be deterministic given the same inputs and worker state.
	Process(rank, poolSize int, rec extract.Record) (Payload, error)

	// Collect folds a payload from sourceRank into aggregator state and
	// optionally requests publications.
	Collect(rank, poolSize, sourceRank int, payload Payload) ([]Publication, error)

	// EndWorker is called once when the worker exhausts its event
	// sequence. A non-empty second return value is delivered to the
	// aggregator before the worker's termination record.
	EndWorker(rank, poolSize int) (Payload, bool, error)

	// EndAggregator performs the final flush; called exactly once, after
	// every worker has terminated.
	EndAggregator(rank, poolSize int) ([]Publication, error)
}

// Constructor builds a fresh Processor instance for a run.
type Constructor func() Processor

var registry = map[string]Constructor{
	"crystallography": func() Processor { return NewCrystallography() },
	"xes":             func() Processor { return NewXES() },
	"cheetah":         func() Processor { return NewCheetah() },
}

// New instantiates the registered Processor for a plugin identifier
// (spec.md §6).
func New(identifier string) (Processor, error) {
	ctor, ok := registry[identifier]
	if !ok {
		return nil, fmt.Errorf("unknown processor identifier %q", identifier)
	}
	return ctor(), nil
}

// Register adds or overrides a Processor constructor, e.g. for tests.
func Register(identifier string, ctor Constructor) {
	registry[identifier] = ctor
}

// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

// Package event implements the EventSource contract (spec.md §4.1): a
// lazy, finite sequence of opaque Events produced by a facility-specific
// detector or file reader on one worker, plus the open/close/frame-count
// hooks the fabric needs without knowing anything about detector formats.
//
// Detector-specific decoding is out of scope (spec.md §1); the Source
// implementations here stand in for the real "pilatus-files",
// "jungfrau1m-files", "eiger16m-files", and "psana" plugins named in
// spec.md §6.
package event

import (
	"github.com/slaclab/onda-go/internal/config"
)

// Event is an opaque handle to one facility-level record (spec.md §3). It
// is never shared between workers.
type Event struct {
	// Handle is the source-specific payload (e.g. a file path, a shared-
	// memory descriptor) opaque to everything but the owning Source.
	Handle interface{}

	// FrameCount is the number of detector frames in this event (>=1).
	FrameCount int

	// Timestamp is seconds since epoch, if known.
	Timestamp *float64

	// Scratch is mutable per-event scratch space shared by extraction
	// functions within a single worker; never crosses the transport.
	Scratch map[string]interface{}

	// CurrentFrame is advanced by the iteration loop to the frame index
	// currently being extracted, in [0, FrameCount).
	CurrentFrame int

	opened bool
	closed bool
}

// Opened reports whether Open has been called on this event.
func (e *Event) Opened() bool { return e.opened }

// Closed reports whether Close has been called on this event.
func (e *Event) Closed() bool { return e.closed }

// Source is the EventSource plugin contract (spec.md §4.1). Online
// (live-stream) sources are exempt from the deterministic partitioning
// Events must otherwise guarantee.
type Source interface {
	// Initialize is called once on the worker before any events are
	// produced; it may consult configuration. Returns a *errs.ConfigError
	// on malformed parameters.
	Initialize(rank, poolSize int, cfg *config.Config) error

	// Events returns a lazy, finite sequence of Events partitioned across
	// workers (see Partition). The channel is closed when the sequence is
	// exhausted. A non-nil error on the channel terminates iteration and is
	// fatal to the worker (iterator-level errors, spec.md §4.1).
	Events(rank, poolSize int) (<-chan *Event, <-chan error)

	// Open acquires per-event resources (file handles, detector buffers).
	Open(ev *Event) error

	// Close releases per-event resources. Must be invoked on every path
	// that reached Open, including error paths.
	Close(ev *Event) error

	// NumFrames returns the number of frames in an opened event.
	NumFrames(ev *Event) (int, error)
}

// Partition computes the half-open index range [start, end) of the event
// stream of length total that worker index i (0-based among numWorkers
// workers) should receive, per spec.md §4.1: chunk = ceil(total/numWorkers),
// the last worker may receive fewer (or, per the Open Question recorded in
// DESIGN.md, none at all when total is small relative to numWorkers).
func Partition(total, numWorkers, workerIndex int) (start, end int) {
	if numWorkers <= 0 {
		return 0, 0
	}
	chunk := (total + numWorkers - 1) / numWorkers
	start = workerIndex * chunk
	end = start + chunk
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return start, end
}

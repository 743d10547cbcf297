// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

// Package extract implements the DataExtractor contract (spec.md §4.2):
// for an opened Event, apply each configured extraction function (keyed by
// name) in sequence and assemble a Record. Extraction is sequential per
// frame to preserve shared-event state; there is no intra-frame
// concurrency, matching the spec and the original's
// onda/utils/data_event.py DataEvent.extract_data.
package extract

import (
	"fmt"

	"github.com/slaclab/onda-go/internal/errs"
	"github.com/slaclab/onda-go/internal/event"
)

// Record is an ExtractedRecord (spec.md §3): a mapping from source name to
// value, always containing "timestamp". Ephemeral — produced per frame,
// consumed by Processor.process, and discarded.
type Record map[string]interface{}

// Func is a single named extraction function. It must be pure with respect
// to the Event: it may read ev.Scratch but must not mutate CurrentFrame or
// close the event (spec.md §4.2).
type Func func(ev *event.Event) (interface{}, error)

// Extractor applies a fixed, ordered set of named extraction functions to
// an opened event.
type Extractor struct {
	order []string
	funcs map[string]Func
}

// New builds an Extractor running, in order, the functions named in names,
// looked up in registry. An unknown name is a configuration error caught
// at startup, not at extraction time.
func New(names []string, registry map[string]Func) (*Extractor, error) {
	funcs := make(map[string]Func, len(names))
	for _, n := range names {
		f, ok := registry[n]
		if !ok {
			return nil, fmt.Errorf("no extraction function registered for source %q", n)
		}
		funcs[n] = f
	}
	return &Extractor{order: append([]string(nil), names...), funcs: funcs}, nil
}

// Extract runs every configured extraction function, in the order they
// were configured, against ev (whose CurrentFrame must already be set to a
// valid index). On the first failing function, extraction stops and
// returns an *errs.ExtractionError naming the failing source; any partial
// results are discarded, matching spec.md §4.2.
func (x *Extractor) Extract(ev *event.Event) (Record, error) {
	rec := make(Record, len(x.order)+1)
	rec["timestamp"] = timestampOf(ev)
	for _, name := range x.order {
		v, err := func() (v interface{}, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return x.funcs[name](ev)
		}()
		if err != nil {
			return nil, &errs.ExtractionError{Source: name, Cause: err}
		}
		rec[name] = v
	}
	return rec, nil
}

func timestampOf(ev *event.Event) float64 {
	if ev.Timestamp != nil {
		return *ev.Timestamp
	}
	return 0
}

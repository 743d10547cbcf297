// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package extract

import "github.com/slaclab/onda-go/internal/event"

// Builtins returns the stock extraction-function registry. Real detector
// geometry and peak-finding math are out of scope (spec.md §1); these
// stand in for the named sources a Processor expects, reading whatever a
// Source chose to stash in Event.Scratch under the same name, or a
// deterministic zero value if the Source left it unset.
func Builtins() map[string]Func {
	return map[string]Func{
		"frame_index": func(ev *event.Event) (interface{}, error) {
			return ev.CurrentFrame, nil
		},
		"peak_list": func(ev *event.Event) (interface{}, error) {
			if v, ok := ev.Scratch["peak_list"]; ok {
				return v, nil
			}
			return []float64{}, nil
		},
		"spectrum": func(ev *event.Event) (interface{}, error) {
			if v, ok := ev.Scratch["spectrum"]; ok {
				return v, nil
			}
			return []float64{}, nil
		},
		"raw_frame": func(ev *event.Event) (interface{}, error) {
			if v, ok := ev.Scratch["raw_frame"]; ok {
				return v, nil
			}
			return nil, nil
		},
	}
}

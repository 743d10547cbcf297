// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package processing

import "container/ring"

// boundedHistory is a fixed-maxlen ring-buffer history deque (spec.md §3:
// AggregatorState "bounded history deques (fixed maxlen, ring-buffer
// semantics)"). container/ring is the stdlib's own ring buffer, so this
// needs nothing beyond it.
type boundedHistory struct {
	r       *ring.Ring
	maxlen  int
	count   int
}

func newBoundedHistory(maxlen int) *boundedHistory {
	if maxlen <= 0 {
		maxlen = 1
	}
	return &boundedHistory{r: ring.New(maxlen), maxlen: maxlen}
}

// push overwrites the oldest slot once the ring is full.
func (h *boundedHistory) push(v interface{}) {
	h.r.Value = v
	h.r = h.r.Next()
	if h.count < h.maxlen {
		h.count++
	}
}

// values returns the stored values, oldest first. h.r always points one
// slot past the most recently written value, so h.r.Move(-count) lands on
// the oldest value whether or not the ring has wrapped yet.
func (h *boundedHistory) values() []interface{} {
	out := make([]interface{}, 0, h.count)
	h.r.Move(-h.count).Do(func(v interface{}) {
		if len(out) < h.count {
			out = append(out, v)
		}
	})
	return out
}

func (h *boundedHistory) len() int { return h.count }

// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package event

import (
	"time"

	"github.com/slaclab/onda-go/internal/config"
)

// PsanaSource stands in for the online "psana" plugin (spec.md §6): a
// live-stream source exempt from deterministic partitioning that simply
// yields whatever the facility delivers to the local node (spec.md §4.1).
// Decoding real psana shared memory is out of scope (spec.md §1); this
// implementation demonstrates the online/unbounded-iterator shape with a
// synthetic clock-driven generator that runs until Stop is called. Stop is
// not part of the Source interface, and the fabric's SHUTDOWN path does not
// call it.
type PsanaSource struct {
	calibrationDir string
	interval       time.Duration
	stop           chan struct{}
}

func NewPsanaSource() *PsanaSource {
	return &PsanaSource{interval: 10 * time.Millisecond, stop: make(chan struct{})}
}

func (s *PsanaSource) Initialize(rank, poolSize int, cfg *config.Config) error {
	dir, _, err := config.Get[string](cfg, config.GroupDataRetrieval, "psana_calibration_directory", false)
	if err != nil {
		return err
	}
	s.calibrationDir = dir
	return nil
}

// Stop ends the synthetic live stream; safe to call once.
func (s *PsanaSource) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

func (s *PsanaSource) Events(rank, poolSize int) (<-chan *Event, <-chan error) {
	events := make(chan *Event)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errc)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case t := <-ticker.C:
				ts := float64(t.UnixNano()) / 1e9
				events <- &Event{
					Handle:     "psana-live",
					FrameCount: 1,
					Timestamp:  &ts,
					Scratch:    make(map[string]interface{}),
				}
			}
		}
	}()
	return events, errc
}

func (s *PsanaSource) Open(ev *Event) error {
	ev.opened = true
	return nil
}

func (s *PsanaSource) Close(ev *Event) error {
	ev.closed = true
	return nil
}

func (s *PsanaSource) NumFrames(ev *Event) (int, error) {
	return ev.FrameCount, nil
}

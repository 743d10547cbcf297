// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package processing

import (
	"sync"

	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/extract"
)

// Cheetah is the "cheetah" Processor (spec.md §6). The original Cheetah
// monitor is primarily a data-dump path: this implementation records
// per-frame timestamps and keeps a bounded ring buffer of recent raw-frame
// records for burst inspection, published under tag "view:omcheetah".
type Cheetah struct {
	bufferSize      int
	publishInterval int

	mu      sync.Mutex
	history *boundedHistory
	frames  int
}

func NewCheetah() *Cheetah {
	return &Cheetah{}
}

func (p *Cheetah) InitializeWorker(rank, poolSize int, cfg *config.Config) error {
	return nil
}

func (p *Cheetah) InitializeAggregator(rank, poolSize int, cfg *config.Config) error {
	size, ok, err := config.Get[int](cfg, config.GroupProcessing, "cheetah_buffer_size", false)
	if err != nil {
		return err
	}
	if !ok || size <= 0 {
		size = 10
	}
	p.bufferSize = size
	p.history = newBoundedHistory(size)

	interval, ok, err := config.Get[int](cfg, config.GroupProcessing, "publish_interval", false)
	if err != nil {
		return err
	}
	if !ok || interval <= 0 {
		interval = 1
	}
	p.publishInterval = interval
	return nil
}

func (p *Cheetah) Process(rank, poolSize int, rec extract.Record) (Payload, error) {
	return Payload{
		"timestamp": rec["timestamp"],
		"raw_frame": rec["raw_frame"],
	}, nil
}

func (p *Cheetah) Collect(rank, poolSize, sourceRank int, payload Payload) ([]Publication, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history.push(payload)
	p.frames++

	if p.frames%p.publishInterval != 0 {
		return nil, nil
	}
	return []Publication{{
		Tag: "view:omcheetah",
		Payload: Payload{
			"recent_frames": p.history.values(),
			"num_events":    p.frames,
		},
	}}, nil
}

func (p *Cheetah) EndWorker(rank, poolSize int) (Payload, bool, error) {
	return nil, false, nil
}

func (p *Cheetah) EndAggregator(rank, poolSize int) ([]Publication, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return []Publication{{
		Tag: "view:omcheetah",
		Payload: Payload{
			"recent_frames": p.history.values(),
			"num_events":    p.frames,
			"final":         true,
		},
	}}, nil
}

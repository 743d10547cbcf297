// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package processing

import (
	"sync"

	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/extract"
)

// Crystallography is the "crystallography" Processor (spec.md §6): a
// per-frame hit flag from a configured peak-count threshold, a running hit
// rate over a bounded window, and a cumulative hit count. Published under
// tag "view:omdata", the schema the companion crystallography GUI expects
// (spec.md §4.4).
type Crystallography struct {
	hitThreshold    int
	publishInterval int

	mu              sync.Mutex
	history         *boundedHistory
	cumulativeHits  int
	cumulativeTotal int
}

func NewCrystallography() *Crystallography {
	return &Crystallography{}
}

func (p *Crystallography) InitializeWorker(rank, poolSize int, cfg *config.Config) error {
	threshold, _, err := config.Get[int](cfg, config.GroupProcessing, "hit_threshold", true)
	if err != nil {
		return err
	}
	p.hitThreshold = threshold
	return nil
}

func (p *Crystallography) InitializeAggregator(rank, poolSize int, cfg *config.Config) error {
	threshold, _, err := config.Get[int](cfg, config.GroupProcessing, "hit_threshold", true)
	if err != nil {
		return err
	}
	p.hitThreshold = threshold

	window, ok, err := config.Get[int](cfg, config.GroupProcessing, "running_hit_rate_window", false)
	if err != nil {
		return err
	}
	if !ok || window <= 0 {
		window = 100
	}
	p.history = newBoundedHistory(window)

	interval, ok, err := config.Get[int](cfg, config.GroupProcessing, "publish_interval", false)
	if err != nil {
		return err
	}
	if !ok || interval <= 0 {
		interval = 10
	}
	p.publishInterval = interval
	return nil
}

func (p *Crystallography) Process(rank, poolSize int, rec extract.Record) (Payload, error) {
	peaks, _ := rec["peak_list"].([]float64)
	hit := len(peaks) >= p.hitThreshold
	return Payload{
		"hit":       hit,
		"num_peaks": len(peaks),
		"timestamp": rec["timestamp"],
	}, nil
}

func (p *Crystallography) Collect(rank, poolSize, sourceRank int, payload Payload) ([]Publication, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hit, _ := payload["hit"].(bool)
	p.history.push(hit)
	p.cumulativeTotal++
	if hit {
		p.cumulativeHits++
	}

	if p.cumulativeTotal%p.publishInterval != 0 {
		return nil, nil
	}
	return []Publication{{
		Tag: "view:omdata",
		Payload: Payload{
			"hit_rate":         p.runningHitRateLocked(),
			"cumulative_hits":  p.cumulativeHits,
			"num_events":       p.cumulativeTotal,
		},
	}}, nil
}

func (p *Crystallography) runningHitRateLocked() float64 {
	vals := p.history.values()
	if len(vals) == 0 {
		return 0
	}
	hits := 0
	for _, v := range vals {
		if b, _ := v.(bool); b {
			hits++
		}
	}
	return float64(hits) / float64(len(vals))
}

func (p *Crystallography) EndWorker(rank, poolSize int) (Payload, bool, error) {
	return nil, false, nil
}

func (p *Crystallography) EndAggregator(rank, poolSize int) ([]Publication, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return []Publication{{
		Tag: "view:omdata",
		Payload: Payload{
			"hit_rate":        p.runningHitRateLocked(),
			"cumulative_hits": p.cumulativeHits,
			"num_events":      p.cumulativeTotal,
			"final":           true,
		},
	}}, nil
}

// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package processing

import (
	"sync"

	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/extract"
)

// XES is the "xes" Processor (spec.md §6): X-ray emission spectroscopy.
// Workers pass through the extracted spectrum; the aggregator keeps a
// running elementwise sum and publishes the cumulative average spectrum
// under tag "view:omxes".
type XES struct {
	publishInterval int

	mu        sync.Mutex
	sum       []float64
	frames    int
}

func NewXES() *XES {
	return &XES{}
}

func (p *XES) InitializeWorker(rank, poolSize int, cfg *config.Config) error {
	return nil
}

func (p *XES) InitializeAggregator(rank, poolSize int, cfg *config.Config) error {
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

func (p *XES) Process(rank, poolSize int, rec extract.Record) (Payload, error) {
	spectrum, _ := rec["spectrum"].([]float64)
	return Payload{
		"spectrum":  spectrum,
		"timestamp": rec["timestamp"],
	}, nil
}

func (p *XES) Collect(rank, poolSize, sourceRank int, payload Payload) ([]Publication, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var spectrum []float64
	switch s := payload["spectrum"].(type) {
	case []float64:
		spectrum = s
	case []interface{}:
		// A payload decoded by the transport carries arrays as []interface{}.
		spectrum = make([]float64, 0, len(s))
		for _, v := range s {
			f, _ := v.(float64)
			spectrum = append(spectrum, f)
		}
	}
	p.foldLocked(spectrum)
	p.frames++

	if p.frames%p.publishInterval != 0 {
		return nil, nil
	}
	return []Publication{{
		Tag: "view:omxes",
		Payload: Payload{
			"average_spectrum": p.averageLocked(),
			"num_events":       p.frames,
		},
	}}, nil
}

func (p *XES) foldLocked(spectrum []float64) {
	if p.sum == nil {
		p.sum = make([]float64, len(spectrum))
	}
	if len(spectrum) > len(p.sum) {
		grown := make([]float64, len(spectrum))
		copy(grown, p.sum)
		p.sum = grown
	}
	for i, v := range spectrum {
		p.sum[i] += v
	}
}

func (p *XES) averageLocked() []float64 {
	if p.frames == 0 {
		return nil
	}
	avg := make([]float64, len(p.sum))
	for i, v := range p.sum {
		avg[i] = v / float64(p.frames)
	}
	return avg
}

func (p *XES) EndWorker(rank, poolSize int) (Payload, bool, error) {
	return nil, false, nil
}

func (p *XES) EndAggregator(rank, poolSize int) ([]Publication, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return []Publication{{
		Tag: "view:omxes",
		Payload: Payload{
			"average_spectrum": p.averageLocked(),
			"num_events":       p.frames,
			"final":            true,
		},
	}}, nil
}

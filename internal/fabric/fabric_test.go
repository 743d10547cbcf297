// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package fabric

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/event"
	"github.com/slaclab/onda-go/internal/extract"
	"github.com/slaclab/onda-go/internal/processing"
)

// countingSource yields `total` single-frame events, partitioned exactly
// like FilesSource, standing in for an offline EventSource in scenarios
// S1/S2 of spec.md §8.
type countingSource struct {
	total int
}

func (s *countingSource) Initialize(rank, poolSize int, cfg *config.Config) error { return nil }

func (s *countingSource) Events(rank, poolSize int) (<-chan *event.Event, <-chan error) {
	events := make(chan *event.Event)
	errc := make(chan error, 1)
	numWorkers := poolSize - 1
	start, end := event.Partition(s.total, numWorkers, rank-1)
	go func() {
		defer close(events)
		defer close(errc)
		for i := start; i < end; i++ {
			events <- &event.Event{
				FrameCount: 1,
				Scratch:    map[string]interface{}{"value": i},
			}
		}
	}()
	return events, errc
}

func (s *countingSource) Open(ev *event.Event) error  { return nil }
func (s *countingSource) Close(ev *event.Event) error { return nil }
func (s *countingSource) NumFrames(ev *event.Event) (int, error) {
	return ev.FrameCount, nil
}

// testState is shared by every rank's countingProcessor instance, standing
// in for the assertions an external test harness would make against the
// single real aggregator instance.
type testState struct {
	mu                 sync.Mutex
	collected          []int
	perRank            map[int]int
	endAggregatorCalls int
}

type countingProcessor struct {
	state *testState
}

func (p *countingProcessor) InitializeWorker(rank, poolSize int, cfg *config.Config) error {
	return nil
}
func (p *countingProcessor) InitializeAggregator(rank, poolSize int, cfg *config.Config) error {
	return nil
}

func (p *countingProcessor) Process(rank, poolSize int, rec extract.Record) (processing.Payload, error) {
	return processing.Payload{"value": rec["value"]}, nil
}

func (p *countingProcessor) Collect(rank, poolSize, sourceRank int, payload processing.Payload) ([]processing.Publication, error) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	v, _ := payload["value"].(int64)
	if v == 0 {
		if iv, ok := payload["value"].(int); ok {
			v = int64(iv)
		}
	}
	p.state.collected = append(p.state.collected, int(v))
	if p.state.perRank == nil {
		p.state.perRank = make(map[int]int)
	}
	p.state.perRank[sourceRank]++
	return nil, nil
}

func (p *countingProcessor) EndWorker(rank, poolSize int) (processing.Payload, bool, error) {
	return nil, false, nil
}

func (p *countingProcessor) EndAggregator(rank, poolSize int) ([]processing.Publication, error) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	p.state.endAggregatorCalls++
	return nil, nil
}

func valueExtractor(ev *event.Event) (interface{}, error) {
	return ev.Scratch["value"], nil
}

func registerFakes(t *testing.T, total int) (sourceID, processorID string, state *testState) {
	t.Helper()
	sourceID = fmt.Sprintf("test-counting-source-%p", t)
	processorID = fmt.Sprintf("test-counting-processor-%p", t)
	state = &testState{}

	event.Register(sourceID, func(name string) event.Source { return &countingSource{total: total} })
	processing.Register(processorID, func() processing.Processor { return &countingProcessor{state: state} })
	return sourceID, processorID, state
}

func runScenario(t *testing.T, poolSize, total int) *testState {
	t.Helper()
	sourceID, processorID, state := registerFakes(t, total)

	result := Run(RunOptions{
		PoolSize:         poolSize,
		Config:           emptyConfig(t),
		SourceIdentifier: sourceID,
		ExtractFuncs:     map[string]extract.Func{"value": valueExtractor},
		RequiredData:     []string{"value"},
		ProcessorID:      processorID,
		BroadcastAddr:    "tcp://127.0.0.1:0",
	})
	require.NoError(t, result.Err)
	require.False(t, result.ForcedShutdown)
	return state
}

// TestFabric_S1 matches spec.md §8 scenario S1: T=10 single-frame offline
// events split across the 2 workers the scenario names ("workers 1 and 2
// process 5 events each; aggregator receives 10 DATA + 2 END"). Per
// DESIGN.md's Open Question resolution, the scenario's "W" labels pool_size
// rather than worker count (§4.5 defines W = pool_size - 1), so pool_size=3
// is what yields the 2 workers the scenario text actually describes.
func TestFabric_S1(t *testing.T) {
	state := runScenario(t, 3, 10)
	assert.Len(t, state.collected, 10)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, state.collected)
	assert.Equal(t, 5, state.perRank[1])
	assert.Equal(t, 5, state.perRank[2])
	assert.Equal(t, 1, state.endAggregatorCalls)
}

// TestFabric_S2 matches scenario S2: T=11 split across the 3 workers named
// by "workers 1..3 receive 4, 4, 3 events" (pool_size=4; see TestFabric_S1's
// comment on the scenario's "W" labeling).
func TestFabric_S2(t *testing.T) {
	state := runScenario(t, 4, 11)
	assert.Len(t, state.collected, 11)
	assert.Equal(t, 4, state.perRank[1])
	assert.Equal(t, 4, state.perRank[2])
	assert.Equal(t, 3, state.perRank[3])
	assert.Equal(t, 1, state.endAggregatorCalls)
}

// TestFabric_EmptyEventStream exercises the Open Question decision recorded
// in DESIGN.md: more workers than events leaves some workers with an empty
// partition, which must still terminate cleanly.
func TestFabric_EmptyEventStream(t *testing.T) {
	state := runScenario(t, 6, 2)
	assert.Len(t, state.collected, 2)
	assert.Equal(t, 1, state.endAggregatorCalls)
}

func emptyConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/empty.yaml"
	require.NoError(t, os.WriteFile(path, []byte("data_retrieval_layer:\n  source_identifier: placeholder\n"), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

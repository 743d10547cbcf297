// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package fabric

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slaclab/onda-go/internal/broadcast"
	"github.com/slaclab/onda-go/internal/transport"
)

// TestRunAggregator_AbortTriggersShutdown exercises spec.md §8 property 3
// ("if any worker is killed before END, end_aggregator is not called unless
// SHUTDOWN intervenes") and scenario S4 (interrupt at the aggregator, DIE
// sent, DEAD received, forced-shutdown result) directly against
// RunAggregator, bypassing Run so the test keeps control of the abort
// channel and can inspect the links afterward.
func TestRunAggregator_AbortTriggersShutdown(t *testing.T) {
	poolSize := 3 // ranks 1 and 2 are workers
	links := NewLinks(poolSize)
	cfg := emptyConfig(t)
	bc := broadcast.New(1)
	defer bc.Close()

	state := &testState{}
	proc := &countingProcessor{state: state}

	// Rank 1 has already finished (sent END) before the interrupt arrives;
	// rank 2 is still running when SHUTDOWN begins.
	endFrame, err := transport.EncodeEnd(1)
	require.NoError(t, err)
	links[1].ToAggregator <- endFrame

	abort := make(chan struct{})
	resultCh := make(chan AggregatorResult, 1)
	go func() {
		resultCh <- RunAggregator(poolSize, cfg, proc, bc, links, abort)
	}()

	// Give the aggregator time to consume rank 1's END and settle into the
	// RUNNING select before the interrupt fires.
	time.Sleep(20 * time.Millisecond)
	close(abort)

	// shutdownAggregator must send DIE to every unfinished worker (rank 2)
	// before it blocks draining the inbox.
	select {
	case frame := <-links[2].ToWorker:
		env, err := transport.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, transport.Die, env.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for DIE frame to unfinished rank 2")
	}

	// Rank 1 already finished before the interrupt: it must not receive a
	// second DIE.
	select {
	case <-links[1].ToWorker:
		t.Fatal("rank 1 already finished; should not receive DIE")
	default:
	}

	// Confirm the worker's exit so shutdownAggregator's drain can complete.
	deadFrame, err := transport.EncodeDead(2)
	require.NoError(t, err)
	links[2].ToAggregator <- deadFrame

	var result AggregatorResult
	select {
	case result = <-resultCh:
	case <-time.After(time.Second):
		t.Fatal("RunAggregator did not return after DEAD was delivered")
	}

	assert.True(t, result.ForcedShutdown)
	assert.NoError(t, result.Err)

	state.mu.Lock()
	defer state.mu.Unlock()
	assert.Equal(t, 0, state.endAggregatorCalls, "EndAggregator must not run when SHUTDOWN intervenes")
}

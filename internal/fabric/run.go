// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package fabric

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/slaclab/onda-go/internal/broadcast"
	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/event"
	"github.com/slaclab/onda-go/internal/extract"
	"github.com/slaclab/onda-go/internal/logging"
	"github.com/slaclab/onda-go/internal/processing"
)

// newRunID generates the identifier every log line from this invocation
// carries, so concatenated logs from successive runs stay distinguishable.
func newRunID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

// RunOptions configures one fabric run (spec.md §4.5, §6).
type RunOptions struct {
	PoolSize         int
	Config           *config.Config
	SourceIdentifier string
	ExtractFuncs     map[string]extract.Func
	RequiredData     []string
	ProcessorID      string
	BroadcastAddr    string
}

// Result is the outcome of a complete fabric run, enough for a CLI
// entrypoint to choose an exit code (spec.md §6: 0 normal, non-zero forced).
type Result struct {
	ForcedShutdown bool
	Err            error
}

// ExitCode maps a Result to the process exit status spec.md §6 requires.
func (r Result) ExitCode() int {
	if r.ForcedShutdown || r.Err != nil {
		return 1
	}
	return 0
}

// Run wires one EventSource instance per worker rank, a shared Processor
// type (each rank gets its own instance; only the aggregator's holds
// AggregatorState), the transport links, and the BroadcastChannel, then
// drives the aggregator and every worker to completion or SHUTDOWN.
//
// Grounded on original_source/src/om/parallelization_layer/mpi.py's
// MpiParallelization.start, which performs the equivalent rank-0/rank-N
// dispatch from a single launching process.
func Run(opts RunOptions) Result {
	logging.SetRunID(newRunID())
	log := logging.For("fabric")

	if opts.PoolSize < 2 {
		return Result{Err: fmt.Errorf("pool size must be at least 2 (one aggregator, one worker), got %d", opts.PoolSize)}
	}

	bc := broadcast.New(64)
	addr := opts.BroadcastAddr
	if addr == "" {
		addr = broadcast.DefaultAddr
	}
	if err := bc.Listen(addr); err != nil {
		return Result{Err: fmt.Errorf("broadcast channel listen on %s: %w", addr, err)}
	}
	defer bc.Close()

	extractor, err := extract.New(opts.RequiredData, opts.ExtractFuncs)
	if err != nil {
		return Result{Err: err}
	}

	links := NewLinks(opts.PoolSize)
	abort := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			close(abort)
		}
	}()

	workerResults := make(chan WorkerResult, opts.PoolSize-1)
	for rank := 1; rank < opts.PoolSize; rank++ {
		src, err := event.New(opts.SourceIdentifier)
		if err != nil {
			return Result{Err: err}
		}
		proc, err := processing.New(opts.ProcessorID)
		if err != nil {
			return Result{Err: err}
		}
		go func(rank int, link Link) {
			defer close(link.ToAggregator)
			workerResults <- RunWorker(rank, opts.PoolSize, opts.Config, src, extractor, proc, link)
		}(rank, links[rank])
	}

	aggregatorProc, err := processing.New(opts.ProcessorID)
	if err != nil {
		return Result{Err: err}
	}

	agg := RunAggregator(opts.PoolSize, opts.Config, aggregatorProc, bc, links, abort)

	// agg.ForcedShutdown already reflects whether rank 0 drove SHUTDOWN; a
	// worker's own DiedOnRequest flag only ever goes true as a consequence
	// of that same shutdown (DIE received) or of its own fatal error
	// (captured below via wr.Err), so no separate OR is needed here.
	forced := agg.ForcedShutdown
	var firstErr error
	if agg.Err != nil {
		firstErr = agg.Err
	}
	for i := 1; i < opts.PoolSize; i++ {
		wr := <-workerResults
		if wr.Err != nil {
			log.WithError(wr.Err).Warn("worker exited with error")
			if firstErr == nil {
				firstErr = wr.Err
			}
		}
	}

	log.Info("run complete")
	return Result{ForcedShutdown: forced, Err: firstErr}
}

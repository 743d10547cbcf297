// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package fabric

import (
	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/errs"
	"github.com/slaclab/onda-go/internal/event"
	"github.com/slaclab/onda-go/internal/extract"
	"github.com/slaclab/onda-go/internal/logging"
	"github.com/slaclab/onda-go/internal/processing"
	"github.com/slaclab/onda-go/internal/transport"
)

// WorkerResult reports how a worker's run ended, for the caller to decide
// a process exit code (spec.md §6: 0 on normal termination, non-zero on
// forced shutdown).
type WorkerResult struct {
	DiedOnRequest bool // shut down via the SHUTDOWN path (DIE received or a fatal error) and sent DEAD
	Err           error
}

// RunWorker drives one worker rank through the loop of spec.md §4.5:
// initialize, obtain an event iterator, and for each event poll for DIE,
// open it, extract and process its last k frames with the one-in-flight
// send discipline, then close it; on exhaustion call EndWorker and send
// the END sentinel.
func RunWorker(rank, poolSize int, cfg *config.Config, src event.Source, extractor *extract.Extractor, proc processing.Processor, link Link) WorkerResult {
	log := logging.ForRank("worker", rank)

	if err := src.Initialize(rank, poolSize, cfg); err != nil {
		return workerShutdown(rank, link, &errs.FatalWorkerError{Rank: rank, Cause: err})
	}

	if err := proc.InitializeWorker(rank, poolSize, cfg); err != nil {
		return workerShutdown(rank, link, &errs.FatalWorkerError{Rank: rank, Cause: err})
	}

	numToProcess, hasLimit, err := cfg.NumFramesToProcess()
	if err != nil {
		return workerShutdown(rank, link, &errs.FatalWorkerError{Rank: rank, Cause: err})
	}

	events, errc := src.Events(rank, poolSize)

eventLoop:
	for {
		// Poll for DIE at event-loop granularity (spec.md §5): before
		// opening each new event, never mid-extraction.
		select {
		case <-link.ToWorker:
			log.Info("received DIE, shutting down")
			return workerShutdown(rank, link, nil)
		default:
		}

		ev, ok := <-events
		if !ok {
			break eventLoop
		}

		if err := src.Open(ev); err != nil {
			return workerShutdown(rank, link, &errs.FatalWorkerError{Rank: rank, Cause: err})
		}

		if err := processEvent(rank, poolSize, ev, src, extractor, proc, numToProcess, hasLimit, link, log); err != nil {
			_ = src.Close(ev)
			return workerShutdown(rank, link, err)
		}

		if err := src.Close(ev); err != nil {
			return workerShutdown(rank, link, &errs.FatalWorkerError{Rank: rank, Cause: err})
		}
	}

	if iterErr, ok := <-errc; ok && iterErr != nil {
		// Iterator-level errors are fatal to the worker (spec.md §4.1).
		return workerShutdown(rank, link, &errs.FatalWorkerError{Rank: rank, Cause: iterErr})
	}

	finalPayload, has, err := proc.EndWorker(rank, poolSize)
	if err != nil {
		return workerShutdown(rank, link, &errs.FatalWorkerError{Rank: rank, Cause: err})
	}
	if has {
		if err := sendData(rank, link, finalPayload); err != nil {
			return workerShutdown(rank, link, err)
		}
	}

	if err := sendEnd(rank, link); err != nil {
		return workerShutdown(rank, link, err)
	}

	log.Info("exhausted event sequence, exiting")
	return WorkerResult{}
}

// processEvent extracts and processes the last k frames of ev, where
// k = min(NumFrames(ev), numToProcess) if hasLimit, else all frames
// (spec.md §4.5 step 3d). Each frame's DATA send is synchronous within
// this single worker goroutine, so the one-in-flight invariant (spec.md
// §4.5, property 4 of §8) holds trivially: the next frame is never even
// extracted until the current frame's send has completed.
func processEvent(rank, poolSize int, ev *event.Event, src event.Source, extractor *extract.Extractor, proc processing.Processor, numToProcess int, hasLimit bool, link Link, log interface {
	Warn(args ...interface{})
}) error {
	n, err := src.NumFrames(ev)
	if err != nil {
		return &errs.FatalWorkerError{Rank: rank, Cause: err}
	}

	k := n
	if hasLimit && numToProcess < n {
		k = numToProcess
	}

	for frameOffset := -k; frameOffset < 0; frameOffset++ {
		ev.CurrentFrame = n + frameOffset

		rec, err := extractor.Extract(ev)
		if err != nil {
			log.Warn(err)
			continue
		}

		payload, err := proc.Process(rank, poolSize, rec)
		if err != nil {
			return &errs.FatalWorkerError{Rank: rank, Cause: err}
		}

		if err := sendData(rank, link, payload); err != nil {
			return err
		}
	}
	return nil
}

func sendData(rank int, link Link, payload processing.Payload) error {
	encoded, err := transport.EncodePayload(payload)
	if err != nil {
		return &errs.TransportError{Rank: rank, Op: "encode", Cause: err}
	}
	frame, err := transport.EncodeData(rank, encoded)
	if err != nil {
		return &errs.TransportError{Rank: rank, Op: "encode", Cause: err}
	}
	link.ToAggregator <- frame
	return nil
}

func sendEnd(rank int, link Link) error {
	frame, err := transport.EncodeEnd(rank)
	if err != nil {
		return &errs.TransportError{Rank: rank, Op: "encode", Cause: err}
	}
	link.ToAggregator <- frame
	return nil
}

// workerShutdown is the worker side of SHUTDOWN (spec.md §4.5): send
// DEAD, skip teardown of anything but the transport (there is nothing
// else to tear down in-process), and report DiedOnRequest so the caller
// can choose the right exit code.
func workerShutdown(rank int, link Link, cause error) WorkerResult {
	frame, err := transport.EncodeDead(rank)
	if err != nil {
		return WorkerResult{DiedOnRequest: true, Err: &errs.TransportError{Rank: rank, Op: "encode", Cause: err}}
	}
	link.ToAggregator <- frame
	return WorkerResult{DiedOnRequest: true, Err: cause}
}

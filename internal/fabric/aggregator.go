// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package fabric

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/slaclab/onda-go/internal/broadcast"
	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/errs"
	"github.com/slaclab/onda-go/internal/logging"
	"github.com/slaclab/onda-go/internal/processing"
	"github.com/slaclab/onda-go/internal/transport"
)

// citation is printed by rank 0 before entering RUNNING (spec.md §7).
const citation = "You are using an OM real-time monitor. Please cite: Mariani et al., J Appl Crystallogr. 2016 May 23;49(Pt 3):1073-1080"

// AggregatorResult reports how the aggregator's run ended.
type AggregatorResult struct {
	ForcedShutdown bool // driven through the SHUTDOWN path rather than DRAINING/DONE
	Err            error
}

type inboundFrame struct {
	rank int
	raw  []byte
}

// fanIn merges every worker's ToAggregator channel into one inbox, closing
// it once every worker link has been closed by its owning goroutine (see
// Run). This stands in for the aggregator's single blocking receive
// of spec.md §4.5: from the aggregator's perspective there is exactly one
// channel to read from, whichever worker it came from.
func fanIn(links []Link) <-chan inboundFrame {
	out := make(chan inboundFrame)
	var wg sync.WaitGroup
	for rank := 1; rank < len(links); rank++ {
		wg.Add(1)
		go func(rank int, ch chan []byte) {
			defer wg.Done()
			for raw := range ch {
				out <- inboundFrame{rank: rank, raw: raw}
			}
		}(rank, links[rank].ToAggregator)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// RunAggregator drives rank 0 through the RUNNING -> DRAINING -> DONE state
// machine of spec.md §4.5, or the SHUTDOWN path if abort fires or a
// transport/collect error is fatal.
func RunAggregator(poolSize int, cfg *config.Config, proc processing.Processor, bc *broadcast.Channel, links []Link, abort <-chan struct{}) AggregatorResult {
	log := logging.ForRank("aggregator", 0)
	fmt.Println(citation)

	if err := proc.InitializeAggregator(0, poolSize, cfg); err != nil {
		return AggregatorResult{Err: &errs.FatalWorkerError{Rank: 0, Cause: err}}
	}

	numWorkers := poolSize - 1
	inbox := fanIn(links)
	finished := make(map[int]bool, numWorkers)

running:
	for len(finished) < numWorkers {
		select {
		case <-abort:
			log.Info("received interrupt, initiating shutdown")
			return shutdownAggregator(log, links, inbox, numWorkers, finished, nil)

		case frame, ok := <-inbox:
			if !ok {
				// Every worker link closed before len(finished) reached
				// numWorkers: a worker goroutine returned without an END or
				// DEAD reaching the inbox. Nothing left to drain.
				break running
			}

			env, err := transport.Decode(frame.raw)
			if err != nil {
				log.WithError(err).Error("transport decode failure, initiating shutdown")
				return shutdownAggregator(log, links, inbox, numWorkers, finished,
					&errs.TransportError{Rank: frame.rank, Op: "decode", Cause: err})
			}

			switch env.Kind {
			case transport.Dead:
				markFinished(finished, env.Rank)

			case transport.Data:
				if env.End {
					markFinished(finished, env.Rank)
					continue
				}
				payload, err := transport.DecodePayload(env.Payload)
				if err != nil {
					log.WithError(err).Error("payload decode failure, initiating shutdown")
					return shutdownAggregator(log, links, inbox, numWorkers, finished,
						&errs.TransportError{Rank: env.Rank, Op: "decode-payload", Cause: err})
				}
				pubs, err := proc.Collect(0, poolSize, env.Rank, payload)
				if err != nil {
					log.WithError(err).Error("collect failure, initiating shutdown")
					return shutdownAggregator(log, links, inbox, numWorkers, finished,
						&errs.FatalWorkerError{Rank: 0, Cause: err})
				}
				publishAll(bc, log, pubs)
			}
		}
	}

	// DRAINING
	pubs, err := proc.EndAggregator(0, poolSize)
	if err != nil {
		log.WithError(err).Error("end_aggregator failure")
		return AggregatorResult{Err: &errs.FatalWorkerError{Rank: 0, Cause: err}}
	}
	publishAll(bc, log, pubs)

	log.Info("all workers terminated, shutting down")
	return AggregatorResult{}
}

func markFinished(finished map[int]bool, rank int) {
	// Termination records are idempotent (spec.md §3): a DEAD arriving for
	// a rank that already sent END, or vice versa, must not be double
	// counted.
	finished[rank] = true
}

func publishAll(bc *broadcast.Channel, log *logrus.Entry, pubs []processing.Publication) {
	for _, p := range pubs {
		encoded, err := transport.EncodePayload(p.Payload)
		if err != nil {
			log.WithError(err).Warn("publication encode failure, dropping")
			continue
		}
		bc.Publish(p.Tag, encoded)
	}
}

// shutdownAggregator implements the aggregator-initiated SHUTDOWN path of
// spec.md §4.5: send DIE to every worker not already finished, then drain
// DATA (discard) and DEAD until every worker is accounted for.
func shutdownAggregator(log *logrus.Entry, links []Link, inbox <-chan inboundFrame, numWorkers int, finished map[int]bool, cause error) AggregatorResult {
	for rank := 1; rank <= numWorkers; rank++ {
		if finished[rank] {
			continue
		}
		frame, err := transport.EncodeDie(rank)
		if err != nil {
			return AggregatorResult{ForcedShutdown: true, Err: &errs.TransportError{Rank: rank, Op: "encode", Cause: err}}
		}
		select {
		case links[rank].ToWorker <- frame:
		default:
			// Worker is already gone or already has a pending DIE; either
			// way it is on its way out.
		}
	}

	remaining := numWorkers - len(finished)
	for remaining > 0 {
		frame, ok := <-inbox
		if !ok {
			break
		}
		env, err := transport.Decode(frame.raw)
		if err != nil {
			continue // malformed frames during drain are ignored, not fatal
		}
		if env.Kind == transport.Dead && !finished[env.Rank] {
			finished[env.Rank] = true
			remaining--
		}
		if env.Kind == transport.Data && env.End && !finished[env.Rank] {
			finished[env.Rank] = true
			remaining--
		}
		// Ordinary DATA frames are discarded during the drain (spec.md §4.5).
	}

	log.WithError(cause).Warn("shutdown complete")
	return AggregatorResult{ForcedShutdown: true, Err: cause}
}

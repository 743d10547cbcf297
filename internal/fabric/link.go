// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

// Package fabric implements the Parallelization control plane (spec.md
// §4.5): the master/worker state machine that wires EventSource,
// DataExtractor, Processor, and BroadcastChannel together, and owns
// startup, dispatch, in-flight message discipline, and shutdown.
//
// Topology: rank 0 is the aggregator; ranks 1..poolSize-1 are workers.
// Workers never communicate with each other (spec.md §4.5). The fabric
// runs as a fixed pool of goroutines, one per rank, each with its own pair
// of channels to the aggregator — the "threads, provided each has its own
// transport endpoint" allowance of spec.md §5. Frames crossing a Link are
// msgpack-encoded bytes (internal/transport), so the channel stands in
// for a real socket without pretending the fabric is literally
// message-passing hardware.
//
// Grounded directly on original_source/src/om/parallelization_layer/mpi.py,
// whose MPI send/recv/Iprobe loop this package re-expresses as Go
// channels and select.
package fabric

// Link is the pair of channels one worker rank shares with the
// aggregator.
type Link struct {
	// ToAggregator carries DATA, END, and DEAD frames from this worker.
	ToAggregator chan []byte
	// ToWorker carries DIE frames to this worker.
	ToWorker chan []byte
}

// NewLinks allocates one Link per worker rank (1..poolSize-1). Index 0 is
// present but unused (rank 0 is the aggregator, not a worker).
func NewLinks(poolSize int) []Link {
	links := make([]Link, poolSize)
	for i := 1; i < poolSize; i++ {
		links[i] = Link{
			// ToAggregator is modestly buffered: a worker's single
			// in-flight send (spec.md §4.5) still backpressures once the
			// aggregator falls behind, it just tolerates a short burst
			// before blocking.
			ToAggregator: make(chan []byte, 4),
			// ToWorker only ever carries one DIE; size 1 so the
			// aggregator's send never blocks even if the worker is busy
			// mid-frame.
			ToWorker: make(chan []byte, 1),
		}
	}
	return links
}

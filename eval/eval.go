// Copyright 2025 Kiln ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package eval is the public entry point of the evaluation pipeline:
// it partitions a dataset into contiguous chunks, applies a compiled
// kernel to each chunk on a bounded worker pool, and reassembles the
// per-chunk outputs in input order.
//
// Example:
//
//	points, _ := dataset.Uniform(100000, 3, 1)
//	prog := kernel.EuclideanDistance([]float64{0.5, 0.5, 0.5})
//	out, err := eval.Evaluate(ctx, points, prog, eval.Options{Chunks: 8, Workers: 4})
//
// The result always has exactly one output record per input record, in
// input order, regardless of the order workers finish in. Parallel
// speed-up is contingent on the kernel being compute-bound; for a
// trivially cheap kernel the pool is pure overhead.
package eval

import (
	"context"

	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/dispatch"
	"github.com/kiln-ml/kiln/internal/eval"
	"github.com/kiln-ml/kiln/internal/kernel"
)

// Options configures one evaluation call. The zero value selects
// defaults: hardware-parallelism workers, one chunk per worker, the
// default small-dataset threshold and the process-wide artifact cache.
type Options = eval.Options

// ChunkError reports a kernel application failure inside one chunk.
type ChunkError = dispatch.ChunkError

// DefaultSmallThreshold is the dataset size at or below which the
// worker pool is bypassed.
const DefaultSmallThreshold = eval.DefaultSmallThreshold

// Workers returns the default worker pool size, bound to available
// hardware parallelism.
func Workers() int { return dispatch.Workers() }

// Evaluate applies kern to every record of data and returns the
// outputs in record order. On any compilation or chunk failure the
// whole call fails; no partial result is ever returned.
func Evaluate(ctx context.Context, data *dataset.Matrix, kern kernel.Kernel, opts Options) (*dataset.Matrix, error) {
	return eval.Evaluate(ctx, data, kern, opts)
}

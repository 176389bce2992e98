// Package dispatch runs chunk tasks on a bounded worker pool and
// collects per-chunk results keyed by chunk index, so that workers
// finishing in any order can never corrupt the final record order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/kernel"
	"github.com/kiln-ml/kiln/internal/partition"
)

// ErrBadWorkers reports a non-positive worker count.
var ErrBadWorkers = errors.New("dispatch: worker count must be >= 1")

// ChunkError reports a kernel application failure inside one chunk.
// The whole evaluation fails rather than returning a short result.
type ChunkError struct {
	Chunk int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("dispatch: chunk %d: %v", e.Chunk, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Workers returns the default pool size, bound to available hardware
// parallelism.
func Workers() int { return runtime.NumCPU() }

// Run applies kern to every record of data, one task per chunk, with
// at most workers tasks in flight. Each task resolves the compiled
// artifact through cache, so concurrent first use across tasks still
// compiles at most once. Per-chunk output blocks are returned in chunk
// index order along with the artifact's output width.
//
// Run blocks until every started task has finished. On the first
// failing task remaining unstarted tasks are skipped and the failure
// is returned; no partial results are exposed.
func Run(ctx context.Context, data *dataset.Matrix, kern kernel.Kernel, cache *kernel.Cache, chunks []partition.Chunk, workers int) ([][]float64, int, error) {
	if workers < 1 {
		return nil, 0, fmt.Errorf("%w: got %d", ErrBadWorkers, workers)
	}
	if cache == nil {
		cache = kernel.Default()
	}
	if len(chunks) == 0 {
		return nil, 0, nil
	}

	blocks := make([][]float64, len(chunks))
	var outWidth atomic.Int64

	parent := ctx
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, c := range chunks {
		i, c := i, c
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			art, err := cache.GetOrCompile(kern.Signature(), kern.Compile)
			if err != nil {
				return err
			}
			if data.Width() != art.InWidth() {
				return fmt.Errorf("dispatch: dataset width %d, kernel expects %d", data.Width(), art.InWidth())
			}
			outWidth.Store(int64(art.OutWidth()))

			block := make([]float64, c.Len()*art.OutWidth())
			if err := art.ApplyBatch(block, data.Slice(c.Start, c.End)); err != nil {
				return &ChunkError{Chunk: i, Err: err}
			}
			blocks[i] = block
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	// A parent cancellation with no failing task still means chunks may
	// have been skipped; never hand back a short result.
	if err := parent.Err(); err != nil {
		return nil, 0, err
	}
	return blocks, int(outWidth.Load()), nil
}

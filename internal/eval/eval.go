// Package eval composes the evaluation pipeline: partition the
// dataset, dispatch chunk tasks on a bounded pool, and merge per-chunk
// outputs back into input order.
//
// The parallel speed-up is contingent on the kernel artifact being
// native-compute-bound; for a trivially cheap kernel the pool is pure
// overhead and the small-dataset bypass is the only fast path.
package eval

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiln-ml/kiln/internal/aggregate"
	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/dispatch"
	"github.com/kiln-ml/kiln/internal/kernel"
	"github.com/kiln-ml/kiln/internal/partition"
)

// DefaultSmallThreshold is the dataset size at or below which
// Evaluate applies the kernel directly instead of spinning up the
// pool. Matches a cache-line-aware minimum chunk of work.
const DefaultSmallThreshold = 64

// Validation errors.
var (
	ErrNilDataset   = errors.New("eval: nil dataset")
	ErrNilKernel    = errors.New("eval: nil kernel")
	ErrBadThreshold = errors.New("eval: small-dataset threshold must be >= 0")
)

// Options configures one evaluation call. The zero value selects
// defaults: hardware-parallelism workers, one chunk per worker, the
// default bypass threshold and the process-wide artifact cache.
// Negative values are rejected before any dispatch occurs.
type Options struct {
	// Chunks is the number of contiguous dataset chunks.
	Chunks int

	// Workers bounds the number of chunk tasks in flight.
	Workers int

	// SmallThreshold is the dataset size at or below which the pool is
	// bypassed and the kernel applied directly. Observably equivalent
	// to the general path.
	SmallThreshold int

	// Cache is the compiled-artifact cache to consult. Nil selects the
	// process-wide cache.
	Cache *kernel.Cache
}

// withDefaults fills unset (zero) fields.
func (o Options) withDefaults() Options {
	if o.Workers == 0 {
		o.Workers = dispatch.Workers()
	}
	if o.Chunks == 0 {
		o.Chunks = o.Workers
	}
	if o.SmallThreshold == 0 {
		o.SmallThreshold = DefaultSmallThreshold
	}
	if o.Cache == nil {
		o.Cache = kernel.Default()
	}
	return o
}

// validate rejects negative settings eagerly, before any goroutine
// starts or any compilation is attempted.
func (o Options) validate() error {
	if o.Chunks < 0 {
		return fmt.Errorf("%w: got %d", partition.ErrBadCount, o.Chunks)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: got %d", dispatch.ErrBadWorkers, o.Workers)
	}
	if o.SmallThreshold < 0 {
		return fmt.Errorf("%w: got %d", ErrBadThreshold, o.SmallThreshold)
	}
	return nil
}

// Evaluate applies kern to every record of data and returns the
// outputs in record order. The result always has exactly data.Rows()
// records; on any compilation or chunk failure the whole call fails
// and no partial result is returned.
//
// The dataset is borrowed read-only for the duration of the call.
// Cancellation is observed between chunks only; Evaluate always joins
// in-flight workers before returning.
func Evaluate(ctx context.Context, data *dataset.Matrix, kern kernel.Kernel, opts Options) (*dataset.Matrix, error) {
	if data == nil {
		return nil, ErrNilDataset
	}
	if kern == nil {
		return nil, ErrNilKernel
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	o := opts.withDefaults()

	rows := data.Rows()
	if rows == 0 {
		// Nothing to do: no compilation, no dispatch.
		return dataset.Empty(), nil
	}

	if rows <= o.SmallThreshold {
		return direct(data, kern, o.Cache)
	}

	chunks, err := partition.Plan(rows, o.Chunks)
	if err != nil {
		return nil, err
	}

	blocks, width, err := dispatch.Run(ctx, data, kern, o.Cache, chunks, o.Workers)
	if err != nil {
		return nil, err
	}
	return aggregate.Merge(blocks, rows, width)
}

// direct is the small-dataset bypass: one cache consult, one batch
// application on the calling goroutine.
func direct(data *dataset.Matrix, kern kernel.Kernel, cache *kernel.Cache) (*dataset.Matrix, error) {
	art, err := cache.GetOrCompile(kern.Signature(), kern.Compile)
	if err != nil {
		return nil, err
	}
	if data.Width() != art.InWidth() {
		return nil, fmt.Errorf("eval: dataset width %d, kernel expects %d", data.Width(), art.InWidth())
	}

	out, err := dataset.New(data.Rows(), art.OutWidth())
	if err != nil {
		return nil, err
	}
	if err := art.ApplyBatch(out.Data(), data.Data()); err != nil {
		return nil, err
	}
	return out, nil
}

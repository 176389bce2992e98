package eval

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/dispatch"
	"github.com/kiln-ml/kiln/internal/kernel"
	"github.com/kiln-ml/kiln/internal/partition"
)

// countingKernel tracks compile invocations.
type countingKernel struct {
	prog     kernel.Program
	compiles atomic.Int64
}

func (k *countingKernel) Signature() kernel.Signature { return k.prog.Signature() }

func (k *countingKernel) Compile() (*kernel.Artifact, error) {
	k.compiles.Add(1)
	return k.prog.Compile()
}

// sequentialApply is the reference implementation: unchunked,
// single-goroutine application.
func sequentialApply(t *testing.T, data *dataset.Matrix, prog kernel.Program) *dataset.Matrix {
	t.Helper()
	art, err := prog.Compile()
	require.NoError(t, err)
	out, err := dataset.New(data.Rows(), art.OutWidth())
	require.NoError(t, err)
	require.NoError(t, art.ApplyBatch(out.Data(), data.Data()))
	return out
}

func TestEvaluate_MatchesSequentialApply(t *testing.T) {
	const rows = 5000
	data, err := dataset.Uniform(rows, 3, 11)
	require.NoError(t, err)
	prog := kernel.EuclideanDistance([]float64{0.25, 0.5, 0.75})

	got, err := Evaluate(context.Background(), data, prog, Options{
		Chunks:  7,
		Workers: 3,
		Cache:   kernel.NewCache(),
	})
	require.NoError(t, err)

	want := sequentialApply(t, data, prog)
	require.Equal(t, want.Rows(), got.Rows())
	for i := range want.Data() {
		assert.Equal(t, want.Data()[i], got.Data()[i], "row %d", i)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	data, err := dataset.Normal(700, 4, 3)
	require.NoError(t, err)
	prog := kernel.Affine(4, 2.5, -1)
	opts := Options{Chunks: 5, Workers: 2, Cache: kernel.NewCache()}

	a, err := Evaluate(context.Background(), data, prog, opts)
	require.NoError(t, err)
	b, err := Evaluate(context.Background(), data, prog, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Data(), b.Data())
}

func TestEvaluate_EmptyDataset(t *testing.T) {
	data := dataset.Empty()
	k := &countingKernel{prog: kernel.SquaredNorm(3)}
	cache := kernel.NewCache()

	got, err := Evaluate(context.Background(), data, k, Options{Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Rows())
	assert.Equal(t, int64(0), k.compiles.Load(), "empty dataset must not compile")
	assert.Equal(t, int64(0), cache.Compiles())
}

func TestEvaluate_MoreChunksThanRows(t *testing.T) {
	data, err := dataset.Uniform(5, 2, 9)
	require.NoError(t, err)
	prog := kernel.SquaredNorm(2)

	got, err := Evaluate(context.Background(), data, prog, Options{
		Chunks:         12,
		Workers:        4,
		SmallThreshold: 1, // force the chunked path
		Cache:          kernel.NewCache(),
	})
	require.NoError(t, err)

	want := sequentialApply(t, data, prog)
	assert.Equal(t, want.Data(), got.Data())
}

func TestEvaluate_SmallDatasetBypass(t *testing.T) {
	data, err := dataset.Uniform(32, 3, 5)
	require.NoError(t, err)
	prog := kernel.EuclideanDistance([]float64{0, 0, 0})

	// Default threshold (64) routes this through the direct path.
	direct, err := Evaluate(context.Background(), data, prog, Options{Cache: kernel.NewCache()})
	require.NoError(t, err)

	// Forced chunked path must be observably equivalent.
	chunked, err := Evaluate(context.Background(), data, prog, Options{
		Chunks:         4,
		Workers:        4,
		SmallThreshold: 1,
		Cache:          kernel.NewCache(),
	})
	require.NoError(t, err)

	assert.Equal(t, chunked.Data(), direct.Data())
}

func TestEvaluate_ConcurrentCallersCompileOnce(t *testing.T) {
	const callers = 8
	data, err := dataset.Uniform(2000, 3, 1)
	require.NoError(t, err)

	k := &countingKernel{prog: kernel.EuclideanDistance([]float64{1, 1, 1})}
	cache := kernel.NewCache()
	results := make([]*dataset.Matrix, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := Evaluate(context.Background(), data, k, Options{
				Chunks:  4,
				Workers: 2,
				Cache:   cache,
			})
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), cache.Compiles(), "concurrent evaluates with one signature must compile once")
	for i := 1; i < callers; i++ {
		require.Equal(t, results[0].Data(), results[i].Data(), "caller %d diverged", i)
	}
}

func TestEvaluate_ScenarioEuclidean100k(t *testing.T) {
	const rows = 100000
	data, err := dataset.Uniform(rows, 3, 2024)
	require.NoError(t, err)

	center := []float64{0.5, 0.5, 0.5}
	prog := kernel.EuclideanDistance(center)

	got, err := Evaluate(context.Background(), data, prog, Options{
		Chunks:  8,
		Workers: 4,
		Cache:   kernel.NewCache(),
	})
	require.NoError(t, err)
	require.Equal(t, rows, got.Rows())

	for i := 0; i < rows; i++ {
		rec := data.Row(i)
		dx, dy, dz := rec[0]-center[0], rec[1]-center[1], rec[2]-center[2]
		want := math.Sqrt(dx*dx + dy*dy + dz*dz)

		d := got.Row(i)[0]
		require.GreaterOrEqual(t, d, 0.0, "row %d: negative distance", i)
		require.InDelta(t, want, d, 1e-9, "row %d", i)
	}
}

func TestEvaluate_CompileFailureLeavesCacheRetryable(t *testing.T) {
	data, err := dataset.Uniform(500, 2, 8)
	require.NoError(t, err)

	bad := kernel.Program{Width: 2, Instrs: []kernel.Instr{{Code: kernel.OpMulVec}}}
	cache := kernel.NewCache()

	_, err = Evaluate(context.Background(), data, bad, Options{Cache: cache})
	require.Error(t, err)
	var cerr *kernel.CompileError
	assert.ErrorAs(t, err, &cerr)
	assert.Equal(t, 0, cache.Len(), "failed compilation must not be cached")

	// Same cache, valid kernel: compiles fresh.
	good := kernel.SquaredNorm(2)
	_, err = Evaluate(context.Background(), data, good, Options{Cache: cache})
	assert.NoError(t, err)
}

func TestEvaluate_EagerValidation(t *testing.T) {
	data, err := dataset.Uniform(10, 2, 1)
	require.NoError(t, err)
	prog := kernel.SquaredNorm(2)

	_, err = Evaluate(context.Background(), data, prog, Options{Chunks: -1})
	assert.ErrorIs(t, err, partition.ErrBadCount)

	_, err = Evaluate(context.Background(), data, prog, Options{Workers: -3})
	assert.ErrorIs(t, err, dispatch.ErrBadWorkers)

	_, err = Evaluate(context.Background(), data, prog, Options{SmallThreshold: -1})
	assert.ErrorIs(t, err, ErrBadThreshold)

	_, err = Evaluate(context.Background(), nil, prog, Options{})
	assert.ErrorIs(t, err, ErrNilDataset)

	_, err = Evaluate(context.Background(), data, nil, Options{})
	assert.ErrorIs(t, err, ErrNilKernel)
}

func TestEvaluate_LengthInvariant(t *testing.T) {
	for _, rows := range []int{0, 1, 63, 64, 65, 1000} {
		data, err := dataset.Uniform(rows, 3, int64(rows))
		require.NoError(t, err)

		out, err := Evaluate(context.Background(), data, kernel.SquaredNorm(3), Options{
			Chunks:  3,
			Workers: 2,
			Cache:   kernel.NewCache(),
		})
		require.NoError(t, err)
		assert.Equal(t, rows, out.Rows(), "rows=%d", rows)
	}
}

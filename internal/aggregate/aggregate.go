// Package aggregate reassembles per-chunk output blocks into one
// result matrix in chunk-index order.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/kiln-ml/kiln/internal/dataset"
)

// ErrSizeMismatch reports blocks whose combined size disagrees with
// the expected result shape.
var ErrSizeMismatch = errors.New("aggregate: block sizes do not match result shape")

// Merge concatenates blocks in index order into a rows x width result.
// Pure: its only failure mode is a shape disagreement, which indicates
// an upstream dispatch bug rather than a data problem.
func Merge(blocks [][]float64, rows, width int) (*dataset.Matrix, error) {
	if rows == 0 {
		return dataset.Empty(), nil
	}

	out, err := dataset.New(rows, width)
	if err != nil {
		return nil, err
	}

	flat := out.Data()
	off := 0
	for i, block := range blocks {
		if off+len(block) > len(flat) {
			return nil, fmt.Errorf("%w: block %d overflows %d values", ErrSizeMismatch, i, len(flat))
		}
		copy(flat[off:], block)
		off += len(block)
	}
	if off != len(flat) {
		return nil, fmt.Errorf("%w: have %d values, want %d", ErrSizeMismatch, off, len(flat))
	}
	return out, nil
}

// Package dataset provides the read-only record storage the evaluation
// pipeline borrows: an ordered sequence of fixed-width float64 records
// backed by one flat row-major buffer.
package dataset

import (
	"errors"
	"fmt"
)

// Construction errors.
var (
	ErrBadWidth = errors.New("dataset: record width must be >= 1")
	ErrBadShape = errors.New("dataset: data length not divisible by record width")
)

// Matrix is an ordered, fixed-length sequence of fixed-width float64
// records. The evaluation pipeline only ever reads it; callers must
// not mutate a matrix while an evaluation over it is in flight.
type Matrix struct {
	data  []float64
	rows  int
	width int
}

// FromSlice wraps a flat row-major slice as a matrix without copying.
// The caller keeps ownership of the backing slice.
func FromSlice(data []float64, width int) (*Matrix, error) {
	if width < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadWidth, width)
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("%w: %d %% %d != 0", ErrBadShape, len(data), width)
	}
	return &Matrix{data: data, rows: len(data) / width, width: width}, nil
}

// New allocates a zeroed matrix with the given shape.
func New(rows, width int) (*Matrix, error) {
	if width < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadWidth, width)
	}
	if rows < 0 {
		return nil, fmt.Errorf("dataset: rows must be >= 0, got %d", rows)
	}
	return &Matrix{data: make([]float64, rows*width), rows: rows, width: width}, nil
}

// Empty returns a matrix with no rows.
func Empty() *Matrix {
	return &Matrix{}
}

// Rows returns the number of records.
func (m *Matrix) Rows() int { return m.rows }

// Width returns the number of lanes per record.
func (m *Matrix) Width() int { return m.width }

// Row returns record i as a view into the backing buffer. No copy.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.width : (i+1)*m.width]
}

// Slice returns the flat row-major block for rows [start, end) as a
// view into the backing buffer. No copy.
func (m *Matrix) Slice(start, end int) []float64 {
	return m.data[start*m.width : end*m.width]
}

// Data returns the whole backing buffer as a flat view.
func (m *Matrix) Data() []float64 { return m.data }

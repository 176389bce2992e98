// Package partition splits an ordered dataset into contiguous,
// non-overlapping chunks for parallel dispatch.
package partition

import (
	"errors"
	"fmt"
)

// Planning errors.
var (
	ErrBadLength = errors.New("partition: length must be >= 0")
	ErrBadCount  = errors.New("partition: chunk count must be >= 1")
)

// Chunk is a half-open row range [Start, End) into a dataset.
type Chunk struct {
	Start int
	End   int
}

// Len returns the number of rows in the chunk.
func (c Chunk) Len() int { return c.End - c.Start }

// Plan splits [0, length) into count contiguous chunks in ascending
// order. Chunk sizes differ by at most one row; the remainder goes to
// the earliest chunks. A zero length yields an empty plan. A count
// larger than length yields trailing empty chunks rather than an
// error.
func Plan(length, count int) ([]Chunk, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBadLength, length)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadCount, count)
	}
	if length == 0 {
		return nil, nil
	}

	base := length / count
	rem := length % count

	chunks := make([]Chunk, count)
	start := 0
	for i := range chunks {
		size := base
		if i < rem {
			size++
		}
		chunks[i] = Chunk{Start: start, End: start + size}
		start += size
	}
	return chunks, nil
}

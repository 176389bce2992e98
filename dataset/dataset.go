// Copyright 2025 Kiln ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset is the public API for the record storage the
// evaluation pipeline reads: fixed-width float64 records backed by one
// flat row-major buffer, borrowed read-only for the duration of an
// evaluation call.
package dataset

import (
	"github.com/kiln-ml/kiln/internal/dataset"
)

// Matrix is an ordered, fixed-length sequence of fixed-width float64
// records.
type Matrix = dataset.Matrix

// FromSlice wraps a flat row-major slice as a matrix without copying.
//
// Example:
//
//	points, err := dataset.FromSlice(flat, 3) // rows of 3-D points
func FromSlice(data []float64, width int) (*Matrix, error) {
	return dataset.FromSlice(data, width)
}

// New allocates a zeroed matrix with the given shape.
func New(rows, width int) (*Matrix, error) { return dataset.New(rows, width) }

// Empty returns a matrix with no rows.
func Empty() *Matrix { return dataset.Empty() }

// Uniform generates seeded records drawn from U(0, 1).
func Uniform(rows, width int, seed int64) (*Matrix, error) {
	return dataset.Uniform(rows, width, seed)
}

// Normal generates seeded records drawn from N(0, 1).
func Normal(rows, width int, seed int64) (*Matrix, error) {
	return dataset.Normal(rows, width, seed)
}

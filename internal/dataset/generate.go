package dataset

import (
	"math/rand"
)

// Uniform generates rows records of width lanes drawn from U(0, 1),
// seeded for reproducible benchmarks.
func Uniform(rows, width int, seed int64) (*Matrix, error) {
	m, err := New(rows, width)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range m.data {
		m.data[i] = rng.Float64()
	}
	return m, nil
}

// Normal generates rows records of width lanes drawn from N(0, 1),
// seeded for reproducible benchmarks.
func Normal(rows, width int, seed int64) (*Matrix, error) {
	m, err := New(rows, width)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range m.data {
		m.data[i] = rng.NormFloat64()
	}
	return m, nil
}

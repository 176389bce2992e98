package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkCover asserts the plan covers [0, length) exactly once in
// ascending order with sizes differing by at most one row.
func checkCover(t *testing.T, chunks []Chunk, length int) {
	t.Helper()

	total := 0
	next := 0
	minLen, maxLen := length, 0
	for i, c := range chunks {
		require.Equal(t, next, c.Start, "chunk %d not contiguous", i)
		require.LessOrEqual(t, c.Start, c.End, "chunk %d inverted", i)
		next = c.End
		total += c.Len()
		if c.Len() < minLen {
			minLen = c.Len()
		}
		if c.Len() > maxLen {
			maxLen = c.Len()
		}
	}
	require.Equal(t, length, total, "sizes must sum to length")
	if len(chunks) > 0 {
		require.Equal(t, length, chunks[len(chunks)-1].End)
		assert.LessOrEqual(t, maxLen-minLen, 1, "sizes differ by more than one")
	}
}

func TestPlan_Cover(t *testing.T) {
	lengths := []int{0, 1, 2, 3, 7, 8, 63, 64, 65, 1000, 99999}
	counts := []int{1, 2, 3, 4, 7, 8, 16, 100}

	for _, l := range lengths {
		for _, c := range counts {
			chunks, err := Plan(l, c)
			require.NoError(t, err, "Plan(%d, %d)", l, c)
			checkCover(t, chunks, l)
		}
	}
}

func TestPlan_RemainderToEarliestChunks(t *testing.T) {
	chunks, err := Plan(10, 4)
	require.NoError(t, err)

	want := []Chunk{{0, 3}, {3, 6}, {6, 8}, {8, 10}}
	assert.Equal(t, want, chunks)
}

func TestPlan_ZeroLength(t *testing.T) {
	chunks, err := Plan(0, 8)
	require.NoError(t, err)
	assert.Empty(t, chunks, "zero-length dataset yields an empty plan")
}

func TestPlan_MoreChunksThanRows(t *testing.T) {
	chunks, err := Plan(3, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 5)

	want := []Chunk{{0, 1}, {1, 2}, {2, 3}, {3, 3}, {3, 3}}
	assert.Equal(t, want, chunks)
}

func TestPlan_Invalid(t *testing.T) {
	_, err := Plan(-1, 4)
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = Plan(10, 0)
	assert.ErrorIs(t, err, ErrBadCount)

	_, err = Plan(10, -2)
	assert.ErrorIs(t, err, ErrBadCount)
}

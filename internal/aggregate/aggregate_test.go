package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_Order(t *testing.T) {
	blocks := [][]float64{
		{0, 1, 2},
		{3, 4},
		{},
		{5},
	}

	m, err := Merge(blocks, 6, 1)
	require.NoError(t, err)
	require.Equal(t, 6, m.Rows())
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, m.Data())
}

func TestMerge_WideRecords(t *testing.T) {
	blocks := [][]float64{
		{1, 2, 3, 4},
		{5, 6},
	}

	m, err := Merge(blocks, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, 2, m.Width())
	assert.Equal(t, []float64{5, 6}, m.Row(2))
}

func TestMerge_Empty(t *testing.T) {
	m, err := Merge(nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Rows())
}

func TestMerge_SizeMismatch(t *testing.T) {
	_, err := Merge([][]float64{{1, 2}}, 3, 1)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = Merge([][]float64{{1, 2, 3, 4}}, 3, 1)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

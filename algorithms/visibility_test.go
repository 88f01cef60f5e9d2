package algorithms

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityRadius(t *testing.T) {
	g := NewGrid(30, 30)
	ok, err := g.IsVisible(cell(5, 5), cell(5, 20), 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.IsVisible(cell(5, 5), cell(5, 8), 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVisibilitySameCell(t *testing.T) {
	g := NewGrid(3, 3)
	ok, err := g.IsVisible(cell(1, 1), cell(1, 1), 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVisibilityInvalid(t *testing.T) {
	g := NewGrid(3, 3)
	_, err := g.IsVisible(cell(0, 0), cell(3, 3), 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = g.IsVisible(cell(0, 0), cell(1, 1), -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestVisibilityWallBlocks(t *testing.T) {
	g := NewGrid(5, 5)
	require.NoError(t, g.AddObstacle(cell(2, 2)))
	ok, err := g.IsVisible(cell(2, 0), cell(2, 4), 10)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.IsVisible(cell(0, 0), cell(0, 4), 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLineCellsCount(t *testing.T) {
	cells := LineCells(cell(0, 0), cell(3, 2))
	assert.Len(t, cells, 6)
	assert.Equal(t, cell(0, 0), cells[0])
	assert.Equal(t, cell(3, 2), cells[len(cells)-1])
}

// 모서리를 스치는 벽: 오차 0 일 때 열을 먼저 밟으므로 한쪽 방향만 막힌다.
func TestVisibilityGrazingCorner(t *testing.T) {
	g := NewGrid(2, 2)
	require.NoError(t, g.AddObstacle(cell(0, 1)))

	forward, err := g.IsVisible(cell(0, 0), cell(1, 1), 5)
	require.NoError(t, err)
	backward, err := g.IsVisible(cell(1, 1), cell(0, 0), 5)
	require.NoError(t, err)

	assert.False(t, forward)
	assert.True(t, backward)
}

func TestVisibilitySymmetryStraightLines(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	g := NewGrid(12, 12)
	for i := 0; i < 30; i++ {
		_ = g.AddObstacle(cell(rng.Intn(12), rng.Intn(12)))
	}
	for i := 0; i < 200; i++ {
		a := cell(rng.Intn(12), rng.Intn(12))
		b := a
		if i%2 == 0 {
			b.Row = rng.Intn(12)
		} else {
			b.Col = rng.Intn(12)
		}
		ab, err := g.IsVisible(a, b, 20)
		require.NoError(t, err)
		ba, err := g.IsVisible(b, a, 20)
		require.NoError(t, err)
		assert.Equal(t, ab, ba, "%s <-> %s", a, b)
	}
}

func TestVisibilitySymmetryOpenGrid(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := NewGrid(15, 15)
	for i := 0; i < 200; i++ {
		a := cell(rng.Intn(15), rng.Intn(15))
		b := cell(rng.Intn(15), rng.Intn(15))
		ab, err := g.IsVisible(a, b, 10)
		require.NoError(t, err)
		ba, err := g.IsVisible(b, a, 10)
		require.NoError(t, err)
		assert.Equal(t, ab, ba, "%s <-> %s", a, b)
	}
}

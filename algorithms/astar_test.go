package algorithms

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sion-backend/models"
)

func bfsDistance(g *Grid, start, goal models.Cell) int {
	dist := map[models.Cell]int{start: 0}
	queue := []models.Cell{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == goal {
			return dist[cur]
		}
		for _, n := range g.Neighbors(cur) {
			if g.IsWall(n) {
				continue
			}
			if _, seen := dist[n]; seen {
				continue
			}
			dist[n] = dist[cur] + 1
			queue = append(queue, n)
		}
	}
	return -1
}

func TestFindPathMatchesBFS(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 100; round++ {
		h, w := 3+rng.Intn(8), 3+rng.Intn(8)
		g := NewGrid(h, w)
		for i := 0; i < h*w/4; i++ {
			_ = g.AddObstacle(cell(rng.Intn(h), rng.Intn(w)))
		}
		start := cell(rng.Intn(h), rng.Intn(w))
		goal := cell(rng.Intn(h), rng.Intn(w))
		if g.IsWall(start) || g.IsWall(goal) {
			continue
		}

		want := bfsDistance(g, start, goal)
		path, err := g.FindPath(start, goal)
		if want < 0 {
			assert.ErrorIs(t, err, ErrUnreachable)
			continue
		}
		require.NoError(t, err)
		assert.Len(t, path, want+1)
		assert.Equal(t, start, path[0])
		assert.Equal(t, goal, path[len(path)-1])
		for i := 1; i < len(path); i++ {
			assert.Equal(t, 1, path[i-1].Manhattan(path[i]))
			assert.False(t, g.IsWall(path[i]))
		}
	}
}

func TestFindPathDroneColumn(t *testing.T) {
	g := NewGrid(100, 100)
	path, err := g.FindPath(cell(0, 50), cell(10, 50))
	require.NoError(t, err)
	require.Len(t, path, 11)

	dirs, err := PathDirections(path)
	require.NoError(t, err)
	require.Len(t, dirs, 10)
	for _, d := range dirs {
		assert.Equal(t, models.Down, d)
		assert.Equal(t, "down", d.Heading())
	}
}

func TestFindPathEdgeCases(t *testing.T) {
	g := NewGrid(4, 4)
	require.NoError(t, g.AddObstacle(cell(3, 3)))

	path, err := g.FindPath(cell(1, 1), cell(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []models.Cell{cell(1, 1)}, path)

	_, err = g.FindPath(cell(0, 0), cell(4, 0))
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = g.FindPath(cell(0, 0), cell(3, 3))
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestFindPathIgnoresAgents(t *testing.T) {
	g := NewGrid(1, 3)
	require.NoError(t, g.Place(cell(0, 1), Agent(9)))
	path, err := g.FindPath(cell(0, 0), cell(0, 2))
	require.NoError(t, err)
	assert.Len(t, path, 3)
}

func TestFindPathDeterministic(t *testing.T) {
	g := NewGrid(6, 6)
	first, err := g.FindPath(cell(0, 0), cell(5, 5))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := g.FindPath(cell(0, 0), cell(5, 5))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

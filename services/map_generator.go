package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"sion-backend/algorithms"
	"sion-backend/models"
)

// MapGenerator handles wall layout generation and per-simulation map snapshots
type MapGenerator struct {
	mu           sync.RWMutex
	maps         map[string]*models.MapGrid // simulation id -> map
	generationMu sync.Mutex
	rng          *rand.Rand
}

// NewMapGenerator creates a new MapGenerator instance (seed 0 = time based)
func NewMapGenerator(seed int64) *MapGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MapGenerator{
		maps: make(map[string]*models.MapGrid),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// RandomWalls creates count vertical wall blocks, never covering keep cells
func (mg *MapGenerator) RandomWalls(height, width, count int, keep []models.Cell) []models.Cell {
	mg.generationMu.Lock()
	defer mg.generationMu.Unlock()
	return mg.generateWalls(height, width, count, keep)
}

// generateWalls - 경계에서 10% 여백을 둔 세로 벽 블록
func (mg *MapGenerator) generateWalls(height, width, count int, keep []models.Cell) []models.Cell {
	reserved := make(map[models.Cell]bool, len(keep))
	for _, c := range keep {
		reserved[c] = true
	}

	// 10 칸 미만이면 여백이 없어 벽을 두지 않는다
	minCol := width / 10
	maxCol := width - width/10
	if minCol == 0 || maxCol <= minCol {
		return nil
	}

	seen := make(map[models.Cell]bool)
	var walls []models.Cell
	for i := 0; i < count; i++ {
		block := models.WallColumn{
			Col:   minCol + mg.rng.Intn(maxCol-minCol),
			Width: 1 + mg.rng.Intn(max(1, width/20)),
		}
		length := height/2 + mg.rng.Intn(max(1, height/3))
		if mg.rng.Intn(2) == 0 {
			block.RowStart, block.RowEnd = 0, length // 위에서 뻗는 벽
		} else {
			block.RowStart, block.RowEnd = height-length, height // 아래에서 뻗는 벽
		}
		for _, c := range block.Cells() {
			if c.Col >= width || c.Row < 0 || c.Row >= height || reserved[c] || seen[c] {
				continue
			}
			seen[c] = true
			walls = append(walls, c)
		}
	}
	return walls
}

// GenerateMap builds the static map for a simulation and keeps it for map_update messages
func (mg *MapGenerator) GenerateMap(simID string, scenario models.Scenario, grid *algorithms.Grid, collectionPoints, cameras []models.Cell) *models.MapGrid {
	mapGrid := &models.MapGrid{
		ID:               uuid.New().String(),
		Scenario:         scenario,
		Height:           grid.Height,
		Width:            grid.Width,
		Walls:            grid.Walls(),
		CollectionPoints: append([]models.Cell(nil), collectionPoints...),
		Cameras:          append([]models.Cell(nil), cameras...),
	}

	mg.mu.Lock()
	mg.maps[simID] = mapGrid
	mg.mu.Unlock()

	return mapGrid
}

// GetMap returns the map generated for a simulation
func (mg *MapGenerator) GetMap(simID string) (*models.MapGrid, bool) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	m, ok := mg.maps[simID]
	return m, ok
}

// GetMapGridMessage converts the stored map plus live agents to a map_update body
func (mg *MapGenerator) GetMapGridMessage(simID string, agents []models.AgentSnapshot, stacks map[string]int) (*models.MapGridMessage, error) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	m, ok := mg.maps[simID]
	if !ok {
		return nil, fmt.Errorf("no map for simulation %s", simID)
	}

	return &models.MapGridMessage{
		SimulationID: simID,
		Map:          *m,
		Agents:       agents,
		Stacks:       stacks,
		Timestamp:    time.Now().UnixMilli(),
	}, nil
}

// ClearMap removes the map of a simulation
func (mg *MapGenerator) ClearMap(simID string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	delete(mg.maps, simID)
}

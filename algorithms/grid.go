package algorithms

import (
	"fmt"

	"sion-backend/models"
)

// Occupant - 셀에 놓거나 빼는 점유자
// ID 는 Agent 일 때만 의미가 있다.
type Occupant struct {
	Kind models.OccupantKind
	ID   int
}

// Wall / Object / CollectionPoint / Agent - 점유자 생성 헬퍼
func Wall() Occupant            { return Occupant{Kind: models.KindWall} }
func Object() Occupant          { return Occupant{Kind: models.KindObject} }
func CollectionPoint() Occupant { return Occupant{Kind: models.KindCollectionPoint} }
func Agent(id int) Occupant     { return Occupant{Kind: models.KindAgent, ID: id} }

type cellState struct {
	wall       bool
	hasAgent   bool
	agent      int
	objects    int
	collection bool
}

// CellView - 셀 읽기 결과 (복사본)
type CellView struct {
	Cell            models.Cell
	Wall            bool
	AgentID         int
	HasAgent        bool
	Objects         int
	CollectionPoint bool
}

// Kind - 셀을 대표하는 점유자 종류
func (v CellView) Kind() models.OccupantKind {
	switch {
	case v.Wall:
		return models.KindWall
	case v.HasAgent:
		return models.KindAgent
	case v.Objects >= 2, v.Objects >= 1 && v.CollectionPoint:
		return models.KindObjectStack
	case v.Objects == 1:
		return models.KindSingleObject
	case v.CollectionPoint:
		return models.KindCollectionPoint
	}
	return models.KindEmpty
}

// Grid - 점유 그리드
//
// 모든 변경은 성공하거나 그리드를 그대로 둔다.
type Grid struct {
	Height int
	Width  int

	cells    [][]cellState
	capacity int // 셀당 최대 박스 수, 0 이면 무제한
	version  uint64
}

// MaxGridCells - 한 그리드가 가질 수 있는 최대 셀 수
const MaxGridCells = 1 << 20

// CheckSize - 그리드 크기 검사. 양수이고 MaxGridCells 이하여야 한다
func CheckSize(height, width int) error {
	if height <= 0 || width <= 0 {
		return fmt.Errorf("grid %dx%d: %w", height, width, ErrInvalidArgument)
	}
	if height > MaxGridCells/width {
		return fmt.Errorf("grid %dx%d exceeds %d cells: %w", height, width, MaxGridCells, ErrInvalidArgument)
	}
	return nil
}

// NewGrid - height x width 빈 그리드. 크기는 호출자가 CheckSize 로 먼저 검사한다
func NewGrid(height, width int) *Grid {
	if height < 0 {
		height = 0
	}
	if width < 0 {
		width = 0
	}
	cells := make([][]cellState, height)
	for r := range cells {
		cells[r] = make([]cellState, width)
	}
	return &Grid{Height: height, Width: width, cells: cells}
}

// SetObjectCapacity - 셀당 박스 상한 설정
func (g *Grid) SetObjectCapacity(n int) {
	g.capacity = n
}

// ObjectCapacity - 셀당 박스 상한 (0 이면 무제한)
func (g *Grid) ObjectCapacity() int {
	return g.capacity
}

// Version - 성공한 변경마다 증가
func (g *Grid) Version() uint64 {
	return g.version
}

func (g *Grid) InBounds(c models.Cell) bool {
	return c.Row >= 0 && c.Col >= 0 && c.Row < g.Height && c.Col < g.Width
}

// At - 셀 상태 조회. 그리드 밖이면 ErrOutOfBounds
func (g *Grid) At(c models.Cell) (CellView, error) {
	if !g.InBounds(c) {
		return CellView{}, fmt.Errorf("at %s: %w", c, ErrOutOfBounds)
	}
	s := g.cells[c.Row][c.Col]
	return CellView{
		Cell:            c,
		Wall:            s.wall,
		AgentID:         s.agent,
		HasAgent:        s.hasAgent,
		Objects:         s.objects,
		CollectionPoint: s.collection,
	}, nil
}

// IsWall - 그리드 밖은 false
func (g *Grid) IsWall(c models.Cell) bool {
	return g.InBounds(c) && g.cells[c.Row][c.Col].wall
}

// IsBlocked - 벽, 에이전트, 그리드 밖
func (g *Grid) IsBlocked(c models.Cell) bool {
	if !g.InBounds(c) {
		return true
	}
	s := g.cells[c.Row][c.Col]
	return s.wall || s.hasAgent
}

// AddObstacle - 벽 추가 (이미 벽이면 무시)
func (g *Grid) AddObstacle(c models.Cell) error {
	if g.IsWall(c) {
		return nil
	}
	return g.Place(c, Wall())
}

// Place - 점유자 추가
func (g *Grid) Place(c models.Cell, occ Occupant) error {
	if !g.InBounds(c) {
		return fmt.Errorf("place %s at %s: %w", occ.Kind, c, ErrOutOfBounds)
	}
	s := &g.cells[c.Row][c.Col]
	if s.wall {
		return fmt.Errorf("place %s at %s: wall: %w", occ.Kind, c, ErrCellFull)
	}

	switch occ.Kind {
	case models.KindWall:
		if s.hasAgent || s.objects > 0 || s.collection {
			return fmt.Errorf("place wall at %s: occupied: %w", c, ErrCellFull)
		}
		s.wall = true
	case models.KindAgent:
		if s.hasAgent || s.objects > 0 || s.collection {
			return fmt.Errorf("place agent %d at %s: occupied: %w", occ.ID, c, ErrCellFull)
		}
		s.hasAgent = true
		s.agent = occ.ID
	case models.KindObject, models.KindSingleObject:
		if s.hasAgent {
			return fmt.Errorf("place object at %s: agent present: %w", c, ErrCellFull)
		}
		if g.capacity > 0 && s.objects >= g.capacity {
			return fmt.Errorf("place object at %s: %d objects: %w", c, s.objects, ErrCellFull)
		}
		s.objects++
	case models.KindCollectionPoint:
		if s.hasAgent || s.collection {
			return fmt.Errorf("place collection point at %s: %w", c, ErrCellFull)
		}
		s.collection = true
	default:
		return fmt.Errorf("place %s: %w", occ.Kind, ErrInvalidArgument)
	}

	g.version++
	return nil
}

// Remove - 점유자 제거. 없으면 ErrNotPresent
func (g *Grid) Remove(c models.Cell, occ Occupant) error {
	if !g.InBounds(c) {
		return fmt.Errorf("remove %s at %s: %w", occ.Kind, c, ErrOutOfBounds)
	}
	s := &g.cells[c.Row][c.Col]

	switch occ.Kind {
	case models.KindWall:
		if !s.wall {
			return fmt.Errorf("remove wall at %s: %w", c, ErrNotPresent)
		}
		s.wall = false
	case models.KindAgent:
		if !s.hasAgent || s.agent != occ.ID {
			return fmt.Errorf("remove agent %d at %s: %w", occ.ID, c, ErrNotPresent)
		}
		s.hasAgent = false
		s.agent = 0
	case models.KindObject, models.KindSingleObject:
		if s.objects == 0 {
			return fmt.Errorf("remove object at %s: %w", c, ErrNotPresent)
		}
		s.objects--
	case models.KindCollectionPoint:
		if !s.collection {
			return fmt.Errorf("remove collection point at %s: %w", c, ErrNotPresent)
		}
		s.collection = false
	default:
		return fmt.Errorf("remove %s: %w", occ.Kind, ErrInvalidArgument)
	}

	g.version++
	return nil
}

// MoveAgent - 에이전트를 from 에서 to 로 옮긴다
//
// 목적지가 그리드 밖이거나 벽/에이전트/박스/수집 지점이면 ErrBlocked.
func (g *Grid) MoveAgent(id int, from, to models.Cell) error {
	if !g.InBounds(from) {
		return fmt.Errorf("move agent %d from %s: %w", id, from, ErrOutOfBounds)
	}
	src := &g.cells[from.Row][from.Col]
	if !src.hasAgent || src.agent != id {
		return fmt.Errorf("move agent %d from %s: %w", id, from, ErrNotPresent)
	}
	if from == to {
		return nil
	}
	if !g.InBounds(to) {
		return fmt.Errorf("move agent %d to %s: %w: %w", id, to, ErrBlocked, ErrOutOfBounds)
	}
	dst := &g.cells[to.Row][to.Col]
	if dst.wall || dst.hasAgent || dst.objects > 0 || dst.collection {
		return fmt.Errorf("move agent %d to %s: %w", id, to, ErrBlocked)
	}

	src.hasAgent = false
	src.agent = 0
	dst.hasAgent = true
	dst.agent = id
	g.version++
	return nil
}

// Neighbors - 그리드 안의 4방향 이웃 (위, 오른쪽, 아래, 왼쪽 순)
func (g *Grid) Neighbors(c models.Cell) []models.Cell {
	order := [4]models.Direction{models.Up, models.Right, models.Down, models.Left}
	out := make([]models.Cell, 0, 4)
	for _, d := range order {
		n := c.Add(d)
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Count - 셀에서 해당 종류의 개수
func (g *Grid) Count(c models.Cell, kind models.OccupantKind) int {
	v, err := g.At(c)
	if err != nil {
		return 0
	}
	switch kind {
	case models.KindWall:
		return boolInt(v.Wall)
	case models.KindAgent:
		return boolInt(v.HasAgent)
	case models.KindObject:
		return v.Objects
	case models.KindCollectionPoint:
		return boolInt(v.CollectionPoint)
	case models.KindSingleObject, models.KindObjectStack, models.KindEmpty:
		return boolInt(v.Kind() == kind)
	}
	return 0
}

// Walls - 모든 벽 셀 (행 우선)
func (g *Grid) Walls() []models.Cell {
	var out []models.Cell
	for r := 0; r < g.Height; r++ {
		for c := 0; c < g.Width; c++ {
			if g.cells[r][c].wall {
				out = append(out, models.Cell{Row: r, Col: c})
			}
		}
	}
	return out
}

// TotalObjects - 그리드 위 박스 총 개수
func (g *Grid) TotalObjects() int {
	total := 0
	for r := range g.cells {
		for c := range g.cells[r] {
			total += g.cells[r][c].objects
		}
	}
	return total
}

// Clone - 깊은 복사 (틱 롤백용)
func (g *Grid) Clone() *Grid {
	cells := make([][]cellState, len(g.cells))
	for r := range g.cells {
		cells[r] = append([]cellState(nil), g.cells[r]...)
	}
	return &Grid{
		Height:   g.Height,
		Width:    g.Width,
		cells:    cells,
		capacity: g.capacity,
		version:  g.version,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package models

import (
	"encoding/json"
	"fmt"
)

// ========================================
// 셀 좌표
// ========================================

// Cell - 그리드 셀 좌표 (row, col)
// JSON 으로는 [row, col] 배열 형태로 주고받는다.
type Cell struct {
	Row int
	Col int
}

// Add - 방향만큼 이동한 셀
func (c Cell) Add(d Direction) Cell {
	dr, dc := d.Delta()
	return Cell{Row: c.Row + dr, Col: c.Col + dc}
}

// Manhattan - 두 셀 사이 맨해튼 거리
func (c Cell) Manhattan(o Cell) int {
	return abs(c.Row-o.Row) + abs(c.Col-o.Col)
}

// Key - 스택 레지스트리 등에 쓰는 "r,c" 문자열 키
func (c Cell) Key() string {
	return fmt.Sprintf("%d,%d", c.Row, c.Col)
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Row, c.Col})
}

func (c *Cell) UnmarshalJSON(b []byte) error {
	var pair []int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("cell must be [row, col]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("cell must be [row, col], got %d values", len(pair))
	}
	c.Row, c.Col = pair[0], pair[1]
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ========================================
// 점유자 종류
// ========================================

// OccupantKind - 셀 점유자 종류 (닫힌 집합)
type OccupantKind int

const (
	KindEmpty OccupantKind = iota
	KindWall
	KindObject
	KindSingleObject
	KindObjectStack
	KindAgent
	KindCollectionPoint
)

var occupantKindNames = map[OccupantKind]string{
	KindEmpty:           "empty",
	KindWall:            "wall",
	KindObject:          "object",
	KindSingleObject:    "single_object",
	KindObjectStack:     "object_stack",
	KindAgent:           "agent",
	KindCollectionPoint: "collection_point",
}

func (k OccupantKind) String() string {
	if name, ok := occupantKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k OccupantKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ========================================
// 방향
// ========================================

// Direction - 로컬 관측/행동 방향 (F/B/L/R)
//
// F 는 row+1, B 는 row-1, L 은 col-1, R 은 col+1.
// 경로 탐색 결과를 화면 기준으로 말할 때는 Up/Down 별칭을 쓴다.
type Direction string

const (
	Forward  Direction = "F"
	Backward Direction = "B"
	Left     Direction = "L"
	Right    Direction = "R"
)

// 화면 기준 별칭
const (
	Up   = Backward
	Down = Forward
)

// Directions - 관측 순서 (F, B, L, R)
var Directions = []Direction{Forward, Backward, Left, Right}

// Delta - 방향별 (drow, dcol)
func (d Direction) Delta() (int, int) {
	switch d {
	case Forward:
		return 1, 0
	case Backward:
		return -1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	return 0, 0
}

// Valid - F/B/L/R 중 하나인지
func (d Direction) Valid() bool {
	switch d {
	case Forward, Backward, Left, Right:
		return true
	}
	return false
}

// Heading - "up" | "down" | "left" | "right"
func (d Direction) Heading() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return ""
}

// DirectionBetween - 인접한 두 셀 사이의 방향
func DirectionBetween(from, to Cell) (Direction, bool) {
	for _, d := range Directions {
		if from.Add(d) == to {
			return d, true
		}
	}
	return "", false
}

// ========================================
// 역할
// ========================================

// Role - 에이전트 역할
type Role string

const (
	RoleStacker Role = "stacker"
	RoleCamera  Role = "camera"
	RoleDrone   Role = "drone"
	RoleGuard   Role = "guard"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStacker, RoleCamera, RoleDrone, RoleGuard:
		return true
	}
	return false
}

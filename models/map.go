package models

// WallColumn - 세로 벽 블록
// rows [RowStart, RowEnd), cols [Col, Col+Width)
type WallColumn struct {
	Col      int `json:"col" yaml:"col"`
	RowStart int `json:"row_start" yaml:"row_start"`
	RowEnd   int `json:"row_end" yaml:"row_end"`
	Width    int `json:"width" yaml:"width"`
}

// Cells - 블록이 덮는 모든 셀
func (w WallColumn) Cells() []Cell {
	var out []Cell
	for r := w.RowStart; r < w.RowEnd; r++ {
		for c := w.Col; c < w.Col+w.Width; c++ {
			out = append(out, Cell{Row: r, Col: c})
		}
	}
	return out
}

// SecurityColumns - 100x100 보안 구역의 기본 벽 배치
// 1, 4번은 위에서, 2, 3번은 아래에서 뻗는다.
var SecurityColumns = []WallColumn{
	{Col: 10, RowStart: 0, RowEnd: 90, Width: 10},
	{Col: 30, RowStart: 10, RowEnd: 100, Width: 10},
	{Col: 60, RowStart: 10, RowEnd: 100, Width: 10},
	{Col: 80, RowStart: 0, RowEnd: 90, Width: 10},
}

// MapGrid - 화면 표시용 맵
type MapGrid struct {
	ID               string   `json:"id"`
	Scenario         Scenario `json:"scenario"`
	Height           int      `json:"height"`
	Width            int      `json:"width"`
	Walls            []Cell   `json:"walls"`
	CollectionPoints []Cell   `json:"collection_points,omitempty"`
	Cameras          []Cell   `json:"cameras,omitempty"`
}

// MapGridMessage - map_update 메시지 본문
type MapGridMessage struct {
	SimulationID string          `json:"simulation_id"`
	Map          MapGrid         `json:"map"`
	Agents       []AgentSnapshot `json:"agents"`
	Stacks       map[string]int  `json:"stacks,omitempty"`
	Timestamp    int64           `json:"timestamp"`
}

package models

import "time"

// TickLog - 에이전트 행동 로그 (틱당 에이전트 1행)
type TickLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	SimulationID string    `gorm:"size:64;index" json:"simulation_id"`
	Scenario     string    `gorm:"size:16" json:"scenario"`
	EventType    string    `gorm:"size:32;index" json:"event_type"` // "action", "skipped", "phase_change", "rollback", "done"
	Tick         int       `json:"tick"`
	Phase        string    `gorm:"size:16" json:"phase"`

	// 에이전트 행동
	AgentID   int    `json:"agent_id"`
	Role      string `gorm:"size:16" json:"role"`
	Action    string `gorm:"size:32" json:"action"`
	Direction string `gorm:"size:1" json:"direction"`
	Note      string `gorm:"size:32" json:"note"`

	// 메타데이터
	DataJSON string `gorm:"type:text" json:"data_json"` // 원본 JSON
}

// 로그 이벤트 타입
const (
	LogEventAction      = "action"
	LogEventSkipped     = "skipped"
	LogEventPhaseChange = "phase_change"
	LogEventRollback    = "rollback"
	LogEventDone        = "done"
)

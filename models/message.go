package models

// ========================================
// 메시지 타입 상수
// ========================================
const (
	// Server → Web
	MessageTypeTick        = "tick"         // 틱 결과 (행동 레코드)
	MessageTypePhaseChange = "phase_change" // 보안 페이즈 전환
	MessageTypeSimEvent    = "sim_event"    // 시뮬레이션 이벤트 (종료, 롤백 등)

	// Server → All
	MessageTypeMapUpdate  = "map_update"  // 맵 업데이트
	MessageTypeSystemInfo = "system_info" // 시스템 정보
)

// ========================================
// 공통 WebSocket 메시지 형식
// ========================================
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // Unix timestamp (ms)
}

// ========================================
// 이벤트 데이터
// ========================================
type SimEventData struct {
	SimulationID string   `json:"simulation_id"`
	Scenario     Scenario `json:"scenario"`
	Event        string   `json:"event"`
	Tick         int      `json:"tick"`
	Phase        Phase    `json:"phase,omitempty"`
	Detail       string   `json:"detail,omitempty"`
	Priority     int      `json:"priority"`
}

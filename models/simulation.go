package models

import "time"

// Scenario - 시뮬레이션 종류
type Scenario string

const (
	ScenarioStacking Scenario = "stacking"
	ScenarioSecurity Scenario = "security"
)

// Phase - 보안 시뮬레이션 페이즈 (앞으로만 진행)
type Phase string

const (
	PhaseCamera Phase = "camera"
	PhaseDrone  Phase = "drone"
	PhaseGuard  Phase = "guard"
	PhaseEnded  Phase = "ended"
)

// Rank - 진행 순서 (Camera=0 ... Ended=3)
func (p Phase) Rank() int {
	switch p {
	case PhaseCamera:
		return 0
	case PhaseDrone:
		return 1
	case PhaseGuard:
		return 2
	case PhaseEnded:
		return 3
	}
	return -1
}

// ActiveRole - 해당 페이즈에서 행동하는 역할
func (p Phase) ActiveRole() Role {
	switch p {
	case PhaseCamera:
		return RoleCamera
	case PhaseDrone:
		return RoleDrone
	case PhaseGuard:
		return RoleGuard
	}
	return ""
}

// PursuitOutcome - 드론 추적 결과
type PursuitOutcome string

const (
	OutcomeNone       PursuitOutcome = ""
	OutcomeLocated    PursuitOutcome = "located"     // 목표 지점 도착
	OutcomeSighted    PursuitOutcome = "sighted"     // 드론이 직접 목격
	OutcomeTargetLost PursuitOutcome = "target_lost" // 재계획 한도 초과
)

// AgentError - 틱에서 건너뛴 에이전트
type AgentError struct {
	AgentID int    `json:"agent_id"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

// TickResult - 한 틱의 결과
type TickResult struct {
	SimulationID string         `json:"simulation_id,omitempty"`
	Scenario     Scenario       `json:"scenario"`
	Tick         int            `json:"tick"`
	Phase        Phase          `json:"phase,omitempty"`
	PhaseChanged bool           `json:"phase_changed,omitempty"`
	Outcome      PursuitOutcome `json:"outcome,omitempty"`
	Actions      []ActionRecord `json:"actions"`
	Skipped      []AgentError   `json:"skipped,omitempty"`
	Done         bool           `json:"done"`
	RolledBack   bool           `json:"rolled_back,omitempty"`
	Time         time.Time      `json:"time"`
}

// AgentSnapshot - 에이전트 상태 조회용
type AgentSnapshot struct {
	ID        int            `json:"id"`
	Role      Role           `json:"role"`
	Position  Cell           `json:"position"`
	Holding   bool           `json:"holding,omitempty"`
	Detected  DetectionClass `json:"detected,omitempty"`
	Movements int            `json:"movements"`
}

// StackingState - 적재 시뮬레이션 상태
type StackingState struct {
	Tick              int             `json:"tick"`
	Height            int             `json:"height"`
	Width             int             `json:"width"`
	MaxStack          int             `json:"max_stack"`
	Agents            []AgentSnapshot `json:"agents"`
	Stacks            map[string]int  `json:"stacks"`
	CollectionPoints  []Cell          `json:"collection_points"`
	ObjectsTotal      int             `json:"objects_total"`
	ObjectsStacked    int             `json:"objects_stacked"`
	Done              bool            `json:"done"`
	StepsToCompletion int             `json:"steps_to_completion,omitempty"`
	Movements         map[int]int     `json:"movements"`
}

// SecurityState - 보안 시뮬레이션 상태
type SecurityState struct {
	Tick     int             `json:"tick"`
	Height   int             `json:"height"`
	Width    int             `json:"width"`
	Phase    Phase           `json:"phase"`
	Goal     *Cell           `json:"goal,omitempty"`
	Outcome  PursuitOutcome  `json:"outcome,omitempty"`
	Replans  int             `json:"replan_failures"`
	Agents   []AgentSnapshot `json:"agents"`
	Path     []Cell          `json:"path,omitempty"`
	AlarmBy  *int            `json:"alarm_by,omitempty"`
}

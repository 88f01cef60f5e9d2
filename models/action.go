package models

import (
	"fmt"
	"strings"
)

// ActionKind - 행동 종류
type ActionKind string

const (
	ActionMove          ActionKind = "move"
	ActionGrab          ActionKind = "grab"
	ActionDrop          ActionKind = "drop"
	ActionWait          ActionKind = "wait"
	ActionAlarm         ActionKind = "alarm"
	ActionIgnore        ActionKind = "ignore"
	ActionInvestigate   ActionKind = "investigate"
	ActionEndSimulation ActionKind = "end_simulation"

	// 엔진 내부 전용. 출력 레코드에서는 wait 로 보고된다.
	ActionStay ActionKind = "stay"
)

// 행동 레코드 note 값
const (
	NoteBlocked     = "blocked"
	NoteUnreachable = "unreachable"
	NoteTargetLost  = "target_lost"
	NoteReplayed    = "replayed"
	NoteNotVisible  = "not_visible"
	NoteOccupied    = "occupied"
)

// Action - 규칙 엔진이 내놓는 행동
//
// Random 이 true 인 move 는 방향이 비어 있고, 시뮬레이션의 시드 난수로 방향을 정한다.
type Action struct {
	Kind      ActionKind
	Direction Direction
	Random    bool
}

// Wait - wait 행동
func Wait() Action { return Action{Kind: ActionWait} }

// String - "grab_F", "move_random", "wait" 형식
func (a Action) String() string {
	if a.Random {
		return string(a.Kind) + "_random"
	}
	if a.Direction != "" {
		return string(a.Kind) + "_" + string(a.Direction)
	}
	return string(a.Kind)
}

// ParseAction - "drop_L" 같은 문자열을 Action 으로
func ParseAction(s string) (Action, error) {
	kind, dir, _ := strings.Cut(s, "_")
	switch ActionKind(s) {
	case ActionEndSimulation, ActionWait, ActionAlarm, ActionIgnore, ActionInvestigate, ActionStay:
		return Action{Kind: ActionKind(s)}, nil
	}
	switch ActionKind(kind) {
	case ActionMove, ActionGrab, ActionDrop:
	default:
		return Action{}, fmt.Errorf("unknown action %q", s)
	}
	if dir == "random" && ActionKind(kind) == ActionMove {
		return Action{Kind: ActionMove, Random: true}, nil
	}
	if !Direction(dir).Valid() {
		return Action{}, fmt.Errorf("action %q: bad direction %q", s, dir)
	}
	return Action{Kind: ActionKind(kind), Direction: Direction(dir)}, nil
}

// ActionRecord - 틱마다 에이전트별로 외부에 돌려주는 결과
type ActionRecord struct {
	AgentID   int        `json:"agent_id"`
	Role      Role       `json:"role"`
	Action    ActionKind `json:"action"`
	Direction *Direction `json:"direction"`
	Note      string     `json:"note,omitempty"`
}

// NewActionRecord - stay 는 wait 로 바꿔서 기록
func NewActionRecord(id int, role Role, a Action, note string) ActionRecord {
	rec := ActionRecord{AgentID: id, Role: role, Action: a.Kind, Note: note}
	if rec.Action == ActionStay {
		rec.Action = ActionWait
	}
	if a.Direction != "" && (rec.Action == ActionMove || rec.Action == ActionGrab || rec.Action == ActionDrop) {
		d := a.Direction
		rec.Direction = &d
	}
	return rec
}

// Label - "move_F" / "wait" 형식 요약
func (r ActionRecord) Label() string {
	if r.Direction != nil {
		return string(r.Action) + "_" + string(*r.Direction)
	}
	return string(r.Action)
}

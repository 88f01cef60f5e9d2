package simulation

import (
	"fmt"

	"sion-backend/models"
)

// AgentState - 에이전트 한 대의 상태
// 자기 차례의 스텝에서만 바뀐다.
type AgentState struct {
	ID        int
	Role      models.Role
	Pos       models.Cell
	Holding   bool
	Detected  models.DetectionClass
	Movements int
	Decisions int

	stored *storedDecision
}

// storedDecision - 같은 관측이 다시 오면 재사용할 직전 결정
type storedDecision struct {
	digest  string
	version uint64
	record  models.ActionRecord
}

func newAgent(id int, role models.Role, pos models.Cell) *AgentState {
	return &AgentState{ID: id, Role: role, Pos: pos}
}

// recall - 관측과 그리드 버전이 같으면 저장된 레코드
func (a *AgentState) recall(digest string, version uint64) (models.ActionRecord, bool) {
	if a.stored == nil || a.stored.digest != digest || a.stored.version != version {
		return models.ActionRecord{}, false
	}
	return a.stored.record, true
}

func (a *AgentState) remember(digest string, version uint64, rec models.ActionRecord) {
	a.stored = &storedDecision{digest: digest, version: version, record: rec}
}

func (a *AgentState) clone() *AgentState {
	cp := *a
	if a.stored != nil {
		s := *a.stored
		cp.stored = &s
	}
	return &cp
}

// Snapshot - 조회용 복사본
func (a *AgentState) Snapshot() models.AgentSnapshot {
	return models.AgentSnapshot{
		ID:        a.ID,
		Role:      a.Role,
		Position:  a.Pos,
		Holding:   a.Holding,
		Detected:  a.Detected,
		Movements: a.Movements,
	}
}

func localDigest(v models.LocalView) string {
	return fmt.Sprintf("F%dB%dL%dR%d", v.F, v.B, v.L, v.R)
}

// agentIndex - 역할 구분 없이 ID 로 찾는 색인 (ID 순 정렬 유지)
type agentIndex struct {
	list []*AgentState
	byID map[int]*AgentState
}

func newAgentIndex() *agentIndex {
	return &agentIndex{byID: make(map[int]*AgentState)}
}

func (ix *agentIndex) add(a *AgentState) error {
	if _, dup := ix.byID[a.ID]; dup {
		return fmt.Errorf("agent id %d already used: %w", a.ID, ErrInvalidConfig)
	}
	ix.list = append(ix.list, a)
	ix.byID[a.ID] = a
	for i := len(ix.list) - 1; i > 0 && ix.list[i].ID < ix.list[i-1].ID; i-- {
		ix.list[i], ix.list[i-1] = ix.list[i-1], ix.list[i]
	}
	return nil
}

func (ix *agentIndex) get(id int) (*AgentState, bool) {
	a, ok := ix.byID[id]
	return a, ok
}

func (ix *agentIndex) role(role models.Role) []*AgentState {
	var out []*AgentState
	for _, a := range ix.list {
		if a.Role == role {
			out = append(out, a)
		}
	}
	return out
}

func (ix *agentIndex) clone() *agentIndex {
	cp := newAgentIndex()
	for _, a := range ix.list {
		c := a.clone()
		cp.list = append(cp.list, c)
		cp.byID[c.ID] = c
	}
	return cp
}

func (ix *agentIndex) snapshots() []models.AgentSnapshot {
	out := make([]models.AgentSnapshot, 0, len(ix.list))
	for _, a := range ix.list {
		out = append(out, a.Snapshot())
	}
	return out
}

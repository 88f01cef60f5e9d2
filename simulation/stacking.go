package simulation

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"

	"sion-backend/algorithms"
	"sion-backend/models"
)

// StackingConfig - 적재 시뮬레이션 설정 (생성 시 고정)
type StackingConfig struct {
	Height           int
	Width            int
	Stackers         int
	Objects          int
	MaxStack         int
	CollectionPoints []models.Cell
	Walls            []models.Cell
	Seed             int64
}

// DefaultStackingConfig - 10x10 바닥, 로봇 5대, 박스 20개, 수집 지점 4곳
func DefaultStackingConfig() StackingConfig {
	return StackingConfig{
		Height:   10,
		Width:    10,
		Stackers: 5,
		Objects:  20,
		MaxStack: 5,
		CollectionPoints: []models.Cell{
			{Row: 2, Col: 7}, {Row: 2, Col: 2}, {Row: 7, Col: 7}, {Row: 7, Col: 2},
		},
		Seed: 1,
	}
}

func (c StackingConfig) Validate() error {
	if err := algorithms.CheckSize(c.Height, c.Width); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Stackers <= 0 || c.Objects < 0 {
		return fmt.Errorf("stackers=%d objects=%d: %w", c.Stackers, c.Objects, ErrInvalidConfig)
	}
	if c.MaxStack <= 0 {
		return fmt.Errorf("max stack %d: %w", c.MaxStack, ErrInvalidConfig)
	}
	if c.Objects > c.MaxStack*len(c.CollectionPoints) && len(c.CollectionPoints) > 0 {
		return fmt.Errorf("%d objects exceed %d collection points x %d: %w",
			c.Objects, len(c.CollectionPoints), c.MaxStack, ErrInvalidConfig)
	}
	return nil
}

// Stacking - 적재 시나리오 틱 오케스트레이터
//
// 틱마다 ID 순으로 Stacker 를 하나씩 관측 → 판단 → 행동시킨다.
// 내부 불변식이 깨지면 틱 전체를 되돌린다.
type Stacking struct {
	cfg    StackingConfig
	grid   *algorithms.Grid
	agents *agentIndex
	stacks map[string]int
	rules  *RuleEngine
	rng    *rand.Rand
	logger *log.Logger

	tick     int
	done     bool
	doneTick int
}

type stackingSnapshot struct {
	grid   *algorithms.Grid
	agents *agentIndex
	stacks map[string]int
}

// NewStacking - 벽, 수집 지점, 로봇, 박스를 배치한다
func NewStacking(cfg StackingConfig, ids IDSequence, logger *log.Logger) (*Stacking, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = NewCounter(0)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &Stacking{
		cfg:    cfg,
		grid:   algorithms.NewGrid(cfg.Height, cfg.Width),
		agents: newAgentIndex(),
		stacks: make(map[string]int),
		rules:  NewRuleEngine(),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger,
	}
	s.grid.SetObjectCapacity(cfg.MaxStack)

	for _, w := range cfg.Walls {
		if err := s.grid.AddObstacle(w); err != nil {
			return nil, fmt.Errorf("wall %s: %w: %w", w, ErrInvalidConfig, err)
		}
	}
	for _, cp := range cfg.CollectionPoints {
		if err := s.grid.Place(cp, algorithms.CollectionPoint()); err != nil {
			return nil, fmt.Errorf("collection point %s: %w: %w", cp, ErrInvalidConfig, err)
		}
	}

	var free []models.Cell
	for r := 0; r < cfg.Height; r++ {
		for c := 0; c < cfg.Width; c++ {
			cell := models.Cell{Row: r, Col: c}
			if v, _ := s.grid.At(cell); v.Kind() == models.KindEmpty {
				free = append(free, cell)
			}
		}
	}
	if len(free) < cfg.Stackers+cfg.Objects {
		return nil, fmt.Errorf("%d free cells for %d stackers and %d objects: %w",
			len(free), cfg.Stackers, cfg.Objects, ErrInvalidConfig)
	}
	s.rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })

	for i := 0; i < cfg.Stackers; i++ {
		a := newAgent(ids.Next(), models.RoleStacker, free[i])
		if err := s.agents.add(a); err != nil {
			return nil, err
		}
		if err := s.grid.Place(a.Pos, algorithms.Agent(a.ID)); err != nil {
			return nil, fmt.Errorf("stacker %d: %w", a.ID, err)
		}
	}
	for i := 0; i < cfg.Objects; i++ {
		if err := s.grid.Place(free[cfg.Stackers+i], algorithms.Object()); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
	}
	return s, nil
}

// Observe - 에이전트의 F/B/L/R 관측을 그리드에서 계산
func (s *Stacking) Observe(agentID int) (models.LocalView, error) {
	a, ok := s.agents.get(agentID)
	if !ok {
		return models.LocalView{}, fmt.Errorf("agent %d: %w", agentID, ErrUnknownAgent)
	}
	return s.observe(a), nil
}

func (s *Stacking) observe(a *AgentState) models.LocalView {
	var view models.LocalView
	for _, d := range models.Directions {
		view.Set(d, s.classify(a.Pos.Add(d)))
	}
	return view
}

func (s *Stacking) classify(c models.Cell) models.Classification {
	v, err := s.grid.At(c)
	if err != nil || v.Wall || v.HasAgent {
		return models.ViewBlocked
	}
	switch {
	case v.Objects >= s.cfg.MaxStack:
		return models.ViewBlocked
	case v.Objects == 0 && v.CollectionPoint:
		return models.ViewStack
	case v.Objects == 0:
		return models.ViewEmpty
	case v.Objects == 1 && !v.CollectionPoint:
		return models.ViewSingleObject
	}
	return models.ViewStack
}

// Step - 외부에서 받은 관측으로 한 틱 진행
//
// 관측은 agent_id 순으로 처리한다. 잘못된 레코드는 건너뛰고 Skipped 에 남긴다.
func (s *Stacking) Step(perceptions []models.StackerPerception) (models.TickResult, error) {
	if s.done {
		return models.TickResult{}, ErrSimulationEnded
	}

	sorted := append([]models.StackerPerception(nil), perceptions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AgentID < sorted[j].AgentID })

	snap := s.snapshot()
	res := s.newResult()
	seen := make(map[int]bool, len(sorted))

	for _, p := range sorted {
		a, ok := s.agents.get(p.AgentID)
		if !ok || a.Role != models.RoleStacker {
			res.Skipped = append(res.Skipped, skipped(p.AgentID, fmt.Errorf("agent %d: %w", p.AgentID, ErrUnknownAgent)))
			continue
		}
		if seen[p.AgentID] {
			res.Skipped = append(res.Skipped, skipped(p.AgentID, fmt.Errorf("agent %d: duplicate record: %w", p.AgentID, ErrInvalidPerception)))
			continue
		}
		seen[p.AgentID] = true

		rec, err := s.act(a, p.Local, true)
		if errors.Is(err, ErrInvariantViolation) {
			return s.rollback(snap, res, err)
		}
		if err != nil {
			res.Skipped = append(res.Skipped, skipped(p.AgentID, err))
			continue
		}
		res.Actions = append(res.Actions, rec)
	}
	return s.commit(res), nil
}

// Tick - 그리드에서 관측을 직접 계산해 한 틱 진행
func (s *Stacking) Tick() (models.TickResult, error) {
	if s.done {
		return models.TickResult{}, ErrSimulationEnded
	}

	snap := s.snapshot()
	res := s.newResult()
	for _, a := range s.agents.role(models.RoleStacker) {
		rec, err := s.act(a, s.observe(a), false)
		if errors.Is(err, ErrInvariantViolation) {
			return s.rollback(snap, res, err)
		}
		if err != nil {
			res.Skipped = append(res.Skipped, skipped(a.ID, err))
			continue
		}
		res.Actions = append(res.Actions, rec)
	}
	return s.commit(res), nil
}

func (s *Stacking) newResult() models.TickResult {
	return models.TickResult{
		Scenario: models.ScenarioStacking,
		Tick:     s.tick + 1,
		Actions:  []models.ActionRecord{},
	}
}

func (s *Stacking) commit(res models.TickResult) models.TickResult {
	s.tick++
	if s.finished() {
		s.done = true
		s.doneTick = s.tick
		s.logger.Printf("stacking finished at tick %d", s.tick)
	}
	res.Done = s.done
	return res
}

func (s *Stacking) rollback(snap stackingSnapshot, res models.TickResult, cause error) (models.TickResult, error) {
	s.grid = snap.grid
	s.agents = snap.agents
	s.stacks = snap.stacks
	s.logger.Printf("tick %d rolled back: %v", res.Tick, cause)
	return models.TickResult{
		Scenario:   models.ScenarioStacking,
		Tick:       res.Tick,
		Actions:    []models.ActionRecord{},
		RolledBack: true,
	}, cause
}

func (s *Stacking) snapshot() stackingSnapshot {
	stacks := make(map[string]int, len(s.stacks))
	for k, v := range s.stacks {
		stacks[k] = v
	}
	return stackingSnapshot{grid: s.grid.Clone(), agents: s.agents.clone(), stacks: stacks}
}

// act - 판단 후 적용. external 이면 직전 결정 재사용을 허용한다.
func (s *Stacking) act(a *AgentState, view models.LocalView, external bool) (models.ActionRecord, error) {
	digest := fmt.Sprintf("%s/h%t", localDigest(view), a.Holding)
	if external {
		if rec, ok := a.recall(digest, s.grid.Version()); ok {
			rec.Note = models.NoteReplayed
			return rec, nil
		}
	}

	action, err := s.rules.Decide(models.RoleStacker, Observation{Local: view}, Payload{Holding: a.Holding}, s.rng)
	if err != nil {
		return models.ActionRecord{}, fmt.Errorf("agent %d: %w", a.ID, err)
	}
	rec, err := s.apply(a, action)
	if err != nil {
		return models.ActionRecord{}, err
	}
	a.Decisions++
	if external {
		a.remember(digest, s.grid.Version(), rec)
	}
	return rec, nil
}

// apply - 행동을 그리드에 반영. 막힌 행동은 wait(blocked) 로 보고한다.
func (s *Stacking) apply(a *AgentState, action models.Action) (models.ActionRecord, error) {
	blocked := models.NewActionRecord(a.ID, a.Role, models.Wait(), models.NoteBlocked)

	switch action.Kind {
	case models.ActionMove:
		dir := action.Direction
		if action.Random {
			dir = models.Directions[s.rng.Intn(len(models.Directions))]
		}
		to := a.Pos.Add(dir)
		err := s.grid.MoveAgent(a.ID, a.Pos, to)
		if errors.Is(err, algorithms.ErrBlocked) {
			return blocked, nil
		}
		if err != nil {
			return models.ActionRecord{}, fmt.Errorf("agent %d move: %v: %w", a.ID, err, ErrInvariantViolation)
		}
		a.Pos = to
		a.Movements++
		return models.NewActionRecord(a.ID, a.Role, models.Action{Kind: models.ActionMove, Direction: dir}, ""), nil

	case models.ActionGrab:
		to := a.Pos.Add(action.Direction)
		v, err := s.grid.At(to)
		if err != nil || a.Holding || v.Kind() != models.KindSingleObject {
			return blocked, nil
		}
		if err := s.grid.Remove(to, algorithms.Object()); err != nil {
			return models.ActionRecord{}, fmt.Errorf("agent %d grab: %v: %w", a.ID, err, ErrInvariantViolation)
		}
		a.Holding = true
		return models.NewActionRecord(a.ID, a.Role, action, ""), nil

	case models.ActionDrop:
		to := a.Pos.Add(action.Direction)
		v, err := s.grid.At(to)
		if err != nil || !a.Holding || v.Wall || v.HasAgent || (!v.CollectionPoint && v.Objects == 0) {
			return blocked, nil
		}
		if err := s.grid.Place(to, algorithms.Object()); err != nil {
			if errors.Is(err, algorithms.ErrCellFull) {
				return blocked, nil
			}
			return models.ActionRecord{}, fmt.Errorf("agent %d drop: %v: %w", a.ID, err, ErrInvariantViolation)
		}
		if err := s.recordDrop(to, v.Objects); err != nil {
			return models.ActionRecord{}, fmt.Errorf("agent %d drop: %w", a.ID, err)
		}
		a.Holding = false
		return models.NewActionRecord(a.ID, a.Role, action, ""), nil
	}

	return models.NewActionRecord(a.ID, a.Role, models.Wait(), ""), nil
}

// recordDrop - 스택 레지스트리 갱신. 그리드 개수와 어긋나거나 범위를 벗어나면 에러
func (s *Stacking) recordDrop(c models.Cell, before int) error {
	key := c.Key()
	if prev, ok := s.stacks[key]; ok && prev != before {
		return fmt.Errorf("stack %s: registry %d, grid %d: %w", key, prev, before, ErrInvariantViolation)
	}
	count := before + 1
	if count < 1 || count > s.cfg.MaxStack || count != s.grid.Count(c, models.KindObject) {
		return fmt.Errorf("stack %s: count %d outside [1,%d]: %w", key, count, s.cfg.MaxStack, ErrInvariantViolation)
	}
	s.stacks[key] = count
	return nil
}

// finished - 모든 박스가 스택에 있고, 스택 크기가 범위 안이며, 아무도 들고 있지 않음
func (s *Stacking) finished() bool {
	total := 0
	for _, n := range s.stacks {
		if n < 1 || n > s.cfg.MaxStack {
			return false
		}
		total += n
	}
	if total != s.cfg.Objects {
		return false
	}
	for _, a := range s.agents.list {
		if a.Holding {
			return false
		}
	}
	return true
}

// Done - 종료 여부
func (s *Stacking) Done() bool { return s.done }

// Grid - 현재 그리드 복사본
func (s *Stacking) Grid() *algorithms.Grid { return s.grid.Clone() }

// Stacks - 스택 레지스트리 복사본
func (s *Stacking) Stacks() map[string]int {
	out := make(map[string]int, len(s.stacks))
	for k, v := range s.stacks {
		out[k] = v
	}
	return out
}

// State - 조회용 상태
func (s *Stacking) State() models.StackingState {
	movements := make(map[int]int)
	stacked := 0
	for _, n := range s.stacks {
		stacked += n
	}
	for _, a := range s.agents.list {
		movements[a.ID] = a.Movements
	}
	st := models.StackingState{
		Tick:             s.tick,
		Height:           s.cfg.Height,
		Width:            s.cfg.Width,
		MaxStack:         s.cfg.MaxStack,
		Agents:           s.agents.snapshots(),
		Stacks:           s.Stacks(),
		CollectionPoints: append([]models.Cell(nil), s.cfg.CollectionPoints...),
		ObjectsTotal:     s.cfg.Objects,
		ObjectsStacked:   stacked,
		Done:             s.done,
		Movements:        movements,
	}
	if s.done {
		st.StepsToCompletion = s.doneTick
	}
	return st
}

func skipped(id int, err error) models.AgentError {
	return models.AgentError{AgentID: id, Code: ErrorCode(err), Error: err.Error()}
}

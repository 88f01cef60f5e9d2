package simulation

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"

	"sion-backend/algorithms"
	"sion-backend/models"
)

// SecurityConfig - 보안 시뮬레이션 설정 (생성 시 고정)
type SecurityConfig struct {
	Height       int
	Width        int
	Walls        []models.Cell
	Cameras      []models.Cell
	Drone        models.Cell
	Guard        models.Cell
	CameraRadius int
	DroneRadius  int
	GuardRadius  int
	MaxReplans   int
	Seed         int64
}

// DefaultSecurityConfig - 100x100 구역, 벽 기둥 4개, 기둥 옆 카메라 4대
func DefaultSecurityConfig() SecurityConfig {
	var walls []models.Cell
	for _, col := range models.SecurityColumns {
		walls = append(walls, col.Cells()...)
	}
	return SecurityConfig{
		Height: 100,
		Width:  100,
		Walls:  walls,
		Cameras: []models.Cell{
			{Row: 84, Col: 20}, {Row: 14, Col: 40}, {Row: 14, Col: 70}, {Row: 84, Col: 90},
		},
		Drone:        models.Cell{Row: 0, Col: 50},
		Guard:        models.Cell{Row: 99, Col: 50},
		CameraRadius: 85,
		DroneRadius:  20,
		GuardRadius:  20,
		MaxReplans:   3,
		Seed:         1,
	}
}

func (c SecurityConfig) Validate() error {
	if err := algorithms.CheckSize(c.Height, c.Width); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(c.Cameras) == 0 {
		return fmt.Errorf("no cameras: %w", ErrInvalidConfig)
	}
	if c.CameraRadius < 0 || c.DroneRadius < 0 || c.GuardRadius < 0 {
		return fmt.Errorf("negative vision radius: %w", ErrInvalidConfig)
	}
	if c.MaxReplans <= 0 {
		return fmt.Errorf("max replans %d: %w", c.MaxReplans, ErrInvalidConfig)
	}
	return nil
}

// Security - Camera → Drone → Guard → Ended 페이즈 오케스트레이터
//
// 틱마다 현재 페이즈의 역할만 행동한다. 페이즈는 앞으로만 진행한다.
type Security struct {
	cfg    SecurityConfig
	grid   *algorithms.Grid
	agents *agentIndex
	rules  *RuleEngine
	rng    *rand.Rand
	logger *log.Logger

	tick     int
	phase    models.Phase
	goal     *models.Cell
	alarmBy  *int
	outcome  models.PursuitOutcome
	failures int
	path     []models.Cell
}

type securitySnapshot struct {
	grid     *algorithms.Grid
	agents   *agentIndex
	phase    models.Phase
	goal     *models.Cell
	alarmBy  *int
	outcome  models.PursuitOutcome
	failures int
	path     []models.Cell
}

// NewSecurity - 벽과 에이전트 배치. 카메라, 드론, 가드 순으로 ID 를 받는다.
func NewSecurity(cfg SecurityConfig, ids IDSequence, logger *log.Logger) (*Security, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = NewCounter(0)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &Security{
		cfg:    cfg,
		grid:   algorithms.NewGrid(cfg.Height, cfg.Width),
		agents: newAgentIndex(),
		rules:  NewRuleEngine(),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger,
		phase:  models.PhaseCamera,
	}
	for _, w := range cfg.Walls {
		if err := s.grid.AddObstacle(w); err != nil {
			return nil, fmt.Errorf("wall %s: %w: %w", w, ErrInvalidConfig, err)
		}
	}

	place := func(role models.Role, pos models.Cell) error {
		a := newAgent(ids.Next(), role, pos)
		if err := s.agents.add(a); err != nil {
			return err
		}
		if err := s.grid.Place(pos, algorithms.Agent(a.ID)); err != nil {
			return fmt.Errorf("%s %d at %s: %w: %w", role, a.ID, pos, ErrInvalidConfig, err)
		}
		return nil
	}
	for _, pos := range cfg.Cameras {
		if err := place(models.RoleCamera, pos); err != nil {
			return nil, err
		}
	}
	if err := place(models.RoleDrone, cfg.Drone); err != nil {
		return nil, err
	}
	if err := place(models.RoleGuard, cfg.Guard); err != nil {
		return nil, err
	}
	return s, nil
}

// Detect - 현재 페이즈 역할의 관측으로 한 틱 진행
func (s *Security) Detect(in models.SecurityPerceptions) (models.TickResult, error) {
	if s.phase == models.PhaseEnded {
		return models.TickResult{}, ErrSimulationEnded
	}

	before := s.phase
	snap := s.snapshot()
	res := models.TickResult{
		Scenario: models.ScenarioSecurity,
		Tick:     s.tick + 1,
		Actions:  []models.ActionRecord{},
	}

	var err error
	switch s.phase {
	case models.PhaseCamera:
		err = s.cameraPhase(in.Camera, &res)
	case models.PhaseDrone:
		err = s.dronePhase(in.Drone, &res)
	case models.PhaseGuard:
		err = s.guardPhase(in.Guard, &res)
	}
	if err != nil {
		s.restore(snap)
		s.logger.Printf("tick %d rolled back in %s phase: %v", res.Tick, before, err)
		return models.TickResult{
			Scenario:   models.ScenarioSecurity,
			Tick:       res.Tick,
			Phase:      s.phase,
			Actions:    []models.ActionRecord{},
			RolledBack: true,
		}, err
	}

	s.tick++
	res.Phase = s.phase
	res.PhaseChanged = s.phase != before
	res.Outcome = s.outcome
	res.Done = s.phase == models.PhaseEnded
	return res, nil
}

// collect - 역할별 관측 레코드를 ID 로 묶는다. 잘못된 레코드는 Skipped 로
func (s *Security) collect(role models.Role, list []models.VisionPerception, res *models.TickResult) map[int]models.VisionObservation {
	out := make(map[int]models.VisionObservation, len(list))
	for _, p := range list {
		a, ok := s.agents.get(p.AgentID)
		if !ok || a.Role != role {
			res.Skipped = append(res.Skipped, skipped(p.AgentID, fmt.Errorf("%s %d: %w", role, p.AgentID, ErrUnknownAgent)))
			continue
		}
		if _, dup := out[p.AgentID]; dup {
			res.Skipped = append(res.Skipped, skipped(p.AgentID, fmt.Errorf("%s %d: duplicate record: %w", role, p.AgentID, ErrInvalidPerception)))
			continue
		}
		out[p.AgentID] = p.Observation
	}
	return out
}

func (s *Security) cameraPhase(list []models.VisionPerception, res *models.TickResult) error {
	records := s.collect(models.RoleCamera, list, res)

	var alarmID int
	var alarmGoal *models.Cell
	for _, cam := range s.agents.role(models.RoleCamera) {
		obs, ok := records[cam.ID]
		if !ok {
			continue
		}
		action, err := s.rules.Decide(models.RoleCamera, Observation{Vision: obs}, Payload{}, s.rng)
		if err != nil {
			res.Skipped = append(res.Skipped, skipped(cam.ID, fmt.Errorf("camera %d: %w", cam.ID, err)))
			continue
		}

		note := ""
		if action.Kind == models.ActionAlarm {
			target, err := s.targetCell(cam, obs)
			if err != nil {
				res.Skipped = append(res.Skipped, skipped(cam.ID, err))
				continue
			}
			visible, err := s.grid.IsVisible(cam.Pos, target, s.cfg.CameraRadius)
			switch {
			case err != nil:
				return fmt.Errorf("camera %d visibility: %v: %w", cam.ID, err, ErrInvariantViolation)
			case !visible:
				action = models.Action{Kind: models.ActionIgnore}
				note = models.NoteNotVisible
			case alarmGoal == nil:
				alarmID, alarmGoal = cam.ID, &target
			}
		}

		cam.Detected = obs.Detected
		cam.Decisions++
		res.Actions = append(res.Actions, models.NewActionRecord(cam.ID, cam.Role, action, note))
	}

	if alarmGoal != nil {
		s.goal = alarmGoal
		s.alarmBy = &alarmID
		s.logger.Printf("camera %d alarm, drone dispatched to %s", alarmID, *alarmGoal)
		return s.advance(models.PhaseDrone)
	}
	return nil
}

// targetCell - 감지 대상의 절대 좌표. 상대 좌표는 엔진이 아는 카메라 위치 기준
func (s *Security) targetCell(cam *AgentState, obs models.VisionObservation) (models.Cell, error) {
	var target models.Cell
	switch {
	case obs.DetectedPosition != nil:
		target = *obs.DetectedPosition
	case obs.DetectedOffset != nil:
		target = models.Cell{Row: cam.Pos.Row + obs.DetectedOffset.Row, Col: cam.Pos.Col + obs.DetectedOffset.Col}
	default:
		return models.Cell{}, fmt.Errorf("camera %d: target detected without position: %w", cam.ID, ErrInvalidPerception)
	}
	if !s.grid.InBounds(target) {
		return models.Cell{}, fmt.Errorf("camera %d: target %s outside grid: %w", cam.ID, target, ErrInvalidPerception)
	}
	return target, nil
}

// single - 드론/가드 한 대의 관측. 레코드가 없으면 빈 관측으로 행동한다.
func (s *Security) single(role models.Role, list []models.VisionPerception, res *models.TickResult) (*AgentState, models.VisionObservation, bool) {
	agents := s.agents.role(role)
	if len(agents) == 0 {
		return nil, models.VisionObservation{}, false
	}
	a := agents[0]
	obs := s.collect(role, list, res)[a.ID]

	if err := s.resync(a, obs.Position); err != nil {
		res.Skipped = append(res.Skipped, skipped(a.ID, err))
		return nil, models.VisionObservation{}, false
	}
	if !obs.Detected.Valid() {
		res.Skipped = append(res.Skipped, skipped(a.ID, fmt.Errorf("%s %d: detected %d: %w", role, a.ID, obs.Detected, ErrInvalidPerception)))
		return nil, models.VisionObservation{}, false
	}
	a.Detected = obs.Detected
	return a, obs, true
}

// confirm - 목표 지점이 역할의 시야 반경 안에서 보일 때만 대상 감지를 인정한다
func (s *Security) confirm(a *AgentState, obs models.VisionObservation, radius int) models.VisionObservation {
	if obs.Detected != models.DetectTarget || s.goal == nil {
		return obs
	}
	if ok, err := s.grid.IsVisible(a.Pos, *s.goal, radius); err != nil || !ok {
		s.logger.Printf("%s %d: target report at %s not visible within %d", a.Role, a.ID, *s.goal, radius)
		obs.Detected = models.DetectNothing
	}
	return obs
}

// resync - 보고된 위치가 다르면 그리드를 맞춘다
func (s *Security) resync(a *AgentState, pos *models.Cell) error {
	if pos == nil || *pos == a.Pos {
		return nil
	}
	if !s.grid.InBounds(*pos) {
		return fmt.Errorf("%s %d: reported position %s outside grid: %w", a.Role, a.ID, *pos, ErrInvalidPerception)
	}
	err := s.grid.MoveAgent(a.ID, a.Pos, *pos)
	if errors.Is(err, algorithms.ErrBlocked) {
		return fmt.Errorf("%s %d: reported position %s occupied: %w", a.Role, a.ID, *pos, ErrInvalidPerception)
	}
	if err != nil {
		return fmt.Errorf("%s %d resync: %v: %w", a.Role, a.ID, err, ErrInvariantViolation)
	}
	a.Pos = *pos
	return nil
}

func (s *Security) dronePhase(list []models.VisionPerception, res *models.TickResult) error {
	drone, obs, ok := s.single(models.RoleDrone, list, res)
	if !ok {
		return nil
	}
	if s.goal == nil {
		return fmt.Errorf("drone phase without goal: %w", ErrInvariantViolation)
	}
	obs = s.confirm(drone, obs, s.cfg.DroneRadius)
	drone.Detected = obs.Detected

	// 목표 칸을 다른 에이전트가 차지하고 있으면 바로 옆 칸을 도착으로 본다
	atGoal := drone.Pos == *s.goal || (drone.Pos.Manhattan(*s.goal) == 1 && s.grid.IsBlocked(*s.goal))
	payload := Payload{AtGoal: atGoal}
	planFailed := false
	if !payload.AtGoal && obs.Detected != models.DetectTarget {
		path, err := s.grid.FindPath(drone.Pos, *s.goal)
		if err != nil {
			planFailed = true
			s.failures++
			s.path = nil
		} else {
			s.path = path
			payload.NextStep, _ = models.DirectionBetween(path[0], path[1])
		}
	}

	action, err := s.rules.Decide(models.RoleDrone, Observation{Vision: obs}, payload, s.rng)
	if err != nil {
		res.Skipped = append(res.Skipped, skipped(drone.ID, fmt.Errorf("drone %d: %w", drone.ID, err)))
		return nil
	}
	drone.Decisions++

	switch action.Kind {
	case models.ActionInvestigate:
		s.outcome = models.OutcomeLocated
		if !payload.AtGoal {
			s.outcome = models.OutcomeSighted
		}
		res.Actions = append(res.Actions, models.NewActionRecord(drone.ID, drone.Role, action, ""))
		s.logger.Printf("drone %d investigating at %s (%s)", drone.ID, drone.Pos, s.outcome)
		return s.advance(models.PhaseGuard)

	case models.ActionMove:
		next := drone.Pos.Add(action.Direction)
		if s.grid.IsBlocked(next) {
			res.Actions = append(res.Actions, models.NewActionRecord(drone.ID, drone.Role, models.Action{Kind: models.ActionStay}, models.NoteOccupied))
			return nil
		}
		if err := s.grid.MoveAgent(drone.ID, drone.Pos, next); err != nil {
			return fmt.Errorf("drone %d move: %v: %w", drone.ID, err, ErrInvariantViolation)
		}
		drone.Pos = next
		drone.Movements++
		s.failures = 0
		res.Actions = append(res.Actions, models.NewActionRecord(drone.ID, drone.Role, action, ""))
		return nil
	}

	note := ""
	if planFailed {
		note = models.NoteUnreachable
	}
	if s.failures >= s.cfg.MaxReplans {
		s.outcome = models.OutcomeTargetLost
		note = models.NoteTargetLost
		s.logger.Printf("drone %d gave up after %d failed plans", drone.ID, s.failures)
		res.Actions = append(res.Actions, models.NewActionRecord(drone.ID, drone.Role, action, note))
		return s.advance(models.PhaseGuard)
	}
	res.Actions = append(res.Actions, models.NewActionRecord(drone.ID, drone.Role, action, note))
	return nil
}

func (s *Security) guardPhase(list []models.VisionPerception, res *models.TickResult) error {
	guard, obs, ok := s.single(models.RoleGuard, list, res)
	if !ok {
		return nil
	}
	obs = s.confirm(guard, obs, s.cfg.GuardRadius)
	guard.Detected = obs.Detected
	payload := Payload{
		Decisions:  guard.Decisions,
		TargetLost: s.outcome == models.OutcomeTargetLost,
	}
	action, err := s.rules.Decide(models.RoleGuard, Observation{Vision: obs}, payload, s.rng)
	if err != nil {
		res.Skipped = append(res.Skipped, skipped(guard.ID, fmt.Errorf("guard %d: %w", guard.ID, err)))
		return nil
	}
	guard.Decisions++
	res.Actions = append(res.Actions, models.NewActionRecord(guard.ID, guard.Role, action, ""))

	if action.Kind == models.ActionEndSimulation {
		s.logger.Printf("guard %d ended the simulation", guard.ID)
		return s.advance(models.PhaseEnded)
	}
	return nil
}

// advance - 페이즈 전이. 뒤로 가는 전이는 불변식 위반
func (s *Security) advance(next models.Phase) error {
	if next.Rank() <= s.phase.Rank() {
		return fmt.Errorf("phase %s -> %s: %w", s.phase, next, ErrInvariantViolation)
	}
	s.phase = next
	return nil
}

func (s *Security) snapshot() securitySnapshot {
	snap := securitySnapshot{
		grid:     s.grid.Clone(),
		agents:   s.agents.clone(),
		phase:    s.phase,
		outcome:  s.outcome,
		failures: s.failures,
		path:     append([]models.Cell(nil), s.path...),
	}
	if s.goal != nil {
		g := *s.goal
		snap.goal = &g
	}
	if s.alarmBy != nil {
		id := *s.alarmBy
		snap.alarmBy = &id
	}
	return snap
}

func (s *Security) restore(snap securitySnapshot) {
	s.grid = snap.grid
	s.agents = snap.agents
	s.phase = snap.phase
	s.goal = snap.goal
	s.alarmBy = snap.alarmBy
	s.outcome = snap.outcome
	s.failures = snap.failures
	s.path = snap.path
}

// Phase - 현재 페이즈
func (s *Security) Phase() models.Phase { return s.phase }

// Grid - 현재 그리드 복사본
func (s *Security) Grid() *algorithms.Grid { return s.grid.Clone() }

// Cameras - 카메라 위치
func (s *Security) Cameras() []models.Cell {
	return append([]models.Cell(nil), s.cfg.Cameras...)
}

// State - 조회용 상태
func (s *Security) State() models.SecurityState {
	st := models.SecurityState{
		Tick:    s.tick,
		Height:  s.cfg.Height,
		Width:   s.cfg.Width,
		Phase:   s.phase,
		Outcome: s.outcome,
		Replans: s.failures,
		Agents:  s.agents.snapshots(),
		Path:    append([]models.Cell(nil), s.path...),
	}
	if s.goal != nil {
		g := *s.goal
		st.Goal = &g
	}
	if s.alarmBy != nil {
		id := *s.alarmBy
		st.AlarmBy = &id
	}
	return st
}

package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sion-backend/models"
	"sion-backend/simulation"
)

var (
	ErrSimulationNotFound = errors.New("simulation not found")
	ErrScenarioMismatch   = errors.New("simulation has a different scenario")
)

// SimulationInfo - 등록된 시뮬레이션 요약
type SimulationInfo struct {
	ID         string          `json:"id"`
	Scenario   models.Scenario `json:"scenario"`
	CreatedAt  time.Time       `json:"created_at"`
	LastUpdate time.Time       `json:"last_update"`
	Ticks      int             `json:"ticks"`
	Done       bool            `json:"done"`
	Autoplay   bool            `json:"autoplay"`
}

// simEntry - 시뮬레이션 하나. 틱은 mu 로 직렬화된다.
type simEntry struct {
	mu       sync.Mutex
	info     SimulationInfo
	stacking *simulation.Stacking
	security *simulation.Security
	runner   *AutoRunner
}

// TickObserver - 틱 결과 구독자 (로그, 아카이브, 브로드캐스트)
type TickObserver func(res models.TickResult)

// SimulationManager - 시뮬레이션 레지스트리
type SimulationManager struct {
	mu        sync.RWMutex
	sims      map[string]*simEntry
	defaults  ScenarioFile
	maps      *MapGenerator
	observers []TickObserver
	autoplay  time.Duration
}

// NewSimulationManager - defaults 는 YAML 시나리오 파일 값 (없으면 zero)
func NewSimulationManager(defaults ScenarioFile, maps *MapGenerator) *SimulationManager {
	if maps == nil {
		maps = NewMapGenerator(0)
	}
	return &SimulationManager{
		sims:     make(map[string]*simEntry),
		defaults: defaults,
		maps:     maps,
		autoplay: 200 * time.Millisecond,
	}
}

// Subscribe - 틱 구독자 등록 (시작 전에 호출)
func (m *SimulationManager) Subscribe(fn TickObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// SetAutoplayInterval - 자동 재생 기본 주기
func (m *SimulationManager) SetAutoplayInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoplay = d
}

// Maps - 맵 생성기
func (m *SimulationManager) Maps() *MapGenerator {
	return m.maps
}

func simLogger(id string) *log.Logger {
	return log.New(log.Writer(), fmt.Sprintf("[sim %s] ", id[:8]), log.LstdFlags)
}

// CreateStacking - 적재 시뮬레이션 등록
func (m *SimulationManager) CreateStacking(spec StackingSpec) (string, models.StackingState, error) {
	cfg := spec.Apply(m.defaults.Stacking.Apply(simulation.DefaultStackingConfig()))
	id := uuid.New().String()

	sim, err := simulation.NewStacking(cfg, simulation.NewCounter(0), simLogger(id))
	if err != nil {
		return "", models.StackingState{}, err
	}
	m.maps.GenerateMap(id, models.ScenarioStacking, sim.Grid(), cfg.CollectionPoints, nil)

	m.register(id, &simEntry{
		info:     newInfo(id, models.ScenarioStacking),
		stacking: sim,
	})
	return id, sim.State(), nil
}

// CreateSecurity - 보안 시뮬레이션 등록
func (m *SimulationManager) CreateSecurity(spec SecuritySpec) (string, models.SecurityState, error) {
	cfg := spec.Apply(m.defaults.Security.Apply(simulation.DefaultSecurityConfig()))
	random := spec.RandomWalls
	if random == 0 {
		random = m.defaults.Security.RandomWalls
	}
	if random > 0 {
		if err := cfg.Validate(); err != nil {
			return "", models.SecurityState{}, err
		}
		keep := append([]models.Cell{cfg.Drone, cfg.Guard}, cfg.Cameras...)
		cfg.Walls = m.maps.RandomWalls(cfg.Height, cfg.Width, random, keep)
	}
	id := uuid.New().String()

	sim, err := simulation.NewSecurity(cfg, simulation.NewCounter(0), simLogger(id))
	if err != nil {
		return "", models.SecurityState{}, err
	}
	m.maps.GenerateMap(id, models.ScenarioSecurity, sim.Grid(), nil, sim.Cameras())

	m.register(id, &simEntry{
		info:     newInfo(id, models.ScenarioSecurity),
		security: sim,
	})
	return id, sim.State(), nil
}

func newInfo(id string, scenario models.Scenario) SimulationInfo {
	now := time.Now()
	return SimulationInfo{ID: id, Scenario: scenario, CreatedAt: now, LastUpdate: now}
}

func (m *SimulationManager) register(id string, e *simEntry) {
	m.mu.Lock()
	m.sims[id] = e
	m.mu.Unlock()
	log.Printf("[Manager] simulation registered: %s (%s)", id, e.info.Scenario)
}

func (m *SimulationManager) entry(id string, scenario models.Scenario) (*simEntry, error) {
	m.mu.RLock()
	e, ok := m.sims[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSimulationNotFound)
	}
	if scenario != "" && e.info.Scenario != scenario {
		return nil, fmt.Errorf("%s is %s: %w", id, e.info.Scenario, ErrScenarioMismatch)
	}
	return e, nil
}

// StepStacking - 외부 관측으로 한 틱
// 요청 단계에서 걸러진 레코드는 rejected 로 받아 결과의 Skipped 앞에 붙인다.
func (m *SimulationManager) StepStacking(id string, perceptions []models.StackerPerception, rejected ...models.AgentError) (models.TickResult, error) {
	return m.run(id, models.ScenarioStacking, func(e *simEntry) (models.TickResult, error) {
		res, err := e.stacking.Step(perceptions)
		return withRejected(res, rejected), err
	})
}

// TickStacking - 그리드에서 관측을 계산해 한 틱
func (m *SimulationManager) TickStacking(id string) (models.TickResult, error) {
	return m.run(id, models.ScenarioStacking, func(e *simEntry) (models.TickResult, error) {
		return e.stacking.Tick()
	})
}

// Detect - 보안 시뮬레이션 한 틱
func (m *SimulationManager) Detect(id string, in models.SecurityPerceptions, rejected ...models.AgentError) (models.TickResult, error) {
	return m.run(id, models.ScenarioSecurity, func(e *simEntry) (models.TickResult, error) {
		res, err := e.security.Detect(in)
		return withRejected(res, rejected), err
	})
}

func withRejected(res models.TickResult, rejected []models.AgentError) models.TickResult {
	if len(rejected) == 0 {
		return res
	}
	skipped := make([]models.AgentError, 0, len(rejected)+len(res.Skipped))
	skipped = append(skipped, rejected...)
	res.Skipped = append(skipped, res.Skipped...)
	return res
}

// run - 시뮬레이션 잠금 아래에서 틱 실행 후 구독자에게 알림
func (m *SimulationManager) run(id string, scenario models.Scenario, fn func(*simEntry) (models.TickResult, error)) (models.TickResult, error) {
	e, err := m.entry(id, scenario)
	if err != nil {
		return models.TickResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := fn(e)
	if errors.Is(err, simulation.ErrSimulationEnded) {
		return res, err
	}
	res.SimulationID = id
	res.Time = time.Now()

	e.info.LastUpdate = res.Time
	if err == nil {
		e.info.Ticks = res.Tick
		e.info.Done = res.Done
	}

	m.mu.RLock()
	observers := m.observers
	m.mu.RUnlock()
	for _, fn := range observers {
		fn(res)
	}
	return res, err
}

// StackingState - 적재 시뮬레이션 상태
func (m *SimulationManager) StackingState(id string) (models.StackingState, error) {
	e, err := m.entry(id, models.ScenarioStacking)
	if err != nil {
		return models.StackingState{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stacking.State(), nil
}

// SecurityState - 보안 시뮬레이션 상태
func (m *SimulationManager) SecurityState(id string) (models.SecurityState, error) {
	e, err := m.entry(id, models.ScenarioSecurity)
	if err != nil {
		return models.SecurityState{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.security.State(), nil
}

// MapMessage - map_update 본문 (정적 맵 + 현재 에이전트)
func (m *SimulationManager) MapMessage(id string) (*models.MapGridMessage, error) {
	e, err := m.entry(id, "")
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	var agents []models.AgentSnapshot
	var stacks map[string]int
	if e.stacking != nil {
		st := e.stacking.State()
		agents, stacks = st.Agents, st.Stacks
	} else {
		agents = e.security.State().Agents
	}
	e.mu.Unlock()
	return m.maps.GetMapGridMessage(id, agents, stacks)
}

// StartAutoplay - 적재 시뮬레이션 자동 재생 (interval 0 이면 기본값)
func (m *SimulationManager) StartAutoplay(id string, interval time.Duration) (*AutoRunner, error) {
	e, err := m.entry(id, models.ScenarioStacking)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		m.mu.RLock()
		interval = m.autoplay
		m.mu.RUnlock()
	}

	e.mu.Lock()
	if e.stacking.Done() {
		e.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", id, simulation.ErrSimulationEnded)
	}
	prev := e.runner
	e.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	runner := NewAutoRunner(id, interval, func() (models.TickResult, error) {
		return m.TickStacking(id)
	})
	e.mu.Lock()
	e.runner = runner
	e.info.Autoplay = true
	e.mu.Unlock()

	runner.Start()
	go func() {
		<-runner.Done()
		e.mu.Lock()
		if e.runner == runner {
			e.info.Autoplay = false
		}
		e.mu.Unlock()
	}()
	return runner, nil
}

// StopAutoplay - 자동 재생 중지. 돌고 있지 않았으면 false
func (m *SimulationManager) StopAutoplay(id string) (bool, error) {
	e, err := m.entry(id, models.ScenarioStacking)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	runner := e.runner
	e.runner = nil
	e.info.Autoplay = false
	e.mu.Unlock()

	if runner == nil {
		return false, nil
	}
	runner.Stop()
	return true, nil
}

// Remove - 시뮬레이션 등록 해제
func (m *SimulationManager) Remove(id string) error {
	m.mu.Lock()
	e, ok := m.sims[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrSimulationNotFound)
	}
	delete(m.sims, id)
	m.mu.Unlock()

	m.release(id, e)
	log.Printf("[Manager] simulation removed: %s", id)
	return nil
}

func (m *SimulationManager) release(id string, e *simEntry) {
	e.mu.Lock()
	runner := e.runner
	e.runner = nil
	e.mu.Unlock()
	if runner != nil {
		runner.Stop()
	}
	m.maps.ClearMap(id)
}

// Get - 시뮬레이션 요약
func (m *SimulationManager) Get(id string) (SimulationInfo, error) {
	e, err := m.entry(id, "")
	if err != nil {
		return SimulationInfo{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info, nil
}

// List - 생성 시각 순 요약 목록
func (m *SimulationManager) List() []SimulationInfo {
	m.mu.RLock()
	entries := make([]*simEntry, 0, len(m.sims))
	for _, e := range m.sims {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]SimulationInfo, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.info)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count - 등록된 시뮬레이션 수
func (m *SimulationManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sims)
}

// CleanupIdle - timeout 동안 틱이 없던 시뮬레이션 제거 (자동 재생 중인 것은 유지)
func (m *SimulationManager) CleanupIdle(timeout time.Duration) int {
	now := time.Now()
	var stale []string

	m.mu.RLock()
	for id, e := range m.sims {
		e.mu.Lock()
		idle := !e.info.Autoplay && now.Sub(e.info.LastUpdate) > timeout
		e.mu.Unlock()
		if idle {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	count := 0
	for _, id := range stale {
		if err := m.Remove(id); err == nil {
			log.Printf("[Manager] simulation cleanup: %s (idle)", id)
			count++
		}
	}
	return count
}

// RunCleanup - interval 마다 CleanupIdle. stop 이 닫히면 종료
func (m *SimulationManager) RunCleanup(interval, timeout time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.CleanupIdle(timeout)
		case <-stop:
			return
		}
	}
}

// GetStatistics - 시뮬레이션 통계
func (m *SimulationManager) GetStatistics() map[string]interface{} {
	list := m.List()
	byScenario := map[models.Scenario]int{}
	done, autoplay, ticks := 0, 0, 0
	for _, info := range list {
		byScenario[info.Scenario]++
		ticks += info.Ticks
		if info.Done {
			done++
		}
		if info.Autoplay {
			autoplay++
		}
	}
	return map[string]interface{}{
		"total_simulations": len(list),
		"stacking":          byScenario[models.ScenarioStacking],
		"security":          byScenario[models.ScenarioSecurity],
		"done":              done,
		"autoplay":          autoplay,
		"total_ticks":       ticks,
	}
}

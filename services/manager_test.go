package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sion-backend/models"
	"sion-backend/simulation"
)

func newManager() *SimulationManager {
	return NewSimulationManager(ScenarioFile{}, NewMapGenerator(7))
}

func TestCreateStackingAndTick(t *testing.T) {
	m := newManager()
	var mu sync.Mutex
	var seen []models.TickResult
	m.Subscribe(func(res models.TickResult) {
		mu.Lock()
		seen = append(seen, res)
		mu.Unlock()
	})

	id, st, err := m.CreateStacking(StackingSpec{})
	require.NoError(t, err)
	assert.Len(t, st.Agents, 5)
	assert.Equal(t, 20, st.ObjectsTotal)

	res, err := m.TickStacking(id)
	require.NoError(t, err)
	assert.Equal(t, id, res.SimulationID)
	assert.Equal(t, 1, res.Tick)
	assert.Len(t, res.Actions, 5)
	assert.False(t, res.Time.IsZero())

	require.Len(t, seen, 1)
	assert.Equal(t, id, seen[0].SimulationID)

	info, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Ticks)
	assert.Equal(t, models.ScenarioStacking, info.Scenario)
}

func TestStepStackingExternalPerception(t *testing.T) {
	m := newManager()
	id, _, err := m.CreateStacking(StackingSpec{Stackers: 2, Objects: 3})
	require.NoError(t, err)

	res, err := m.StepStacking(id, []models.StackerPerception{
		{AgentID: 1, Local: models.LocalView{F: 2, B: 2, L: 2, R: 2}},
		{AgentID: 7, Local: models.LocalView{}},
	})
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, models.ActionWait, res.Actions[0].Action)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, simulation.CodeInvalidPerception, res.Skipped[0].Code)
}

func TestStepStackingRejectedRecordsReachObservers(t *testing.T) {
	m := newManager()
	var seen []models.TickResult
	m.Subscribe(func(res models.TickResult) { seen = append(seen, res) })

	id, _, err := m.CreateStacking(StackingSpec{Stackers: 2, Objects: 3})
	require.NoError(t, err)

	rejected := models.AgentError{AgentID: 0, Code: simulation.CodeInvalidPerception, Error: "record [0]: missing R"}
	res, err := m.StepStacking(id, []models.StackerPerception{
		{AgentID: 7, Local: models.LocalView{}},
	}, rejected)
	require.NoError(t, err)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, rejected, res.Skipped[0])
	assert.Equal(t, 7, res.Skipped[1].AgentID)
	assert.Equal(t, 1, res.Tick)

	require.Len(t, seen, 1)
	assert.Equal(t, res.Skipped, seen[0].Skipped)
}

func TestScenarioMismatchAndNotFound(t *testing.T) {
	m := newManager()
	id, _, err := m.CreateSecurity(SecuritySpec{})
	require.NoError(t, err)

	_, err = m.TickStacking(id)
	assert.ErrorIs(t, err, ErrScenarioMismatch)
	_, err = m.StackingState(id)
	assert.ErrorIs(t, err, ErrScenarioMismatch)

	_, err = m.Detect("missing", models.SecurityPerceptions{})
	assert.ErrorIs(t, err, ErrSimulationNotFound)
}

func TestDetectThroughManager(t *testing.T) {
	m := newManager()
	id, st, err := m.CreateSecurity(SecuritySpec{})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCamera, st.Phase)

	target := models.Cell{Row: 10, Col: 50}
	res, err := m.Detect(id, models.SecurityPerceptions{Camera: []models.VisionPerception{{
		AgentID:     1,
		Observation: models.VisionObservation{Detected: models.DetectTarget, DetectedPosition: &target},
	}}})
	require.NoError(t, err)
	assert.True(t, res.PhaseChanged)
	assert.Equal(t, models.PhaseDrone, res.Phase)

	sec, err := m.SecurityState(id)
	require.NoError(t, err)
	require.NotNil(t, sec.Goal)
	assert.Equal(t, target, *sec.Goal)
}

func TestCreateRejectsBadConfig(t *testing.T) {
	m := newManager()
	_, _, err := m.CreateStacking(StackingSpec{Height: 2, Width: 2})
	assert.ErrorIs(t, err, simulation.ErrInvalidConfig)
	assert.Equal(t, 0, m.Count())
}

func TestCreateSecurityRandomWalls(t *testing.T) {
	m := newManager()
	id, _, err := m.CreateSecurity(SecuritySpec{Height: 40, Width: 40, Cameras: [][2]int{{5, 5}}, Drone: &[2]int{0, 20}, Guard: &[2]int{39, 20}, RandomWalls: 3})
	require.NoError(t, err)

	msg, err := m.MapMessage(id)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.Map.Walls)
	assert.Equal(t, 40, msg.Map.Height)
	assert.Len(t, msg.Agents, 3)
	for _, w := range msg.Map.Walls {
		assert.NotEqual(t, models.Cell{Row: 0, Col: 20}, w)
	}
}

func TestMapMessageStacking(t *testing.T) {
	m := newManager()
	id, _, err := m.CreateStacking(StackingSpec{})
	require.NoError(t, err)

	msg, err := m.MapMessage(id)
	require.NoError(t, err)
	assert.Equal(t, id, msg.SimulationID)
	assert.Equal(t, models.ScenarioStacking, msg.Map.Scenario)
	assert.Len(t, msg.Map.CollectionPoints, 4)
	assert.Empty(t, msg.Map.Walls)
}

func TestRemoveAndCleanupIdle(t *testing.T) {
	m := newManager()
	a, _, err := m.CreateStacking(StackingSpec{})
	require.NoError(t, err)
	b, _, err := m.CreateSecurity(SecuritySpec{})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.Remove(a))
	assert.ErrorIs(t, m.Remove(a), ErrSimulationNotFound)
	_, ok := m.Maps().GetMap(a)
	assert.False(t, ok)

	assert.Equal(t, 0, m.CleanupIdle(time.Hour))
	assert.Equal(t, 1, m.CleanupIdle(0))
	_, err = m.Get(b)
	assert.ErrorIs(t, err, ErrSimulationNotFound)
}

func TestAutoplayStartStop(t *testing.T) {
	m := newManager()
	id, _, err := m.CreateStacking(StackingSpec{})
	require.NoError(t, err)

	_, err = m.StartAutoplay(id, time.Millisecond)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		info, err := m.Get(id)
		return err == nil && info.Ticks >= 3
	}, 2*time.Second, time.Millisecond)

	info, _ := m.Get(id)
	assert.True(t, info.Autoplay)
	assert.Equal(t, 0, m.CleanupIdle(0), "autoplay keeps the simulation")

	stopped, err := m.StopAutoplay(id)
	require.NoError(t, err)
	assert.True(t, stopped)
	info, _ = m.Get(id)
	assert.False(t, info.Autoplay)

	stopped, err = m.StopAutoplay(id)
	require.NoError(t, err)
	assert.False(t, stopped)
}

func TestStatistics(t *testing.T) {
	m := newManager()
	id, _, err := m.CreateStacking(StackingSpec{})
	require.NoError(t, err)
	_, _, err = m.CreateSecurity(SecuritySpec{})
	require.NoError(t, err)
	_, err = m.TickStacking(id)
	require.NoError(t, err)

	stats := m.GetStatistics()
	assert.Equal(t, 2, stats["total_simulations"])
	assert.Equal(t, 1, stats["stacking"])
	assert.Equal(t, 1, stats["security"])
	assert.Equal(t, 1, stats["total_ticks"])
}

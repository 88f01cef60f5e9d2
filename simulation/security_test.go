package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sion-backend/models"
)

// 기본 배치: 카메라 0~3, 드론 4, 가드 5
const (
	droneID = 4
	guardID = 5
)

func camera(id, detected int, target *models.Cell) models.VisionPerception {
	return models.VisionPerception{
		AgentID: id,
		Observation: models.VisionObservation{
			Detected:         models.DetectionClass(detected),
			DetectedPosition: target,
		},
	}
}

func ptr(c models.Cell) *models.Cell { return &c }

func newDefaultSecurity(t *testing.T) *Security {
	t.Helper()
	s, err := NewSecurity(DefaultSecurityConfig(), NewCounter(0), nil)
	require.NoError(t, err)
	return s
}

func TestSecuritySetup(t *testing.T) {
	s := newDefaultSecurity(t)
	st := s.State()
	require.Len(t, st.Agents, 6)
	assert.Equal(t, models.PhaseCamera, st.Phase)
	assert.Equal(t, models.RoleDrone, st.Agents[droneID].Role)
	assert.Equal(t, cell(0, 50), st.Agents[droneID].Position)
	assert.True(t, s.grid.IsWall(cell(0, 10)))
	assert.True(t, s.grid.IsWall(cell(99, 35)))
	assert.False(t, s.grid.IsWall(cell(95, 15)))
}

func TestCameraIgnoreKeepsPhase(t *testing.T) {
	s := newDefaultSecurity(t)
	res, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{
		camera(0, 0, nil),
		camera(1, 1, ptr(cell(5, 50))),
	}})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCamera, res.Phase)
	assert.False(t, res.PhaseChanged)
	require.Len(t, res.Actions, 2)
	for _, rec := range res.Actions {
		assert.Equal(t, models.ActionIgnore, rec.Action)
		assert.Nil(t, rec.Direction)
	}
}

func TestCameraTargetBehindWallIgnored(t *testing.T) {
	s := newDefaultSecurity(t)
	res, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{
		camera(0, 2, ptr(cell(84, 5))),
	}})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCamera, res.Phase)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, models.ActionIgnore, res.Actions[0].Action)
	assert.Equal(t, models.NoteNotVisible, res.Actions[0].Note)
}

func TestCameraAlarmWithoutPositionSkipped(t *testing.T) {
	s := newDefaultSecurity(t)
	res, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{
		camera(1, 2, nil),
		camera(droneID, 2, ptr(cell(5, 50))),
	}})
	require.NoError(t, err)
	assert.Empty(t, res.Actions)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, CodeInvalidPerception, res.Skipped[0].Code)
	assert.Equal(t, models.PhaseCamera, s.Phase())
}

func TestLowestCameraIDWins(t *testing.T) {
	s := newDefaultSecurity(t)
	res, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{
		camera(2, 2, ptr(cell(5, 75))),
		camera(1, 2, ptr(cell(5, 50))),
	}})
	require.NoError(t, err)
	assert.True(t, res.PhaseChanged)
	assert.Equal(t, models.PhaseDrone, res.Phase)

	st := s.State()
	require.NotNil(t, st.Goal)
	assert.Equal(t, cell(5, 50), *st.Goal)
	require.NotNil(t, st.AlarmBy)
	assert.Equal(t, 1, *st.AlarmBy)
}

func TestCameraRelativeOffset(t *testing.T) {
	s := newDefaultSecurity(t)
	off := cell(-9, 10)
	_, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{{
		AgentID:     1,
		Observation: models.VisionObservation{Detected: models.DetectTarget, DetectedOffset: &off},
	}}})
	require.NoError(t, err)
	require.NotNil(t, s.State().Goal)
	assert.Equal(t, cell(5, 50), *s.State().Goal)
}

func TestFullPursuit(t *testing.T) {
	s := newDefaultSecurity(t)
	lastRank := s.Phase().Rank()
	step := func(in models.SecurityPerceptions) models.TickResult {
		res, err := s.Detect(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Phase.Rank(), lastRank)
		lastRank = res.Phase.Rank()
		return res
	}

	res := step(models.SecurityPerceptions{Camera: []models.VisionPerception{camera(1, 2, ptr(cell(10, 50)))}})
	require.Equal(t, models.PhaseDrone, res.Phase)

	for i := 0; i < 10; i++ {
		res = step(models.SecurityPerceptions{})
		require.Len(t, res.Actions, 1)
		assert.Equal(t, "move_F", res.Actions[0].Label(), "step %d", i)
		assert.Equal(t, models.PhaseDrone, res.Phase)
	}
	assert.Equal(t, cell(10, 50), s.State().Agents[droneID].Position)
	assert.Equal(t, 10, s.State().Agents[droneID].Movements)

	res = step(models.SecurityPerceptions{})
	assert.Equal(t, models.ActionInvestigate, res.Actions[0].Action)
	assert.Equal(t, models.PhaseGuard, res.Phase)
	assert.Equal(t, models.OutcomeLocated, res.Outcome)

	res = step(models.SecurityPerceptions{})
	assert.Equal(t, models.ActionAlarm, res.Actions[0].Action)
	assert.Equal(t, guardID, res.Actions[0].AgentID)
	assert.False(t, res.Done)

	res = step(models.SecurityPerceptions{})
	assert.Equal(t, models.ActionEndSimulation, res.Actions[0].Action)
	assert.Equal(t, models.PhaseEnded, res.Phase)
	assert.True(t, res.Done)

	_, err := s.Detect(models.SecurityPerceptions{})
	assert.ErrorIs(t, err, ErrSimulationEnded)
}

func TestDroneSightingEndsPursuit(t *testing.T) {
	s := newDefaultSecurity(t)
	_, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{camera(1, 2, ptr(cell(10, 50)))}})
	require.NoError(t, err)

	res, err := s.Detect(models.SecurityPerceptions{Drone: []models.VisionPerception{{
		AgentID:     droneID,
		Observation: models.VisionObservation{Position: ptr(cell(3, 50)), Detected: models.DetectTarget},
	}}})
	require.NoError(t, err)
	assert.Equal(t, models.ActionInvestigate, res.Actions[0].Action)
	assert.Equal(t, models.OutcomeSighted, res.Outcome)
	assert.Equal(t, cell(3, 50), s.State().Agents[droneID].Position)
}

func TestDroneResyncRejectsWall(t *testing.T) {
	s := newDefaultSecurity(t)
	_, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{camera(1, 2, ptr(cell(10, 50)))}})
	require.NoError(t, err)

	res, err := s.Detect(models.SecurityPerceptions{Drone: []models.VisionPerception{{
		AgentID:     droneID,
		Observation: models.VisionObservation{Position: ptr(cell(0, 10))},
	}}})
	require.NoError(t, err)
	assert.Empty(t, res.Actions)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, CodeInvalidPerception, res.Skipped[0].Code)
	assert.Equal(t, cell(0, 50), s.State().Agents[droneID].Position)
}

// 벽으로 갈라진 5x5: 드론이 목표에 닿을 수 없다
func TestUnreachableGoalForcesGuard(t *testing.T) {
	var walls []models.Cell
	for r := 0; r < 5; r++ {
		walls = append(walls, cell(r, 2))
	}
	cfg := SecurityConfig{
		Height:       5,
		Width:        5,
		Walls:        walls,
		Cameras:      []models.Cell{cell(0, 3)},
		Drone:        cell(0, 0),
		Guard:        cell(4, 0),
		CameraRadius: 10,
		DroneRadius:  3,
		GuardRadius:  3,
		MaxReplans:   3,
		Seed:         1,
	}
	s, err := NewSecurity(cfg, nil, nil)
	require.NoError(t, err)

	res, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{camera(0, 2, ptr(cell(0, 4)))}})
	require.NoError(t, err)
	require.Equal(t, models.PhaseDrone, res.Phase)

	for i := 0; i < 2; i++ {
		res, err = s.Detect(models.SecurityPerceptions{})
		require.NoError(t, err)
		assert.Equal(t, models.ActionWait, res.Actions[0].Action)
		assert.Equal(t, models.NoteUnreachable, res.Actions[0].Note)
		assert.Equal(t, models.PhaseDrone, res.Phase)
	}

	res, err = s.Detect(models.SecurityPerceptions{})
	require.NoError(t, err)
	assert.Equal(t, models.NoteTargetLost, res.Actions[0].Note)
	assert.Equal(t, models.PhaseGuard, res.Phase)
	assert.Equal(t, models.OutcomeTargetLost, res.Outcome)

	res, err = s.Detect(models.SecurityPerceptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ActionIgnore, res.Actions[0].Action)

	res, err = s.Detect(models.SecurityPerceptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ActionEndSimulation, res.Actions[0].Action)
	assert.True(t, res.Done)
}

func TestPhaseNeverMovesBackward(t *testing.T) {
	s := newDefaultSecurity(t)
	s.phase = models.PhaseGuard
	assert.ErrorIs(t, s.advance(models.PhaseDrone), ErrInvariantViolation)
	assert.ErrorIs(t, s.advance(models.PhaseGuard), ErrInvariantViolation)
	assert.NoError(t, s.advance(models.PhaseEnded))
}

// 벽 없는 10x10, 카메라 (0,9), 드론 (0,0), 시야 반경 3
func smallSecurity(t *testing.T, guard models.Cell) *Security {
	t.Helper()
	cfg := SecurityConfig{
		Height:       10,
		Width:        10,
		Cameras:      []models.Cell{cell(0, 9)},
		Drone:        cell(0, 0),
		Guard:        guard,
		CameraRadius: 20,
		DroneRadius:  3,
		GuardRadius:  3,
		MaxReplans:   3,
		Seed:         1,
	}
	s, err := NewSecurity(cfg, nil, nil)
	require.NoError(t, err)
	return s
}

func TestDroneSightingNeedsDroneRadius(t *testing.T) {
	s := smallSecurity(t, cell(9, 9))
	res, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{camera(0, 2, ptr(cell(8, 0)))}})
	require.NoError(t, err)
	require.Equal(t, models.PhaseDrone, res.Phase)

	// 목표까지 8칸: 반경 3 밖의 목격 보고는 무시하고 계속 추적
	res, err = s.Detect(models.SecurityPerceptions{Drone: []models.VisionPerception{{
		AgentID:     1,
		Observation: models.VisionObservation{Detected: models.DetectTarget},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "move_F", res.Actions[0].Label())
	assert.Equal(t, models.PhaseDrone, res.Phase)
	assert.Equal(t, models.DetectNothing, s.State().Agents[1].Detected)

	res, err = s.Detect(models.SecurityPerceptions{Drone: []models.VisionPerception{{
		AgentID:     1,
		Observation: models.VisionObservation{Position: ptr(cell(6, 0)), Detected: models.DetectTarget},
	}}})
	require.NoError(t, err)
	assert.Equal(t, models.ActionInvestigate, res.Actions[0].Action)
	assert.Equal(t, models.OutcomeSighted, res.Outcome)
	assert.Equal(t, models.PhaseGuard, res.Phase)
}

func TestGuardSightingNeedsGuardRadius(t *testing.T) {
	lost := func(guardPos *models.Cell) models.ActionKind {
		s := smallSecurity(t, cell(9, 9))
		goal := cell(8, 0)
		s.goal = &goal
		s.phase = models.PhaseGuard
		s.outcome = models.OutcomeTargetLost

		res, err := s.Detect(models.SecurityPerceptions{Guard: []models.VisionPerception{{
			AgentID:     2,
			Observation: models.VisionObservation{Position: guardPos, Detected: models.DetectTarget},
		}}})
		require.NoError(t, err)
		require.Len(t, res.Actions, 1)
		return res.Actions[0].Action
	}

	assert.Equal(t, models.ActionIgnore, lost(nil), "target report from (9,9) is out of range")
	assert.Equal(t, models.ActionAlarm, lost(ptr(cell(8, 2))))
}

func TestDroneWaitsWhenPathCellOccupied(t *testing.T) {
	s := smallSecurity(t, cell(1, 0))
	res, err := s.Detect(models.SecurityPerceptions{Camera: []models.VisionPerception{camera(0, 2, ptr(cell(3, 0)))}})
	require.NoError(t, err)
	require.Equal(t, models.PhaseDrone, res.Phase)

	res, err = s.Detect(models.SecurityPerceptions{})
	require.NoError(t, err)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, models.ActionWait, res.Actions[0].Action)
	assert.Equal(t, models.NoteOccupied, res.Actions[0].Note)
	assert.Equal(t, models.PhaseDrone, res.Phase)

	st := s.State()
	assert.Equal(t, 0, st.Replans)
	assert.Equal(t, cell(0, 0), st.Agents[1].Position)
}

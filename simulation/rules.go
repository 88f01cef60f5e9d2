package simulation

import (
	"fmt"
	"math/rand"

	"sion-backend/models"
)

// Observation - 한 틱 동안 에이전트가 본 것
// Stacker 는 Local, 나머지 역할은 Vision 을 쓴다.
type Observation struct {
	Local  models.LocalView
	Vision models.VisionObservation
}

// Payload - 규칙 판단에 쓰는 에이전트/페이즈 데이터
type Payload struct {
	Holding    bool
	AtGoal     bool
	NextStep   models.Direction // 드론: 경로상 다음 방향, 없으면 ""
	Decisions  int              // 가드: 이미 내린 결정 수
	TargetLost bool
}

// Rule - (조건, 행동) 쌍. 생성 후 변경하지 않는다.
type Rule struct {
	Name string
	When func(obs Observation, p Payload) bool
	Then func(obs Observation, p Payload, rng *rand.Rand) models.Action
}

// RuleEngine - 역할별 규칙 목록. 먼저 맞는 규칙이 이긴다.
type RuleEngine struct {
	rules map[models.Role][]Rule
}

// NewRuleEngine - 기본 규칙 세트
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{
		rules: map[models.Role][]Rule{
			models.RoleStacker: stackerRules(),
			models.RoleCamera:  cameraRules(),
			models.RoleDrone:   droneRules(),
			models.RoleGuard:   guardRules(),
		},
	}
}

// Rules - 역할의 규칙 목록 (복사본)
func (e *RuleEngine) Rules(role models.Role) []Rule {
	return append([]Rule(nil), e.rules[role]...)
}

// Decide - 관측과 페이로드로 행동 하나를 고른다
func (e *RuleEngine) Decide(role models.Role, obs Observation, p Payload, rng *rand.Rand) (models.Action, error) {
	action, _, err := e.decide(role, obs, p, rng)
	return action, err
}

func (e *RuleEngine) decide(role models.Role, obs Observation, p Payload, rng *rand.Rand) (models.Action, string, error) {
	if err := validateObservation(role, obs); err != nil {
		return models.Action{}, "", err
	}
	for _, r := range e.rules[role] {
		if r.When(obs, p) {
			return r.Then(obs, p, rng), r.Name, nil
		}
	}
	return models.Action{}, "", fmt.Errorf("role %q: %w", role, ErrNoRule)
}

func validateObservation(role models.Role, obs Observation) error {
	switch role {
	case models.RoleStacker:
		if err := obs.Local.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPerception, err)
		}
	case models.RoleCamera, models.RoleDrone, models.RoleGuard:
		if !obs.Vision.Detected.Valid() {
			return fmt.Errorf("%w: detected %d out of range", ErrInvalidPerception, obs.Vision.Detected)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidPerception, role)
	}
	return nil
}

// pick - 균등 선택. rng 가 없으면 첫 번째
func pick(dirs []models.Direction, rng *rand.Rand) models.Direction {
	if rng == nil || len(dirs) == 1 {
		return dirs[0]
	}
	return dirs[rng.Intn(len(dirs))]
}

// ========================================
// Stacker
// ========================================

func stackerRules() []Rule {
	return []Rule{
		{
			Name: "drop_on_stack",
			When: func(obs Observation, p Payload) bool {
				return p.Holding && len(obs.Local.With(models.ViewStack)) > 0
			},
			Then: func(obs Observation, p Payload, rng *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionDrop, Direction: pick(obs.Local.With(models.ViewStack), rng)}
			},
		},
		{
			Name: "grab_single",
			When: func(obs Observation, p Payload) bool {
				return !p.Holding && len(obs.Local.With(models.ViewSingleObject)) > 0
			},
			Then: func(obs Observation, p Payload, rng *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionGrab, Direction: pick(obs.Local.With(models.ViewSingleObject), rng)}
			},
		},
		{
			Name: "avoid_obstacle",
			When: func(obs Observation, p Payload) bool {
				return len(obs.Local.With(models.ViewBlocked)) > 0 && len(obs.Local.With(models.ViewEmpty)) > 0
			},
			Then: func(obs Observation, p Payload, rng *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionMove, Direction: pick(obs.Local.With(models.ViewEmpty), rng)}
			},
		},
		{
			Name: "boxed_in",
			When: func(obs Observation, p Payload) bool {
				return len(obs.Local.With(models.ViewEmpty)) == 0
			},
			Then: func(Observation, Payload, *rand.Rand) models.Action {
				return models.Wait()
			},
		},
		{
			Name: "wander",
			When: func(Observation, Payload) bool { return true },
			Then: func(Observation, Payload, *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionMove, Random: true}
			},
		},
	}
}

// ========================================
// Camera
// ========================================

func cameraRules() []Rule {
	return []Rule{
		{
			Name: "target_alarm",
			When: func(obs Observation, p Payload) bool {
				return obs.Vision.Detected == models.DetectTarget
			},
			Then: func(Observation, Payload, *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionAlarm}
			},
		},
		{
			Name: "ignore",
			When: func(Observation, Payload) bool { return true },
			Then: func(Observation, Payload, *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionIgnore}
			},
		},
	}
}

// ========================================
// Drone
// ========================================

func droneRules() []Rule {
	investigate := func(Observation, Payload, *rand.Rand) models.Action {
		return models.Action{Kind: models.ActionInvestigate}
	}
	return []Rule{
		{
			Name: "arrived",
			When: func(obs Observation, p Payload) bool { return p.AtGoal },
			Then: investigate,
		},
		{
			Name: "sighted",
			When: func(obs Observation, p Payload) bool { return obs.Vision.Detected == models.DetectTarget },
			Then: investigate,
		},
		{
			Name: "follow_path",
			When: func(obs Observation, p Payload) bool { return p.NextStep.Valid() },
			Then: func(obs Observation, p Payload, rng *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionMove, Direction: p.NextStep}
			},
		},
		{
			Name: "hold",
			When: func(Observation, Payload) bool { return true },
			Then: func(Observation, Payload, *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionStay}
			},
		},
	}
}

// ========================================
// Guard
// ========================================

func guardRules() []Rule {
	return []Rule{
		{
			Name: "close_out",
			When: func(obs Observation, p Payload) bool { return p.Decisions >= 1 },
			Then: func(Observation, Payload, *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionEndSimulation}
			},
		},
		{
			Name: "stand_down",
			When: func(obs Observation, p Payload) bool {
				return p.TargetLost && obs.Vision.Detected != models.DetectTarget
			},
			Then: func(Observation, Payload, *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionIgnore}
			},
		},
		{
			Name: "raise_alarm",
			When: func(Observation, Payload) bool { return true },
			Then: func(Observation, Payload, *rand.Rand) models.Action {
				return models.Action{Kind: models.ActionAlarm}
			},
		},
	}
}

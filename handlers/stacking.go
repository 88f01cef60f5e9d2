package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"sion-backend/models"
	"sion-backend/services"
	"sion-backend/simulation"
)

// HandleCreateStacking - 적재 시뮬레이션 생성 (본문 생략 시 기본 시나리오)
func HandleCreateStacking(c *fiber.Ctx) error {
	var spec services.StackingSpec
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&spec); err != nil {
			return badRequest(c, "잘못된 요청 형식입니다")
		}
	}

	id, state, err := Sims.CreateStacking(spec)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("📦 적재 시뮬레이션 생성: %s (%dx%d, 에이전트 %d, 박스 %d)",
		id, state.Height, state.Width, len(state.Agents), state.ObjectsTotal)
	queueEvent(services.EventSimulationCreate, models.SimEventData{SimulationID: id, Scenario: models.ScenarioStacking})
	broadcastMap(id)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      id,
		"state":   state,
	})
}

// HandleStepStacking - 외부 관측으로 한 틱 ([{agent_id, local_observation}])
func HandleStepStacking(c *fiber.Ctx) error {
	body := c.Body()
	var (
		perceptions []models.StackerPerception
		rejected    []models.AgentError
	)
	if Validator != nil {
		var err error
		if perceptions, rejected, err = Validator.ParseStacking(body); err != nil {
			return respondError(c, err)
		}
	} else if err := json.Unmarshal(body, &perceptions); err != nil {
		return respondError(c, fmt.Errorf("%v: %w", err, simulation.ErrInvalidPerception))
	}
	if len(rejected) > 0 {
		log.Printf("⚠️ 관측 레코드 %d개 건너뜀 (%s)", len(rejected), c.Params("id"))
	}

	res, err := Sims.StepStacking(c.Params("id"), perceptions, rejected...)
	return respondTick(c, res, err)
}

// HandleTickStacking - 그리드 기준 자율 틱
func HandleTickStacking(c *fiber.Ctx) error {
	res, err := Sims.TickStacking(c.Params("id"))
	return respondTick(c, res, err)
}

// HandleGetStacking - 적재 시뮬레이션 상태
func HandleGetStacking(c *fiber.Ctx) error {
	id := c.Params("id")
	state, err := Sims.StackingState(id)
	if err != nil {
		return respondError(c, err)
	}
	info, err := Sims.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"info":    info,
		"state":   state,
	})
}

// HandleStartAutoplay - 자동 재생 시작 (?interval_ms=)
func HandleStartAutoplay(c *fiber.Ctx) error {
	interval := time.Duration(c.QueryInt("interval_ms", 0)) * time.Millisecond
	if interval < 0 {
		return badRequest(c, "interval_ms must be positive")
	}

	runner, err := Sims.StartAutoplay(c.Params("id"), interval)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"status":  runner.GetStatus(),
	})
}

// HandleStopAutoplay - 자동 재생 중지
func HandleStopAutoplay(c *fiber.Ctx) error {
	stopped, err := Sims.StopAutoplay(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stopped": stopped,
	})
}

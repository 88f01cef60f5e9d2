package handlers

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"sion-backend/models"
	"sion-backend/services"
	"sion-backend/simulation"
)

// HandleCreateSecurity - 보안 시뮬레이션 생성
func HandleCreateSecurity(c *fiber.Ctx) error {
	var spec services.SecuritySpec
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&spec); err != nil {
			return badRequest(c, "잘못된 요청 형식입니다")
		}
	}

	id, state, err := Sims.CreateSecurity(spec)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("🛡️ 보안 시뮬레이션 생성: %s (%dx%d)", id, state.Height, state.Width)
	queueEvent(services.EventSimulationCreate, models.SimEventData{
		SimulationID: id,
		Scenario:     models.ScenarioSecurity,
		Phase:        state.Phase,
	})
	broadcastMap(id)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      id,
		"phase":   state.Phase,
		"state":   state,
	})
}

// HandleDetect - 현재 단계 역할의 관측으로 한 틱
func HandleDetect(c *fiber.Ctx) error {
	body := c.Body()
	var (
		in       models.SecurityPerceptions
		rejected []models.AgentError
	)
	if Validator != nil {
		var err error
		if in, rejected, err = Validator.ParseSecurity(body); err != nil {
			return respondError(c, err)
		}
	} else if err := json.Unmarshal(body, &in); err != nil {
		return respondError(c, fmt.Errorf("%v: %w", err, simulation.ErrInvalidPerception))
	}
	if len(rejected) > 0 {
		log.Printf("⚠️ 관측 레코드 %d개 건너뜀 (%s)", len(rejected), c.Params("id"))
	}

	res, err := Sims.Detect(c.Params("id"), in, rejected...)
	return respondTick(c, res, err)
}

// HandleGetSecurity - 보안 시뮬레이션 상태
func HandleGetSecurity(c *fiber.Ctx) error {
	id := c.Params("id")
	state, err := Sims.SecurityState(id)
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

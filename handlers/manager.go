package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"sion-backend/models"
	"sion-backend/services"
	"sion-backend/simulation"
)

// 핸들러가 공유하는 서비스 (main 에서 Init 으로 연결)
var (
	Sims      *services.SimulationManager
	Feed      *services.EventFeed
	Validator *services.PerceptionValidator
)

// Init - 핸들러 의존성 연결
func Init(sims *services.SimulationManager, feed *services.EventFeed, validator *services.PerceptionValidator) {
	Sims = sims
	Feed = feed
	Validator = validator
}

// BroadcastTick - 틱 결과를 웹 클라이언트로 전송 (TickObserver)
func BroadcastTick(res models.TickResult) {
	Clients.BroadcastMessage(models.WebSocketMessage{
		Type:      models.MessageTypeTick,
		Data:      res,
		Timestamp: res.Time.UnixMilli(),
	})
}

// broadcastMap - map_update 전송
func broadcastMap(id string) {
	msg, err := Sims.MapMessage(id)
	if err != nil {
		log.Printf("⚠️ 맵 메시지 생성 실패 (%s): %v", id, err)
		return
	}
	Clients.BroadcastMessage(models.WebSocketMessage{
		Type:      models.MessageTypeMapUpdate,
		Data:      msg,
		Timestamp: time.Now().UnixMilli(),
	})
}

func queueEvent(eventType string, data models.SimEventData) {
	if Feed != nil {
		Feed.QueueEvent(eventType, data)
	}
}

// errorStatus - 에러를 HTTP 상태와 코드로
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrSimulationNotFound), errors.Is(err, services.ErrScenarioMismatch):
		return fiber.StatusNotFound, simulation.CodeNotFound
	case errors.Is(err, services.ErrNoDatabase):
		return fiber.StatusServiceUnavailable, "E_NO_DATABASE"
	}

	code := simulation.ErrorCode(err)
	switch code {
	case simulation.CodeInvalidPerception, simulation.CodeBadRequest, simulation.CodeOutOfBounds:
		return fiber.StatusBadRequest, code
	case simulation.CodeEnded, simulation.CodeInvariant:
		return fiber.StatusConflict, code
	case simulation.CodeBlocked, simulation.CodeUnreachable:
		return fiber.StatusUnprocessableEntity, code
	}
	return fiber.StatusInternalServerError, code
}

func respondError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"code":    code,
		"error":   err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"code":    simulation.CodeBadRequest,
		"error":   msg,
	})
}

// respondTick - 틱 결과 응답. 롤백된 틱은 결과와 함께 409
func respondTick(c *fiber.Ctx, res models.TickResult, err error) error {
	if err == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"result":  res,
		})
	}
	if !res.RolledBack {
		return respondError(c, err)
	}
	status, code := errorStatus(err)
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"code":    code,
		"error":   err.Error(),
		"result":  res,
	})
}

package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"sion-backend/models"
	"sion-backend/services"
)

// HandleListSimulations - 등록된 시뮬레이션 목록
func HandleListSimulations(c *fiber.Ctx) error {
	sims := Sims.List()
	return c.JSON(fiber.Map{
		"success":     true,
		"count":       len(sims),
		"simulations": sims,
	})
}

// HandleGetSimulationMap - 정적 맵 + 현재 에이전트
func HandleGetSimulationMap(c *fiber.Ctx) error {
	msg, err := Sims.MapMessage(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"map":     msg,
	})
}

// HandleDeleteSimulation - 시뮬레이션 삭제
func HandleDeleteSimulation(c *fiber.Ctx) error {
	id := c.Params("id")
	info, err := Sims.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	if err := Sims.Remove(id); err != nil {
		return respondError(c, err)
	}

	log.Printf("🗑️ 시뮬레이션 삭제: %s", id)
	queueEvent(services.EventSimulationRemove, models.SimEventData{
		SimulationID: id,
		Scenario:     info.Scenario,
		Tick:         info.Ticks,
	})
	return c.JSON(fiber.Map{
		"success": true,
		"id":      id,
	})
}

// HandleStatistics - 서버 전체 통계
func HandleStatistics(c *fiber.Ctx) error {
	stats := Sims.GetStatistics()
	stats["clients"] = Clients.GetClientCount()
	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}

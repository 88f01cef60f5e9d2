package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"sion-backend/services"
)

// HandleGetRecentLogs - 최근 틱 로그 조회 (simulation_id 생략 시 전체)
func HandleGetRecentLogs(c *fiber.Ctx) error {
	simID := c.Query("simulation_id")
	limit := queryLimit(c)

	logs, err := services.GetRecentLogs(simID, limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"logs":    logs,
	})
}

// HandleGetLogsByTimeRange - 시간 범위로 로그 조회
func HandleGetLogsByTimeRange(c *fiber.Ctx) error {
	simID := c.Query("simulation_id")
	startStr := c.Query("start") // RFC3339 format
	endStr := c.Query("end")     // RFC3339 format

	// 시작 시간 파싱
	var start time.Time
	if startStr != "" {
		parsed, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return badRequest(c, "Invalid start time format (use RFC3339)")
		}
		start = parsed
	} else {
		// 기본: 24시간 전
		start = time.Now().Add(-24 * time.Hour)
	}

	// 종료 시간 파싱
	var end time.Time
	if endStr != "" {
		parsed, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return badRequest(c, "Invalid end time format (use RFC3339)")
		}
		end = parsed
	} else {
		end = time.Now()
	}
	if end.Before(start) {
		return badRequest(c, "end must not be before start")
	}

	logs, err := services.GetLogsByTimeRange(simID, start, end, queryLimit(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(logs),
		"time_range": fiber.Map{
			"start": start.Format(time.RFC3339),
			"end":   end.Format(time.RFC3339),
		},
		"logs": logs,
	})
}

// HandleGetLogsByEventType - 이벤트 타입별 로그 조회
func HandleGetLogsByEventType(c *fiber.Ctx) error {
	simID := c.Query("simulation_id")
	eventType := c.Query("event_type")
	if eventType == "" {
		return badRequest(c, "event_type parameter is required")
	}

	logs, err := services.GetLogsByEventType(simID, eventType, queryLimit(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"count":      len(logs),
		"event_type": eventType,
		"logs":       logs,
	})
}

// HandleGetLogStats - 로그 통계 조회
func HandleGetLogStats(c *fiber.Ctx) error {
	simID := c.Query("simulation_id")
	hours, err := strconv.Atoi(c.Query("hours", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}

	stats, err := services.GetLogStats(simID, hours)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}

func queryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		return 100
	}
	return limit
}

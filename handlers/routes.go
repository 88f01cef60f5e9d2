package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SetupRoutes - REST + WebSocket 라우트 등록
func SetupRoutes(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Sion 시뮬레이션 서버가 실행 중입니다.")
	})

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "OK",
			"clients":     Clients.GetClientCount(),
			"simulations": simulationCount(),
			"time":        time.Now().Format(time.RFC3339),
		})
	})
	api.Get("/stats", HandleStatistics)

	// 적재 시뮬레이션
	stacking := api.Group("/stacking")
	stacking.Post("/", HandleCreateStacking)
	stacking.Get("/:id", HandleGetStacking)
	stacking.Post("/:id/step", HandleStepStacking)
	stacking.Post("/:id/tick", HandleTickStacking)
	stacking.Post("/:id/autoplay", HandleStartAutoplay)
	stacking.Delete("/:id/autoplay", HandleStopAutoplay)

	// 보안 시뮬레이션
	security := api.Group("/security")
	security.Post("/", HandleCreateSecurity)
	security.Get("/:id", HandleGetSecurity)
	security.Post("/:id/detect", HandleDetect)

	sims := api.Group("/simulations")
	sims.Get("/", HandleListSimulations)
	sims.Get("/:id/map", HandleGetSimulationMap)
	sims.Delete("/:id", HandleDeleteSimulation)

	// 그리드 유틸리티
	api.Post("/pathfinding", HandlePathfinding)
	api.Post("/visibility", HandleVisibility)

	// 로그 조회 API
	logsAPI := api.Group("/logs")
	logsAPI.Get("/recent", HandleGetRecentLogs)     // 최근 로그
	logsAPI.Get("/range", HandleGetLogsByTimeRange) // 시간 범위
	logsAPI.Get("/type", HandleGetLogsByEventType)  // 이벤트 타입별
	logsAPI.Get("/stats", HandleGetLogStats)        // 통계

	// WebSocket
	app.Use("/websocket", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/websocket/web", websocket.New(HandleWebClientWebSocket))
}

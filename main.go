package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"sion-backend/handlers"
	"sion-backend/models"
	"sion-backend/services"
)

func main() {
	// .env 파일 로드
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env 파일을 찾을 수 없습니다.")
	}
	cfg := services.LoadAppConfig()

	// 시나리오 파일 (선택)
	var defaults services.ScenarioFile
	if cfg.ScenarioPath != "" {
		file, err := services.LoadScenarioFile(cfg.ScenarioPath)
		if err != nil {
			log.Fatalf("❌ 시나리오 파일 로드 실패: %v", err)
		}
		defaults = file
		log.Printf("✅ 시나리오 파일 로드: %s", cfg.ScenarioPath)
	}

	// DB 연결 (DB_DRIVER 없으면 로그 저장 안 함)
	if err := services.InitDatabase(cfg); err != nil {
		log.Fatalf("❌ DB 초기화 실패: %v", err)
	}

	// 로깅 시스템 초기화
	services.InitLogging(cfg.LogFlushSize, cfg.LogFlushInterval)
	defer services.StopLogging() // 종료 시 남은 로그 저장

	validator, err := services.NewPerceptionValidator()
	if err != nil {
		log.Fatalf("❌ 관측 스키마 컴파일 실패: %v", err)
	}

	feed := services.NewEventFeed(handlers.Clients.BroadcastMessage)
	feed.Start()
	defer feed.Stop()

	sims := services.NewSimulationManager(defaults, services.NewMapGenerator(0))
	sims.SetAutoplayInterval(cfg.AutoplayInterval)
	sims.Subscribe(services.LogTick)
	sims.Subscribe(handlers.BroadcastTick)
	sims.Subscribe(feed.OnTick)

	if cfg.ArchiveDir != "" {
		archive := services.NewTickArchive(cfg.ArchiveDir, "ticks")
		defer archive.Close()
		sims.Subscribe(func(res models.TickResult) {
			if err := archive.Write(res); err != nil {
				log.Printf("⚠️ 틱 아카이브 기록 실패: %v", err)
			}
		})
		log.Printf("✅ 틱 아카이브: %s", cfg.ArchiveDir)
	}

	handlers.Init(sims, feed, validator)

	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go sims.RunCleanup(time.Minute, cfg.IdleTimeout, stopCleanup)

	app := fiber.New()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	go handlers.Clients.Start()

	handlers.SetupRoutes(app)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("🛑 서버 종료 중...")
		_ = app.Shutdown()
	}()

	log.Printf("🚀 서버 시작: http://localhost:%s", cfg.Port)
	log.Printf("📡 WebSocket: ws://localhost:%s/websocket/web", cfg.Port)
	log.Printf("📦 적재 API: POST http://localhost:%s/api/stacking", cfg.Port)
	log.Printf("🛡️ 보안 API: POST http://localhost:%s/api/security", cfg.Port)
	log.Printf("💾 로그 API: GET http://localhost:%s/api/logs/*", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("❌ 서버 오류: %v", err)
	}
}

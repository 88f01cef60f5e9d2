package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sion-backend/models"
	"sion-backend/simulation"
)

// AppConfig - 서버 설정 (.env / 환경 변수)
type AppConfig struct {
	Port        string
	CORSOrigins string

	// DB
	DBDriver      string // "mysql" | "sqlite" | "" (로그 저장 안 함)
	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPassword string
	MySQLDatabase string
	SQLitePath    string

	// 로그 버퍼
	LogFlushSize     int
	LogFlushInterval time.Duration

	ArchiveDir       string // 비어 있으면 zstd 아카이브 비활성
	ScenarioPath     string
	IdleTimeout      time.Duration
	AutoplayInterval time.Duration
}

// LoadAppConfig - 환경 변수에서 설정 읽기 (godotenv 로드 이후 호출)
func LoadAppConfig() AppConfig {
	cfg := AppConfig{
		Port:             envString("PORT", "3000"),
		CORSOrigins:      envString("CORS_ORIGINS", "http://localhost:5173, http://localhost:3000"),
		DBDriver:         strings.ToLower(envString("DB_DRIVER", "")),
		MySQLHost:        os.Getenv("MYSQL_HOST"),
		MySQLPort:        envInt("MYSQL_PORT", 3306),
		MySQLUser:        os.Getenv("MYSQL_USER"),
		MySQLPassword:    os.Getenv("MYSQL_PASSWORD"),
		MySQLDatabase:    os.Getenv("MYSQL_DATABASE"),
		SQLitePath:       envString("SQLITE_PATH", "sion.db"),
		LogFlushSize:     envInt("LOG_FLUSH_SIZE", 50),
		LogFlushInterval: envDuration("LOG_FLUSH_INTERVAL", 10*time.Second),
		ArchiveDir:       os.Getenv("ARCHIVE_DIR"),
		ScenarioPath:     os.Getenv("SCENARIO_PATH"),
		IdleTimeout:      envDuration("IDLE_TIMEOUT", 30*time.Minute),
		AutoplayInterval: envDuration("AUTOPLAY_INTERVAL", 200*time.Millisecond),
	}
	// MYSQL_HOST 만 있고 드라이버 미지정이면 기존 동작대로 MySQL
	if cfg.DBDriver == "" && cfg.MySQLHost != "" {
		cfg.DBDriver = "mysql"
	}
	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// ========================================
// 시나리오 파일 (YAML)
// ========================================

// ScenarioFile - configs/scenario.yaml
type ScenarioFile struct {
	Stacking StackingSpec `yaml:"stacking"`
	Security SecuritySpec `yaml:"security"`
}

// StackingSpec - 적재 시나리오 덮어쓰기. 0 / 빈 값은 기본값 유지.
// HTTP 생성 요청 본문과 YAML 이 같은 형식을 쓴다.
type StackingSpec struct {
	Height           int      `json:"height,omitempty" yaml:"height"`
	Width            int      `json:"width,omitempty" yaml:"width"`
	Stackers         int      `json:"stackers,omitempty" yaml:"stackers"`
	Objects          int      `json:"objects,omitempty" yaml:"objects"`
	MaxStack         int      `json:"max_stack,omitempty" yaml:"max_stack"`
	CollectionPoints [][2]int `json:"collection_points,omitempty" yaml:"collection_points"`
	Walls            [][2]int `json:"walls,omitempty" yaml:"walls"`
	Seed             int64    `json:"seed,omitempty" yaml:"seed"`
}

// SecuritySpec - 보안 시나리오 덮어쓰기
type SecuritySpec struct {
	Height       int                 `json:"height,omitempty" yaml:"height"`
	Width        int                 `json:"width,omitempty" yaml:"width"`
	WallColumns  []models.WallColumn `json:"wall_columns,omitempty" yaml:"wall_columns"`
	Walls        [][2]int            `json:"walls,omitempty" yaml:"walls"`
	Cameras      [][2]int            `json:"cameras,omitempty" yaml:"cameras"`
	Drone        *[2]int             `json:"drone,omitempty" yaml:"drone"`
	Guard        *[2]int             `json:"guard,omitempty" yaml:"guard"`
	CameraRadius int                 `json:"camera_radius,omitempty" yaml:"camera_radius"`
	DroneRadius  int                 `json:"drone_radius,omitempty" yaml:"drone_radius"`
	GuardRadius  int                 `json:"guard_radius,omitempty" yaml:"guard_radius"`
	MaxReplans   int                 `json:"max_replans,omitempty" yaml:"max_replans"`
	RandomWalls  int                 `json:"random_walls,omitempty" yaml:"random_walls"` // >0 이면 MapGenerator 로 벽 생성
	Seed         int64               `json:"seed,omitempty" yaml:"seed"`
}

// LoadScenarioFile - YAML 시나리오 파일 읽기
func LoadScenarioFile(path string) (ScenarioFile, error) {
	var f ScenarioFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func toCells(in [][2]int) []models.Cell {
	out := make([]models.Cell, 0, len(in))
	for _, p := range in {
		out = append(out, models.Cell{Row: p[0], Col: p[1]})
	}
	return out
}

// Apply - 기본 설정 위에 덮어쓰기
func (s StackingSpec) Apply(base simulation.StackingConfig) simulation.StackingConfig {
	if s.Height > 0 {
		base.Height = s.Height
	}
	if s.Width > 0 {
		base.Width = s.Width
	}
	if s.Stackers > 0 {
		base.Stackers = s.Stackers
	}
	if s.Objects > 0 {
		base.Objects = s.Objects
	}
	if s.MaxStack > 0 {
		base.MaxStack = s.MaxStack
	}
	if len(s.CollectionPoints) > 0 {
		base.CollectionPoints = toCells(s.CollectionPoints)
	}
	if len(s.Walls) > 0 {
		base.Walls = toCells(s.Walls)
	}
	if s.Seed != 0 {
		base.Seed = s.Seed
	}
	return base
}

// Apply - 기본 설정 위에 덮어쓰기. WallColumns 와 Walls 는 합쳐진다.
func (s SecuritySpec) Apply(base simulation.SecurityConfig) simulation.SecurityConfig {
	if s.Height > 0 {
		base.Height = s.Height
	}
	if s.Width > 0 {
		base.Width = s.Width
	}
	if len(s.WallColumns) > 0 || len(s.Walls) > 0 {
		var walls []models.Cell
		for _, col := range s.WallColumns {
			walls = append(walls, col.Cells()...)
		}
		base.Walls = append(walls, toCells(s.Walls)...)
	}
	if len(s.Cameras) > 0 {
		base.Cameras = toCells(s.Cameras)
	}
	if s.Drone != nil {
		base.Drone = models.Cell{Row: s.Drone[0], Col: s.Drone[1]}
	}
	if s.Guard != nil {
		base.Guard = models.Cell{Row: s.Guard[0], Col: s.Guard[1]}
	}
	if s.CameraRadius > 0 {
		base.CameraRadius = s.CameraRadius
	}
	if s.DroneRadius > 0 {
		base.DroneRadius = s.DroneRadius
	}
	if s.GuardRadius > 0 {
		base.GuardRadius = s.GuardRadius
	}
	if s.MaxReplans > 0 {
		base.MaxReplans = s.MaxReplans
	}
	if s.Seed != 0 {
		base.Seed = s.Seed
	}
	return base
}

package services

import (
	"errors"
	"fmt"
	"log"

	"sion-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 인스턴스
var db *gorm.DB

// ErrNoDatabase - DB 설정 없이 로그 조회
var ErrNoDatabase = errors.New("database not configured")

// InitDatabase - 설정된 드라이버로 연결 후 TickLog 마이그레이션
//
// DB_DRIVER 가 비어 있으면 연결하지 않는다. 로그는 버퍼에서 버려진다.
func InitDatabase(cfg AppConfig) error {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "":
		log.Println("⚠️ DB_DRIVER 미설정: 틱 로그를 저장하지 않습니다")
		return nil
	case "mysql":
		if cfg.MySQLHost == "" || cfg.MySQLUser == "" || cfg.MySQLDatabase == "" {
			return fmt.Errorf("MySQL 환경 변수가 모두 설정되지 않았습니다: MYSQL_HOST, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE")
		}
		dialector = mysql.Open(mysqlDSN(cfg))
		log.Printf("📡 연결 정보: %s:%s@%s:%d/%s",
			cfg.MySQLUser, mask(cfg.MySQLPassword), cfg.MySQLHost, cfg.MySQLPort, cfg.MySQLDatabase)
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
		log.Printf("📡 SQLite 파일: %s", cfg.SQLitePath)
	default:
		return fmt.Errorf("지원하지 않는 DB_DRIVER: %s", cfg.DBDriver)
	}

	conn, err := OpenDatabase(dialector)
	if err != nil {
		return err
	}
	db = conn
	log.Printf("✅ %s 연결 및 마이그레이션 완료", cfg.DBDriver)
	return nil
}

// OpenDatabase - 연결 + AutoMigrate
func OpenDatabase(dialector gorm.Dialector) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("DB 연결 실패: %w", err)
	}

	// AutoMigrate - 테이블 자동 생성
	if err := conn.AutoMigrate(&models.TickLog{}); err != nil {
		return nil, fmt.Errorf("마이그레이션 실패: %w", err)
	}
	return conn, nil
}

// GetDB - GORM 인스턴스 반환
func GetDB() *gorm.DB {
	return db
}

func mysqlDSN(cfg AppConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.MySQLUser, cfg.MySQLPassword, cfg.MySQLHost, cfg.MySQLPort, cfg.MySQLDatabase)
}

func mask(secret string) string {
	if len(secret) <= 3 {
		return "***"
	}
	return secret[:3] + "***"
}

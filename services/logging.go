package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"sion-backend/models"

	"gorm.io/gorm"
)

// LogSink - 버퍼가 비울 때 로그를 넘겨받는 곳
type LogSink interface {
	SaveLogs(logs []models.TickLog) error
}

// GormSink - DB 일괄 저장
type GormSink struct {
	DB *gorm.DB
}

func (s GormSink) SaveLogs(logs []models.TickLog) error {
	return s.DB.CreateInBatches(logs, 100).Error
}

// 로깅 버퍼 (비동기 일괄 처리)
type LogBuffer struct {
	logs      []models.TickLog
	mu        sync.Mutex
	flushMu   sync.Mutex
	sink      LogSink
	flushSize int           // 일괄 저장 크기
	flushTime time.Duration // 자동 플러시 시간
	stopChan  chan bool
	done      chan struct{}
}

var logBuffer *LogBuffer

// NewLogBuffer - sink 가 nil 이면 비울 때 버린다
func NewLogBuffer(sink LogSink, flushSize int, flushInterval time.Duration) *LogBuffer {
	if flushSize <= 0 {
		flushSize = 50
	}
	return &LogBuffer{
		logs:      make([]models.TickLog, 0, flushSize*2),
		sink:      sink,
		flushSize: flushSize,
		flushTime: flushInterval,
		stopChan:  make(chan bool),
		done:      make(chan struct{}),
	}
}

// InitLogging - 로깅 시스템 초기화
func InitLogging(flushSize int, flushInterval time.Duration) {
	var sink LogSink
	if db != nil {
		sink = GormSink{DB: db}
	}
	logBuffer = NewLogBuffer(sink, flushSize, flushInterval)

	// 자동 플러시 고루틴 시작
	go logBuffer.autoFlush()

	log.Printf("✅ 로깅 시스템 초기화 완료 (flushSize: %d, flushInterval: %v)", flushSize, flushInterval)
}

// autoFlush - 주기적 로그 저장
func (lb *LogBuffer) autoFlush() {
	defer close(lb.done)
	ticker := time.NewTicker(lb.flushTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lb.Flush()
		case <-lb.stopChan:
			lb.Flush() // 종료 시 남은 로그 저장
			return
		}
	}
}

// Add - 로그 버퍼에 추가. 버퍼가 차면 즉시 비운다.
func (lb *LogBuffer) Add(entries ...models.TickLog) {
	lb.mu.Lock()
	lb.logs = append(lb.logs, entries...)
	size := len(lb.logs)
	lb.mu.Unlock()

	if size >= lb.flushSize {
		go lb.Flush()
	}
}

// Len - 버퍼에 남은 로그 수
func (lb *LogBuffer) Len() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return len(lb.logs)
}

// Flush - 버퍼의 모든 로그를 sink 로 넘긴다. 넘긴 개수를 반환
func (lb *LogBuffer) Flush() int {
	lb.flushMu.Lock()
	defer lb.flushMu.Unlock()

	lb.mu.Lock()
	if len(lb.logs) == 0 {
		lb.mu.Unlock()
		return 0
	}

	// 로그 복사 및 버퍼 초기화
	logsToSave := make([]models.TickLog, len(lb.logs))
	copy(logsToSave, lb.logs)
	lb.logs = lb.logs[:0]
	lb.mu.Unlock()

	if lb.sink == nil {
		return 0
	}
	if err := lb.sink.SaveLogs(logsToSave); err != nil {
		log.Printf("❌ 로그 저장 실패: %v", err)
		return 0
	}
	log.Printf("💾 로그 %d개 저장 완료", len(logsToSave))
	return len(logsToSave)
}

// Stop - 자동 플러시 종료 (남은 로그 저장 후 반환)
func (lb *LogBuffer) Stop() {
	lb.stopChan <- true
	<-lb.done
}

// AddLog - 전역 버퍼에 추가
func AddLog(entries ...models.TickLog) {
	if logBuffer == nil {
		log.Println("⚠️ 로깅 시스템이 초기화되지 않음")
		return
	}
	logBuffer.Add(entries...)
}

// LogTick - 틱 결과를 로그 행으로 펼쳐 버퍼에 추가
func LogTick(res models.TickResult) {
	AddLog(TickLogEntries(res)...)
}

// TickLogEntries - 틱 결과 → 로그 행
//
// 행동 1건당 action 행, 건너뛴 에이전트당 skipped 행,
// 페이즈 전환 / 롤백 / 종료는 각각 한 행씩.
func TickLogEntries(res models.TickResult) []models.TickLog {
	now := res.Time
	if now.IsZero() {
		now = time.Now()
	}
	base := models.TickLog{
		CreatedAt:    now,
		SimulationID: res.SimulationID,
		Scenario:     string(res.Scenario),
		Tick:         res.Tick,
		Phase:        string(res.Phase),
	}

	var out []models.TickLog
	for _, rec := range res.Actions {
		entry := base
		entry.EventType = models.LogEventAction
		entry.AgentID = rec.AgentID
		entry.Role = string(rec.Role)
		entry.Action = string(rec.Action)
		if rec.Direction != nil {
			entry.Direction = string(*rec.Direction)
		}
		entry.Note = rec.Note
		entry.DataJSON = marshalLogData(rec)
		out = append(out, entry)
	}
	for _, sk := range res.Skipped {
		entry := base
		entry.EventType = models.LogEventSkipped
		entry.AgentID = sk.AgentID
		entry.Note = sk.Code
		entry.DataJSON = marshalLogData(sk)
		out = append(out, entry)
	}
	if res.PhaseChanged {
		entry := base
		entry.EventType = models.LogEventPhaseChange
		entry.AgentID = -1
		entry.Note = string(res.Outcome)
		out = append(out, entry)
	}
	if res.RolledBack {
		entry := base
		entry.EventType = models.LogEventRollback
		entry.AgentID = -1
		out = append(out, entry)
	}
	if res.Done {
		entry := base
		entry.EventType = models.LogEventDone
		entry.AgentID = -1
		out = append(out, entry)
	}
	return out
}

// marshalLogData - 원본 JSON
func marshalLogData(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// forSimulation - simulation_id 조건 (빈 값이면 전체)
func forSimulation(simulationID string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if simulationID == "" {
			return q
		}
		return q.Where("simulation_id = ?", simulationID)
	}
}

// GetRecentLogs - 최근 로그 조회
func GetRecentLogs(simulationID string, limit int) ([]models.TickLog, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	var logs []models.TickLog
	err := db.Scopes(forSimulation(simulationID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// GetLogsByTimeRange - 시간 범위로 로그 조회
func GetLogsByTimeRange(simulationID string, start, end time.Time, limit int) ([]models.TickLog, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	var logs []models.TickLog
	query := db.Scopes(forSimulation(simulationID)).
		Where("created_at BETWEEN ? AND ?", start, end)

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Order("created_at DESC").Find(&logs).Error
	return logs, err
}

// GetLogsByEventType - 이벤트 타입별 로그 조회
func GetLogsByEventType(simulationID string, eventType string, limit int) ([]models.TickLog, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	var logs []models.TickLog
	err := db.Scopes(forSimulation(simulationID)).
		Where("event_type = ?", eventType).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// GetLogStats - 로그 통계 (이벤트 타입별, 행동별 개수)
func GetLogStats(simulationID string, hours int) (map[string]interface{}, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	var totalLogs int64
	if err := db.Model(&models.TickLog{}).
		Scopes(forSimulation(simulationID)).
		Where("created_at >= ?", since).
		Count(&totalLogs).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}
	group := func(column string) (map[string]int64, error) {
		var rows []bucket
		err := db.Model(&models.TickLog{}).
			Select(column+" as `key`, COUNT(*) as count").
			Scopes(forSimulation(simulationID)).
			Where("created_at >= ?", since).
			Group(column).
			Scan(&rows).Error
		out := make(map[string]int64, len(rows))
		for _, r := range rows {
			out[r.Key] = r.Count
		}
		return out, err
	}

	eventMap, err := group("event_type")
	if err != nil {
		return nil, err
	}
	actionMap, err := group("action")
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_logs":    totalLogs,
		"event_counts":  eventMap,
		"action_counts": actionMap,
		"time_range":    fmt.Sprintf("Last %d hours", hours),
	}, nil
}

// StopLogging - 로깅 시스템 종료
func StopLogging() {
	if logBuffer != nil {
		logBuffer.Stop()
		log.Println("🛑 로깅 시스템 종료")
	}
}

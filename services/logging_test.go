package services

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"sion-backend/models"
)

type memorySink struct {
	mu    sync.Mutex
	saved []models.TickLog
	fail  bool
}

func (s *memorySink) SaveLogs(logs []models.TickLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.saved = append(s.saved, logs...)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func sampleResult() models.TickResult {
	f := models.Forward
	return models.TickResult{
		SimulationID: "sim-1",
		Scenario:     models.ScenarioSecurity,
		Tick:         4,
		Phase:        models.PhaseGuard,
		PhaseChanged: true,
		Outcome:      models.OutcomeLocated,
		Actions: []models.ActionRecord{
			{AgentID: 4, Role: models.RoleDrone, Action: models.ActionMove, Direction: &f},
			{AgentID: 5, Role: models.RoleGuard, Action: models.ActionAlarm},
		},
		Skipped: []models.AgentError{{AgentID: 9, Code: "E_INVALID_PERCEPTION", Error: "unknown agent"}},
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestTickLogEntries(t *testing.T) {
	entries := TickLogEntries(sampleResult())
	require.Len(t, entries, 4)

	assert.Equal(t, models.LogEventAction, entries[0].EventType)
	assert.Equal(t, "sim-1", entries[0].SimulationID)
	assert.Equal(t, "move", entries[0].Action)
	assert.Equal(t, "F", entries[0].Direction)
	assert.Equal(t, "guard", entries[0].Phase)
	assert.Contains(t, entries[0].DataJSON, `"agent_id":4`)

	assert.Equal(t, "", entries[1].Direction)
	assert.Equal(t, models.LogEventSkipped, entries[2].EventType)
	assert.Equal(t, "E_INVALID_PERCEPTION", entries[2].Note)
	assert.Equal(t, models.LogEventPhaseChange, entries[3].EventType)
	assert.Equal(t, "located", entries[3].Note)

	for _, e := range entries {
		assert.Equal(t, 4, e.Tick)
		assert.True(t, e.CreatedAt.Equal(sampleResult().Time))
	}
}

func TestTickLogEntriesRollbackAndDone(t *testing.T) {
	entries := TickLogEntries(models.TickResult{Scenario: models.ScenarioStacking, Tick: 2, RolledBack: true})
	require.Len(t, entries, 1)
	assert.Equal(t, models.LogEventRollback, entries[0].EventType)
	assert.False(t, entries[0].CreatedAt.IsZero())

	entries = TickLogEntries(models.TickResult{Scenario: models.ScenarioStacking, Tick: 9, Done: true})
	require.Len(t, entries, 1)
	assert.Equal(t, models.LogEventDone, entries[0].EventType)
}

func TestLogBufferFlushOnSize(t *testing.T) {
	sink := &memorySink{}
	lb := NewLogBuffer(sink, 3, time.Hour)

	lb.Add(TickLogEntries(sampleResult())...)
	assert.Eventually(t, func() bool { return sink.count() == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, lb.Len())
}

func TestLogBufferStopFlushesRemainder(t *testing.T) {
	sink := &memorySink{}
	lb := NewLogBuffer(sink, 100, time.Hour)
	go lb.autoFlush()

	lb.Add(models.TickLog{SimulationID: "a"}, models.TickLog{SimulationID: "b"})
	assert.Equal(t, 0, sink.count())

	lb.Stop()
	assert.Equal(t, 2, sink.count())
}

func TestLogBufferSinkFailureDropsBatch(t *testing.T) {
	sink := &memorySink{fail: true}
	lb := NewLogBuffer(sink, 100, time.Hour)
	lb.Add(models.TickLog{SimulationID: "a"})

	assert.Equal(t, 0, lb.Flush())
	assert.Equal(t, 0, lb.Len())
}

func TestLogQueriesWithoutDatabase(t *testing.T) {
	prev := db
	db = nil
	defer func() { db = prev }()

	_, err := GetRecentLogs("sim-1", 10)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = GetLogStats("sim-1", 24)
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestLogQueriesWithSQLite(t *testing.T) {
	conn, err := OpenDatabase(sqlite.Open(filepath.Join(t.TempDir(), "ticks.db")))
	require.NoError(t, err)
	prev := db
	db = conn
	defer func() { db = prev }()

	first := sampleResult()
	first.Time = time.Now()
	other := first
	other.SimulationID = "sim-2"
	rows := append(TickLogEntries(first), TickLogEntries(other)...)
	require.NoError(t, GormSink{DB: conn}.SaveLogs(rows))

	logs, err := GetRecentLogs("sim-1", 100)
	require.NoError(t, err)
	assert.Len(t, logs, len(rows)/2)
	for _, l := range logs {
		assert.Equal(t, "sim-1", l.SimulationID)
	}

	all, err := GetRecentLogs("", 100)
	require.NoError(t, err)
	assert.Len(t, all, len(rows))

	skipped, err := GetLogsByEventType("sim-2", models.LogEventSkipped, 10)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "sim-2", skipped[0].SimulationID)

	stats, err := GetLogStats("sim-1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(len(rows)/2), stats["total_logs"])
	events := stats["event_counts"].(map[string]int64)
	assert.Equal(t, int64(1), events[models.LogEventPhaseChange])
}

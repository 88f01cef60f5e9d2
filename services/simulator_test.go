package services

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sion-backend/models"
	"sion-backend/simulation"
)

func TestAutoRunnerStopsWhenDone(t *testing.T) {
	var calls int32
	r := NewAutoRunner("sim", time.Millisecond, func() (models.TickResult, error) {
		n := atomic.AddInt32(&calls, 1)
		return models.TickResult{Tick: int(n), Done: n == 5}, nil
	})
	r.Start()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not finish")
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))

	status := r.GetStatus()
	assert.Equal(t, false, status["running"])
	assert.Equal(t, 5, status["ticks"])
	assert.NotContains(t, status, "error")
}

func TestAutoRunnerStopsOnError(t *testing.T) {
	r := NewAutoRunner("sim", time.Millisecond, func() (models.TickResult, error) {
		return models.TickResult{}, errors.New("boom")
	})
	r.Start()
	<-r.Done()
	assert.Equal(t, "boom", r.GetStatus()["error"])
}

func TestAutoRunnerStop(t *testing.T) {
	r := NewAutoRunner("sim", time.Millisecond, func() (models.TickResult, error) {
		return models.TickResult{}, nil
	})
	r.Start()
	require.Eventually(t, func() bool { return r.GetStatus()["ticks"].(int) > 2 }, time.Second, time.Millisecond)

	r.Stop()
	assert.Equal(t, false, r.GetStatus()["running"])
	r.Stop()
}

func TestAutoRunnerStopBeforeStart(t *testing.T) {
	r := NewAutoRunner("sim", 0, func() (models.TickResult, error) {
		return models.TickResult{}, simulation.ErrSimulationEnded
	})
	r.Stop()
	assert.Equal(t, int64(200), r.GetStatus()["interval_ms"])
}

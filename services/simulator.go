package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"sion-backend/models"
	"sion-backend/simulation"
)

// AutoRunner - 적재 시뮬레이션 자동 재생
//
// time.Ticker 주기마다 step 을 한 번 호출한다. 종료되거나 에러가 나면 스스로 멈춘다.
type AutoRunner struct {
	simID    string
	interval time.Duration
	step     func() (models.TickResult, error)

	// 상태
	running bool
	ticks   int
	lastErr error

	// 제어
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
}

// NewAutoRunner - 러너 생성 (아직 시작하지 않음)
func NewAutoRunner(simID string, interval time.Duration, step func() (models.TickResult, error)) *AutoRunner {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &AutoRunner{
		simID:    simID,
		interval: interval,
		step:     step,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start - 자동 재생 시작. 한 러너는 한 번만 시작한다.
func (r *AutoRunner) Start() {
	r.mu.Lock()
	if r.running || r.stopped() {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	log.Printf("▶️ 자동 재생 시작: %s (interval %v)", r.simID, r.interval)
	go r.runSimulation()
}

// Stop - 자동 재생 중지 후 루프 종료까지 대기
func (r *AutoRunner) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })

	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()
	if running {
		<-r.done
	}
}

// Done - 루프 종료 신호
func (r *AutoRunner) Done() <-chan struct{} {
	return r.done
}

func (r *AutoRunner) stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// runSimulation - 메인 루프
func (r *AutoRunner) runSimulation() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(r.done)
	}()

	for {
		select {
		case <-r.stopChan:
			log.Printf("🛑 자동 재생 중지: %s", r.simID)
			return
		case <-ticker.C:
			if !r.update() {
				return
			}
		}
	}
}

// update - 한 틱 진행. 계속할지 반환
func (r *AutoRunner) update() bool {
	res, err := r.step()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.lastErr = err
		if !errors.Is(err, simulation.ErrSimulationEnded) {
			log.Printf("❌ 자동 재생 오류: %s: %v", r.simID, err)
		}
		return false
	}
	r.ticks++
	if res.Done {
		log.Printf("🏁 자동 재생 완료: %s (%d ticks)", r.simID, r.ticks)
		return false
	}
	return true
}

// GetStatus - 현재 상태 반환
func (r *AutoRunner) GetStatus() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := map[string]interface{}{
		"simulation_id": r.simID,
		"running":       r.running,
		"ticks":         r.ticks,
		"interval_ms":   r.interval.Milliseconds(),
	}
	if r.lastErr != nil {
		status["error"] = r.lastErr.Error()
	}
	return status
}

package services

import (
	"container/heap"
	"log"
	"sync"
	"time"

	"sion-backend/models"
)

// EventFeed - 시뮬레이션 이벤트 중계
//
// 큐에 쌓인 이벤트를 우선순위 순으로 꺼내 WebSocket 으로 브로드캐스트한다.
type EventFeed struct {
	broadcastFunc func(models.WebSocketMessage)

	enabled bool
	mu      sync.RWMutex

	pendingMu sync.Mutex
	pending   eventHeap
	seq       int

	eventQueue chan FeedEvent
	stopChan   chan bool
}

// FeedEvent - 중계 이벤트
type FeedEvent struct {
	Type      string // 이벤트 타입
	Priority  int    // 우선순위 (높을수록 먼저 처리)
	Data      models.SimEventData
	Timestamp time.Time
	seq       int
}

// 이벤트 타입 상수
const (
	EventSimulationEnded  = "simulation_ended"  // 보안 시뮬레이션 종료
	EventStackingComplete = "stacking_complete" // 모든 박스 적재
	EventPhaseChanged     = "phase_changed"     // 페이즈 전환
	EventTargetLost       = "target_lost"       // 드론 추적 실패
	EventTickRolledBack   = "tick_rolled_back"  // 불변식 위반으로 롤백
	EventAgentsSkipped    = "agents_skipped"    // 잘못된 관측 레코드
	EventSimulationCreate = "simulation_created"
	EventSimulationRemove = "simulation_removed"
)

// 이벤트 우선순위
var eventPriority = map[string]int{
	EventSimulationEnded:  100, // 최고 우선순위
	EventStackingComplete: 90,
	EventPhaseChanged:     80,
	EventTargetLost:       70,
	EventTickRolledBack:   60,
	EventAgentsSkipped:    30,
	EventSimulationCreate: 20,
	EventSimulationRemove: 10,
}

// NewEventFeed - 이벤트 중계 생성
func NewEventFeed(broadcastFunc func(models.WebSocketMessage)) *EventFeed {
	return &EventFeed{
		broadcastFunc: broadcastFunc,
		enabled:       true,
		eventQueue:    make(chan FeedEvent, 64),
		stopChan:      make(chan bool),
	}
}

// Start - 이벤트 처리 고루틴 시작
func (f *EventFeed) Start() {
	log.Println("📣 이벤트 중계 시작")
	go f.processEvents()
}

// Stop - 이벤트 처리 중지
func (f *EventFeed) Stop() {
	f.stopChan <- true
	log.Println("📣 이벤트 중계 중지")
}

// SetEnabled - 중계 활성화/비활성화
func (f *EventFeed) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

// processEvents - 큐에서 한 번에 받을 수 있는 만큼 모은 뒤 우선순위 순으로 내보낸다
func (f *EventFeed) processEvents() {
	for {
		select {
		case event := <-f.eventQueue:
			f.push(event)
		drain:
			for {
				select {
				case more := <-f.eventQueue:
					f.push(more)
				default:
					break drain
				}
			}
			f.flush()
		case <-f.stopChan:
			f.flush()
			return
		}
	}
}

// QueueEvent - 이벤트 큐에 추가 (비차단)
func (f *EventFeed) QueueEvent(eventType string, data models.SimEventData) {
	f.mu.RLock()
	enabled := f.enabled
	f.mu.RUnlock()

	if !enabled {
		return
	}

	priority := eventPriority[eventType]
	if priority == 0 {
		priority = 10
	}
	data.Event = eventType
	data.Priority = priority

	event := FeedEvent{
		Type:      eventType,
		Priority:  priority,
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case f.eventQueue <- event:
	default:
		log.Printf("⚠️ 이벤트 큐 가득 참, 이벤트 무시: %s", eventType)
	}
}

// OnTick - 틱 결과에서 이벤트 추출
func (f *EventFeed) OnTick(res models.TickResult) {
	base := models.SimEventData{
		SimulationID: res.SimulationID,
		Scenario:     res.Scenario,
		Tick:         res.Tick,
		Phase:        res.Phase,
	}
	for _, ev := range tickEvents(res) {
		data := base
		data.Detail = ev.detail
		f.QueueEvent(ev.kind, data)
	}
}

type tickEvent struct {
	kind   string
	detail string
}

// tickEvents - 틱 결과가 만들어내는 이벤트 목록
func tickEvents(res models.TickResult) []tickEvent {
	var out []tickEvent
	if res.RolledBack {
		out = append(out, tickEvent{kind: EventTickRolledBack})
	}
	if len(res.Skipped) > 0 {
		out = append(out, tickEvent{kind: EventAgentsSkipped, detail: res.Skipped[0].Code})
	}
	if res.PhaseChanged {
		out = append(out, tickEvent{kind: EventPhaseChanged, detail: string(res.Outcome)})
		if res.Outcome == models.OutcomeTargetLost {
			out = append(out, tickEvent{kind: EventTargetLost})
		}
	}
	if res.Done {
		if res.Scenario == models.ScenarioStacking {
			out = append(out, tickEvent{kind: EventStackingComplete})
		} else {
			out = append(out, tickEvent{kind: EventSimulationEnded})
		}
	}
	return out
}

func (f *EventFeed) push(event FeedEvent) {
	f.pendingMu.Lock()
	defer f.pendingMu.Unlock()
	f.seq++
	event.seq = f.seq
	heap.Push(&f.pending, event)
}

// flush - 쌓인 이벤트를 우선순위 순으로 브로드캐스트
func (f *EventFeed) flush() {
	f.pendingMu.Lock()
	events := make([]FeedEvent, 0, f.pending.Len())
	for f.pending.Len() > 0 {
		events = append(events, heap.Pop(&f.pending).(FeedEvent))
	}
	f.pendingMu.Unlock()

	for _, event := range events {
		f.broadcast(event)
	}
}

func (f *EventFeed) broadcast(event FeedEvent) {
	if f.broadcastFunc == nil {
		return
	}

	msgType := models.MessageTypeSimEvent
	if event.Type == EventPhaseChanged {
		msgType = models.MessageTypePhaseChange
	}
	f.broadcastFunc(models.WebSocketMessage{
		Type:      msgType,
		Data:      event.Data,
		Timestamp: event.Timestamp.UnixMilli(),
	})
	log.Printf("📣 이벤트 전송: [%s] sim=%s tick=%d", event.Type, event.Data.SimulationID, event.Data.Tick)
}

// eventHeap - 우선순위 내림차순, 같으면 들어온 순서
type eventHeap []FeedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(FeedEvent)) }

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

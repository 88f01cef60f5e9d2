package handlers

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"sion-backend/models"
)

type Client struct {
	Conn        *websocket.Conn
	ConnectedAt time.Time
}

// 웹 클라이언트 관리자
//
// 연결별 쓰기는 Start 고루틴에서만 한다. 핸들러 고루틴은 읽기만 한다.
type ClientManager struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan models.WebSocketMessage
	register   chan *Client
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
}

// 전역 클라이언트 관리자
var Clients = NewClientManager()

func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan models.WebSocketMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
	}
}

// 클라이언트 관리 시작
func (manager *ClientManager) Start() {
	for {
		select {
		case client := <-manager.register:
			manager.mutex.Lock()
			manager.clients[client.Conn] = client
			manager.mutex.Unlock()
			log.Printf("클라이언트 등록: web (%s)", client.Conn.RemoteAddr())

		case conn := <-manager.unregister:
			manager.remove(conn)

		case message := <-manager.broadcast:
			for _, conn := range manager.handleBroadcast(message) {
				manager.remove(conn)
			}
		}
	}
}

func (manager *ClientManager) remove(conn *websocket.Conn) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if _, ok := manager.clients[conn]; ok {
		delete(manager.clients, conn)
		_ = conn.Close()
		log.Printf("클라이언트 해제: web (%s)", conn.RemoteAddr())
	}
}

// handleBroadcast - 전송하고 실패한 연결 목록 반환
func (manager *ClientManager) handleBroadcast(message models.WebSocketMessage) []*websocket.Conn {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	var failed []*websocket.Conn
	for conn := range manager.clients {
		if err := conn.WriteJSON(message); err != nil {
			log.Printf("전송 실패 (web): %v", err)
			failed = append(failed, conn)
		}
	}
	return failed
}

// BroadcastMessage - 비차단 브로드캐스트. 틱 구독자가 시뮬레이션 잠금 아래에서 부른다
func (manager *ClientManager) BroadcastMessage(msg models.WebSocketMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	select {
	case manager.broadcast <- msg:
	default:
		log.Printf("⚠️ broadcast 채널 가득 참, 메시지 무시: %s", msg.Type)
	}
}

func (manager *ClientManager) GetClientCount() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.clients)
}

// Web 클라이언트 WebSocket Handler (읽기 전용 피드)
func HandleWebClientWebSocket(c *websocket.Conn) {
	// 등록 전에 보내야 Start 고루틴의 쓰기와 겹치지 않는다
	welcomeMsg := models.WebSocketMessage{
		Type: models.MessageTypeSystemInfo,
		Data: map[string]interface{}{
			"message":      "웹 클라이언트 연결됨",
			"connected_at": time.Now().Format(time.RFC3339),
			"simulations":  simulationCount(),
		},
		Timestamp: time.Now().UnixMilli(),
	}
	if err := c.WriteJSON(welcomeMsg); err != nil {
		log.Printf("환영 메시지 전송 실패: %v", err)
		return
	}

	Clients.register <- &Client{Conn: c, ConnectedAt: time.Now()}
	defer func() {
		Clients.unregister <- c
	}()

	for {
		var msg models.WebSocketMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.Printf("웹 메시지 읽기 오류: %v", err)
			break
		}
		log.Printf("웹 메시지 무시: %s", msg.Type)
	}
}

func simulationCount() int {
	if Sims == nil {
		return 0
	}
	return Sims.Count()
}

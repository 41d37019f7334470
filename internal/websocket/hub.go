package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心。观察者按对局id分组，
// 对局状态变化时推送给该对局的所有观察者。
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 对局id到观察者的映射
	watchers  map[string][]*Client
	watcherMu sync.RWMutex

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	GameID    string          `json:"game_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// MessageType 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 对局消息
	MessageTypeGameState    = "game_state"
	MessageTypeGameMove     = "game_move"
	MessageTypeGameComplete = "game_complete"
)

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		watchers:   make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	go h.runHeartbeat()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient 注册观察者
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.watcherMu.Lock()
	h.watchers[client.GameID] = append(h.watchers[client.GameID], client)
	h.watcherMu.Unlock()

	h.logger.Info("WebSocket观察者连接",
		zap.String("client_id", client.ID),
		zap.String("game_id", client.GameID))

	msg := &Message{
		Type:      MessageTypeConnected,
		GameID:    client.GameID,
		Timestamp: time.Now().Unix(),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient 注销观察者
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.watcherMu.Lock()
	clients := h.watchers[client.GameID]
	for i, c := range clients {
		if c.ID == client.ID {
			h.watchers[client.GameID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.watchers[client.GameID]) == 0 {
		delete(h.watchers, client.GameID)
	}
	h.watcherMu.Unlock()

	h.logger.Info("WebSocket观察者断开",
		zap.String("client_id", client.ID),
		zap.String("game_id", client.GameID))
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// PublishGame 推送消息给指定对局的所有观察者。
// 没有观察者时直接返回，不算错误。
func (h *Hub) PublishGame(gameID, msgType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(&Message{
		Type:      msgType,
		GameID:    gameID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	h.watcherMu.RLock()
	clients := h.watchers[gameID]
	h.watcherMu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- raw:
		default:
			h.logger.Warn("观察者发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("game_id", gameID))
		}
	}
	return nil
}

// WatcherCount 返回指定对局的观察者数量
func (h *Hub) WatcherCount(gameID string) int {
	h.watcherMu.RLock()
	defer h.watcherMu.RUnlock()
	return len(h.watchers[gameID])
}

// OnlineCount 返回在线连接总数
func (h *Hub) OnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// runHeartbeat 运行心跳
func (h *Hub) runHeartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		raw, err := json.Marshal(&Message{
			Type:      MessageTypePing,
			Timestamp: time.Now().Unix(),
		})
		if err != nil {
			continue
		}

		h.clientsMu.RLock()
		for _, client := range h.clients {
			select {
			case client.Send <- raw:
			default:
			}
		}
		h.clientsMu.RUnlock()
	}
}

// Register 注册观察者（公开方法）
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销观察者（公开方法）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

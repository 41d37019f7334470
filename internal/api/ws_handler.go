package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/wfunc/wiki-game/internal/errors"
	"github.com/wfunc/wiki-game/internal/service"
	"github.com/wfunc/wiki-game/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler 对局观察WebSocket处理器
type WebSocketHandler struct {
	hub      *websocket.Hub
	games    service.GameService
	upgrader gorilla.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *websocket.Hub, games service.GameService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   hub,
		games: games,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// WatchGame 观察对局
// @Summary 通过WebSocket观察对局状态变化
// @Tags Game
// @Param id path string true "对局ID"
// @Router /ws/game/{id} [get]
func (h *WebSocketHandler) WatchGame(c *gin.Context) {
	gameID := c.Param("id")

	// 升级前确认对局存在
	game, err := h.games.GetGame(c.Request.Context(), gameID)
	if err != nil {
		appErr, ok := err.(*errors.AppError)
		if !ok {
			appErr = errors.Wrap(err, errors.ErrUnknown)
		}
		c.JSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, ""))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("game_id", gameID),
			zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, gameID)

	// 首帧直接入发送缓冲：注册是异步的，经Hub推送可能赶在注册生效前
	if err := client.Enqueue(websocket.MessageTypeGameState, game); err != nil {
		h.logger.Warn("推送首帧状态失败",
			zap.String("game_id", gameID),
			zap.Error(err))
	}

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/wiki-game/internal/errors"
	"github.com/wfunc/wiki-game/internal/models"
	"github.com/wfunc/wiki-game/internal/service"
	"go.uber.org/zap"
)

// GameHandler 对局处理器
type GameHandler struct {
	games  service.GameService
	logger *zap.Logger
}

// NewGameHandler 创建对局处理器
func NewGameHandler(games service.GameService, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		games:  games,
		logger: logger,
	}
}

// CreateGameRequest 创建对局请求
type CreateGameRequest struct {
	StartArticle string `json:"startArticle" binding:"required"`
	EndArticle   string `json:"endArticle" binding:"required"`
	Player       string `json:"player"`
}

// CreateGameResponse 创建对局响应
type CreateGameResponse struct {
	ID string `json:"id"`
}

// SubmitMoveRequest 提交移动请求
type SubmitMoveRequest struct {
	Article string `json:"article" binding:"required"`
}

// MoveView 移动视图
type MoveView struct {
	Article   string    `json:"article"`
	Timestamp time.Time `json:"timestamp"`
}

// GameView 对局视图。对外接口统一使用camelCase字段，
// 与存储模型的字段命名解耦。
type GameView struct {
	ID             string     `json:"id"`
	StartArticle   string     `json:"startArticle"`
	EndArticle     string     `json:"endArticle"`
	CurrentArticle string     `json:"currentArticle"`
	IsComplete     bool       `json:"isComplete"`
	Player         string     `json:"player"`
	Moves          []MoveView `json:"moves"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// newGameView 从存储模型构造视图
func newGameView(game *models.Game) *GameView {
	moves := make([]MoveView, 0, len(game.Moves))
	for _, m := range game.Moves {
		moves = append(moves, MoveView{
			Article:   m.Article,
			Timestamp: m.Timestamp,
		})
	}
	return &GameView{
		ID:             game.ID,
		StartArticle:   game.StartArticle,
		EndArticle:     game.EndArticle,
		CurrentArticle: game.CurrentArticle,
		IsComplete:     game.IsComplete,
		Player:         game.Player,
		Moves:          moves,
		CreatedAt:      game.CreatedAt,
		UpdatedAt:      game.UpdatedAt,
	}
}

// CreateGame 创建对局
// @Summary 创建对局
// @Description 创建一局从起始文章到目标文章的链接导航，智能体对局异步推进
// @Tags Game
// @Accept json
// @Produce json
// @Param request body CreateGameRequest true "创建对局请求"
// @Success 201 {object} CreateGameResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /game [post]
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abortError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	game, err := h.games.CreateGame(c.Request.Context(), req.StartArticle, req.EndArticle, req.Player)
	if err != nil {
		h.abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, &CreateGameResponse{ID: game.ID})
}

// GetGame 查询对局
// @Summary 查询对局
// @Tags Game
// @Produce json
// @Param id path string true "对局ID"
// @Success 200 {object} GameView
// @Failure 404 {object} errors.ErrorResponse
// @Router /game/{id} [get]
func (h *GameHandler) GetGame(c *gin.Context) {
	game, err := h.games.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameView(game))
}

// SubmitMove 提交移动
// @Summary 提交移动
// @Description 幂等提交一次移动：对局已完成或与最后一次移动相同时为无操作
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "对局ID"
// @Param request body SubmitMoveRequest true "提交移动请求"
// @Success 200 {object} GameView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /game/{id} [patch]
func (h *GameHandler) SubmitMove(c *gin.Context) {
	var req SubmitMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abortError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	game, err := h.games.SubmitMove(c.Request.Context(), c.Param("id"), req.Article)
	if err != nil {
		h.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameView(game))
}

// abortError 按错误码映射HTTP状态返回错误响应
func (h *GameHandler) abortError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Error("请求处理失败",
			zap.String("path", c.FullPath()),
			zap.Error(appErr))
	}
	c.JSON(status, errors.NewErrorResponse(appErr, c.GetHeader("X-Request-ID")))
	c.Abort()
}

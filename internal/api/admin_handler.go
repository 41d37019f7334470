package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/wiki-game/internal/errors"
	"github.com/wfunc/wiki-game/internal/service"
	"go.uber.org/zap"
)

// AdminHandler 管理接口处理器
type AdminHandler struct {
	games  service.GameService
	logger *zap.Logger
}

// NewAdminHandler 创建管理接口处理器
func NewAdminHandler(games service.GameService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		games:  games,
		logger: logger,
	}
}

// GetStats 查询运行统计
// @Summary 查询运行统计
// @Tags Admin
// @Security Bearer
// @Produce json
// @Success 200 {object} service.GameStats
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.games.Stats(c.Request.Context())
	if err != nil {
		h.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DeleteGame 删除对局
// @Summary 删除对局及其移动记录
// @Tags Admin
// @Security Bearer
// @Param id path string true "对局ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/admin/games/{id} [delete]
func (h *AdminHandler) DeleteGame(c *gin.Context) {
	if err := h.games.DeleteGame(c.Request.Context(), c.Param("id")); err != nil {
		h.abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// abortError 按错误码映射HTTP状态返回错误响应
func (h *AdminHandler) abortError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Error("管理请求处理失败",
			zap.String("path", c.FullPath()),
			zap.Error(appErr))
	}
	c.JSON(status, errors.NewErrorResponse(appErr, c.GetHeader("X-Request-ID")))
	c.Abort()
}

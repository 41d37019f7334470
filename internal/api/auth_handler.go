package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/wiki-game/internal/config"
	"github.com/wfunc/wiki-game/internal/utils"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器。管理凭据来自配置，不落库。
type AuthHandler struct {
	cfg        config.AuthConfig
	jwtManager *utils.JWTManager
	logger     *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg config.AuthConfig, jwtManager *utils.JWTManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:        cfg,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Login 管理员登录
// @Summary 管理员登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录请求"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_PARAM",
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	ok, err := utils.VerifyPassword(req.Password, h.cfg.PasswordHash)
	if err != nil || !ok || req.Username != h.cfg.Username {
		h.logger.Warn("登录失败",
			zap.String("username", req.Username),
			zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "INVALID_CREDENTIALS",
			"message": "用户名或密码错误",
		})
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username, "admin")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "TOKEN_GENERATION_FAILED",
			"message": "令牌生成失败",
		})
		return
	}

	c.JSON(http.StatusOK, &LoginResponse{
		Token:     token,
		ExpiresIn: int64(h.jwtManager.GetTokenExpiry().Seconds()),
	})
}

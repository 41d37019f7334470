package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/wiki-game/internal/config"
	"github.com/wfunc/wiki-game/internal/middleware"
	"github.com/wfunc/wiki-game/internal/service"
	"github.com/wfunc/wiki-game/internal/utils"
	"github.com/wfunc/wiki-game/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	gameHandler    *GameHandler
	authHandler    *AuthHandler
	adminHandler   *AdminHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, games service.GameService, hub *websocket.Hub, cfg *config.Config, log *zap.Logger) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	jwtManager := utils.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	router := &Router{
		engine:         engine,
		db:             db,
		gameHandler:    NewGameHandler(games, log),
		authHandler:    NewAuthHandler(cfg.Auth, jwtManager, log),
		adminHandler:   NewAdminHandler(games, log),
		wsHandler:      NewWebSocketHandler(hub, games, log),
		authMiddleware: middleware.NewAuthMiddleware(jwtManager),
		log:            log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// 对局路由，人类玩家和智能体观察者共用
	r.engine.POST("/game", r.gameHandler.CreateGame)
	r.engine.GET("/game/:id", r.gameHandler.GetGame)
	r.engine.PATCH("/game/:id", r.gameHandler.SubmitMove)

	// WebSocket观察路由
	r.engine.GET("/ws/game/:id", r.wsHandler.WatchGame)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authHandler.Login)
		}

		// 管理员路由（需要管理员权限）
		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.RequireRole("admin"))
		{
			admin.GET("/stats", r.adminHandler.GetStats)
			admin.DELETE("/games/:id", r.adminHandler.DeleteGame)
		}
	}

	// API文档路由
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

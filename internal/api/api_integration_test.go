package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/wiki-game/internal/config"
	"github.com/wfunc/wiki-game/internal/queue"
	"github.com/wfunc/wiki-game/internal/repository"
	"github.com/wfunc/wiki-game/internal/service"
	"github.com/wfunc/wiki-game/internal/utils"
	"go.uber.org/zap"
)

// newTestRouter 组装基于内存sqlite的完整路由器
func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := repository.TestDB(t)
	q := queue.NewMemoryQueue(time.Minute)
	svc := service.NewGameService(
		repository.NewGameRepository(db),
		repository.NewArticleRepository(db),
		q, nil, zap.NewNop())

	cfg := config.Default()
	cfg.Auth.Username = "admin"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenExpiry = time.Hour
	hash, err := utils.HashPassword("test-password")
	require.NoError(t, err)
	cfg.Auth.PasswordHash = hash

	return NewRouter(db, svc, nil, cfg, zap.NewNop())
}

// doJSON 发送JSON请求
func doJSON(t *testing.T, router *Router, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.GetEngine().ServeHTTP(w, req)
	return w
}

// createGame 创建对局并返回id
func createGame(t *testing.T, router *Router, start, end string) string {
	t.Helper()
	w := doJSON(t, router, "POST", "/game", map[string]string{
		"startArticle": start,
		"endArticle":   end,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateGameResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestCreateGameEndpoint(t *testing.T) {
	router := newTestRouter(t)

	id := createGame(t, router, "Apple", "Cherry")

	w := doJSON(t, router, "GET", "/game/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view GameView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, id, view.ID)
	assert.Equal(t, "Apple", view.StartArticle)
	assert.Equal(t, "Cherry", view.EndArticle)
	assert.Equal(t, "Apple", view.CurrentArticle)
	assert.False(t, view.IsComplete)
	assert.Empty(t, view.Moves)
}

func TestCreateGameEndpoint_Invalid(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "POST", "/game", map[string]string{
		"startArticle": "Apple",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetGameEndpoint_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "GET", "/game/no-such-id", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitMoveEndpoint(t *testing.T) {
	router := newTestRouter(t)
	id := createGame(t, router, "Apple", "Cherry")

	w := doJSON(t, router, "PATCH", "/game/"+id, map[string]string{"article": "Banana"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view GameView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Banana", view.CurrentArticle)
	require.Len(t, view.Moves, 1)
	assert.Equal(t, "Banana", view.Moves[0].Article)

	// 重复提交同一移动：无操作，状态不变
	w = doJSON(t, router, "PATCH", "/game/"+id, map[string]string{"article": "Banana"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Len(t, view.Moves, 1)

	// 到达目标
	w = doJSON(t, router, "PATCH", "/game/"+id, map[string]string{"article": "Cherry"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.IsComplete)
}

func TestSubmitMoveEndpoint_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "PATCH", "/game/no-such-id", map[string]string{"article": "Banana"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	router := newTestRouter(t)
	id := createGame(t, router, "Apple", "Cherry")

	// 未认证的管理请求被拒绝
	w := doJSON(t, router, "GET", "/api/v1/admin/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 登录拿令牌
	w = doJSON(t, router, "POST", "/api/v1/auth/login", map[string]string{
		"username": "admin",
		"password": "test-password",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var login LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	auth := map[string]string{"Authorization": "Bearer " + login.Token}

	// 统计
	w = doJSON(t, router, "GET", "/api/v1/admin/stats", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)

	var stats service.GameStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalGames)

	// 删除对局
	w = doJSON(t, router, "DELETE", "/api/v1/admin/games/"+id, nil, auth)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "GET", "/game/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginEndpoint_BadCredentials(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/auth/login", map[string]string{
		"username": "admin",
		"password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

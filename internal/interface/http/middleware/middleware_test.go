package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/jwt"
	"github.com/xiebiao/storefront/pkg/logger"
	"github.com/xiebiao/storefront/pkg/response"
)

type stubBlacklist struct {
	revoked map[string]bool
	err     error
}

func (s *stubBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], s.err
}

func newEngine(auth *AuthMiddleware, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(logger.Discard()))
	handlers := append([]gin.HandlerFunc{auth.RequireAuth()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		actor := GetActor(c)
		tokenID, expires := GetToken(c)
		response.Success(c, gin.H{
			"user_id":  actor.ID,
			"role":     actor.Role,
			"token_id": tokenID,
			"expires":  !expires.IsZero(),
		})
	})
	r.GET("/whoami", handlers...)
	return r
}

func call(t *testing.T, r *gin.Engine, token string) (response.Response, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp, w
}

func TestRequireAuth(t *testing.T) {
	manager := jwt.NewManager("middleware-test", time.Hour)
	token, _, err := manager.GenerateToken(7, "customer")
	require.NoError(t, err)
	claims, err := manager.ParseToken(token)
	require.NoError(t, err)

	t.Run("有效令牌", func(t *testing.T) {
		r := newEngine(NewAuthMiddleware(manager, &stubBlacklist{}))
		resp, w := call(t, r, "Bearer "+token)
		require.Equal(t, 0, resp.Code)
		data := resp.Data.(map[string]interface{})
		assert.EqualValues(t, 7, data["user_id"])
		assert.Equal(t, "customer", data["role"])
		assert.Equal(t, claims.ID, data["token_id"])
		assert.Equal(t, true, data["expires"])
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("缺少令牌", func(t *testing.T) {
		resp, _ := call(t, newEngine(NewAuthMiddleware(manager, nil)), "")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)
	})

	t.Run("格式错误", func(t *testing.T) {
		resp, _ := call(t, newEngine(NewAuthMiddleware(manager, nil)), "Token "+token)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, resp.Code)
	})

	t.Run("其它密钥签发", func(t *testing.T) {
		other, _, err := jwt.NewManager("other-secret", time.Hour).GenerateToken(7, "customer")
		require.NoError(t, err)
		resp, _ := call(t, newEngine(NewAuthMiddleware(manager, nil)), "Bearer "+other)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, resp.Code)
	})

	t.Run("已注销", func(t *testing.T) {
		bl := &stubBlacklist{revoked: map[string]bool{claims.ID: true}}
		resp, _ := call(t, newEngine(NewAuthMiddleware(manager, bl)), "Bearer "+token)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, resp.Code)
	})

	t.Run("黑名单不可用", func(t *testing.T) {
		bl := &stubBlacklist{err: apperrors.Wrap(errors.New("redis down"), "查询令牌黑名单失败")}
		resp, _ := call(t, newEngine(NewAuthMiddleware(manager, bl)), "Bearer "+token)
		assert.Equal(t, apperrors.ErrCodeInternal, resp.Code)
	})
}

func TestRequireRole(t *testing.T) {
	manager := jwt.NewManager("middleware-test", time.Hour)
	auth := NewAuthMiddleware(manager, nil)
	r := newEngine(auth, RequireRole("staff"))

	customer, _, err := manager.GenerateToken(7, "customer")
	require.NoError(t, err)
	resp, _ := call(t, r, "Bearer "+customer)
	assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)

	staff, _, err := manager.GenerateToken(1, "staff")
	require.NoError(t, err)
	resp, _ = call(t, r, "Bearer "+staff)
	assert.Equal(t, 0, resp.Code)
}

func TestLoggerKeepsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(logger.Discard()), Metrics())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

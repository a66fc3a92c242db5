package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/storefront/internal/application/order"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/jwt"
	"github.com/xiebiao/storefront/pkg/response"
)

// Context中的键
const (
	ctxUserID       = "user_id"
	ctxRole         = "role"
	ctxTokenID      = "token_id"
	ctxTokenExpires = "token_expires"
)

// RevocationChecker 令牌黑名单(redis.TokenBlacklist实现)
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware JWT认证中间件
// 令牌由账号服务签发,这里只校验签名、有效期和黑名单,然后把调用者身份放进Context
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	blacklist  RevocationChecker
}

// NewAuthMiddleware blacklist为nil时不检查黑名单
func NewAuthMiddleware(jwtManager *jwt.Manager, blacklist RevocationChecker) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		blacklist:  blacklist,
	}
}

// RequireAuth 要求登录
// 格式: Authorization: Bearer <token>
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.ErrorWithCode(c, apperrors.ErrCodeInvalidToken, "Token格式错误")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ParseToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		// 已注销的令牌(用户登出或被强制下线)
		if m.blacklist != nil && claims.ID != "" {
			revoked, err := m.blacklist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				response.Error(c, err)
				c.Abort()
				return
			}
			if revoked {
				response.ErrorWithCode(c, apperrors.ErrCodeTokenExpired, "Token已失效,请重新登录")
				c.Abort()
				return
			}
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxTokenID, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(ctxTokenExpires, claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

// RequireRole 要求角色,必须放在RequireAuth之后
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Error(c, apperrors.ErrForbidden)
		c.Abort()
	}
}

// GetUserID 当前登录用户ID,未登录返回0
func GetUserID(c *gin.Context) uint {
	if v, ok := c.Get(ctxUserID); ok {
		if uid, ok := v.(uint); ok {
			return uid
		}
	}
	return 0
}

// GetActor 当前调用者
func GetActor(c *gin.Context) apporder.Actor {
	return apporder.Actor{
		ID:   GetUserID(c),
		Role: c.GetString(ctxRole),
	}
}

// GetToken 当前令牌的ID和过期时间(登出时写入黑名单)
func GetToken(c *gin.Context) (string, time.Time) {
	var expires time.Time
	if v, ok := c.Get(ctxTokenExpires); ok {
		expires, _ = v.(time.Time)
	}
	return c.GetString(ctxTokenID), expires
}

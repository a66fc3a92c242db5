package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	"github.com/xiebiao/storefront/pkg/response"
)

// TokenRevoker 令牌注销(redis.TokenBlacklist实现)
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

// AuthHandler 当前会话相关接口
// 登录和注册由账号服务负责,这里只处理已签发令牌的查询与注销
type AuthHandler struct {
	revoker TokenRevoker
}

// NewAuthHandler 创建处理器
func NewAuthHandler(revoker TokenRevoker) *AuthHandler {
	return &AuthHandler{revoker: revoker}
}

// MeResponse 当前调用者
type MeResponse struct {
	UserID    uint   `json:"user_id" example:"100"`
	Role      string `json:"role" example:"customer"`
	ExpiresAt string `json:"expires_at,omitempty" example:"2026-01-15 12:30:00"`
}

// Me 当前调用者信息
// @Summary      当前用户
// @Tags         认证
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=handler.MeResponse}
// @Router       /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	actor := middleware.GetActor(c)
	_, expires := middleware.GetToken(c)
	resp := &MeResponse{UserID: actor.ID, Role: actor.Role}
	if !expires.IsZero() {
		resp.ExpiresAt = expires.Format("2006-01-02 15:04:05")
	}
	response.Success(c, resp)
}

// Logout 注销当前令牌
// @Summary      登出
// @Description  令牌ID写入黑名单直到令牌自然过期
// @Tags         认证
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenID, expires := middleware.GetToken(c)
	if tokenID != "" && !expires.IsZero() {
		if err := h.revoker.Revoke(c.Request.Context(), tokenID, time.Until(expires)); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.Success(c, nil)
}

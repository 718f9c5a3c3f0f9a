package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"shop-scheduler/backend/pkg/response"
)

// 上下文键，由 middleware.JWTAuth 注入
const (
	ctxUserID   = "user_id"
	ctxRole     = "role"
	ctxTokenJTI = "token_jti"
	ctxTokenExp = "token_exp"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, ctxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, ctxRole)
}

// MustGetToken 提取当前 Access Token 的 jti 与过期时间，登出时写入黑名单
func MustGetToken(c *gin.Context) (string, time.Time, bool) {
	jti, ok := mustGetString(c, ctxTokenJTI)
	if !ok {
		return "", time.Time{}, false
	}
	v, exists := c.Get(ctxTokenExp)
	exp, isTime := v.(time.Time)
	if !exists || !isTime {
		response.Unauthorized(c, 10002, "未认证")
		return "", time.Time{}, false
	}
	return jti, exp, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shop-scheduler/backend/pkg/jwt"
	"shop-scheduler/backend/pkg/response"
)

const codeUnauthenticated = 10002

// TokenChecker 查询 jti 是否已登出，由 Redis 客户端实现
type TokenChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth 校验 Authorization: Bearer <access token>，并把身份写入上下文
// checker 为 nil 时不查黑名单；查询出错时放行并记 Warn
func JWTAuth(jwtMgr *jwt.Manager, checker TokenChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthenticated(c, "缺少或格式错误的认证头")
			return
		}

		claims, err := jwtMgr.ParseAccess(raw)
		switch {
		case errors.Is(err, jwt.ErrTokenType):
			abortUnauthenticated(c, "Token 类型无效")
			return
		case err != nil:
			abortUnauthenticated(c, "Token 无效或已过期")
			return
		}

		if checker != nil {
			revoked, err := checker.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Warn("黑名单查询失败，降级放行", zap.String("jti", claims.ID), zap.Error(err))
			} else if revoked {
				abortUnauthenticated(c, "Token 已注销")
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("token_jti", claims.ID)
		c.Set("token_exp", claims.ExpiresAt.Time)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthenticated(c *gin.Context, msg string) {
	response.Unauthorized(c, codeUnauthenticated, msg)
	c.Abort()
}

// RoleAuth 只放行上下文 role 在白名单内的请求，须挂在 JWTAuth 之后
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			abortUnauthenticated(c, "未认证")
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, 10003, "无权限访问")
			c.Abort()
			return
		}
		c.Next()
	}
}

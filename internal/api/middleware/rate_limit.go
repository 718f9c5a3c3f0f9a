package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"shop-scheduler/backend/pkg/response"
)

// RateLimitStore 分布式计数器，由 Redis 客户端实现
type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 预约写接口限流
// limit: 窗口内允许的最大请求数；window: 窗口时长。
// store 为 nil 或出错时退回进程内令牌桶，多实例部署下额度按实例计算
func RateLimit(store RateLimitStore, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	local := newLocalLimiter(limit, window)

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())

		allowed := true
		if store != nil {
			ok, err := store.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err != nil {
				logger.Warn("Redis 限流失败，使用本地令牌桶", zap.Error(err))
				allowed = local.allow(key)
			} else {
				allowed = ok
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

// ── 进程内令牌桶 ──

const localIdleTTL = 10 * time.Minute

type localEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

type localLimiter struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	r       rate.Limit
	burst   int
	sweptAt time.Time
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &localLimiter{
		entries: make(map[string]*localEntry),
		r:       rate.Every(window / time.Duration(limit)),
		burst:   limit,
	}
}

func (l *localLimiter) allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	if now.Sub(l.sweptAt) > localIdleTTL {
		for k, e := range l.entries {
			if now.Sub(e.seen) > localIdleTTL {
				delete(l.entries, k)
			}
		}
		l.sweptAt = now
	}
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{lim: rate.NewLimiter(l.r, l.burst)}
		l.entries[key] = e
	}
	e.seen = now
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

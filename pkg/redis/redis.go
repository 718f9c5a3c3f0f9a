package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shop-scheduler/backend/config"
)

const (
	keyPrefix   = "shop:"
	dialTimeout = 3 * time.Second
	opTimeout   = 500 * time.Millisecond
)

// Client 登出黑名单与写接口限流共用的 Redis 连接
// 调用方在 Redis 不可用时自行降级，这里只返回错误
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	c := &Client{rdb: rdb, logger: logger}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return c, nil
}

// Ping 供启动与 /health 使用
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// ── Token 黑名单 ──

func blacklistKey(jti string) string { return keyPrefix + "token:revoked:" + jti }

// BlacklistToken 记录已登出的 jti，过期时间与 token 剩余有效期一致；已过期的 token 不落库
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, blacklistKey(jti), 1, ttl).Err()
}

func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistKey(jti)).Result()
	return n > 0, err
}

// ── 限流 ──

// 固定窗口计数：窗口内首次 INCR 时设置过期
var fixedWindowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// CheckRateLimit key 在当前窗口内的请求数未超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := fixedWindowScript.Run(ctx, c.rdb, []string{keyPrefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Business BusinessConfig `mapstructure:"business"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RateLimitConfig 预约写接口限流配置
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
// 数据库会话固定使用 UTC，营业时区只在应用层换算
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BusinessConfig 营业日历配置
type BusinessConfig struct {
	// Timezone 固定营业时区，所有"今天"与营业日换算都基于它
	Timezone             string `mapstructure:"timezone"`
	SlotIncrementMinutes int    `mapstructure:"slot_increment_minutes"`
	// FallbackWindowEnabled 员工完全没有周排班时，时段列表是否退回默认窗口
	FallbackWindowEnabled bool   `mapstructure:"fallback_window_enabled"`
	FallbackStart         string `mapstructure:"fallback_start"`
	FallbackEnd           string `mapstructure:"fallback_end"`
}

// BookingConfig 预约规则配置
type BookingConfig struct {
	MinDurationMinutes int `mapstructure:"min_duration_minutes"`
	MaxDurationMinutes int `mapstructure:"max_duration_minutes"`
	// ConflictRetries 提交阶段遇到串行化失败/排他约束冲突时的重试次数
	ConflictRetries int `mapstructure:"conflict_retries"`
}

// KafkaConfig 预约事件投递配置（Brokers 为空时不投递）
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TracingConfig OpenTelemetry 链路追踪配置
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit.limit", 30)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "shop_scheduler")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("business.timezone", "America/New_York")
	v.SetDefault("business.slot_increment_minutes", 15)
	v.SetDefault("business.fallback_window_enabled", true)
	v.SetDefault("business.fallback_start", "09:00")
	v.SetDefault("business.fallback_end", "17:00")

	v.SetDefault("booking.min_duration_minutes", 15)
	v.SetDefault("booking.max_duration_minutes", 480)
	v.SetDefault("booking.conflict_retries", 1)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "shop.appointments")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "shop-scheduler")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_ratio", 1.0)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: business.timezone %q 无效: %w", c.Business.Timezone, err)
	}
	if c.Business.SlotIncrementMinutes <= 0 || 1440%c.Business.SlotIncrementMinutes != 0 {
		return fmt.Errorf("配置校验失败: business.slot_increment_minutes 必须整除 1440")
	}
	if c.Business.FallbackStart >= c.Business.FallbackEnd {
		return fmt.Errorf("配置校验失败: business.fallback_start 必须早于 fallback_end")
	}
	if c.Booking.MinDurationMinutes <= 0 || c.Booking.MinDurationMinutes > c.Booking.MaxDurationMinutes {
		return fmt.Errorf("配置校验失败: booking 时长上下限无效")
	}
	if c.Booking.ConflictRetries < 0 {
		return fmt.Errorf("配置校验失败: booking.conflict_retries 不能为负数")
	}
	return nil
}

package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shop-scheduler/backend/config"
	"shop-scheduler/backend/internal/api/handler"
	"shop-scheduler/backend/internal/api/middleware"
	"shop-scheduler/backend/internal/api/validate"
	"shop-scheduler/backend/pkg/jwt"
	"shop-scheduler/backend/pkg/redis"
)

// maxBodyBytes 全局请求体上限，覆盖名册与日历上传
const maxBodyBytes = 4 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单检查关闭，限流退回进程内令牌桶
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := validate.Register(); err != nil {
		return nil, err
	}

	// 避免把 nil *redis.Client 包装成非 nil 接口
	var (
		checker middleware.TokenChecker
		store   middleware.RateLimitStore
	)
	if rdb != nil {
		checker, store = rdb, rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", health(db, rdb))

	writeLimit := middleware.RateLimit(store, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window, logger)
	adminOnly := middleware.RoleAuth("admin")
	staffOrAdmin := middleware.RoleAuth("admin", "staff")

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", writeLimit, h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 用户模块
			users := authorized.Group("/users", adminOnly)
			{
				users.POST("", h.User.CreateUser)
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.POST("/import", h.User.ImportStaff)
			}

			// 可用性查询
			availability := authorized.Group("/availability")
			{
				availability.GET("/slots", h.Availability.Slots)
				availability.GET("/check", h.Availability.Check)
			}

			// 员工排班与日程
			authorized.GET("/employees", h.Schedule.ListEmployees)
			employees := authorized.Group("/employees/:id")
			{
				employees.GET("/recurring", h.Schedule.GetWeekly)
				employees.PUT("/recurring", adminOnly, h.Schedule.UpsertRecurring)
				employees.DELETE("/recurring/:day/:start", adminOnly, h.Schedule.DeleteRecurring)

				employees.GET("/overrides", h.Schedule.ListOverrides)
				employees.POST("/overrides", adminOnly, h.Schedule.CreateOverride)
				employees.POST("/overrides/import", adminOnly, h.Schedule.ImportOverridesICS)

				employees.GET("/appointments", staffOrAdmin, h.Appointment.ListByEmployee)
				employees.GET("/calendar.ics", staffOrAdmin, h.Export.ExportCalendar)
			}
			authorized.DELETE("/overrides/:id", adminOnly, h.Schedule.DeleteOverride)

			// 预约模块
			appointments := authorized.Group("/appointments")
			{
				appointments.POST("", writeLimit, h.Appointment.Create)
				appointments.GET("", staffOrAdmin, h.Appointment.ListByDate)
				appointments.GET("/:id", h.Appointment.Get)
				appointments.PUT("/:id", writeLimit, h.Appointment.Update)
				appointments.POST("/:id/cancel", writeLimit, h.Appointment.Cancel)
			}

			// 导出模块
			export := authorized.Group("/export", staffOrAdmin)
			{
				export.GET("/day", h.Export.ExportDay)
			}
		}
	}

	return r, nil
}

// health 数据库不可用返回 503；Redis 只影响黑名单与限流，不可用时仍返回 200 并标记 degraded
func health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, dbStatus := http.StatusOK, "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status, dbStatus = http.StatusServiceUnavailable, "down"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "ok"
			if err := rdb.Ping(ctx); err != nil {
				redisStatus = "degraded"
			}
		}
		c.JSON(status, gin.H{"status": dbStatus, "redis": redisStatus})
	}
}

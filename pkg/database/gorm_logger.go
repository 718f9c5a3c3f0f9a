package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	pkgerrors "shop-scheduler/backend/pkg/errors"
)

// slowQueryThreshold 超过该耗时的语句以 Warn 记录
const slowQueryThreshold = 200 * time.Millisecond

// gormLogger 把 gorm 的日志接到 zap 上，与请求日志共用同一个输出
type gormLogger struct {
	log      *zap.Logger
	level    gormlogger.LogLevel
	traceSQL bool
}

func newGormLogger(logger *zap.Logger, traceSQL bool) gormlogger.Interface {
	return &gormLogger{
		log:      logger.WithOptions(zap.AddCallerSkip(3)).With(zap.String("component", "gorm")),
		level:    gormlogger.Warn,
		traceSQL: traceSQL,
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

// Trace 记录单条 SQL：出错记 Error（记录不存在除外），慢查询记 Warn，debug 模式下全部记 Debug
// 串行化冲突与排他约束冲突由业务层重试或转成预约冲突，这里降为 Warn
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		level := l.log.Error
		if pkgerrors.IsRetryableTx(err) || pkgerrors.IsExclusionViolation(err) {
			level = l.log.Warn
		}
		level("SQL 执行失败",
			zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed), zap.Error(err))
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn("慢查询",
			zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	case l.traceSQL:
		sql, rows := fc()
		l.log.Debug("SQL",
			zap.String("sql", sql), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	}
}

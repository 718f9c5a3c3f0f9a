package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shop-scheduler/backend/internal/dto"
	"shop-scheduler/backend/internal/model"
	"shop-scheduler/backend/internal/repository"
	"shop-scheduler/backend/pkg/timeutil"
)

// ── 排班管理业务错误 ──

var (
	ErrRecurringNotFound = errors.New("周排班窗口不存在")
	ErrOverrideNotFound  = errors.New("单日例外不存在")
	ErrInvalidDayOfWeek  = errors.New("星期取值应为 0-6（0=周日）")
	ErrICSInvalid        = errors.New("ICS 文件无效")
	ErrICSTooLarge       = errors.New("ICS 文件包含的事件过多")
)

// EmployeeScheduleService 员工排班管理业务接口
type EmployeeScheduleService interface {
	ListEmployees(ctx context.Context) ([]dto.EmployeeBrief, error)
	GetWeekly(ctx context.Context, employeeID string) (*dto.WeeklyScheduleResponse, error)
	UpsertRecurring(ctx context.Context, employeeID string, req *dto.UpsertRecurringRequest, callerID string) (*dto.RecurringResponse, error)
	DeleteRecurring(ctx context.Context, employeeID string, dayOfWeek int, startTime string) error
	ListOverrides(ctx context.Context, employeeID, from, to string) ([]dto.OverrideResponse, error)
	CreateOverride(ctx context.Context, employeeID string, req *dto.CreateOverrideRequest, callerID string) (*dto.OverrideResponse, error)
	DeleteOverride(ctx context.Context, overrideID string) error
	// ImportOverridesICS 从请假日历批量创建封锁例外，全部成功或全部回滚
	ImportOverridesICS(ctx context.Context, employeeID string, r io.Reader, callerID string) ([]dto.OverrideResponse, error)
}

type employeeScheduleService struct {
	repo     *repository.Repository
	engine   *availabilityEngine
	calendar *timeutil.BusinessCalendar
	logger   *zap.Logger
}

// NewEmployeeScheduleService 创建 EmployeeScheduleService 实例
func NewEmployeeScheduleService(repo *repository.Repository, calendar *timeutil.BusinessCalendar, logger *zap.Logger) EmployeeScheduleService {
	return &employeeScheduleService{
		repo:     repo,
		engine:   &availabilityEngine{},
		calendar: calendar,
		logger:   logger,
	}
}

// ────────────────────── ListEmployees ──────────────────────

func (s *employeeScheduleService) ListEmployees(ctx context.Context) ([]dto.EmployeeBrief, error) {
	users, err := s.repo.User.ListSchedulable(ctx)
	if err != nil {
		s.logger.Error("查询员工名册失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.EmployeeBrief, 0, len(users))
	for _, u := range users {
		result = append(result, dto.EmployeeBrief{ID: u.UserID, Name: u.Name})
	}
	return result, nil
}

// ────────────────────── 周排班 ──────────────────────

func (s *employeeScheduleService) GetWeekly(ctx context.Context, employeeID string) (*dto.WeeklyScheduleResponse, error) {
	emp, err := s.engine.loadEmployee(ctx, s.repo, employeeID)
	if err != nil {
		return nil, s.logUnexpected("查询员工失败", err)
	}

	rows, err := s.repo.Recurring.ListByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.Error("查询周排班失败", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, err
	}

	windows := make([]dto.RecurringResponse, 0, len(rows))
	for i := range rows {
		windows = append(windows, *toRecurringResponse(&rows[i]))
	}
	return &dto.WeeklyScheduleResponse{
		Employee: dto.EmployeeBrief{ID: emp.UserID, Name: emp.Name},
		Windows:  windows,
	}, nil
}

func (s *employeeScheduleService) UpsertRecurring(ctx context.Context, employeeID string, req *dto.UpsertRecurringRequest, callerID string) (*dto.RecurringResponse, error) {
	if req.DayOfWeek == nil || *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		return nil, ErrInvalidDayOfWeek
	}
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if _, err := s.engine.loadEmployee(ctx, s.repo, employeeID); err != nil {
		return nil, s.logUnexpected("查询员工失败", err)
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	ra := &model.RecurringAvailability{
		EmployeeID:  employeeID,
		DayOfWeek:   *req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: isAvailable,
	}
	ra.CreatedBy = &callerID
	ra.UpdatedBy = &callerID

	if err := s.repo.Recurring.Upsert(ctx, ra); err != nil {
		s.logger.Error("保存周排班失败", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("周排班已保存",
		zap.String("employee_id", employeeID),
		zap.Int("day_of_week", ra.DayOfWeek),
		zap.String("window", ra.StartTime+"-"+ra.EndTime))
	return toRecurringResponse(ra), nil
}

func (s *employeeScheduleService) DeleteRecurring(ctx context.Context, employeeID string, dayOfWeek int, startTime string) error {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return ErrInvalidDayOfWeek
	}
	if !timeutil.IsClock(startTime) {
		return fmt.Errorf("%w: 开始时间 %q 不是 HH:MM", ErrInvalidTimeRange, startTime)
	}
	if err := s.repo.Recurring.Delete(ctx, employeeID, dayOfWeek, startTime); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecurringNotFound
		}
		s.logger.Error("删除周排班失败", zap.String("employee_id", employeeID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 单日例外 ──────────────────────

func (s *employeeScheduleService) ListOverrides(ctx context.Context, employeeID, from, to string) ([]dto.OverrideResponse, error) {
	f, t, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.loadEmployee(ctx, s.repo, employeeID); err != nil {
		return nil, s.logUnexpected("查询员工失败", err)
	}

	rows, err := s.repo.Override.ListByEmployeeInRange(ctx, employeeID, f, t)
	if err != nil {
		s.logger.Error("查询单日例外失败", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, err
	}
	return toOverrideResponses(rows), nil
}

func (s *employeeScheduleService) CreateOverride(ctx context.Context, employeeID string, req *dto.CreateOverrideRequest, callerID string) (*dto.OverrideResponse, error) {
	date, err := timeutil.NormalizeDate(req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if _, err := s.engine.loadEmployee(ctx, s.repo, employeeID); err != nil {
		return nil, s.logUnexpected("查询员工失败", err)
	}

	o := &model.TimeSlotOverride{
		EmployeeID:  employeeID,
		Date:        model.Date(date),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable,
		Reason:      req.Reason,
	}
	o.CreatedBy = &callerID
	o.UpdatedBy = &callerID

	if err := s.repo.Override.Create(ctx, o); err != nil {
		s.logger.Error("创建单日例外失败", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, err
	}
	return toOverrideResponse(o), nil
}

func (s *employeeScheduleService) DeleteOverride(ctx context.Context, overrideID string) error {
	if err := s.repo.Override.Delete(ctx, overrideID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOverrideNotFound
		}
		s.logger.Error("删除单日例外失败", zap.String("override_id", overrideID), zap.Error(err))
		return err
	}
	return nil
}

func (s *employeeScheduleService) ImportOverridesICS(ctx context.Context, employeeID string, r io.Reader, callerID string) ([]dto.OverrideResponse, error) {
	if _, err := s.engine.loadEmployee(ctx, s.repo, employeeID); err != nil {
		return nil, s.logUnexpected("查询员工失败", err)
	}

	windows, err := parseBlackoutICS(r, s.calendar.Location())
	if err != nil {
		return nil, err
	}

	created := make([]model.TimeSlotOverride, 0, len(windows))
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		for _, w := range windows {
			reason := w.Reason
			o := model.TimeSlotOverride{
				EmployeeID:  employeeID,
				Date:        model.Date(w.Date),
				StartTime:   w.StartTime,
				EndTime:     w.EndTime,
				IsAvailable: false,
				Reason:      &reason,
			}
			o.CreatedBy = &callerID
			o.UpdatedBy = &callerID
			if err := tx.Override.Create(ctx, &o); err != nil {
				return err
			}
			created = append(created, o)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("导入请假日历失败，已回滚", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("请假日历导入完成", zap.String("employee_id", employeeID), zap.Int("count", len(created)))
	return toOverrideResponses(created), nil
}

// ── 内部辅助方法 ──

func (s *employeeScheduleService) logUnexpected(msg string, err error) error {
	if !isDomainError(err) {
		s.logger.Error(msg, zap.Error(err))
	}
	return err
}

// validateWindow 窗口两端必须是合法 HH:MM 且开始早于结束
func validateWindow(start, end string) error {
	if !timeutil.IsClock(start) || !timeutil.IsClock(end) {
		return fmt.Errorf("%w: %q-%q 不是 HH:MM", ErrInvalidTimeRange, start, end)
	}
	if start >= end {
		return fmt.Errorf("%w: 开始时间 %s 必须早于结束时间 %s", ErrInvalidTimeRange, start, end)
	}
	return nil
}

func toRecurringResponse(ra *model.RecurringAvailability) *dto.RecurringResponse {
	return &dto.RecurringResponse{
		ID:          ra.RecurringAvailabilityID,
		EmployeeID:  ra.EmployeeID,
		DayOfWeek:   ra.DayOfWeek,
		StartTime:   ra.StartTime,
		EndTime:     ra.EndTime,
		IsAvailable: ra.IsAvailable,
		UpdatedAt:   ra.UpdatedAt.Format(time.RFC3339),
	}
}

func toOverrideResponse(o *model.TimeSlotOverride) *dto.OverrideResponse {
	return &dto.OverrideResponse{
		ID:          o.OverrideID,
		EmployeeID:  o.EmployeeID,
		Date:        string(o.Date),
		StartTime:   o.StartTime,
		EndTime:     o.EndTime,
		IsAvailable: o.IsAvailable,
		Reason:      o.Reason,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}

func toOverrideResponses(rows []model.TimeSlotOverride) []dto.OverrideResponse {
	out := make([]dto.OverrideResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *toOverrideResponse(&rows[i]))
	}
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shop-scheduler/backend/config"
	"shop-scheduler/backend/internal/dto"
	"shop-scheduler/backend/internal/model"
	"shop-scheduler/backend/internal/repository"
	pkgerrors "shop-scheduler/backend/pkg/errors"
	"shop-scheduler/backend/pkg/events"
	"shop-scheduler/backend/pkg/timeutil"
)

// ── 预约模块业务错误 ──

var (
	ErrAppointmentNotFound = errors.New("预约不存在")
	ErrAppointmentConflict = errors.New("预约时间冲突")
	ErrNoAvailableEmployee = errors.New("没有可用的员工")
	ErrInvalidStatus       = errors.New("预约状态无效")
	ErrEmployeeRequired    = errors.New("预约至少需要一名员工")
)

// ConflictError 预约冲突详情，errors.Is 可匹配 ErrAppointmentConflict 或 ErrNoAvailableEmployee
type ConflictError struct {
	EmployeeID string
	Reason     string
	Suggestion string
	cause      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.cause.Error(), e.Reason)
}

func (e *ConflictError) Unwrap() error { return e.cause }

// NewConflictError 由判定结果构造单员工冲突
func NewConflictError(employeeID string, d Decision) *ConflictError {
	return &ConflictError{EmployeeID: employeeID, Reason: d.Reason, Suggestion: d.Suggestion, cause: ErrAppointmentConflict}
}

// AppointmentService 预约业务接口
type AppointmentService interface {
	Create(ctx context.Context, req *dto.CreateAppointmentRequest, callerID string) (*dto.AppointmentResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateAppointmentRequest, callerID string) (*dto.AppointmentResponse, error)
	Cancel(ctx context.Context, id string, callerID string) (*dto.AppointmentResponse, error)
	Get(ctx context.Context, id string) (*dto.AppointmentResponse, error)
	// ListByDate date 为空时取营业时区的今天
	ListByDate(ctx context.Context, date string) ([]dto.AppointmentResponse, error)
	ListByEmployee(ctx context.Context, employeeID, from, to string) ([]dto.AppointmentResponse, error)
}

type appointmentService struct {
	repo      *repository.Repository
	engine    *availabilityEngine
	calendar  *timeutil.BusinessCalendar
	publisher events.Publisher
	retries   int
	logger    *zap.Logger
}

// NewAppointmentService 创建 AppointmentService 实例
func NewAppointmentService(
	cfg *config.Config,
	repo *repository.Repository,
	calendar *timeutil.BusinessCalendar,
	publisher events.Publisher,
	logger *zap.Logger,
) AppointmentService {
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &appointmentService{
		repo:      repo,
		engine:    newAvailabilityEngine(cfg),
		calendar:  calendar,
		publisher: publisher,
		retries:   cfg.Booking.ConflictRetries,
		logger:    logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *appointmentService) Create(ctx context.Context, req *dto.CreateAppointmentRequest, callerID string) (*dto.AppointmentResponse, error) {
	br, err := s.engine.rules.validate(req.Date, req.StartTime, req.Duration)
	if err != nil {
		return nil, err
	}
	scheduledAt, err := s.calendar.Instant(br.date, br.startTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	targets := dedupeIDs(req.EmployeeIDs)

	var created *model.Appointment
	err = s.withConflictRetry(ctx, "create", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			assigned, err := s.resolveEmployees(ctx, tx, targets, br)
			if err != nil {
				return err
			}

			appt := &model.Appointment{
				CustomerID:    req.CustomerID,
				ScheduledDate: model.Date(br.date),
				ScheduledTime: br.startTime,
				Duration:      br.duration,
				EndTime:       br.endTime,
				ScheduledAt:   scheduledAt,
				Status:        model.AppointmentStatusScheduled,
				Notes:         req.Notes,
				Employees:     buildLinks(assigned, br, true),
			}
			appt.CreatedBy = &callerID
			appt.UpdatedBy = &callerID

			if err := tx.Appointment.Create(ctx, appt); err != nil {
				return err
			}
			created = appt
			return nil
		})
	})
	if err != nil {
		return nil, s.logUnexpected("创建预约失败", err)
	}

	s.logger.Info("预约已创建",
		zap.String("appointment_id", created.AppointmentID),
		zap.Strings("employee_ids", created.EmployeeIDs()),
		zap.String("date", br.date), zap.String("start", br.startTime))
	s.publish(ctx, events.TypeAppointmentBooked, created)

	return s.reload(ctx, created)
}

// resolveEmployees 显式指定时逐个判定，任一失败整单拒绝；未指定时按名册顺序分配第一个可用员工
func (s *appointmentService) resolveEmployees(ctx context.Context, tx *repository.Repository, targets []string, br bookingRequest) ([]string, error) {
	if len(targets) > 0 {
		if err := s.checkEmployees(ctx, tx, targets, br, ""); err != nil {
			return nil, err
		}
		return targets, nil
	}

	roster, err := tx.User.ListSchedulable(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询可排班员工失败: %w", err)
	}
	for _, emp := range roster {
		if err := tx.Appointment.LockEmployeeDay(ctx, emp.UserID, br.date); err != nil {
			return nil, err
		}
		snap, err := s.engine.loadSnapshot(ctx, tx, emp.UserID, br.date)
		if err != nil {
			return nil, err
		}
		if snap.evaluate(br.startTime, br.duration, "").Available {
			return []string{emp.UserID}, nil
		}
	}
	return nil, &ConflictError{
		Reason:     fmt.Sprintf("%s %s-%s 没有可用的员工", br.date, br.startTime, br.endTime),
		Suggestion: "请查询可用时段后选择其他时间",
		cause:      ErrNoAvailableEmployee,
	}
}

// checkEmployees 先按 ID 排序加锁，再逐个判定
func (s *appointmentService) checkEmployees(ctx context.Context, tx *repository.Repository, ids []string, br bookingRequest, excludeID string) error {
	locked := append([]string(nil), ids...)
	sort.Strings(locked)
	for _, id := range locked {
		if err := tx.Appointment.LockEmployeeDay(ctx, id, br.date); err != nil {
			return err
		}
	}
	for _, id := range ids {
		d, err := s.engine.check(ctx, tx, id, br, excludeID)
		if err != nil {
			return err
		}
		if !d.Available {
			return NewConflictError(id, d)
		}
	}
	return nil
}

// ────────────────────── Update ──────────────────────

func (s *appointmentService) Update(ctx context.Context, id string, req *dto.UpdateAppointmentRequest, callerID string) (*dto.AppointmentResponse, error) {
	if req.Status != nil && !model.IsValidAppointmentStatus(*req.Status) {
		return nil, ErrInvalidStatus
	}

	var updated *model.Appointment
	err := s.withConflictRetry(ctx, "update", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			appt, err := s.getForWrite(ctx, tx, id)
			if err != nil {
				return err
			}
			if appt.Version != req.Version {
				return pkgerrors.ErrOptimisticLock
			}

			oldDate := string(appt.ScheduledDate)
			oldStart, oldDuration, oldStatus := appt.ScheduledTime, appt.Duration, appt.Status
			current := appt.EmployeeIDs()

			date, start, duration, status := oldDate, oldStart, oldDuration, oldStatus
			if req.Date != nil {
				date = *req.Date
			}
			if req.StartTime != nil {
				start = *req.StartTime
			}
			if req.Duration != nil {
				duration = *req.Duration
			}
			if req.Status != nil {
				status = *req.Status
			}

			br, err := s.engine.rules.validate(date, start, duration)
			if err != nil {
				return err
			}

			targets := current
			employeesChanged := false
			if req.EmployeeIDs != nil {
				targets = dedupeIDs(*req.EmployeeIDs)
				employeesChanged = !sameIDSet(targets, current)
			}
			if len(targets) == 0 {
				return ErrEmployeeRequired
			}

			timeChanged := br.date != oldDate || br.startTime != oldStart || br.duration != oldDuration
			reactivated := !model.IsActiveAppointmentStatus(oldStatus) && model.IsActiveAppointmentStatus(status)

			// 未改时间、未重新激活时只检查新加入的员工，原有分配不会与自身冲突
			if model.IsActiveAppointmentStatus(status) {
				toCheck := newIDs(targets, current)
				if timeChanged || reactivated {
					toCheck = targets
				}
				if len(toCheck) > 0 {
					if err := s.checkEmployees(ctx, tx, toCheck, br, appt.AppointmentID); err != nil {
						return err
					}
				}
			}

			if timeChanged {
				at, err := s.calendar.Instant(br.date, br.startTime)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrInvalidDate, err)
				}
				appt.ScheduledAt = at
			}
			appt.ScheduledDate = model.Date(br.date)
			appt.ScheduledTime = br.startTime
			appt.Duration = br.duration
			appt.EndTime = br.endTime
			appt.Status = status
			if req.Notes != nil {
				appt.Notes = req.Notes
			}
			appt.UpdatedBy = &callerID

			if err := tx.Appointment.Update(ctx, appt); err != nil {
				return err
			}
			if employeesChanged {
				links := buildLinks(targets, br, model.IsActiveAppointmentStatus(status))
				if err := tx.Appointment.ReplaceEmployees(ctx, appt.AppointmentID, links); err != nil {
					return err
				}
				appt.Employees = links
			}
			updated = appt
			return nil
		})
	})
	if err != nil {
		return nil, s.logUnexpected("更新预约失败", err)
	}

	eventType := events.TypeAppointmentUpdated
	if updated.Status == model.AppointmentStatusCancelled {
		eventType = events.TypeAppointmentCancelled
	}
	s.publish(ctx, eventType, updated)

	return s.reload(ctx, updated)
}

// ────────────────────── Cancel ──────────────────────

func (s *appointmentService) Cancel(ctx context.Context, id string, callerID string) (*dto.AppointmentResponse, error) {
	appt, err := s.getForWrite(ctx, s.repo, id)
	if err != nil {
		return nil, s.logUnexpected("查询预约失败", err)
	}
	if appt.Status == model.AppointmentStatusCancelled {
		return toAppointmentResponse(appt), nil
	}

	appt.Status = model.AppointmentStatusCancelled
	appt.UpdatedBy = &callerID
	if err := s.repo.Appointment.Update(ctx, appt); err != nil {
		return nil, s.logUnexpected("取消预约失败", err)
	}

	s.publish(ctx, events.TypeAppointmentCancelled, appt)
	return s.reload(ctx, appt)
}

// ────────────────────── 查询 ──────────────────────

func (s *appointmentService) Get(ctx context.Context, id string) (*dto.AppointmentResponse, error) {
	appt, err := s.getForWrite(ctx, s.repo, id)
	if err != nil {
		return nil, s.logUnexpected("查询预约失败", err)
	}
	return toAppointmentResponse(appt), nil
}

func (s *appointmentService) ListByDate(ctx context.Context, date string) ([]dto.AppointmentResponse, error) {
	if date == "" {
		date = s.calendar.Today()
	}
	d, err := timeutil.NormalizeDate(date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	appts, err := s.repo.Appointment.ListByDate(ctx, d)
	if err != nil {
		s.logger.Error("按日期查询预约失败", zap.String("date", d), zap.Error(err))
		return nil, err
	}
	return toAppointmentResponses(appts), nil
}

func (s *appointmentService) ListByEmployee(ctx context.Context, employeeID, from, to string) ([]dto.AppointmentResponse, error) {
	f, t, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.loadEmployee(ctx, s.repo, employeeID); err != nil {
		return nil, s.logUnexpected("查询员工失败", err)
	}

	appts, err := s.repo.Appointment.ListByEmployeeInRange(ctx, employeeID, f, t)
	if err != nil {
		s.logger.Error("查询员工预约失败", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, err
	}
	return toAppointmentResponses(appts), nil
}

// ── 内部辅助方法 ──

// withConflictRetry 提交阶段被数据库以串行化失败、死锁或排他约束中止时，整体重新检查并提交；
// 重试耗尽后以冲突返回，不会自动改选其他时间
func (s *appointmentService) withConflictRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = fn()
		if err == nil || !isRaceAbort(err) {
			return err
		}
		s.logger.Warn("预约提交被并发中止",
			zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return &ConflictError{
		Reason:     "所选时段刚刚被其他预约占用",
		Suggestion: "请刷新可用时段后重新选择",
		cause:      ErrAppointmentConflict,
	}
}

func isRaceAbort(err error) bool {
	return pkgerrors.IsRetryableTx(err) || pkgerrors.IsExclusionViolation(err)
}

func (s *appointmentService) getForWrite(ctx context.Context, repo *repository.Repository, id string) (*model.Appointment, error) {
	appt, err := repo.Appointment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return appt, nil
}

// reload 重新读取以带出员工姓名；读取失败时退回写入时的数据
func (s *appointmentService) reload(ctx context.Context, appt *model.Appointment) (*dto.AppointmentResponse, error) {
	full, err := s.repo.Appointment.GetByID(ctx, appt.AppointmentID)
	if err != nil {
		s.logger.Warn("重新读取预约失败", zap.String("appointment_id", appt.AppointmentID), zap.Error(err))
		return toAppointmentResponse(appt), nil
	}
	return toAppointmentResponse(full), nil
}

// publish 事件投递失败只记录日志，不影响预约结果
func (s *appointmentService) publish(ctx context.Context, eventType string, appt *model.Appointment) {
	evt := events.AppointmentEvent{
		Type:          eventType,
		AppointmentID: appt.AppointmentID,
		CustomerID:    appt.CustomerID,
		EmployeeIDs:   appt.EmployeeIDs(),
		Date:          string(appt.ScheduledDate),
		StartTime:     appt.ScheduledTime,
		EndTime:       appt.EndTime,
		Status:        appt.Status,
		ScheduledAt:   appt.ScheduledAt,
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, evt); err != nil {
		s.logger.Warn("预约事件投递失败",
			zap.String("type", eventType), zap.String("appointment_id", appt.AppointmentID), zap.Error(err))
	}
}

// logUnexpected 业务错误原样返回，其余错误记录后返回
func (s *appointmentService) logUnexpected(msg string, err error) error {
	if !isDomainError(err) {
		s.logger.Error(msg, zap.Error(err))
	}
	return err
}

func buildLinks(employeeIDs []string, br bookingRequest, active bool) []model.AppointmentEmployee {
	start, _ := timeutil.ClockToMinutes(br.startTime)
	links := make([]model.AppointmentEmployee, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		links = append(links, model.AppointmentEmployee{
			EmployeeID:    id,
			ScheduledDate: model.Date(br.date),
			StartMinute:   start,
			EndMinute:     start + br.duration,
			IsActive:      active,
		})
	}
	return links
}

// dedupeIDs 去重并保持原有顺序
func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return len(newIDs(a, b)) == 0
}

// newIDs target 中不在 current 里的 ID
func newIDs(target, current []string) []string {
	existing := make(map[string]bool, len(current))
	for _, id := range current {
		existing[id] = true
	}
	var out []string
	for _, id := range target {
		if !existing[id] {
			out = append(out, id)
		}
	}
	return out
}

func toAppointmentResponse(a *model.Appointment) *dto.AppointmentResponse {
	employees := make([]dto.EmployeeBrief, 0, len(a.Employees))
	for _, e := range a.Employees {
		brief := dto.EmployeeBrief{ID: e.EmployeeID}
		if e.Employee != nil {
			brief.Name = e.Employee.Name
		}
		employees = append(employees, brief)
	}
	return &dto.AppointmentResponse{
		ID:          a.AppointmentID,
		CustomerID:  a.CustomerID,
		Employees:   employees,
		Date:        string(a.ScheduledDate),
		StartTime:   a.ScheduledTime,
		EndTime:     a.EndTime,
		Duration:    a.Duration,
		ScheduledAt: a.ScheduledAt.UTC().Format(time.RFC3339),
		Status:      a.Status,
		Notes:       a.Notes,
		Version:     a.Version,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.Format(time.RFC3339),
	}
}

func toAppointmentResponses(appts []model.Appointment) []dto.AppointmentResponse {
	out := make([]dto.AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, *toAppointmentResponse(&appts[i]))
	}
	return out
}

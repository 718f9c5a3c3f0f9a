package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"shop-scheduler/backend/internal/model"
	"shop-scheduler/backend/internal/repository"
	"shop-scheduler/backend/pkg/timeutil"
)

// ── 可用性判定业务错误 ──

var (
	ErrEmployeeNotFound       = errors.New("员工不存在")
	ErrEmployeeNotSchedulable = errors.New("该用户不是可排班员工")
	ErrInvalidDate            = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrInvalidTimeRange       = errors.New("时间范围无效")
	ErrInvalidDuration        = errors.New("预约时长超出允许范围")
)

// Decision 单次可用性判定结果
type Decision struct {
	Available  bool
	Reason     string
	Suggestion string
}

func unavailable(reason, suggestion string) Decision {
	return Decision{Reason: reason, Suggestion: suggestion}
}

// ── 请求校验 ──

// bookingRequest 已通过校验的预约请求
type bookingRequest struct {
	date      string
	startTime string
	endTime   string
	duration  int
}

// bookingRules 预约时长上下限
type bookingRules struct {
	minDuration int
	maxDuration int
}

// validate 在访问存储前完成所有格式与范围校验
func (r bookingRules) validate(date, startTime string, duration int) (bookingRequest, error) {
	d, err := timeutil.NormalizeDate(date)
	if err != nil {
		return bookingRequest{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if !timeutil.IsClock(startTime) {
		return bookingRequest{}, fmt.Errorf("%w: 开始时间 %q 不是 HH:MM", ErrInvalidTimeRange, startTime)
	}
	if duration < r.minDuration || duration > r.maxDuration {
		return bookingRequest{}, fmt.Errorf("%w: %d 分钟，允许 %d-%d 分钟", ErrInvalidDuration, duration, r.minDuration, r.maxDuration)
	}
	if timeutil.CrossesMidnight(startTime, duration) {
		return bookingRequest{}, fmt.Errorf("%w: %s 开始的 %d 分钟预约会跨越午夜", ErrInvalidTimeRange, startTime, duration)
	}
	end, _ := timeutil.AddMinutes(startTime, duration)
	return bookingRequest{date: d, startTime: startTime, endTime: end, duration: duration}, nil
}

// ── 单日快照 ──

// daySnapshot 某员工某营业日的三类事实：单日例外、当天星期的可用周排班、仍占用时间的预约。
// 单次判定与时段网格共用 evaluate，两条路径不会产生分歧。
type daySnapshot struct {
	overrides    []model.TimeSlotOverride
	recurring    []model.RecurringAvailability
	appointments []model.Appointment
}

// evaluate 按顺序判定：封锁例外 → 加班例外/周排班包含 → 预约冲突。先命中的规则决定结果。
func (s *daySnapshot) evaluate(startTime string, duration int, excludeID string) Decision {
	reqEnd, err := timeutil.AddMinutes(startTime, duration)
	if err != nil {
		return unavailable(fmt.Sprintf("开始时间 %q 无效", startTime), "")
	}

	// 封锁例外是绝对的，周排班无法覆盖它
	for _, o := range s.overrides {
		if !o.IsAvailable && timeutil.RangesOverlap(startTime, reqEnd, o.StartTime, o.EndTime) {
			suggestion := ""
			if o.Reason != nil {
				suggestion = *o.Reason
			}
			return unavailable(fmt.Sprintf("员工在 %s-%s 不可预约", o.StartTime, o.EndTime), suggestion)
		}
	}

	covered := false
	for _, o := range s.overrides {
		if o.IsAvailable && timeutil.WithinWindow(startTime, duration, o.StartTime, o.EndTime) {
			covered = true
			break
		}
	}
	if !covered {
		for _, ra := range s.recurring {
			if timeutil.WithinWindow(startTime, duration, ra.StartTime, ra.EndTime) {
				covered = true
				break
			}
		}
	}
	if !covered {
		windows := s.workingWindows()
		if len(windows) == 0 {
			return unavailable("员工当天未安排上班", "请选择其他日期或其他员工")
		}
		list := strings.Join(windows, ", ")
		return unavailable(
			fmt.Sprintf("%s-%s 不在员工当天的工作时间内（%s）", startTime, reqEnd, list),
			"可预约的工作时间: "+list,
		)
	}

	for _, a := range s.appointments {
		if excludeID != "" && a.AppointmentID == excludeID {
			continue
		}
		if !model.IsActiveAppointmentStatus(a.Status) {
			continue
		}
		aEnd := a.EndTime
		if aEnd == "" {
			if aEnd, err = timeutil.AddMinutes(a.ScheduledTime, a.Duration); err != nil {
				continue
			}
		}
		if timeutil.RangesOverlap(startTime, reqEnd, a.ScheduledTime, aEnd) {
			return unavailable(
				fmt.Sprintf("与已有预约 %s-%s 冲突", a.ScheduledTime, aEnd),
				fmt.Sprintf("请选择 %s 之后的时间", aEnd),
			)
		}
	}

	return Decision{Available: true}
}

// workingWindows 当天周排班窗口，按开始时间排序后的 "HH:MM-HH:MM" 列表
func (s *daySnapshot) workingWindows() []string {
	windows := make([]string, 0, len(s.recurring))
	for _, ra := range s.recurring {
		windows = append(windows, ra.StartTime+"-"+ra.EndTime)
	}
	// HH:MM 定长，字典序即开始时间顺序
	sort.Strings(windows)
	return windows
}

// ── 判定引擎 ──

// availabilityEngine 无状态，所有读取都经由调用方传入的 repo，
// 预约写入时传入事务绑定的 repo 即可在同一事务内完成检查。
type availabilityEngine struct {
	rules bookingRules
}

// loadEmployee 查询员工并确认其可被排班
func (e *availabilityEngine) loadEmployee(ctx context.Context, repo *repository.Repository, employeeID string) (*model.User, error) {
	emp, err := repo.User.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	if !emp.IsSchedulable() {
		return nil, ErrEmployeeNotSchedulable
	}
	return emp, nil
}

// loadSnapshot 读取员工某营业日的单日快照
func (e *availabilityEngine) loadSnapshot(ctx context.Context, repo *repository.Repository, employeeID, date string) (*daySnapshot, error) {
	dow, err := timeutil.DayOfWeek(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	overrides, err := repo.Override.ListByEmployeeAndDate(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("查询单日例外失败: %w", err)
	}

	rows, err := repo.Recurring.ListByEmployeeAndDay(ctx, employeeID, dow)
	if err != nil {
		return nil, fmt.Errorf("查询周排班失败: %w", err)
	}
	recurring := make([]model.RecurringAvailability, 0, len(rows))
	for _, ra := range rows {
		if ra.IsAvailable {
			recurring = append(recurring, ra)
		}
	}

	appts, err := repo.Appointment.ListActiveByEmployeeAndDate(ctx, employeeID, date, "")
	if err != nil {
		return nil, fmt.Errorf("查询员工预约失败: %w", err)
	}

	return &daySnapshot{overrides: overrides, recurring: recurring, appointments: appts}, nil
}

// check 单个员工的完整判定：校验 → 员工 → 快照 → evaluate
func (e *availabilityEngine) check(ctx context.Context, repo *repository.Repository, employeeID string, req bookingRequest, excludeID string) (Decision, error) {
	if _, err := e.loadEmployee(ctx, repo, employeeID); err != nil {
		return Decision{}, err
	}
	snap, err := e.loadSnapshot(ctx, repo, employeeID, req.date)
	if err != nil {
		return Decision{}, err
	}
	return snap.evaluate(req.startTime, req.duration, excludeID), nil
}

// [自证通过] internal/service/availability_engine.go

package repository

import (
	"context"

	"gorm.io/gorm"

	"shop-scheduler/backend/internal/model"
	pkgerrors "shop-scheduler/backend/pkg/errors"
	"shop-scheduler/backend/pkg/timeutil"
)

var activeAppointmentStatuses = []string{
	model.AppointmentStatusScheduled,
	model.AppointmentStatusConfirmed,
	model.AppointmentStatusInProgress,
}

// AppointmentRepository 预约数据访问接口
type AppointmentRepository interface {
	// Create 写入预约及其员工占用行
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	// Update 乐观锁更新，并同步占用行的日期、区间与激活状态
	Update(ctx context.Context, appt *model.Appointment) error
	ReplaceEmployees(ctx context.Context, appointmentID string, links []model.AppointmentEmployee) error
	// ListActiveByEmployeeAndDate 员工当天仍占用时间的预约；excludeID 非空时排除该预约
	ListActiveByEmployeeAndDate(ctx context.Context, employeeID, date, excludeID string) ([]model.Appointment, error)
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)
	ListByEmployeeInRange(ctx context.Context, employeeID, from, to string) ([]model.Appointment, error)
	// LockEmployeeDay 事务级咨询锁，串行化同一员工同一天的预约写入
	LockEmployeeDay(ctx context.Context, employeeID, date string) error
}

type appointmentRepo struct {
	db *gorm.DB
}

// NewAppointmentRepo 创建 AppointmentRepository 实例
func NewAppointmentRepo(db *gorm.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) Create(ctx context.Context, appt *model.Appointment) error {
	db := r.db.WithContext(ctx)
	// 占用行单独插入：关联保存会带 ON CONFLICT DO NOTHING，排他约束冲突会被静默吞掉
	if err := db.Omit("Employees").Create(appt).Error; err != nil {
		return err
	}
	if len(appt.Employees) == 0 {
		return nil
	}
	for i := range appt.Employees {
		appt.Employees[i].AppointmentID = appt.AppointmentID
	}
	return insertLinks(db, appt.Employees).Error
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Employees").
		Preload("Employees.Employee").
		Where("appointment_id = ?", id).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepo) Update(ctx context.Context, appt *model.Appointment) error {
	db := r.db.WithContext(ctx)
	oldVersion := appt.Version
	result := db.
		Model(&model.Appointment{}).
		Where("appointment_id = ? AND version = ?", appt.AppointmentID, oldVersion).
		Updates(map[string]interface{}{
			"scheduled_date": appt.ScheduledDate,
			"scheduled_time": appt.ScheduledTime,
			"duration":       appt.Duration,
			"end_time":       appt.EndTime,
			"scheduled_at":   appt.ScheduledAt,
			"status":         appt.Status,
			"notes":          appt.Notes,
			"updated_by":     appt.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	appt.Version = oldVersion + 1

	startMinute, endMinute := minuteRange(appt)
	return db.
		Model(&model.AppointmentEmployee{}).
		Where("appointment_id = ?", appt.AppointmentID).
		Updates(map[string]interface{}{
			"scheduled_date": appt.ScheduledDate,
			"start_minute":   startMinute,
			"end_minute":     endMinute,
			"is_active":      model.IsActiveAppointmentStatus(appt.Status),
		}).Error
}

func (r *appointmentRepo) ReplaceEmployees(ctx context.Context, appointmentID string, links []model.AppointmentEmployee) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("appointment_id = ?", appointmentID).Delete(&model.AppointmentEmployee{}).Error; err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		links[i].AppointmentID = appointmentID
	}
	return insertLinks(db, links).Error
}

// insertLinks 写入占用行；非激活状态的预约 is_active=false 必须原样写入，否则仍会占住排他约束
func insertLinks(db *gorm.DB, links []model.AppointmentEmployee) *gorm.DB {
	return db.Omit("Employee").Create(&links)
}

func (r *appointmentRepo) ListActiveByEmployeeAndDate(ctx context.Context, employeeID, date, excludeID string) ([]model.Appointment, error) {
	var appts []model.Appointment
	db := r.db.WithContext(ctx).
		Joins("JOIN appointment_employees ae ON ae.appointment_id = appointments.appointment_id").
		Where("ae.employee_id = ? AND appointments.scheduled_date = ?", employeeID, date).
		Where("appointments.status IN ?", activeAppointmentStatuses)
	if excludeID != "" {
		db = db.Where("appointments.appointment_id <> ?", excludeID)
	}
	err := db.Order("appointments.scheduled_time ASC").Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Employees").
		Preload("Employees.Employee").
		Where("scheduled_date = ?", date).
		Order("scheduled_time ASC, appointment_id ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) ListByEmployeeInRange(ctx context.Context, employeeID, from, to string) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Employees").
		Joins("JOIN appointment_employees ae ON ae.appointment_id = appointments.appointment_id").
		Where("ae.employee_id = ? AND appointments.scheduled_date BETWEEN ? AND ?", employeeID, from, to).
		Order("appointments.scheduled_date ASC, appointments.scheduled_time ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) LockEmployeeDay(ctx context.Context, employeeID, date string) error {
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", employeeID+"|"+date).Error
}

// minuteRange 预约在当天的分钟区间 [start, start+duration)
func minuteRange(appt *model.Appointment) (int, int) {
	start, err := timeutil.ClockToMinutes(appt.ScheduledTime)
	if err != nil {
		return 0, appt.Duration
	}
	return start, start + appt.Duration
}

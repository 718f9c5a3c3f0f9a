package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop-scheduler/backend/internal/model"
)

// RecurringAvailabilityRepository 周排班数据访问接口
type RecurringAvailabilityRepository interface {
	// Upsert 以 (employee_id, day_of_week, start_time) 为键插入或覆盖
	Upsert(ctx context.Context, ra *model.RecurringAvailability) error
	ListByEmployee(ctx context.Context, employeeID string) ([]model.RecurringAvailability, error)
	ListByEmployeeAndDay(ctx context.Context, employeeID string, dayOfWeek int) ([]model.RecurringAvailability, error)
	CountByEmployee(ctx context.Context, employeeID string) (int64, error)
	Delete(ctx context.Context, employeeID string, dayOfWeek int, startTime string) error
}

type recurringAvailabilityRepo struct {
	db *gorm.DB
}

// NewRecurringAvailabilityRepo 创建 RecurringAvailabilityRepository 实例
func NewRecurringAvailabilityRepo(db *gorm.DB) RecurringAvailabilityRepository {
	return &recurringAvailabilityRepo{db: db}
}

func (r *recurringAvailabilityRepo) Upsert(ctx context.Context, ra *model.RecurringAvailability) error {
	return upsertRecurring(r.db.WithContext(ctx), ra).Error
}

// upsertRecurring 冲突时覆盖结束时间与可用标记；is_available=false 必须原样写入
func upsertRecurring(db *gorm.DB, ra *model.RecurringAvailability) *gorm.DB {
	return db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "employee_id"}, {Name: "day_of_week"}, {Name: "start_time"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"end_time", "is_available", "updated_by", "updated_at",
			}),
		}).
		Create(ra)
}

func (r *recurringAvailabilityRepo) ListByEmployee(ctx context.Context, employeeID string) ([]model.RecurringAvailability, error) {
	var rows []model.RecurringAvailability
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("day_of_week ASC, start_time ASC").
		Find(&rows).Error
	return rows, err
}

func (r *recurringAvailabilityRepo) ListByEmployeeAndDay(ctx context.Context, employeeID string, dayOfWeek int) ([]model.RecurringAvailability, error) {
	var rows []model.RecurringAvailability
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND day_of_week = ?", employeeID, dayOfWeek).
		Order("start_time ASC").
		Find(&rows).Error
	return rows, err
}

func (r *recurringAvailabilityRepo) CountByEmployee(ctx context.Context, employeeID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.RecurringAvailability{}).
		Where("employee_id = ?", employeeID).
		Count(&n).Error
	return n, err
}

func (r *recurringAvailabilityRepo) Delete(ctx context.Context, employeeID string, dayOfWeek int, startTime string) error {
	result := r.db.WithContext(ctx).
		Where("employee_id = ? AND day_of_week = ? AND start_time = ?", employeeID, dayOfWeek, startTime).
		Delete(&model.RecurringAvailability{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

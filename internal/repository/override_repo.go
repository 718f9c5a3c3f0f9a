package repository

import (
	"context"

	"gorm.io/gorm"

	"shop-scheduler/backend/internal/model"
)

// TimeSlotOverrideRepository 单日例外数据访问接口
type TimeSlotOverrideRepository interface {
	Create(ctx context.Context, o *model.TimeSlotOverride) error
	GetByID(ctx context.Context, id string) (*model.TimeSlotOverride, error)
	ListByEmployeeAndDate(ctx context.Context, employeeID, date string) ([]model.TimeSlotOverride, error)
	// ListByEmployeeInRange from/to 均为闭区间
	ListByEmployeeInRange(ctx context.Context, employeeID, from, to string) ([]model.TimeSlotOverride, error)
	Delete(ctx context.Context, id string) error
}

type timeSlotOverrideRepo struct {
	db *gorm.DB
}

// NewTimeSlotOverrideRepo 创建 TimeSlotOverrideRepository 实例
func NewTimeSlotOverrideRepo(db *gorm.DB) TimeSlotOverrideRepository {
	return &timeSlotOverrideRepo{db: db}
}

func (r *timeSlotOverrideRepo) Create(ctx context.Context, o *model.TimeSlotOverride) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *timeSlotOverrideRepo) GetByID(ctx context.Context, id string) (*model.TimeSlotOverride, error) {
	var o model.TimeSlotOverride
	err := r.db.WithContext(ctx).Where("override_id = ?", id).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *timeSlotOverrideRepo) ListByEmployeeAndDate(ctx context.Context, employeeID, date string) ([]model.TimeSlotOverride, error) {
	var rows []model.TimeSlotOverride
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND date = ?", employeeID, date).
		Order("start_time ASC").
		Find(&rows).Error
	return rows, err
}

func (r *timeSlotOverrideRepo) ListByEmployeeInRange(ctx context.Context, employeeID, from, to string) ([]model.TimeSlotOverride, error) {
	var rows []model.TimeSlotOverride
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND date BETWEEN ? AND ?", employeeID, from, to).
		Order("date ASC, start_time ASC").
		Find(&rows).Error
	return rows, err
}

func (r *timeSlotOverrideRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("override_id = ?", id).
		Delete(&model.TimeSlotOverride{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"shop-scheduler/backend/internal/model"
	pkgerrors "shop-scheduler/backend/pkg/errors"
)

// UserFilter 用户列表筛选条件，零值表示不限
type UserFilter struct {
	Role    string
	Active  *bool
	Keyword string // 姓名或邮箱模糊匹配
}

// UserRepository 用户（含员工）数据访问
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail 邮箱大小写不敏感
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Update 按 version 乐观锁更新资料、角色与启用状态；版本不符返回 ErrOptimisticLock
	Update(ctx context.Context, user *model.User) error
	List(ctx context.Context, filter UserFilter, offset, limit int) ([]model.User, int64, error)
	// ListSchedulable 所有可被分配预约的在职员工，按姓名排序
	ListSchedulable(ctx context.Context) ([]model.User, error)
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.first(ctx, "user_id = ?", id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *userRepo) first(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	next := user.Version + 1
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ? AND version = ?", user.UserID, user.Version).
		Updates(map[string]interface{}{
			"name":       user.Name,
			"phone":      user.Phone,
			"role":       user.Role,
			"is_active":  user.IsActive,
			"updated_by": user.UpdatedBy,
			"version":    next,
		})
	switch {
	case result.Error != nil:
		return result.Error
	case result.RowsAffected == 0:
		return pkgerrors.ErrOptimisticLock
	}
	user.Version = next
	return nil
}

func (r *userRepo) List(ctx context.Context, filter UserFilter, offset, limit int) ([]model.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := q.Order("name ASC, user_id ASC").Offset(offset).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepo) ListSchedulable(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND role IN ?", true, []string{model.RoleStaff, model.RoleAdmin}).
		Order("name ASC, user_id ASC").
		Find(&users).Error
	return users, err
}

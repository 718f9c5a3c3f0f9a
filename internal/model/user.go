package model

// 用户角色
const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// User 用户表，对应 users；员工即 role 为 staff/admin 的用户
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string  `gorm:"type:varchar(255);not null"                     json:"email"`
	Phone        *string `gorm:"type:varchar(30)"                               json:"phone,omitempty"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'staff'"      json:"role"`
	IsActive     bool    `gorm:"not null"                                       json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsSchedulable 是否可被分配预约
func (u *User) IsSchedulable() bool {
	return u.IsActive && (u.Role == RoleStaff || u.Role == RoleAdmin)
}

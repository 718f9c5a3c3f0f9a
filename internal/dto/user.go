package dto

// ── 用户模块 DTO ──

// CreateUserRequest 管理员创建用户请求
type CreateUserRequest struct {
	Name     string  `json:"name"     binding:"required,min=1,max=100"`
	Email    string  `json:"email"    binding:"required,email"`
	Phone    *string `json:"phone"    binding:"omitempty,max=30"`
	Password string  `json:"password" binding:"required,min=8,max=64"`
	Role     string  `json:"role"     binding:"required,oneof=admin staff customer"`
}

// UpdateUserRequest 管理员修改用户；Version 用于乐观锁，未提供的字段保持不变
type UpdateUserRequest struct {
	Version  int     `json:"version"   binding:"required,min=1"`
	Name     *string `json:"name"      binding:"omitempty,min=1,max=100"`
	Phone    *string `json:"phone"     binding:"omitempty,max=30"`
	Role     *string `json:"role"      binding:"omitempty,oneof=admin staff customer"`
	IsActive *bool   `json:"is_active"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=admin staff customer"`
	Active  *bool  `form:"active"`
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
}

// UserResponse 用户信息（不含密码哈希）
type UserResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone,omitempty"`
	Role     string  `json:"role"`
	IsActive bool    `json:"is_active"`
	Version  int     `json:"version"`
}

// UserDetailResponse GET /auth/me
type UserDetailResponse struct {
	UserResponse
	CreatedAt string `json:"created_at"`
}

// ImportUserResponse 员工批量导入结果
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Created []ImportedUser    `json:"created"`
	Errors  []ImportUserError `json:"errors,omitempty"`
}

// ImportedUser 导入成功的员工及其临时密码（仅本次响应可见）
type ImportedUser struct {
	Row          int    `json:"row"`
	ID           string `json:"id"`
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
}

// ImportUserError 导入失败的行
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

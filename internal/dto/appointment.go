package dto

// ── 预约模块 DTO ──

// CreateAppointmentRequest 创建预约；EmployeeIDs 为空时自动分配
type CreateAppointmentRequest struct {
	CustomerID  string   `json:"customer_id"  binding:"required,uuid"`
	EmployeeIDs []string `json:"employee_ids" binding:"omitempty,dive,uuid"`
	Date        string   `json:"date"         binding:"required,caldate"`
	StartTime   string   `json:"start_time"   binding:"required,hhmm"`
	Duration    int      `json:"duration"     binding:"required"`
	Notes       *string  `json:"notes"        binding:"omitempty,max=2000"`
}

// UpdateAppointmentRequest 更新预约；Version 用于乐观锁
type UpdateAppointmentRequest struct {
	Version     int       `json:"version"      binding:"required,min=1"`
	EmployeeIDs *[]string `json:"employee_ids" binding:"omitempty,dive,uuid"`
	Date        *string   `json:"date"         binding:"omitempty,caldate"`
	StartTime   *string   `json:"start_time"   binding:"omitempty,hhmm"`
	Duration    *int      `json:"duration"`
	Status      *string   `json:"status"       binding:"omitempty,oneof=SCHEDULED CONFIRMED IN_PROGRESS COMPLETED CANCELLED NO_SHOW"`
	Notes       *string   `json:"notes"        binding:"omitempty,max=2000"`
}

// AppointmentListQuery 按营业日列出预约；Date 为空时取营业时区的今天
type AppointmentListQuery struct {
	Date string `form:"date" binding:"omitempty,caldate"`
}

// DateRangeQuery 日期区间查询参数
type DateRangeQuery struct {
	From string `form:"from" binding:"required,caldate"`
	To   string `form:"to"   binding:"required,caldate"`
}

// AppointmentResponse 预约信息
type AppointmentResponse struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	Employees   []EmployeeBrief `json:"employees"`
	Date        string          `json:"date"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	Duration    int             `json:"duration"`
	ScheduledAt string          `json:"scheduled_at"`
	Status      string          `json:"status"`
	Notes       *string         `json:"notes,omitempty"`
	Version     int             `json:"version"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// ConflictResponse 冲突详情，随 409 返回
type ConflictResponse struct {
	EmployeeID string `json:"employee_id,omitempty"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion,omitempty"`
}

package dto

// ── 排班管理 DTO ──

// UpsertRecurringRequest 设置周排班窗口；同一 (星期, 开始时间) 重复提交会覆盖
type UpsertRecurringRequest struct {
	DayOfWeek   *int   `json:"day_of_week"  binding:"required,min=0,max=6"`
	StartTime   string `json:"start_time"   binding:"required,hhmm"`
	EndTime     string `json:"end_time"     binding:"required,hhmm"`
	IsAvailable *bool  `json:"is_available"`
}

// RecurringResponse 周排班窗口
type RecurringResponse struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employee_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
	UpdatedAt   string `json:"updated_at"`
}

// WeeklyScheduleResponse 员工一周排班
type WeeklyScheduleResponse struct {
	Employee EmployeeBrief       `json:"employee"`
	Windows  []RecurringResponse `json:"windows"`
}

// CreateOverrideRequest 创建单日例外
type CreateOverrideRequest struct {
	Date        string  `json:"date"         binding:"required,caldate"`
	StartTime   string  `json:"start_time"   binding:"required,hhmm"`
	EndTime     string  `json:"end_time"     binding:"required,hhmm"`
	IsAvailable bool    `json:"is_available"`
	Reason      *string `json:"reason"       binding:"omitempty,max=200"`
}

// OverrideListQuery 例外列表查询参数
type OverrideListQuery struct {
	From string `form:"from" binding:"required,caldate"`
	To   string `form:"to"   binding:"required,caldate"`
}

// OverrideResponse 单日例外
type OverrideResponse struct {
	ID          string  `json:"id"`
	EmployeeID  string  `json:"employee_id"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	IsAvailable bool    `json:"is_available"`
	Reason      *string `json:"reason,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

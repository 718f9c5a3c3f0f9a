package model

import "time"

// 预约状态
const (
	AppointmentStatusScheduled  = "SCHEDULED"
	AppointmentStatusConfirmed  = "CONFIRMED"
	AppointmentStatusInProgress = "IN_PROGRESS"
	AppointmentStatusCompleted  = "COMPLETED"
	AppointmentStatusCancelled  = "CANCELLED"
	AppointmentStatusNoShow     = "NO_SHOW"
)

// IsActiveAppointmentStatus 该状态是否占用员工时间
func IsActiveAppointmentStatus(status string) bool {
	switch status {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusInProgress:
		return true
	}
	return false
}

// IsValidAppointmentStatus 是否为已知状态
func IsValidAppointmentStatus(status string) bool {
	switch status {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusInProgress,
		AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// Appointment 预约表，对应 appointments
type Appointment struct {
	AppointmentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"appointment_id"`
	CustomerID    string    `gorm:"type:uuid;not null"                             json:"customer_id"`
	ScheduledDate Date      `gorm:"type:date;not null"                             json:"scheduled_date"`
	ScheduledTime string    `gorm:"type:varchar(5);not null"                       json:"scheduled_time"`
	Duration      int       `gorm:"not null"                                       json:"duration"` // 分钟
	EndTime       string    `gorm:"type:varchar(5);not null"                       json:"end_time"`
	ScheduledAt   time.Time `gorm:"not null"                                       json:"scheduled_at"` // UTC 时间戳
	Status        string    `gorm:"type:varchar(20);not null;default:'SCHEDULED'"  json:"status"`
	Notes         *string   `gorm:"type:text"                                      json:"notes,omitempty"`
	VersionedModel

	// 关联
	Employees []AppointmentEmployee `gorm:"foreignKey:AppointmentID;references:AppointmentID" json:"employees,omitempty"`
}

// TableName 指定表名
func (Appointment) TableName() string { return "appointments" }

// EmployeeIDs 分配到该预约的员工 ID
func (a *Appointment) EmployeeIDs() []string {
	ids := make([]string, 0, len(a.Employees))
	for _, e := range a.Employees {
		ids = append(ids, e.EmployeeID)
	}
	return ids
}

// AppointmentEmployee 预约-员工占用表，对应 appointment_employees
// 冗余日期与分钟区间，供数据库排他约束判定重叠
type AppointmentEmployee struct {
	AppointmentID string `gorm:"type:uuid;primaryKey"   json:"appointment_id"`
	EmployeeID    string `gorm:"type:uuid;primaryKey"   json:"employee_id"`
	ScheduledDate Date   `gorm:"type:date;not null"     json:"scheduled_date"`
	StartMinute   int    `gorm:"type:smallint;not null" json:"start_minute"`
	EndMinute     int    `gorm:"type:smallint;not null" json:"end_minute"`
	IsActive      bool   `gorm:"not null"               json:"is_active"`

	// 关联
	Employee *User `gorm:"foreignKey:EmployeeID;references:UserID" json:"employee,omitempty"`
}

// TableName 指定表名
func (AppointmentEmployee) TableName() string { return "appointment_employees" }

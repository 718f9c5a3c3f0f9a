package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shop-scheduler/backend/internal/dto"
	"shop-scheduler/backend/internal/service"
	"shop-scheduler/backend/pkg/response"
)

// ── 错误码分段 ──
// 10xxx 通用 | 11xxx 认证 | 12xxx 用户 | 13xxx 可用性 | 14xxx 排班 | 15xxx 预约 | 16xxx 导出

func badBinding(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
}

// handleInputError 处理各模块共用的输入类错误，已写响应时返回 true
func handleInputError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 13003, "日期格式无效")
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 13004, "时间范围无效")
	case errors.Is(err, service.ErrInvalidDuration):
		response.BadRequest(c, 13005, "预约时长超出允许范围")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.ErrorWithDetails(c, http.StatusBadRequest, 13006, "日期区间无效", err.Error())
	case errors.Is(err, service.ErrEmployeeNotFound):
		response.NotFound(c, 13001, "员工不存在")
	case errors.Is(err, service.ErrEmployeeNotSchedulable):
		response.BadRequest(c, 13002, "该用户不是可排班员工")
	default:
		return false
	}
	return true
}

// writeConflict 409，data 携带冲突员工、原因与建议
func writeConflict(c *gin.Context, code int, message string, err error) {
	var ce *service.ConflictError
	if errors.As(err, &ce) {
		response.Conflict(c, code, message, dto.ConflictResponse{
			EmployeeID: ce.EmployeeID,
			Reason:     ce.Reason,
			Suggestion: ce.Suggestion,
		})
		return
	}
	response.Conflict(c, code, message, dto.ConflictResponse{Reason: err.Error()})
}

package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"shop-scheduler/backend/internal/dto"
	"shop-scheduler/backend/internal/service"
	"shop-scheduler/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportDay 导出某营业日的预约明细（Excel）；date 为空时取今天
// GET /api/v1/export/day?date=
func (h *ExportHandler) ExportDay(c *gin.Context) {
	var q dto.AppointmentListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportDaySchedule(c.Request.Context(), q.Date)
	if err != nil {
		handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

// ExportCalendar 员工预约日历订阅（iCalendar）
// GET /api/v1/employees/:id/calendar.ics?from=&to=
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	var q dto.DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportEmployeeCalendar(c.Request.Context(), c.Param("id"), q.From, q.To)
	if err != nil {
		handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeICS, buf.Bytes())
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}

func handleExportError(c *gin.Context, err error) {
	if handleInputError(c, err) {
		return
	}
	if errors.Is(err, service.ErrExportGenerateFail) {
		response.Error(c, http.StatusInternalServerError, 16101, "生成导出文件失败")
		return
	}
	response.InternalError(c)
}

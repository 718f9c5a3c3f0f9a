package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"shop-scheduler/backend/internal/model"
	"shop-scheduler/backend/internal/repository"
	"shop-scheduler/backend/pkg/timeutil"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// ExportService 导出业务接口
//
// 导出结果以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportDaySchedule 导出某营业日的预约明细为 Excel，每个 (预约, 员工) 占一行
	ExportDaySchedule(ctx context.Context, date string) (*bytes.Buffer, string, error)
	// ExportEmployeeCalendar 导出员工在区间内的预约为 iCalendar 订阅源
	ExportEmployeeCalendar(ctx context.Context, employeeID, from, to string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo     *repository.Repository
	engine   *availabilityEngine
	calendar *timeutil.BusinessCalendar
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, calendar *timeutil.BusinessCalendar, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, engine: &availabilityEngine{}, calendar: calendar, logger: logger}
}

var statusNames = map[string]string{
	model.AppointmentStatusScheduled:  "已预约",
	model.AppointmentStatusConfirmed:  "已确认",
	model.AppointmentStatusInProgress: "进行中",
	model.AppointmentStatusCompleted:  "已完成",
	model.AppointmentStatusCancelled:  "已取消",
	model.AppointmentStatusNoShow:     "未到店",
}

// ═══════════════════════════════════════════════════════════
// ExportDaySchedule 当日预约明细 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：营业日 + 时区
//   - 表头：员工 | 开始 | 结束 | 时长(分钟) | 状态 | 客户 | 备注 | 预约编号
//   - 数据行按员工姓名、开始时间排序

func (s *exportService) ExportDaySchedule(ctx context.Context, date string) (*bytes.Buffer, string, error) {
	if date == "" {
		date = s.calendar.Today()
	}
	d, err := timeutil.NormalizeDate(date)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	appts, err := s.repo.Appointment.ListByDate(ctx, d)
	if err != nil {
		s.logger.Error("按日期查询预约失败", zap.String("date", d), zap.Error(err))
		return nil, "", err
	}

	type dayRow struct {
		employee string
		appt     *model.Appointment
	}
	var rows []dayRow
	for i := range appts {
		a := &appts[i]
		for _, link := range a.Employees {
			name := link.EmployeeID
			if link.Employee != nil {
				name = link.Employee.Name
			}
			rows = append(rows, dayRow{employee: name, appt: a})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].employee != rows[j].employee {
			return rows[i].employee < rows[j].employee
		}
		return rows[i].appt.ScheduledTime < rows[j].appt.ScheduledTime
	})

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "当日预约"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"员工", "开始", "结束", "时长(分钟)", "状态", "客户", "备注", "预约编号"}
	widths := []float64{16, 8, 8, 12, 10, 38, 30, 38}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 预约明细（%s）", d, s.calendar.Location().String()))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for _, r := range rows {
		a := r.appt
		notes := ""
		if a.Notes != nil {
			notes = *a.Notes
		}
		status := statusNames[a.Status]
		if status == "" {
			status = a.Status
		}
		values := []interface{}{r.employee, a.ScheduledTime, a.EndTime, a.Duration, status, a.CustomerID, notes, a.AppointmentID}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		row++
	}
	if len(rows) == 0 {
		f.SetCellValue(sheetName, "A3", "当日暂无预约")
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("预约明细_%s.xlsx", d), nil
}

// ═══════════════════════════════════════════════════════════
// ExportEmployeeCalendar 员工预约 iCalendar
// ═══════════════════════════════════════════════════════════
//
// DTSTART/DTEND 由营业时区的日期与时刻换算为 UTC 写入；已取消的预约标记为 CANCELLED，
// 订阅端据此移除已同步的事件。

func (s *exportService) ExportEmployeeCalendar(ctx context.Context, employeeID, from, to string) (*bytes.Buffer, string, error) {
	f, t, err := normalizeRange(from, to)
	if err != nil {
		return nil, "", err
	}
	emp, err := s.engine.loadEmployee(ctx, s.repo, employeeID)
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("查询员工失败", zap.Error(err))
		}
		return nil, "", err
	}

	appts, err := s.repo.Appointment.ListByEmployeeInRange(ctx, employeeID, f, t)
	if err != nil {
		s.logger.Error("查询员工预约失败", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//shop-scheduler//appointments//ZH")
	cal.SetXWRCalName(emp.Name + " 的预约")
	cal.SetXWRTimezone(s.calendar.Location().String())

	stamp := time.Now().UTC()
	for i := range appts {
		a := &appts[i]
		start, err := s.calendar.Instant(string(a.ScheduledDate), a.ScheduledTime)
		if err != nil {
			s.logger.Warn("跳过时间无效的预约", zap.String("appointment_id", a.AppointmentID), zap.Error(err))
			continue
		}
		end := start.Add(time.Duration(a.Duration) * time.Minute)

		event := cal.AddEvent(a.AppointmentID + "@shop-scheduler")
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(calendarSummary(a))
		if a.Notes != nil && *a.Notes != "" {
			event.SetDescription(*a.Notes)
		}
		if a.Status == model.AppointmentStatusCancelled {
			event.SetStatus(ics.ObjectStatusCancelled)
		} else {
			event.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("appointments_%s_%s_%s.ics", employeeID, f, t), nil
}

// ── 辅助函数 ──

func calendarSummary(a *model.Appointment) string {
	var b strings.Builder
	b.WriteString("预约 ")
	b.WriteString(a.ScheduledTime)
	b.WriteString("-")
	b.WriteString(a.EndTime)
	if name, ok := statusNames[a.Status]; ok && a.Status != model.AppointmentStatusScheduled {
		b.WriteString("（" + name + "）")
	}
	return b.String()
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

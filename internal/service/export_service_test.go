package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"shop-scheduler/backend/internal/model"
)

func setupTestExportService() (ExportService, *mockStore) {
	store := newMockStore()
	store.addEmployee("emp-a", "Alice")
	store.addEmployee("emp-b", "Bob")
	return NewExportService(store.repo, newTestCalendar(), zap.NewNop()), store
}

// ── ExportDaySchedule 测试 ──

func TestExportDaySchedule_OneRowPerEmployee(t *testing.T) {
	svc, store := setupTestExportService()
	shared := store.addAppointment("emp-b", testMonday, "10:00", 60, model.AppointmentStatusConfirmed)
	stored := store.appts.appts[shared.AppointmentID]
	stored.Employees = append(stored.Employees, model.AppointmentEmployee{
		AppointmentID: shared.AppointmentID, EmployeeID: "emp-a", ScheduledDate: model.Date(testMonday), IsActive: true,
	})
	store.addAppointment("emp-a", testMonday, "09:00", 30, model.AppointmentStatusScheduled)

	buf, filename, err := svc.ExportDaySchedule(context.Background(), testMonday)
	if err != nil {
		t.Fatalf("ExportDaySchedule 失败: %v", err)
	}
	if filename != "预约明细_2026-10-19.xlsx" {
		t.Errorf("文件名不正确: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法读取导出的 Excel: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("当日预约")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	// 标题 + 表头 + 3 行数据（共享预约为每位员工各占一行）
	if len(rows) != 5 {
		t.Fatalf("期望 5 行，实际 %d: %v", len(rows), rows)
	}
	if rows[1][0] != "员工" {
		t.Errorf("表头不正确: %v", rows[1])
	}
	if rows[2][0] != "Alice" || rows[2][1] != "09:00" || rows[3][1] != "10:00" || rows[4][0] != "Bob" {
		t.Errorf("应按员工、开始时间排序: %v", rows[2:])
	}
	if rows[3][4] != "已确认" {
		t.Errorf("状态应显示中文名称，实际 %s", rows[3][4])
	}
}

func TestExportDaySchedule_InvalidDate(t *testing.T) {
	svc, _ := setupTestExportService()
	if _, _, err := svc.ExportDaySchedule(context.Background(), "tomorrow"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际: %v", err)
	}
}

// ── ExportEmployeeCalendar 测试 ──

func TestExportEmployeeCalendar(t *testing.T) {
	svc, store := setupTestExportService()
	store.addAppointment("emp-a", testMonday, "09:00", 60, model.AppointmentStatusScheduled)
	store.addAppointment("emp-a", "2026-11-02", "09:00", 30, model.AppointmentStatusCancelled)
	store.addAppointment("emp-b", testMonday, "09:00", 60, model.AppointmentStatusScheduled)

	buf, filename, err := svc.ExportEmployeeCalendar(context.Background(), "emp-a", "2026-10-01", "2026-11-30")
	if err != nil {
		t.Fatalf("ExportEmployeeCalendar 失败: %v", err)
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾: %s", filename)
	}

	body := buf.String()
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 2 {
		t.Fatalf("期望 2 个事件，实际 %d", n)
	}
	// 10-19 为夏令时（UTC-4），11-02 已切回标准时（UTC-5）
	for _, want := range []string{"DTSTART:20261019T130000Z", "DTEND:20261019T140000Z", "DTSTART:20261102T140000Z", "STATUS:CANCELLED"} {
		if !strings.Contains(body, want) {
			t.Errorf("日历中缺少 %s", want)
		}
	}
}

func TestExportEmployeeCalendar_Errors(t *testing.T) {
	svc, _ := setupTestExportService()

	if _, _, err := svc.ExportEmployeeCalendar(context.Background(), "nobody", "2026-10-01", "2026-10-31"); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("期望 ErrEmployeeNotFound，实际: %v", err)
	}
	if _, _, err := svc.ExportEmployeeCalendar(context.Background(), "emp-a", "2026-10-31", "2026-10-01"); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("期望 ErrInvalidDateRange，实际: %v", err)
	}
}

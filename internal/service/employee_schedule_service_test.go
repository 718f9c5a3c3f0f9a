package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"shop-scheduler/backend/internal/dto"
	"shop-scheduler/backend/internal/model"
)

func setupTestSchedule() (EmployeeScheduleService, *mockStore) {
	store := newMockStore()
	store.addEmployee(testEmployee, "Alice")
	svc := NewEmployeeScheduleService(store.repo, newTestCalendar(), zap.NewNop())
	return svc, store
}

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

// ── 周排班 ──

func TestUpsertRecurring_Idempotent(t *testing.T) {
	svc, store := setupTestSchedule()
	req := &dto.UpsertRecurringRequest{DayOfWeek: intPtr(1), StartTime: "09:00", EndTime: "17:00"}

	first, err := svc.UpsertRecurring(context.Background(), testEmployee, req, "admin-1")
	if err != nil {
		t.Fatalf("UpsertRecurring 失败: %v", err)
	}
	if !first.IsAvailable {
		t.Error("未指定 is_available 时默认可用")
	}

	req.EndTime = "18:00"
	second, err := svc.UpsertRecurring(context.Background(), testEmployee, req, "admin-1")
	if err != nil {
		t.Fatalf("重复 UpsertRecurring 失败: %v", err)
	}
	if second.ID != first.ID || second.EndTime != "18:00" {
		t.Errorf("同键重复提交应覆盖原记录，实际 first=%+v second=%+v", first, second)
	}
	if len(store.recurring.rows) != 1 {
		t.Errorf("期望 1 行周排班，实际 %d", len(store.recurring.rows))
	}
}

func TestUpsertRecurring_Validation(t *testing.T) {
	svc, _ := setupTestSchedule()

	tests := []struct {
		name     string
		employee string
		req      *dto.UpsertRecurringRequest
		want     error
	}{
		{"星期越界", testEmployee, &dto.UpsertRecurringRequest{DayOfWeek: intPtr(7), StartTime: "09:00", EndTime: "17:00"}, ErrInvalidDayOfWeek},
		{"缺少星期", testEmployee, &dto.UpsertRecurringRequest{StartTime: "09:00", EndTime: "17:00"}, ErrInvalidDayOfWeek},
		{"起止颠倒", testEmployee, &dto.UpsertRecurringRequest{DayOfWeek: intPtr(1), StartTime: "17:00", EndTime: "09:00"}, ErrInvalidTimeRange},
		{"起止相同", testEmployee, &dto.UpsertRecurringRequest{DayOfWeek: intPtr(1), StartTime: "09:00", EndTime: "09:00"}, ErrInvalidTimeRange},
		{"格式错误", testEmployee, &dto.UpsertRecurringRequest{DayOfWeek: intPtr(1), StartTime: "9am", EndTime: "17:00"}, ErrInvalidTimeRange},
		{"员工不存在", "nobody", &dto.UpsertRecurringRequest{DayOfWeek: intPtr(1), StartTime: "09:00", EndTime: "17:00"}, ErrEmployeeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertRecurring(context.Background(), tt.employee, tt.req, "admin-1")
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestGetWeekly(t *testing.T) {
	svc, store := setupTestSchedule()
	store.addWindow(testEmployee, 3, "13:00", "17:00")
	store.addWindow(testEmployee, 1, "09:00", "12:00")
	_, _ = svc.UpsertRecurring(context.Background(), testEmployee,
		&dto.UpsertRecurringRequest{DayOfWeek: intPtr(1), StartTime: "13:00", EndTime: "18:00", IsAvailable: boolPtr(false)}, "admin-1")

	weekly, err := svc.GetWeekly(context.Background(), testEmployee)
	if err != nil {
		t.Fatalf("GetWeekly 失败: %v", err)
	}
	if weekly.Employee.Name != "Alice" || len(weekly.Windows) != 3 {
		t.Fatalf("周排班不正确: %+v", weekly)
	}
	if weekly.Windows[0].StartTime != "09:00" || weekly.Windows[2].DayOfWeek != 3 {
		t.Errorf("应按星期、开始时间排序: %+v", weekly.Windows)
	}
}

func TestDeleteRecurring(t *testing.T) {
	svc, store := setupTestSchedule()
	store.addWindow(testEmployee, 1, "09:00", "17:00")

	if err := svc.DeleteRecurring(context.Background(), testEmployee, 1, "09:00"); err != nil {
		t.Fatalf("DeleteRecurring 失败: %v", err)
	}
	if err := svc.DeleteRecurring(context.Background(), testEmployee, 1, "09:00"); !errors.Is(err, ErrRecurringNotFound) {
		t.Errorf("期望 ErrRecurringNotFound，实际: %v", err)
	}
	if err := svc.DeleteRecurring(context.Background(), testEmployee, 9, "09:00"); !errors.Is(err, ErrInvalidDayOfWeek) {
		t.Errorf("期望 ErrInvalidDayOfWeek，实际: %v", err)
	}
}

// ── 单日例外 ──

func TestOverrides_CreateListDelete(t *testing.T) {
	svc, _ := setupTestSchedule()
	reason := "外出培训"

	created, err := svc.CreateOverride(context.Background(), testEmployee, &dto.CreateOverrideRequest{
		Date: testMonday, StartTime: "13:00", EndTime: "15:00", Reason: &reason,
	}, "admin-1")
	if err != nil {
		t.Fatalf("CreateOverride 失败: %v", err)
	}
	if created.IsAvailable || created.Date != testMonday {
		t.Errorf("创建结果不正确: %+v", created)
	}
	_, _ = svc.CreateOverride(context.Background(), testEmployee, &dto.CreateOverrideRequest{
		Date: "2026-11-20", StartTime: "09:00", EndTime: "10:00", IsAvailable: true,
	}, "admin-1")

	list, err := svc.ListOverrides(context.Background(), testEmployee, "2026-10-01", "2026-10-31")
	if err != nil {
		t.Fatalf("ListOverrides 失败: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("区间内期望 1 条例外，实际 %+v", list)
	}

	if err := svc.DeleteOverride(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteOverride 失败: %v", err)
	}
	if err := svc.DeleteOverride(context.Background(), created.ID); !errors.Is(err, ErrOverrideNotFound) {
		t.Errorf("期望 ErrOverrideNotFound，实际: %v", err)
	}
}

func TestCreateOverride_Validation(t *testing.T) {
	svc, _ := setupTestSchedule()

	_, err := svc.CreateOverride(context.Background(), testEmployee, &dto.CreateOverrideRequest{
		Date: "2026-13-01", StartTime: "09:00", EndTime: "10:00",
	}, "admin-1")
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际: %v", err)
	}
	_, err = svc.CreateOverride(context.Background(), testEmployee, &dto.CreateOverrideRequest{
		Date: testMonday, StartTime: "10:00", EndTime: "09:00",
	}, "admin-1")
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("期望 ErrInvalidTimeRange，实际: %v", err)
	}
	if _, err := svc.ListOverrides(context.Background(), testEmployee, "2026-10-31", "2026-10-01"); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("期望 ErrInvalidDateRange，实际: %v", err)
	}
}

func TestListEmployees_OnlySchedulable(t *testing.T) {
	svc, store := setupTestSchedule()
	store.addEmployee("emp-b", "Bob")
	store.users.users["cust-1"] = &model.User{UserID: "cust-1", Name: "顾客", Role: model.RoleCustomer, IsActive: true}
	gone := store.addEmployee("emp-c", "Carol")
	gone.IsActive = false

	list, err := svc.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("ListEmployees 失败: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Alice" || list[1].Name != "Bob" {
		t.Errorf("期望 Alice、Bob，实际 %+v", list)
	}
}

// ── ICS 导入 ──

func icsBody(events ...string) string {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//leave//EN"}
	for _, e := range events {
		lines = append(lines, strings.Split(e, "\n")...)
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

func TestImportOverridesICS(t *testing.T) {
	svc, store := setupTestSchedule()
	store.addWindow(testEmployee, 1, "09:00", "17:00")

	body := icsBody(
		"BEGIN:VEVENT\nUID:a\nDTSTART:20261019T160000Z\nDTEND:20261019T180000Z\nSUMMARY:看牙医\nEND:VEVENT",
		"BEGIN:VEVENT\nUID:b\nDTSTART;VALUE=DATE:20261021\nDTEND;VALUE=DATE:20261022\nSUMMARY:年假\nEND:VEVENT",
	)
	created, err := svc.ImportOverridesICS(context.Background(), testEmployee, strings.NewReader(body), "admin-1")
	if err != nil {
		t.Fatalf("ImportOverridesICS 失败: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("期望导入 2 条例外，实际 %+v", created)
	}
	// 16:00Z 在纽约为 12:00（夏令时）
	if created[0].Date != testMonday || created[0].StartTime != "12:00" || created[0].EndTime != "14:00" {
		t.Errorf("定时事件换算不正确: %+v", created[0])
	}
	if created[1].StartTime != "00:00" || created[1].EndTime != "23:59" || *created[1].Reason != "年假" {
		t.Errorf("全天事件应封锁整天: %+v", created[1])
	}

	// 导入的封锁立刻影响可用性判定
	avail := NewAvailabilityService(newTestConfig(), store.repo, zap.NewNop())
	d, err := avail.IsAvailable(context.Background(), testEmployee, testMonday, "12:30", 30, "")
	if err != nil || d.Available || d.Suggestion != "看牙医" {
		t.Errorf("期望 12:30 被导入的请假封锁，实际 %+v err=%v", d, err)
	}
}

func TestImportOverridesICS_Invalid(t *testing.T) {
	svc, store := setupTestSchedule()

	if _, err := svc.ImportOverridesICS(context.Background(), testEmployee, strings.NewReader(icsBody()), "admin-1"); !errors.Is(err, ErrICSInvalid) {
		t.Errorf("无事件期望 ErrICSInvalid，实际: %v", err)
	}
	if _, err := svc.ImportOverridesICS(context.Background(), "nobody", strings.NewReader(icsBody()), "admin-1"); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("期望 ErrEmployeeNotFound，实际: %v", err)
	}

	store.overrides.failAfter = 2
	body := icsBody(
		"BEGIN:VEVENT\nUID:a\nDTSTART;VALUE=DATE:20261019\nDTEND;VALUE=DATE:20261021\nSUMMARY:出差\nEND:VEVENT",
	)
	if _, err := svc.ImportOverridesICS(context.Background(), testEmployee, strings.NewReader(body), "admin-1"); err == nil {
		t.Error("写入失败时应返回错误")
	}
}

func TestParseBlackoutICS_WeeklyRuleAndMidnightSplit(t *testing.T) {
	loc := newTestCalendar().Location()
	body := icsBody(
		"BEGIN:VEVENT\nUID:weekly\nDTSTART;TZID=America/New_York:20261019T090000\nDTEND;TZID=America/New_York:20261019T100000\n"+
			"RRULE:FREQ=WEEKLY;COUNT=3\nEXDATE;TZID=America/New_York:20261026T090000\nSUMMARY:例会\nEND:VEVENT",
		"BEGIN:VEVENT\nUID:late\nDTSTART;TZID=America/New_York:20261019T220000\nDTEND;TZID=America/New_York:20261020T020000\nEND:VEVENT",
	)

	windows, err := parseBlackoutICS(strings.NewReader(body), loc)
	if err != nil {
		t.Fatalf("parseBlackoutICS 失败: %v", err)
	}

	want := []blackoutWindow{
		{Date: "2026-10-19", StartTime: "09:00", EndTime: "10:00", Reason: "例会"},
		// 11-01 夏令时结束后仍为当地 09:00
		{Date: "2026-11-02", StartTime: "09:00", EndTime: "10:00", Reason: "例会"},
		{Date: "2026-10-19", StartTime: "22:00", EndTime: "23:59", Reason: icsDefaultReason},
		{Date: "2026-10-20", StartTime: "00:00", EndTime: "02:00", Reason: icsDefaultReason},
	}
	if len(windows) != len(want) {
		t.Fatalf("期望 %d 个窗口，实际 %d: %+v", len(want), len(windows), windows)
	}
	for i := range want {
		if windows[i] != want[i] {
			t.Errorf("第 %d 个窗口期望 %+v，实际 %+v", i, want[i], windows[i])
		}
	}
}

func TestParseBlackoutICS_DateUntilInclusiveAndExDateTZID(t *testing.T) {
	loc := newTestCalendar().Location()
	// 上海 10-27 08:00 即纽约 10-26 20:00
	body := icsBody(
		"BEGIN:VEVENT\nUID:evening\nDTSTART;TZID=America/New_York:20261019T200000\nDTEND;TZID=America/New_York:20261019T210000\n" +
			"RRULE:FREQ=WEEKLY;UNTIL=20261102\nEXDATE;TZID=Asia/Shanghai:20261027T080000\nSUMMARY:夜班培训\nEND:VEVENT",
	)

	windows, err := parseBlackoutICS(strings.NewReader(body), loc)
	if err != nil {
		t.Fatalf("parseBlackoutICS 失败: %v", err)
	}

	want := []blackoutWindow{
		{Date: "2026-10-19", StartTime: "20:00", EndTime: "21:00", Reason: "夜班培训"},
		// UNTIL 当天晚上的场次也要展开
		{Date: "2026-11-02", StartTime: "20:00", EndTime: "21:00", Reason: "夜班培训"},
	}
	if len(windows) != len(want) {
		t.Fatalf("期望 %d 个窗口，实际 %d: %+v", len(want), len(windows), windows)
	}
	for i := range want {
		if windows[i] != want[i] {
			t.Errorf("第 %d 个窗口期望 %+v，实际 %+v", i, want[i], windows[i])
		}
	}
}

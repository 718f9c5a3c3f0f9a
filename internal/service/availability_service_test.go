package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"shop-scheduler/backend/internal/dto"
	"shop-scheduler/backend/internal/model"
)

func slotQuery(employeeID string, duration int) *dto.SlotQuery {
	return &dto.SlotQuery{Date: testMonday, Duration: duration, EmployeeID: employeeID}
}

func countAvailable(slots []dto.SlotResponse) int {
	n := 0
	for _, s := range slots {
		if s.Available {
			n++
		}
	}
	return n
}

// ── CheckSlots 测试 ──

func TestCheckSlots_GridAndConflicts(t *testing.T) {
	svc, store := setupTestAvailability()
	store.addEmployee(testEmployee, "Alice")
	store.addWindow(testEmployee, 1, "09:00", "11:00")
	store.addAppointment(testEmployee, testMonday, "09:30", 30, model.AppointmentStatusScheduled)

	slots, err := svc.CheckSlots(context.Background(), slotQuery(testEmployee, 60))
	if err != nil {
		t.Fatalf("CheckSlots 失败: %v", err)
	}

	want := []struct {
		start     string
		available bool
	}{
		{"09:00", false}, {"09:15", false}, {"09:30", false}, {"09:45", false}, {"10:00", true},
	}
	if len(slots) != len(want) {
		t.Fatalf("期望 %d 个候选时段，实际 %d: %+v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if slots[i].StartTime != w.start || slots[i].Available != w.available {
			t.Errorf("第 %d 个时段期望 %s/%v，实际 %s/%v", i, w.start, w.available, slots[i].StartTime, slots[i].Available)
		}
	}
	if slots[4].EndTime != "11:00" || slots[4].EmployeeName != "Alice" {
		t.Errorf("末个时段信息不正确: %+v", slots[4])
	}
}

// 每个时段的结果必须与单次判定一致
func TestCheckSlots_ConsistentWithIsAvailable(t *testing.T) {
	svc, store := setupTestAvailability()
	store.addEmployee(testEmployee, "Alice")
	store.addWindow(testEmployee, 1, "08:00", "12:00")
	store.addWindow(testEmployee, 1, "13:00", "18:00")
	store.addOverride(testEmployee, testMonday, "15:00", "15:45", false, "培训")
	store.addOverride(testEmployee, testMonday, "18:00", "19:30", true, "")
	store.addAppointment(testEmployee, testMonday, "10:15", 45, model.AppointmentStatusConfirmed)
	store.addAppointment(testEmployee, testMonday, "13:00", 30, model.AppointmentStatusCancelled)

	for _, duration := range []int{15, 30, 45, 90} {
		slots, err := svc.CheckSlots(context.Background(), slotQuery(testEmployee, duration))
		if err != nil {
			t.Fatalf("CheckSlots(%d) 失败: %v", duration, err)
		}
		if len(slots) == 0 {
			t.Fatalf("时长 %d 没有候选时段", duration)
		}
		for _, s := range slots {
			d := mustDecide(t, svc, s.StartTime, duration, "")
			if d.Available != s.Available {
				t.Errorf("时长 %d 的 %s：网格=%v 单次判定=%v（%s）", duration, s.StartTime, s.Available, d.Available, d.Reason)
			}
		}
	}
}

func TestCheckSlots_FallbackWindow(t *testing.T) {
	svc, store := setupTestAvailability()
	store.addEmployee(testEmployee, "Alice")

	slots, err := svc.CheckSlots(context.Background(), slotQuery(testEmployee, 60))
	if err != nil {
		t.Fatalf("CheckSlots 失败: %v", err)
	}
	// 09:00-17:00 内 60 分钟候选：09:00 … 16:00，共 29 个
	if len(slots) != 29 {
		t.Fatalf("期望默认窗口产生 29 个候选时段，实际 %d", len(slots))
	}
	if countAvailable(slots) != 0 {
		t.Error("没有周排班时，默认窗口只用于展示，不应可预约")
	}
}

func TestCheckSlots_FallbackWithOverride(t *testing.T) {
	svc, store := setupTestAvailability()
	store.addEmployee(testEmployee, "Alice")
	store.addOverride(testEmployee, testMonday, "10:00", "12:00", true, "")

	slots, err := svc.CheckSlots(context.Background(), slotQuery(testEmployee, 60))
	if err != nil {
		t.Fatalf("CheckSlots 失败: %v", err)
	}
	// 10:00、10:15、10:30、10:45、11:00
	if got := countAvailable(slots); got != 5 {
		t.Errorf("期望加班例外内 5 个可预约时段，实际 %d", got)
	}
}

func TestCheckSlots_NoFallbackWhenScheduledOtherDays(t *testing.T) {
	svc, store := setupTestAvailability()
	store.addEmployee(testEmployee, "Alice")
	store.addWindow(testEmployee, 3, "09:00", "17:00")

	slots, err := svc.CheckSlots(context.Background(), slotQuery(testEmployee, 60))
	if err != nil {
		t.Fatalf("CheckSlots 失败: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("有周排班但当天不上班，期望无候选时段，实际 %d", len(slots))
	}
}

func TestCheckSlots_FallbackDisabled(t *testing.T) {
	store := newMockStore()
	cfg := newTestConfig()
	cfg.Business.FallbackWindowEnabled = false
	svc := NewAvailabilityService(cfg, store.repo, zap.NewNop())
	store.addEmployee(testEmployee, "Alice")

	slots, err := svc.CheckSlots(context.Background(), slotQuery(testEmployee, 60))
	if err != nil {
		t.Fatalf("CheckSlots 失败: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("关闭默认窗口后期望无候选时段，实际 %d", len(slots))
	}
}

func TestCheckSlots_AllEmployeesInRosterOrder(t *testing.T) {
	svc, store := setupTestAvailability()
	store.addEmployee("emp-b", "Bob")
	store.addEmployee("emp-a", "Alice")
	store.addWindow("emp-a", 1, "09:00", "10:00")
	store.addWindow("emp-b", 1, "09:00", "10:00")
	store.users.users["cust-1"] = &model.User{UserID: "cust-1", Name: "Aaron", Role: model.RoleCustomer, IsActive: true}

	slots, err := svc.CheckSlots(context.Background(), slotQuery("", 30))
	if err != nil {
		t.Fatalf("CheckSlots 失败: %v", err)
	}
	// 每人 09:00、09:15、09:30
	if len(slots) != 6 {
		t.Fatalf("期望 6 个候选时段，实际 %d", len(slots))
	}
	if slots[0].EmployeeName != "Alice" || slots[5].EmployeeName != "Bob" {
		t.Errorf("应按名册顺序输出，实际首尾: %s / %s", slots[0].EmployeeName, slots[5].EmployeeName)
	}
}

func TestCheckSlots_NonSchedulableReturnsEmpty(t *testing.T) {
	svc, store := setupTestAvailability()
	store.users.users["cust-1"] = &model.User{UserID: "cust-1", Name: "顾客", Role: model.RoleCustomer, IsActive: true}

	slots, err := svc.CheckSlots(context.Background(), slotQuery("cust-1", 30))
	if err != nil {
		t.Fatalf("非员工应返回空列表而非错误: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("期望空列表，实际 %d", len(slots))
	}
}

func TestCheckSlots_InvalidInput(t *testing.T) {
	svc, store := setupTestAvailability()
	store.addEmployee(testEmployee, "Alice")

	if _, err := svc.CheckSlots(context.Background(), &dto.SlotQuery{Date: "19-10-2026", Duration: 60}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际: %v", err)
	}
	if _, err := svc.CheckSlots(context.Background(), slotQuery(testEmployee, 0)); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("期望 ErrInvalidDuration，实际: %v", err)
	}
	if _, err := svc.CheckSlots(context.Background(), slotQuery("nobody", 30)); !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("期望 ErrEmployeeNotFound，实际: %v", err)
	}
}

func TestCheckEmployee(t *testing.T) {
	svc, store := setupTestAvailability()
	store.addEmployee(testEmployee, "Alice")
	store.addWindow(testEmployee, 1, "09:00", "17:00")

	resp, err := svc.CheckEmployee(context.Background(), &dto.CheckQuery{
		EmployeeID: testEmployee, Date: testMonday, StartTime: "18:00", Duration: 30,
	})
	if err != nil {
		t.Fatalf("CheckEmployee 失败: %v", err)
	}
	if resp.Available || resp.Reason == "" || resp.Suggestion == "" {
		t.Errorf("期望不可用并附带原因与建议，实际: %+v", resp)
	}
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"shop-scheduler/backend/internal/model"
	"shop-scheduler/backend/internal/repository"
	pkgerrors "shop-scheduler/backend/pkg/errors"
	"shop-scheduler/backend/pkg/timeutil"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	if user.Version == 0 {
		user.Version = 1
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// Update 与仓储实现一致：版本号不匹配时返回乐观锁错误
func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	stored, ok := m.users[user.UserID]
	if !ok || stored.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	user.Version++
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) List(_ context.Context, f repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	kw := strings.ToLower(f.Keyword)
	all := m.sorted(func(u *model.User) bool {
		return (f.Role == "" || u.Role == f.Role) &&
			(f.Active == nil || u.IsActive == *f.Active) &&
			(kw == "" || strings.Contains(strings.ToLower(u.Name), kw) || strings.Contains(strings.ToLower(u.Email), kw))
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) ListSchedulable(_ context.Context) ([]model.User, error) {
	return m.sorted(func(u *model.User) bool { return u.IsSchedulable() }), nil
}

func (m *mockUserRepo) sorted(keep func(*model.User) bool) []model.User {
	var result []model.User
	for _, u := range m.users {
		if keep(u) {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].UserID < result[j].UserID
	})
	return result
}

// ── Mock RecurringAvailabilityRepository ──

type mockRecurringRepo struct {
	rows map[string]*model.RecurringAvailability // key: employee|dow|start
	seq  int
}

func newMockRecurringRepo() *mockRecurringRepo {
	return &mockRecurringRepo{rows: make(map[string]*model.RecurringAvailability)}
}

func recurringKey(employeeID string, dow int, start string) string {
	return fmt.Sprintf("%s|%d|%s", employeeID, dow, start)
}

func (m *mockRecurringRepo) Upsert(_ context.Context, ra *model.RecurringAvailability) error {
	key := recurringKey(ra.EmployeeID, ra.DayOfWeek, ra.StartTime)
	if existing, ok := m.rows[key]; ok {
		existing.EndTime = ra.EndTime
		existing.IsAvailable = ra.IsAvailable
		existing.UpdatedBy = ra.UpdatedBy
		*ra = *existing
		return nil
	}
	m.seq++
	ra.RecurringAvailabilityID = fmt.Sprintf("ra-%d", m.seq)
	cp := *ra
	m.rows[key] = &cp
	return nil
}

func (m *mockRecurringRepo) ListByEmployee(_ context.Context, employeeID string) ([]model.RecurringAvailability, error) {
	return m.filter(func(ra *model.RecurringAvailability) bool { return ra.EmployeeID == employeeID }), nil
}

func (m *mockRecurringRepo) ListByEmployeeAndDay(_ context.Context, employeeID string, dayOfWeek int) ([]model.RecurringAvailability, error) {
	return m.filter(func(ra *model.RecurringAvailability) bool {
		return ra.EmployeeID == employeeID && ra.DayOfWeek == dayOfWeek
	}), nil
}

func (m *mockRecurringRepo) CountByEmployee(_ context.Context, employeeID string) (int64, error) {
	rows := m.filter(func(ra *model.RecurringAvailability) bool { return ra.EmployeeID == employeeID })
	return int64(len(rows)), nil
}

func (m *mockRecurringRepo) Delete(_ context.Context, employeeID string, dayOfWeek int, startTime string) error {
	key := recurringKey(employeeID, dayOfWeek, startTime)
	if _, ok := m.rows[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, key)
	return nil
}

func (m *mockRecurringRepo) filter(keep func(*model.RecurringAvailability) bool) []model.RecurringAvailability {
	var result []model.RecurringAvailability
	for _, ra := range m.rows {
		if keep(ra) {
			result = append(result, *ra)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result
}

// ── Mock TimeSlotOverrideRepository ──

type mockOverrideRepo struct {
	rows      map[string]*model.TimeSlotOverride
	seq       int
	failAfter int // >0 时第 failAfter 次 Create 返回错误
	creates   int
}

func newMockOverrideRepo() *mockOverrideRepo {
	return &mockOverrideRepo{rows: make(map[string]*model.TimeSlotOverride)}
}

func (m *mockOverrideRepo) Create(_ context.Context, o *model.TimeSlotOverride) error {
	m.creates++
	if m.failAfter > 0 && m.creates == m.failAfter {
		return fmt.Errorf("模拟写入失败")
	}
	m.seq++
	o.OverrideID = fmt.Sprintf("ov-%d", m.seq)
	cp := *o
	m.rows[o.OverrideID] = &cp
	return nil
}

func (m *mockOverrideRepo) GetByID(_ context.Context, id string) (*model.TimeSlotOverride, error) {
	if o, ok := m.rows[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOverrideRepo) ListByEmployeeAndDate(_ context.Context, employeeID, date string) ([]model.TimeSlotOverride, error) {
	return m.ListByEmployeeInRange(context.Background(), employeeID, date, date)
}

func (m *mockOverrideRepo) ListByEmployeeInRange(_ context.Context, employeeID, from, to string) ([]model.TimeSlotOverride, error) {
	var result []model.TimeSlotOverride
	for _, o := range m.rows {
		d := string(o.Date)
		if o.EmployeeID == employeeID && d >= from && d <= to {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (m *mockOverrideRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, id)
	return nil
}

// ── Mock AppointmentRepository ──

type mockAppointmentRepo struct {
	appts      map[string]*model.Appointment
	users      *mockUserRepo
	seq        int
	createErrs []error // 依次在 Create 时返回，用于模拟提交阶段被并发中止
	creates    int
	locks      []string
}

func newMockAppointmentRepo(users *mockUserRepo) *mockAppointmentRepo {
	return &mockAppointmentRepo{appts: make(map[string]*model.Appointment), users: users}
}

func (m *mockAppointmentRepo) Create(_ context.Context, appt *model.Appointment) error {
	m.creates++
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		return err
	}
	m.seq++
	appt.AppointmentID = fmt.Sprintf("appt-%d", m.seq)
	appt.Version = 1
	for i := range appt.Employees {
		appt.Employees[i].AppointmentID = appt.AppointmentID
	}
	m.appts[appt.AppointmentID] = m.clone(appt)
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	if a, ok := m.appts[id]; ok {
		return m.withEmployees(m.clone(a)), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppointmentRepo) Update(_ context.Context, appt *model.Appointment) error {
	stored, ok := m.appts[appt.AppointmentID]
	if !ok || stored.Version != appt.Version {
		return pkgerrors.ErrOptimisticLock
	}
	appt.Version++
	links := stored.Employees
	next := m.clone(appt)
	next.Employees = make([]model.AppointmentEmployee, len(links))
	for i, l := range links {
		l.ScheduledDate = appt.ScheduledDate
		l.IsActive = model.IsActiveAppointmentStatus(appt.Status)
		l.Employee = nil
		next.Employees[i] = l
	}
	m.appts[appt.AppointmentID] = next
	return nil
}

func (m *mockAppointmentRepo) ReplaceEmployees(_ context.Context, appointmentID string, links []model.AppointmentEmployee) error {
	stored, ok := m.appts[appointmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Employees = make([]model.AppointmentEmployee, len(links))
	for i, l := range links {
		l.AppointmentID = appointmentID
		stored.Employees[i] = l
	}
	return nil
}

func (m *mockAppointmentRepo) ListActiveByEmployeeAndDate(_ context.Context, employeeID, date, excludeID string) ([]model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool {
		return a.AppointmentID != excludeID &&
			string(a.ScheduledDate) == date &&
			model.IsActiveAppointmentStatus(a.Status) &&
			hasEmployee(a, employeeID)
	}), nil
}

func (m *mockAppointmentRepo) ListByDate(_ context.Context, date string) ([]model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool { return string(a.ScheduledDate) == date }), nil
}

func (m *mockAppointmentRepo) ListByEmployeeInRange(_ context.Context, employeeID, from, to string) ([]model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool {
		d := string(a.ScheduledDate)
		return d >= from && d <= to && hasEmployee(a, employeeID)
	}), nil
}

func (m *mockAppointmentRepo) LockEmployeeDay(_ context.Context, employeeID, date string) error {
	m.locks = append(m.locks, employeeID+"|"+date)
	return nil
}

func (m *mockAppointmentRepo) filter(keep func(*model.Appointment) bool) []model.Appointment {
	var result []model.Appointment
	for _, a := range m.appts {
		if keep(a) {
			result = append(result, *m.withEmployees(m.clone(a)))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ScheduledDate != result[j].ScheduledDate {
			return result[i].ScheduledDate < result[j].ScheduledDate
		}
		return result[i].ScheduledTime < result[j].ScheduledTime
	})
	return result
}

func (m *mockAppointmentRepo) clone(a *model.Appointment) *model.Appointment {
	cp := *a
	cp.Employees = append([]model.AppointmentEmployee(nil), a.Employees...)
	return &cp
}

// withEmployees 模拟 Preload("Employees.Employee")
func (m *mockAppointmentRepo) withEmployees(a *model.Appointment) *model.Appointment {
	if m.users == nil {
		return a
	}
	for i := range a.Employees {
		if u, ok := m.users.users[a.Employees[i].EmployeeID]; ok {
			a.Employees[i].Employee = u
		}
	}
	return a
}

func hasEmployee(a *model.Appointment, employeeID string) bool {
	for _, e := range a.Employees {
		if e.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

// ── 测试辅助 ──

type mockStore struct {
	users     *mockUserRepo
	recurring *mockRecurringRepo
	overrides *mockOverrideRepo
	appts     *mockAppointmentRepo
	repo      *repository.Repository
}

func newMockStore() *mockStore {
	users := newMockUserRepo()
	s := &mockStore{
		users:     users,
		recurring: newMockRecurringRepo(),
		overrides: newMockOverrideRepo(),
		appts:     newMockAppointmentRepo(users),
	}
	s.repo = &repository.Repository{
		User:        s.users,
		Recurring:   s.recurring,
		Override:    s.overrides,
		Appointment: s.appts,
	}
	return s
}

func (s *mockStore) addEmployee(id, name string) *model.User {
	u := &model.User{UserID: id, Name: name, Email: id + "@shop.test", Role: model.RoleStaff, IsActive: true}
	u.Version = 1
	s.users.users[id] = u
	return u
}

func (s *mockStore) addWindow(employeeID string, dow int, start, end string) {
	_ = s.recurring.Upsert(context.Background(), &model.RecurringAvailability{
		EmployeeID: employeeID, DayOfWeek: dow, StartTime: start, EndTime: end, IsAvailable: true,
	})
}

func (s *mockStore) addOverride(employeeID, date, start, end string, available bool, reason string) {
	o := &model.TimeSlotOverride{
		EmployeeID: employeeID, Date: model.Date(date), StartTime: start, EndTime: end, IsAvailable: available,
	}
	if reason != "" {
		o.Reason = &reason
	}
	_ = s.overrides.Create(context.Background(), o)
}

func (s *mockStore) addAppointment(employeeID, date, start string, duration int, status string) *model.Appointment {
	end, _ := timeutil.AddMinutes(start, duration)
	a := &model.Appointment{
		CustomerID:    "cust-1",
		ScheduledDate: model.Date(date),
		ScheduledTime: start,
		Duration:      duration,
		EndTime:       end,
		Status:        status,
		Employees:     []model.AppointmentEmployee{{EmployeeID: employeeID, ScheduledDate: model.Date(date), IsActive: true}},
	}
	_ = s.appts.Create(context.Background(), a)
	return a
}

package timeutil

import (
	"fmt"
	"time"
)

// BusinessCalendar 固定营业时区下的日历。
// 数据库与服务器均以 UTC 存储时间戳；"今天"与"某个时刻属于哪个营业日"必须经由这里换算，
// 晚间预约的 UTC 时间戳可能已经落在下一个 UTC 日历日。
type BusinessCalendar struct {
	loc *time.Location
	now func() time.Time
}

// NewBusinessCalendar 按 IANA 时区名创建营业日历
func NewBusinessCalendar(timezone string) (*BusinessCalendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("加载营业时区 %q 失败: %w", timezone, err)
	}
	return NewBusinessCalendarIn(loc, nil), nil
}

// NewBusinessCalendarIn 使用指定时区与时钟创建营业日历，now 为 nil 时使用 time.Now
func NewBusinessCalendarIn(loc *time.Location, now func() time.Time) *BusinessCalendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &BusinessCalendar{loc: loc, now: now}
}

// Location 营业时区
func (c *BusinessCalendar) Location() *time.Location { return c.loc }

// ToBusinessDate UTC 时刻 → 营业时区下的日历日期
func (c *BusinessCalendar) ToBusinessDate(instant time.Time) string {
	return instant.In(c.loc).Format(DateLayout)
}

// Today 营业时区下的今天
func (c *BusinessCalendar) Today() string {
	return c.ToBusinessDate(c.now())
}

// Instant 营业日 date 的 clock 时刻 → UTC 时间戳
func (c *BusinessCalendar) Instant(date, clock string) (time.Time, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	minutes, err := ClockToMinutes(clock)
	if err != nil {
		return time.Time{}, err
	}
	local := time.Date(d.Year(), d.Month(), d.Day(), minutes/60, minutes%60, 0, 0, c.loc)
	return local.UTC(), nil
}


// Package timeutil 营业时间运算：
// 时刻统一使用零填充 24 小时制 "HH:MM" 字符串，零填充保证字典序即时间先后顺序；
// 日历日期统一使用 "YYYY-MM-DD"。
package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

// DateLayout 日历日期格式
const DateLayout = "2006-01-02"

var (
	ErrInvalidClock = errors.New("时间格式无效，应为 HH:MM")
	ErrInvalidDate  = errors.New("日期格式无效，应为 YYYY-MM-DD")
)

// IsClock 判断是否为合法的零填充 "HH:MM"
func IsClock(s string) bool {
	_, err := ClockToMinutes(s)
	return err == nil
}

// ClockToMinutes "HH:MM" → 当日分钟数
func ClockToMinutes(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	digits := [4]byte{s[0], s[1], s[3], s[4]}
	for _, d := range digits {
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

// MinutesToClock 分钟数 → "HH:MM"，超出一天的部分按 1440 取模
func MinutesToClock(minutes int) string {
	m := ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AddMinutes 时刻加分钟，跨过 24:00 时回绕：AddMinutes("23:50", 20) == "00:10"
func AddMinutes(clock string, minutes int) (string, error) {
	start, err := ClockToMinutes(clock)
	if err != nil {
		return "", err
	}
	return MinutesToClock(start + minutes), nil
}

// CrossesMidnight 请求 [clock, clock+minutes) 是否越过当日 24:00
func CrossesMidnight(clock string, minutes int) bool {
	start, err := ClockToMinutes(clock)
	if err != nil {
		return false
	}
	return start+minutes >= MinutesPerDay
}

// WithinWindow 请求区间 [reqStart, reqStart+duration) 是否完整落在窗口 [winStart, winEnd] 内。
// 这是包含关系而非重叠：请求必须被单个窗口完整覆盖，即使两个窗口首尾相接也不能跨越。
func WithinWindow(reqStart string, duration int, winStart, winEnd string) bool {
	if duration <= 0 || !IsClock(winStart) || !IsClock(winEnd) {
		return false
	}
	if !IsClock(reqStart) || CrossesMidnight(reqStart, duration) {
		return false
	}
	reqEnd, _ := AddMinutes(reqStart, duration)
	return reqStart >= winStart && reqEnd <= winEnd
}

// RangesOverlap 两个时段是否冲突：s1 < e2 且 e1 > s2。
// 首尾相接（e1 == s2 或 e2 == s1）是合法的连续预约，不视为冲突。
func RangesOverlap(s1, e1, s2, e2 string) bool {
	if backToBack(s1, e1, s2, e2) {
		return false
	}
	return s1 < e2 && e1 > s2
}

// backToBack 业务规则：一个时段结束的时刻恰好是另一个的开始
func backToBack(s1, e1, s2, e2 string) bool {
	return e1 == s2 || e2 == s1
}

// NormalizeDate 将调用方传入的日历日期规整为 "YYYY-MM-DD"。
// 只截掉时刻部分，不做任何时区换算：调用方选择的就是日历日期。
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(DateLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if len(s) > len(DateLayout) && s[10] != 'T' && s[10] != ' ' {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	date := s[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return date, nil
}

// DayOfWeek 日历日期对应的星期（0=周日 … 6=周六），与时区无关
func DayOfWeek(date string) (int, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return int(t.Weekday()), nil
}

// AddDays 日历日期加减天数
func AddDays(date string, days int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t.AddDate(0, 0, days).Format(DateLayout), nil
}

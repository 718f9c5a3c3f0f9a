package service

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

// ── ICS 请假导入 ──────────────────────────────────────────────
//
// 将员工的 iCalendar (RFC 5545) 请假/外出日历解析为封锁窗口：
//   - DTSTART/DTEND 换算到营业时区后按营业日切分
//   - 全天事件（VALUE=DATE）整天封锁，即 00:00-23:59
//   - 仅展开 FREQ=WEEKLY 的 RRULE（rrule-go 展开，EXDATE 按营业日剔除），其余重复规则只取首次
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize    = 2 * 1024 * 1024
	icsMaxWindows     = 500
	icsMaxOccurrences = 104
	icsMaxEventDays   = 31
	icsDefaultReason  = "日历导入"
)

// blackoutWindow ICS 解析出的单日封锁窗口
type blackoutWindow struct {
	Date      string
	StartTime string
	EndTime   string
	Reason    string
}

// parseBlackoutICS 解析 ICS 内容为按营业日切分的封锁窗口
func parseBlackoutICS(reader io.Reader, loc *time.Location) ([]blackoutWindow, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSInvalid, err)
	}

	var out []blackoutWindow
	for _, evt := range cal.Events() {
		windows, ok := parseBlackoutEvent(evt, loc)
		if !ok {
			continue
		}
		out = append(out, windows...)
		if len(out) > icsMaxWindows {
			return nil, ErrICSTooLarge
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: 没有可导入的事件", ErrICSInvalid)
	}
	return out, nil
}

// parseBlackoutEvent 解析单个 VEVENT
func parseBlackoutEvent(evt *ics.VEvent, loc *time.Location) ([]blackoutWindow, bool) {
	reason := icsDefaultReason
	if summary := evt.GetProperty(ics.ComponentPropertySummary); summary != nil && strings.TrimSpace(summary.Value) != "" {
		reason = strings.TrimSpace(summary.Value)
	}
	if len([]rune(reason)) > 200 {
		reason = string([]rune(reason)[:200])
	}

	dtStart, allDay, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return nil, false
	}
	dtEnd, _, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		// 缺少 DTEND：全天事件默认一天，定时事件默认一小时
		if allDay {
			dtEnd = dtStart.AddDate(0, 0, 1)
		} else {
			dtEnd = dtStart.Add(time.Hour)
		}
	}
	if !dtEnd.After(dtStart) {
		return nil, false
	}
	span := dtEnd.Sub(dtStart)

	var out []blackoutWindow
	for _, occ := range occurrences(evt, dtStart, loc) {
		out = append(out, splitByBusinessDay(occ, occ.Add(span), loc, reason)...)
	}
	return out, len(out) > 0
}

// splitByBusinessDay 将 [start, end) 按营业日切分，跨日部分在当天以 23:59 收尾
func splitByBusinessDay(start, end time.Time, loc *time.Location, reason string) []blackoutWindow {
	var out []blackoutWindow
	cur := start.In(loc)
	end = end.In(loc)
	for n := 0; cur.Before(end) && n < icsMaxEventDays; n++ {
		dayStart := time.Date(cur.Year(), cur.Month(), cur.Day(), 0, 0, 0, 0, loc)
		nextDay := dayStart.AddDate(0, 0, 1)

		startClock := cur.Format("15:04")
		endClock := "23:59"
		if end.Before(nextDay) {
			endClock = end.Format("15:04")
		}
		if startClock < endClock {
			out = append(out, blackoutWindow{
				Date:      dayStart.Format("2006-01-02"),
				StartTime: startClock,
				EndTime:   endClock,
				Reason:    reason,
			})
		}
		cur = nextDay
	}
	return out
}

// occurrences 事件的所有开始时刻
func occurrences(evt *ics.VEvent, dtStart time.Time, loc *time.Location) []time.Time {
	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		return []time.Time{dtStart}
	}

	opt, err := rrule.StrToROptionInLocation(rruleProp.Value, loc)
	if err != nil || opt.Freq != rrule.WEEKLY {
		return []time.Time{dtStart}
	}
	opt.Dtstart = dtStart
	if untilIsDate(rruleProp.Value) {
		// UNTIL 为日期时包含当天全部时刻
		opt.Until = time.Date(opt.Until.Year(), opt.Until.Month(), opt.Until.Day(), 23, 59, 59, 0, loc)
	}
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return []time.Time{dtStart}
	}

	exDates := parseExDates(evt, loc)
	var out []time.Time
	next := rule.Iterator()
	for n := 0; n < icsMaxOccurrences; n++ {
		occ, ok := next()
		if !ok {
			break
		}
		if !exDates[occ.In(loc).Format("20060102")] {
			out = append(out, occ)
		}
	}
	return out
}

// untilIsDate RRULE 的 UNTIL 是否为 VALUE=DATE 形式（YYYYMMDD）
func untilIsDate(value string) bool {
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "UNTIL") {
			return !strings.Contains(kv[1], "T")
		}
	}
	return false
}

// parseExDates 解析事件中所有 EXDATE，键为营业时区下的 "20060102"
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		tzid := tzidParam(prop.ICalParameters)
		for _, v := range strings.Split(prop.Value, ",") {
			if t, _, err := parseICSValue(v, tzid, loc); err == nil {
				exDates[t.Format("20060102")] = true
			}
		}
	}
	return exDates
}

func tzidParam(params map[string][]string) string {
	for k, v := range params {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，返回营业时区时刻与是否全天
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", propName)
	}

	return parseICSValue(prop.Value, tzidParam(prop.ICalParameters), loc)
}

func parseICSValue(val, tzid string, loc *time.Location) (time.Time, bool, error) {
	val = strings.TrimSpace(val)
	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), false, nil
	}
	if t, err := time.Parse("20060102T150405", val); err == nil {
		src := loc
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				src = tzLoc
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, src).In(loc), false, nil
	}
	if t, err := time.Parse("20060102", val); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}

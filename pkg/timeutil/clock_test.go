package timeutil

import (
	"errors"
	"testing"
)

func TestAddMinutes(t *testing.T) {
	tests := []struct {
		clock   string
		minutes int
		want    string
	}{
		{"09:00", 60, "10:00"},
		{"09:45", 30, "10:15"},
		{"23:50", 20, "00:10"},
		{"00:00", 1440, "00:00"},
		{"10:00", -30, "09:30"},
	}
	for _, tt := range tests {
		got, err := AddMinutes(tt.clock, tt.minutes)
		if err != nil {
			t.Fatalf("AddMinutes(%q, %d) 返回错误: %v", tt.clock, tt.minutes, err)
		}
		if got != tt.want {
			t.Errorf("AddMinutes(%q, %d) = %q, 期望 %q", tt.clock, tt.minutes, got, tt.want)
		}
	}
}

func TestAddMinutes_InvalidClock(t *testing.T) {
	for _, in := range []string{"9:00", "24:00", "12:60", "ab:cd", "", "12-30"} {
		if _, err := AddMinutes(in, 15); !errors.Is(err, ErrInvalidClock) {
			t.Errorf("AddMinutes(%q) 期望 ErrInvalidClock, 实际 %v", in, err)
		}
	}
}

func TestWithinWindow(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		duration int
		winStart string
		winEnd   string
		want     bool
	}{
		{"完整落在窗口内", "10:00", 60, "09:00", "17:00", true},
		{"恰好贴住窗口两端", "09:00", 480, "09:00", "17:00", true},
		{"结束超出窗口", "16:30", 60, "09:00", "17:00", false},
		{"开始早于窗口", "08:45", 30, "09:00", "17:00", false},
		{"跨越午夜", "23:50", 20, "00:00", "23:59", false},
		{"时长为零", "10:00", 0, "09:00", "17:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinWindow(tt.start, tt.duration, tt.winStart, tt.winEnd); got != tt.want {
				t.Errorf("WithinWindow = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

func TestWithinWindow_AdjacentWindowsAreNotMerged(t *testing.T) {
	// 09:00-12:00 与 12:00-17:00 首尾相接，但 11:30 开始的 60 分钟请求不被任何单个窗口包含
	if WithinWindow("11:30", 60, "09:00", "12:00") || WithinWindow("11:30", 60, "12:00", "17:00") {
		t.Fatal("跨越两个相邻窗口的请求不应视为被包含")
	}
}

func TestRangesOverlap(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 string
		want           bool
	}{
		{"部分重叠", "09:00", "10:00", "09:30", "10:30", true},
		{"完全包含", "09:00", "12:00", "10:00", "11:00", true},
		{"首尾相接", "09:00", "10:00", "10:00", "11:00", false},
		{"反向首尾相接", "10:00", "11:00", "09:00", "10:00", false},
		{"完全分离", "09:00", "10:00", "13:00", "14:00", false},
		{"相同区间", "09:00", "10:00", "09:00", "10:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RangesOverlap(tt.s1, tt.e1, tt.s2, tt.e2); got != tt.want {
				t.Errorf("RangesOverlap = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := map[string]string{
		"2026-10-15":                "2026-10-15",
		" 2026-10-15 ":              "2026-10-15",
		"2026-10-15T23:30:00-04:00": "2026-10-15",
		"2026-10-15T01:30:00Z":      "2026-10-15",
	}
	for in, want := range tests {
		got, err := NormalizeDate(in)
		if err != nil {
			t.Fatalf("NormalizeDate(%q) 返回错误: %v", in, err)
		}
		if got != want {
			t.Errorf("NormalizeDate(%q) = %q, 期望 %q", in, got, want)
		}
	}

	for _, in := range []string{"", "2026-13-01", "15/10/2026", "2026-10-15X"} {
		if _, err := NormalizeDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("NormalizeDate(%q) 期望 ErrInvalidDate, 实际 %v", in, err)
		}
	}
}

func TestDayOfWeek(t *testing.T) {
	// 2026-10-18 是周日
	got, err := DayOfWeek("2026-10-18")
	if err != nil || got != 0 {
		t.Fatalf("DayOfWeek = %d, %v, 期望 0", got, err)
	}
	got, _ = DayOfWeek("2026-10-15")
	if got != 4 {
		t.Fatalf("DayOfWeek(2026-10-15) = %d, 期望 4", got)
	}
}

package model

import (
	"testing"
	"time"
)

func TestDate_ScanTimeUsesUTCCalendarDay(t *testing.T) {
	// 驱动返回的 DATE 是 UTC 零点，换成西五区也不能退到前一天
	loc := time.FixedZone("EST", -5*3600)
	src := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC).In(loc)

	var d Date
	if err := d.Scan(src); err != nil {
		t.Fatalf("Scan 返回错误: %v", err)
	}
	if d != "2026-10-15" {
		t.Fatalf("Scan = %q, 期望 2026-10-15", d)
	}
}

func TestDate_ScanText(t *testing.T) {
	var d Date
	if err := d.Scan([]byte("2026-10-15")); err != nil || d != "2026-10-15" {
		t.Fatalf("Scan([]byte) = %q, %v", d, err)
	}
	if err := d.Scan("2026-10-16T00:00:00Z"); err != nil || d != "2026-10-16" {
		t.Fatalf("Scan(string) = %q, %v", d, err)
	}
	if err := d.Scan("oops"); err == nil {
		t.Fatal("期望无效日期报错")
	}
	if err := d.Scan(42); err == nil {
		t.Fatal("期望不支持的类型报错")
	}
}

func TestDate_Value(t *testing.T) {
	v, err := Date("2026-10-15").Value()
	if err != nil || v != "2026-10-15" {
		t.Fatalf("Value = %v, %v", v, err)
	}
	v, _ = Date("").Value()
	if v != nil {
		t.Fatalf("空日期应写入 NULL, 实际 %v", v)
	}
}

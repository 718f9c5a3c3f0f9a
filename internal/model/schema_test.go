package model

import (
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

// 带 default 标签的 bool 字段在 Create 时会把显式的 false 替换成默认值
func TestBoolFlags_HaveNoTagDefault(t *testing.T) {
	cases := []struct {
		model  interface{}
		column string
	}{
		{&User{}, "is_active"},
		{&RecurringAvailability{}, "is_available"},
		{&TimeSlotOverride{}, "is_available"},
		{&AppointmentEmployee{}, "is_active"},
	}
	cache := &sync.Map{}
	for _, tc := range cases {
		s, err := schema.Parse(tc.model, cache, schema.NamingStrategy{})
		if err != nil {
			t.Fatalf("解析 %T 失败: %v", tc.model, err)
		}
		f := s.LookUpField(tc.column)
		if f == nil {
			t.Fatalf("%s 缺少列 %s", s.Table, tc.column)
		}
		if f.HasDefaultValue {
			t.Errorf("%s.%s 不应带 gorm default 标签（默认值 %q）", s.Table, tc.column, f.DefaultValue)
		}
	}
}

// Package validate 向 gin 的 binding 引擎注册业务相关的校验标签
package validate

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"shop-scheduler/backend/pkg/timeutil"
)

// Register 注册 hhmm（HH:MM 时刻）与 caldate（YYYY-MM-DD 日历日期，允许带时刻后缀）两个标签
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("binding 引擎不是 validator/v10")
	}
	return RegisterOn(v)
}

// RegisterOn 在指定的 validator 实例上注册，供非 gin 场景复用
func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("hhmm", isClock); err != nil {
		return fmt.Errorf("注册 hhmm 校验失败: %w", err)
	}
	if err := v.RegisterValidation("caldate", isCalendarDate); err != nil {
		return fmt.Errorf("注册 caldate 校验失败: %w", err)
	}
	return nil
}

func isClock(fl validator.FieldLevel) bool {
	return timeutil.IsClock(fl.Field().String())
}

func isCalendarDate(fl validator.FieldLevel) bool {
	_, err := timeutil.NormalizeDate(fl.Field().String())
	return err == nil
}

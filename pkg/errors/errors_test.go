package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassifiers(t *testing.T) {
	wrapped := fmt.Errorf("插入失败: %w", &pgconn.PgError{Code: "23P01"})
	if !IsExclusionViolation(wrapped) {
		t.Error("期望识别包装后的 23P01")
	}
	if IsRetryableTx(wrapped) {
		t.Error("23P01 不应被视为可重试事务错误")
	}
	if !IsRetryableTx(&pgconn.PgError{Code: "40001"}) {
		t.Error("期望 40001 可重试")
	}
	if !IsRetryableTx(&pgconn.PgError{Code: "40P01"}) {
		t.Error("期望 40P01 可重试")
	}
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("期望识别 23505")
	}
	if IsExclusionViolation(errors.New("普通错误")) {
		t.Error("普通错误不应被识别为排他约束冲突")
	}
}

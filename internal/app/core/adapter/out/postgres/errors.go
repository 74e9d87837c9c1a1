package postgres

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// PostgreSQL SQLSTATE
// 參考: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUniqueViolation      pq.ErrorCode = "23505"
	codeForeignKeyViolation  pq.ErrorCode = "23503"
	codeCheckViolation       pq.ErrorCode = "23514"
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"
	codeLockNotAvailable     pq.ErrorCode = "55P03"
	codeQueryCanceled        pq.ErrorCode = "57014"
	codeTooManyConnections   pq.ErrorCode = "53300"
	codeAdminShutdown        pq.ErrorCode = "57P01"
	codeNumericOutOfRange    pq.ErrorCode = "22003"
)

// classify 將 database/sql 與 lib/pq 錯誤轉為 domain 錯誤
//
// 參數:
//
//	err: 驅動回傳的錯誤
//	notFound: sql.ErrNoRows 時回傳的 domain 錯誤，nil 代表不轉換
func classify(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case codeLockNotAvailable:
			return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
		case codeDeadlockDetected, codeSerializationFailure, codeQueryCanceled,
			codeTooManyConnections, codeAdminShutdown:
			return domain.Transient(err)
		case codeUniqueViolation:
			return fmt.Errorf("%w: %w", domain.ErrDuplicate, err)
		case codeForeignKeyViolation:
			return fmt.Errorf("referenced row %w: %w", domain.ErrNotFound, err)
		case codeCheckViolation:
			return fmt.Errorf("%w: %w", domain.ErrInvalidOperation, err)
		case codeNumericOutOfRange:
			return fmt.Errorf("%w: %w", domain.ErrInvalidAmount, err)
		}
		// 08xxx connection exception
		if pe.Code.Class() == "08" {
			return domain.Transient(err)
		}
	}
	if errors.Is(err, sqldriver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return domain.Transient(err)
	}
	return fmt.Errorf("postgres: %w", err)
}

// isForeignKeyViolation 刪除時的外鍵衝突代表仍被參照
func isForeignKeyViolation(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == codeForeignKeyViolation
}

// execRequiredRows 執行寫入並要求恰好影響一列
func execRequiredRows(ctx context.Context, exec interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, notFound error, query string, args ...any) error {
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return notFound
	}
	return nil
}

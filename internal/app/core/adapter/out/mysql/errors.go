package mysql

import (
	"context"
	sqldriver "database/sql/driver"
	"errors"
	"fmt"

	driver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// MySQL 錯誤碼
// 參考: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errTooManyConnections = 1040
	errDuplicateEntry     = 1062
	errLockWaitTimeout    = 1205
	errDeadlock           = 1213
	errRowIsReferenced    = 1451
	errNoReferencedRow    = 1452
	errQueryInterrupted   = 1317
	errOutOfRange         = 1264
)

// classify 將驅動錯誤轉為 domain 錯誤
//
// 參數:
//
//	err: gorm / driver 回傳的錯誤
//	notFound: 查無資料時要回傳的 domain 錯誤，nil 代表不轉換
//
// 回傳:
//
//	error: domain 錯誤 (保留原始錯誤鏈)
func classify(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var me *driver.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errLockWaitTimeout:
			return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
		case errDeadlock, errTooManyConnections, errQueryInterrupted:
			return domain.Transient(err)
		case errDuplicateEntry:
			return fmt.Errorf("%w: %w", domain.ErrDuplicate, err)
		case errRowIsReferenced:
			return fmt.Errorf("%w: %w", domain.ErrAccountInUse, err)
		case errNoReferencedRow:
			return fmt.Errorf("referenced row %w: %w", domain.ErrNotFound, err)
		case errOutOfRange:
			return fmt.Errorf("%w: %w", domain.ErrInvalidAmount, err)
		}
	}
	if errors.Is(err, driver.ErrInvalidConn) || errors.Is(err, sqldriver.ErrBadConn) {
		return domain.Transient(err)
	}
	return fmt.Errorf("mysql: %w", err)
}

package domain

import (
	"context"
	"errors"
	"fmt"
)

// 錯誤分類 (呼叫端以 errors.Is 判斷)
var (
	// ErrNotFound 參照的資料不存在
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation 結構上不合法的請求 (如自己轉給自己)
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidAmount 金額非正數或精度超過兩位小數
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds 餘額不足 (業務拒絕，非系統錯誤)
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransient 可重試的暫時性錯誤 (鎖等待逾時、死鎖、儲存層無法使用)
	ErrTransient = errors.New("transient failure")
)

// 具體錯誤
var (
	ErrAccountNotFound         = fmt.Errorf("account %w", ErrNotFound)
	ErrTransactionNotFound     = fmt.Errorf("transaction %w", ErrNotFound)
	ErrTransactionTypeNotFound = fmt.Errorf("transaction type %w", ErrNotFound)
	ErrClientNotFound          = fmt.Errorf("client %w", ErrNotFound)
	ErrBranchNotFound          = fmt.Errorf("branch %w", ErrNotFound)
	ErrAccountTypeNotFound     = fmt.Errorf("account type %w", ErrNotFound)

	// ErrSelfTransfer 轉出與轉入帳戶相同
	ErrSelfTransfer = fmt.Errorf("%w: sender and receiver must be different accounts", ErrInvalidOperation)

	// ErrAccountInUse 帳戶仍被交易紀錄參照，不可刪除
	ErrAccountInUse = fmt.Errorf("%w: account is referenced by ledger entries", ErrInvalidOperation)

	// ErrDuplicate 唯一鍵重複
	ErrDuplicate = fmt.Errorf("%w: duplicate record", ErrInvalidOperation)

	// ErrLockTimeout 等待帳戶鎖逾時
	ErrLockTimeout = fmt.Errorf("%w: lock wait timeout", ErrTransient)

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = fmt.Errorf("%w: wal write failed", ErrTransient)
)

// IsTransient 判斷錯誤是否可由呼叫端重試
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Transient 把儲存層錯誤包成可重試錯誤，保留原始錯誤鏈
func Transient(err error) error {
	if err == nil || IsTransient(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Classify 回傳穩定的錯誤標籤，供 metrics 與 transport 使用
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// IsRejection 是否為業務/驗證拒絕 (不需重試，也不算系統錯誤)
func IsRejection(err error) bool {
	switch Classify(err) {
	case "not_found", "invalid_operation", "invalid_amount", "insufficient_funds":
		return true
	}
	return false
}

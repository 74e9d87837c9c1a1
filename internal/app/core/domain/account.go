package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Account 帳戶
//
// Balance 只能由 Transfer Core 在持有鎖的 unit of work 內修改
type Account struct {
	ID            int64
	ClientID      int64
	AccountTypeID int64
	BranchID      int64
	Balance       decimal.Decimal
	CreatedAt     time.Time
}

// AccountFilter 帳戶查詢條件，零值代表不限制
type AccountFilter struct {
	ClientID int64
}

// Credit 入帳，入帳後的餘額不可超過 DECIMAL(15,2) 的上限，超過時不做任何修改
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: credit must be positive", ErrInvalidAmount)
	}
	balance := a.Balance.Add(amount)
	if balance.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: balance of account %d would exceed %s", ErrInvalidAmount, a.ID, MaxBalance())
	}
	a.Balance = balance
	return nil
}

// Debit 扣款，餘額不足時不做任何修改
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: debit must be positive", ErrInvalidAmount)
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// OpenAccountRequest 開戶請求
type OpenAccountRequest struct {
	ClientID      int64
	AccountTypeID int64
	BranchID      int64
	// OpeningBalance: 空字串視為 0
	OpeningBalance string
}

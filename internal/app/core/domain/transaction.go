package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction 帳本紀錄 (append-only，建立後不可修改或刪除)
type Transaction struct {
	// ID: 由儲存層遞增分配
	ID int64
	// Reference: 外部追蹤號，不作為去重鍵
	Reference uuid.UUID
	// SenderAccountID: 必填
	SenderAccountID int64
	// ReceiverAccountID: 提款/手續費等單邊紀錄為 nil
	ReceiverAccountID *int64
	TransactionTypeID int64
	Amount            decimal.Decimal
	Timestamp         time.Time
	Description       string
}

// HasReceiver 是否有入帳方
func (t *Transaction) HasReceiver() bool {
	return t.ReceiverAccountID != nil
}

// LockIDs 回傳需要鎖定的帳號 ID，並確保順序以避免死鎖
func (t *Transaction) LockIDs() []int64 {
	if t.ReceiverAccountID == nil {
		return []int64{t.SenderAccountID}
	}
	return LockOrder(t.SenderAccountID, *t.ReceiverAccountID)
}

// LockOrder 將帳號 ID 由小到大排序並去重，所有上鎖路徑都必須依此順序
func LockOrder(ids ...int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// TransactionFilter 帳本查詢條件
type TransactionFilter struct {
	// AccountID 為轉出或轉入任一方
	AccountID int64
	// Limit <= 0 時使用預設值，超過 MaxListLimit 時以 MaxListLimit 計
	Limit int
}

// 帳本列表筆數
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// EffectiveLimit 回傳實際使用的筆數上限
func (f TransactionFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return min(f.Limit, MaxListLimit)
}

// TransferRequest 轉帳請求
type TransferRequest struct {
	SenderAccountID   int64
	ReceiverAccountID int64
	TransactionTypeID int64
	// Amount: 十進位字串，兩位小數
	Amount      string
	Description string
}

// WithdrawRequest 單邊扣款請求 (提款、手續費)
type WithdrawRequest struct {
	SenderAccountID   int64
	TransactionTypeID int64
	Amount            string
	Description       string
}

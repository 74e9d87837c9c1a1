package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// AccountStore 帳戶資料存取
type AccountStore interface {
	// CreateAccount 建立帳戶並回填 ID 與 CreatedAt
	CreateAccount(ctx context.Context, account *domain.Account) error
	// GetAccount 讀取已提交的帳戶資料 (不上鎖)
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error)
	// DeleteAccount 帳戶被任何交易參照時回傳 domain.ErrAccountInUse
	DeleteAccount(ctx context.Context, id int64) error
}

// ReferenceStore 客戶、分行、帳戶類型、交易類型；List 一律依 ID 由小到大
type ReferenceStore interface {
	CreateClient(ctx context.Context, client *domain.Client) error
	GetClient(ctx context.Context, id int64) (*domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	CreateAccountType(ctx context.Context, accountType *domain.AccountType) error
	GetAccountType(ctx context.Context, id int64) (*domain.AccountType, error)
	ListAccountTypes(ctx context.Context) ([]domain.AccountType, error)
	CreateBranch(ctx context.Context, branch *domain.Branch) error
	GetBranch(ctx context.Context, id int64) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)
	CreateTransactionType(ctx context.Context, transactionType *domain.TransactionType) error
	GetTransactionType(ctx context.Context, id int64) (*domain.TransactionType, error)
	ListTransactionTypes(ctx context.Context) ([]domain.TransactionType, error)
}

// LedgerStore 帳本唯讀查詢
type LedgerStore interface {
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	// ListTransactions 依 ID 由新到舊
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
}

// ReportStore 彙總查詢
type ReportStore interface {
	Summary(ctx context.Context) (*domain.Summary, error)
}

// Transactor 開啟 unit of work
type Transactor interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork 一次原子性的帳務變更
//
// 呼叫順序: LockAccounts → UpdateBalance / AppendTransaction → Commit
// 任何一步失敗都必須 Rollback；Commit 之後再 Rollback 不做任何事
type UnitOfWork interface {
	// LockAccounts 依傳入順序取得帳戶的排他鎖，並回傳鎖定後重新讀取的資料
	//
	// 參數:
	//
	//	ctx: 等鎖期間可取消
	//	ids: 已排序的帳戶 ID (domain.LockOrder)
	//
	// 回傳:
	//
	//	map[int64]*domain.Account: 鎖定後的帳戶快照
	//	error: domain.ErrAccountNotFound, domain.ErrLockTimeout, ctx 錯誤
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error)
	// UpdateBalance 寫入新餘額，帳戶必須已被此 unit of work 鎖定
	UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	// AppendTransaction 新增一筆帳本紀錄，ID 最遲於 Commit 成功後回填
	AppendTransaction(ctx context.Context, tran *domain.Transaction) error
	Commit() error
	Rollback() error
}

// Store 帳務系統需要的全部儲存能力
type Store interface {
	AccountStore
	ReferenceStore
	LedgerStore
	ReportStore
	Transactor
	Close() error
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/metrics"
)

const (
	opTransfer = "transfer"
	opWithdraw = "withdraw"
)

// CoreUseCase 是核心業務邏輯層
//
// 所有餘額變更都經由 post 在單一 unit of work 內完成
type CoreUseCase struct {
	store   Store
	logger  *logging.Logger
	metrics metrics.Collector
	now     func() time.Time
}

// Option 設定 CoreUseCase
type Option func(*CoreUseCase)

func WithLogger(logger *logging.Logger) Option {
	return func(c *CoreUseCase) { c.logger = logger }
}

func WithMetrics(collector metrics.Collector) Option {
	return func(c *CoreUseCase) { c.metrics = collector }
}

// WithClock 替換交易時間來源，測試用
func WithClock(now func() time.Time) Option {
	return func(c *CoreUseCase) { c.now = now }
}

// NewCoreUseCase 建立 CoreUseCase
//
// 參數:
//
//	store: 儲存層 (memory / mysql / postgres)
//	opts: logger, metrics, clock
//
// 回傳:
//
//	*CoreUseCase: 實例
func NewCoreUseCase(store Store, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		store:   store,
		logger:  logging.NewNoOpLogger(),
		metrics: metrics.NoOpCollector{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("core")
	return c
}

// Transfer 轉帳
//
// 參數:
//
//	ctx: 等待帳戶鎖期間可取消，提交後不再受影響
//	req: 轉帳請求
//
// 回傳:
//
//	*domain.Transaction: 已提交的帳本紀錄
//	error: NotFound / InvalidOperation / InvalidAmount / InsufficientFunds / Transient
func (c *CoreUseCase) Transfer(ctx context.Context, req domain.TransferRequest) (tran *domain.Transaction, err error) {
	start := time.Now()
	defer func() { c.observe(opTransfer, start, err) }()

	// 驗證順序固定，任何一步失敗都不碰鎖
	if req.SenderAccountID == req.ReceiverAccountID {
		return nil, domain.ErrSelfTransfer
	}
	if err := c.mustExist(ctx, req.SenderAccountID, req.ReceiverAccountID); err != nil {
		return nil, err
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := c.store.GetTransactionType(ctx, req.TransactionTypeID); err != nil {
		return nil, err
	}

	receiver := req.ReceiverAccountID
	tran = &domain.Transaction{
		Reference:         uuid.New(),
		SenderAccountID:   req.SenderAccountID,
		ReceiverAccountID: &receiver,
		TransactionTypeID: req.TransactionTypeID,
		Amount:            amount,
		Description:       req.Description,
	}
	if err := c.post(ctx, tran); err != nil {
		return nil, err
	}
	return tran, nil
}

// Withdraw 單邊扣款 (提款、手續費)，帳本紀錄沒有入帳方
func (c *CoreUseCase) Withdraw(ctx context.Context, req domain.WithdrawRequest) (tran *domain.Transaction, err error) {
	start := time.Now()
	defer func() { c.observe(opWithdraw, start, err) }()

	if err := c.mustExist(ctx, req.SenderAccountID); err != nil {
		return nil, err
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := c.store.GetTransactionType(ctx, req.TransactionTypeID); err != nil {
		return nil, err
	}

	tran = &domain.Transaction{
		Reference:         uuid.New(),
		SenderAccountID:   req.SenderAccountID,
		TransactionTypeID: req.TransactionTypeID,
		Amount:            amount,
		Description:       req.Description,
	}
	if err := c.post(ctx, tran); err != nil {
		return nil, err
	}
	return tran, nil
}

// post 在單一 unit of work 內上鎖、扣款、入帳、寫帳本並提交
func (c *CoreUseCase) post(ctx context.Context, tran *domain.Transaction) (err error) {
	uow, err := c.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := uow.Rollback(); rbErr != nil {
			c.logger.Error("rollback failed", zap.Error(rbErr), zap.NamedError("cause", err))
		}
	}()

	lockStart := time.Now()
	accounts, err := uow.LockAccounts(ctx, tran.LockIDs()...)
	c.metrics.RecordLockWait(time.Since(lockStart))
	if err != nil {
		return err
	}

	// 鎖定後重新讀取的餘額才是判斷依據
	sender, ok := accounts[tran.SenderAccountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if err := sender.Debit(tran.Amount); err != nil {
		return err
	}
	if err := uow.UpdateBalance(ctx, sender.ID, sender.Balance); err != nil {
		return err
	}
	if tran.HasReceiver() {
		receiver, ok := accounts[*tran.ReceiverAccountID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if err := receiver.Credit(tran.Amount); err != nil {
			return err
		}
		if err := uow.UpdateBalance(ctx, receiver.ID, receiver.Balance); err != nil {
			return err
		}
	}

	tran.Timestamp = c.now().UTC()
	if err := uow.AppendTransaction(ctx, tran); err != nil {
		return err
	}
	return uow.Commit()
}

func (c *CoreUseCase) mustExist(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		if _, err := c.store.GetAccount(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *CoreUseCase) observe(op string, start time.Time, err error) {
	outcome := domain.Classify(err)
	c.metrics.RecordOperation(op, outcome, time.Since(start))
	switch {
	case err == nil:
		c.logger.Debug("ledger entry committed", zap.String("op", op), zap.Duration("took", time.Since(start)))
	case domain.IsRejection(err):
		c.logger.Info("request rejected", zap.String("op", op), zap.String("reason", outcome), zap.Error(err))
	case outcome == "transient", outcome == "canceled":
		c.logger.Warn("request failed", zap.String("op", op), zap.String("reason", outcome), zap.Error(err))
	default:
		c.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	}
}

// CreateClient 建立客戶
func (c *CoreUseCase) CreateClient(ctx context.Context, client *domain.Client) error {
	if err := client.Validate(); err != nil {
		return err
	}
	client.CreatedAt = c.now().UTC()
	return c.store.CreateClient(ctx, client)
}

func (c *CoreUseCase) CreateAccountType(ctx context.Context, accountType *domain.AccountType) error {
	if err := accountType.Validate(); err != nil {
		return err
	}
	return c.store.CreateAccountType(ctx, accountType)
}

func (c *CoreUseCase) CreateBranch(ctx context.Context, branch *domain.Branch) error {
	if err := branch.Validate(); err != nil {
		return err
	}
	return c.store.CreateBranch(ctx, branch)
}

func (c *CoreUseCase) CreateTransactionType(ctx context.Context, transactionType *domain.TransactionType) error {
	if err := transactionType.Validate(); err != nil {
		return err
	}
	return c.store.CreateTransactionType(ctx, transactionType)
}

func (c *CoreUseCase) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	return c.store.GetClient(ctx, id)
}

func (c *CoreUseCase) ListClients(ctx context.Context) ([]domain.Client, error) {
	return c.store.ListClients(ctx)
}

func (c *CoreUseCase) GetAccountType(ctx context.Context, id int64) (*domain.AccountType, error) {
	return c.store.GetAccountType(ctx, id)
}

func (c *CoreUseCase) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	return c.store.ListAccountTypes(ctx)
}

func (c *CoreUseCase) GetBranch(ctx context.Context, id int64) (*domain.Branch, error) {
	return c.store.GetBranch(ctx, id)
}

func (c *CoreUseCase) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return c.store.ListBranches(ctx)
}

func (c *CoreUseCase) GetTransactionType(ctx context.Context, id int64) (*domain.TransactionType, error) {
	return c.store.GetTransactionType(ctx, id)
}

func (c *CoreUseCase) ListTransactionTypes(ctx context.Context) ([]domain.TransactionType, error) {
	return c.store.ListTransactionTypes(ctx)
}

// OpenAccount 開戶
//
// 參數:
//
//	ctx: 上下文
//	req: 客戶、帳戶類型、分行必須存在；開戶餘額 >= 0
//
// 回傳:
//
//	*domain.Account: 新帳戶
//	error: NotFound / InvalidAmount
func (c *CoreUseCase) OpenAccount(ctx context.Context, req domain.OpenAccountRequest) (*domain.Account, error) {
	if _, err := c.store.GetClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	if _, err := c.store.GetAccountType(ctx, req.AccountTypeID); err != nil {
		return nil, err
	}
	if _, err := c.store.GetBranch(ctx, req.BranchID); err != nil {
		return nil, err
	}
	balance, err := domain.ParseBalance(req.OpeningBalance)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ClientID:      req.ClientID,
		AccountTypeID: req.AccountTypeID,
		BranchID:      req.BranchID,
		Balance:       balance,
		CreatedAt:     c.now().UTC(),
	}
	if err := c.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	c.logger.Info("account opened",
		zap.Int64("account_id", account.ID),
		zap.Int64("client_id", account.ClientID),
		zap.String("balance", domain.FormatAmount(account.Balance)))
	return account, nil
}

// CloseAccount 刪除帳戶，已有帳本紀錄的帳戶不可刪除
func (c *CoreUseCase) CloseAccount(ctx context.Context, id int64) error {
	if err := c.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	c.logger.Info("account closed", zap.Int64("account_id", id))
	return nil
}

func (c *CoreUseCase) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return c.store.GetAccount(ctx, id)
}

func (c *CoreUseCase) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	return c.store.ListAccounts(ctx, filter)
}

// GetBalance 取得帳戶餘額 (已提交的值)
func (c *CoreUseCase) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	account, err := c.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (c *CoreUseCase) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	return c.store.GetTransaction(ctx, id)
}

func (c *CoreUseCase) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if filter.AccountID != 0 {
		if _, err := c.store.GetAccount(ctx, filter.AccountID); err != nil {
			return nil, err
		}
	}
	return c.store.ListTransactions(ctx, filter)
}

// Report 全行彙總
func (c *CoreUseCase) Report(ctx context.Context) (*domain.Summary, error) {
	summary, err := c.store.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return summary, nil
}

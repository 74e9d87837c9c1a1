package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

// DefaultLockTimeout 等待帳戶鎖的預設上限
const DefaultLockTimeout = 5 * time.Second

// Store 記憶體實作的 usecase.Store
//
// 結構:
//
//	mu: 保護所有 map 與帳本 slice (讀多寫少)
//	rowLocks: 每個帳戶一個容量 1 的 channel，作為可取消、可逾時的排他鎖
//	journal: 唯一的寫入者，負責 WAL 與記憶體的套用順序
type Store struct {
	mu               sync.RWMutex
	clients          map[int64]*domain.Client
	accountTypes     map[int64]*domain.AccountType
	branches         map[int64]*domain.Branch
	transactionTypes map[int64]*domain.TransactionType
	accounts         map[int64]*domain.Account
	rowLocks         map[int64]chan struct{}
	// 帳本 (append-only，依 ID 遞增)
	transactions []domain.Transaction
	// 每個帳戶被帳本參照的次數
	references map[int64]int
	seq        struct {
		client, accountType, branch, transactionType, account, transaction int64
	}

	lockTimeout time.Duration
	wal         *wal.WAL
	journal     *journal
	logger      *logging.Logger
}

// Option 設定 Store
type Option func(*Store)

// WithWAL 啟用 Write-Ahead Log，建立 Store 時會先重播
func WithWAL(w *wal.WAL) Option {
	return func(s *Store) { s.wal = w }
}

func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore 建立記憶體 Store
//
// 參數:
//
//	opts: WAL、鎖等待上限、logger
//
// 回傳:
//
//	*Store: Store 實例
//	error: WAL 恢復失敗
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		clients:          make(map[int64]*domain.Client),
		accountTypes:     make(map[int64]*domain.AccountType),
		branches:         make(map[int64]*domain.Branch),
		transactionTypes: make(map[int64]*domain.TransactionType),
		accounts:         make(map[int64]*domain.Account),
		rowLocks:         make(map[int64]chan struct{}),
		references:       make(map[int64]int),
		lockTimeout:      DefaultLockTimeout,
		logger:           logging.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("memory")

	replayed, err := s.recoverFromWAL()
	if err != nil {
		return nil, err
	}
	if replayed > 0 {
		s.logger.Info("recovered from wal",
			zap.Int("records", replayed),
			zap.Int("accounts", len(s.accounts)),
			zap.Int("transactions", len(s.transactions)))
	}

	s.journal = newJournal(s.wal, &s.mu, s.applyRecord, s.logger)
	s.journal.start()
	return s, nil
}

// Close 停止寫入迴圈並關閉 WAL
func (s *Store) Close() error {
	s.journal.stop()
	if s.wal != nil {
		return s.wal.Close()
	}
	return nil
}

func (s *Store) CreateClient(ctx context.Context, client *domain.Client) error {
	rec, err := s.journal.submit(func() (*walRecord, error) {
		for _, c := range s.clients {
			if strings.EqualFold(c.Email, client.Email) {
				return nil, domain.ErrDuplicate
			}
		}
		c := *client
		c.ID = s.seq.client + 1
		return &walRecord{Kind: kindClient, Client: &c}, nil
	})
	if err != nil {
		return err
	}
	client.ID = rec.Client.ID
	return nil
}

func (s *Store) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	out := *c
	return &out, nil
}

func (s *Store) CreateAccountType(ctx context.Context, accountType *domain.AccountType) error {
	rec, err := s.journal.submit(func() (*walRecord, error) {
		for _, t := range s.accountTypes {
			if t.TypeName == accountType.TypeName {
				return nil, domain.ErrDuplicate
			}
		}
		t := *accountType
		t.ID = s.seq.accountType + 1
		return &walRecord{Kind: kindAccountType, AccountType: &t}, nil
	})
	if err != nil {
		return err
	}
	accountType.ID = rec.AccountType.ID
	return nil
}

func (s *Store) GetAccountType(ctx context.Context, id int64) (*domain.AccountType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.accountTypes[id]
	if !ok {
		return nil, domain.ErrAccountTypeNotFound
	}
	out := *t
	return &out, nil
}

func (s *Store) CreateBranch(ctx context.Context, branch *domain.Branch) error {
	rec, err := s.journal.submit(func() (*walRecord, error) {
		b := *branch
		b.ID = s.seq.branch + 1
		return &walRecord{Kind: kindBranch, Branch: &b}, nil
	})
	if err != nil {
		return err
	}
	branch.ID = rec.Branch.ID
	return nil
}

func (s *Store) GetBranch(ctx context.Context, id int64) (*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.branches[id]
	if !ok {
		return nil, domain.ErrBranchNotFound
	}
	out := *b
	return &out, nil
}

func (s *Store) CreateTransactionType(ctx context.Context, transactionType *domain.TransactionType) error {
	rec, err := s.journal.submit(func() (*walRecord, error) {
		for _, t := range s.transactionTypes {
			if t.TypeName == transactionType.TypeName {
				return nil, domain.ErrDuplicate
			}
		}
		t := *transactionType
		t.ID = s.seq.transactionType + 1
		return &walRecord{Kind: kindTransactionType, TransactionType: &t}, nil
	})
	if err != nil {
		return err
	}
	transactionType.ID = rec.TransactionType.ID
	return nil
}

func (s *Store) GetTransactionType(ctx context.Context, id int64) (*domain.TransactionType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactionTypes[id]
	if !ok {
		return nil, domain.ErrTransactionTypeNotFound
	}
	out := *t
	return &out, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.clients, func(c domain.Client) int64 { return c.ID }), nil
}

func (s *Store) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.accountTypes, func(t domain.AccountType) int64 { return t.ID }), nil
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.branches, func(b domain.Branch) int64 { return b.ID }), nil
}

func (s *Store) ListTransactionTypes(ctx context.Context) ([]domain.TransactionType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.transactionTypes, func(t domain.TransactionType) int64 { return t.ID }), nil
}

// sortedByID 複製 map 內的值並依 ID 排序，呼叫端需持有讀鎖
func sortedByID[T any](m map[int64]*T, id func(T) int64) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return out
}

// CreateAccount 建立帳戶，參照的客戶、類型、分行必須存在
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	rec, err := s.journal.submit(func() (*walRecord, error) {
		if _, ok := s.clients[account.ClientID]; !ok {
			return nil, domain.ErrClientNotFound
		}
		if _, ok := s.accountTypes[account.AccountTypeID]; !ok {
			return nil, domain.ErrAccountTypeNotFound
		}
		if _, ok := s.branches[account.BranchID]; !ok {
			return nil, domain.ErrBranchNotFound
		}
		a := *account
		a.ID = s.seq.account + 1
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		return &walRecord{Kind: kindAccount, Account: &a}, nil
	})
	if err != nil {
		return err
	}
	account.ID = rec.Account.ID
	account.CreatedAt = rec.Account.CreatedAt
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

func (s *Store) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if filter.ClientID != 0 && a.ClientID != filter.ClientID {
			continue
		}
		out = append(out, *a)
	}
	slices.SortFunc(out, func(a, b domain.Account) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// DeleteAccount 刪除帳戶
//
// 先取得帳戶鎖，確保沒有進行中的轉帳；被帳本參照的帳戶回傳 domain.ErrAccountInUse
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	uow := s.newUnitOfWork()
	defer uow.Rollback()
	if _, err := uow.LockAccounts(ctx, id); err != nil {
		return err
	}
	_, err := s.journal.submit(func() (*walRecord, error) {
		if s.references[id] > 0 {
			return nil, domain.ErrAccountInUse
		}
		return &walRecord{Kind: kindDeleteAccount, AccountID: id}, nil
	})
	return err
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := slices.BinarySearchFunc(s.transactions, id, func(t domain.Transaction, id int64) int {
		return cmp.Compare(t.ID, id)
	})
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTransaction(s.transactions[i]), nil
}

// ListTransactions 由新到舊
func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := filter.EffectiveLimit()
	out := make([]domain.Transaction, 0, min(limit, len(s.transactions)))
	for i := len(s.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		t := s.transactions[i]
		if filter.AccountID != 0 && !involves(t, filter.AccountID) {
			continue
		}
		out = append(out, *cloneTransaction(t))
	}
	return out, nil
}

func (s *Store) Summary(ctx context.Context) (*domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &domain.Summary{
		TotalClients:      int64(len(s.clients)),
		TotalAccounts:     int64(len(s.accounts)),
		TotalBalance:      decimal.Zero,
		TotalTransactions: int64(len(s.transactions)),
		SumTransactions:   decimal.Zero,
	}
	byBranch := make(map[int64]*domain.BranchSummary, len(s.branches))
	for id, b := range s.branches {
		byBranch[id] = &domain.BranchSummary{BranchID: id, BranchName: b.BranchName, TotalBalance: decimal.Zero}
	}
	for _, a := range s.accounts {
		summary.TotalBalance = summary.TotalBalance.Add(a.Balance)
		if bs, ok := byBranch[a.BranchID]; ok {
			bs.Accounts++
			bs.TotalBalance = bs.TotalBalance.Add(a.Balance)
		}
	}
	for _, t := range s.transactions {
		summary.SumTransactions = summary.SumTransactions.Add(t.Amount)
	}
	for _, bs := range byBranch {
		summary.ByBranch = append(summary.ByBranch, *bs)
	}
	slices.SortFunc(summary.ByBranch, func(a, b domain.BranchSummary) int { return cmp.Compare(a.BranchID, b.BranchID) })
	return summary, nil
}

func involves(t domain.Transaction, accountID int64) bool {
	return t.SenderAccountID == accountID || (t.ReceiverAccountID != nil && *t.ReceiverAccountID == accountID)
}

func cloneTransaction(t domain.Transaction) *domain.Transaction {
	if t.ReceiverAccountID != nil {
		receiver := *t.ReceiverAccountID
		t.ReceiverAccountID = &receiver
	}
	return &t
}

var _ usecase.Store = (*Store)(nil)

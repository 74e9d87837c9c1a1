package mysql

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// Store 以 GORM + MySQL 實作 usecase.Store
type Store struct {
	client *mysql.Client
	db     *gorm.DB
	logger *logging.Logger
}

// NewStore 建立 Store
//
// 參數:
//
//	client: MySQL 客戶端
//	logger: nil 時不輸出
func NewStore(client *mysql.Client, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Store{
		client: client,
		db:     client.DB(),
		logger: logger.Named("mysql"),
	}
}

// Migrate 建立或更新資料表
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models()...); err != nil {
		return classify(err, nil)
	}
	s.logger.Info("schema migrated", zap.Int("tables", len(models())))
	return nil
}

// Close 關閉連線
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) CreateClient(ctx context.Context, client *domain.Client) error {
	row := sqlClient{FullName: client.FullName, Email: client.Email, Phone: client.Phone, CreatedAt: client.CreatedAt}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classify(err, nil)
	}
	client.ID = row.ID
	return nil
}

func (s *Store) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	var row sqlClient
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, classify(err, domain.ErrClientNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateAccountType(ctx context.Context, accountType *domain.AccountType) error {
	row := sqlAccountType{TypeName: accountType.TypeName, Description: accountType.Description}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classify(err, nil)
	}
	accountType.ID = row.ID
	return nil
}

func (s *Store) GetAccountType(ctx context.Context, id int64) (*domain.AccountType, error) {
	var row sqlAccountType
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, classify(err, domain.ErrAccountTypeNotFound)
	}
	return &domain.AccountType{ID: row.ID, TypeName: row.TypeName, Description: row.Description}, nil
}

func (s *Store) CreateBranch(ctx context.Context, branch *domain.Branch) error {
	row := sqlBranch{BranchName: branch.BranchName, City: branch.City, Country: branch.Country}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classify(err, nil)
	}
	branch.ID = row.ID
	return nil
}

func (s *Store) GetBranch(ctx context.Context, id int64) (*domain.Branch, error) {
	var row sqlBranch
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, classify(err, domain.ErrBranchNotFound)
	}
	return &domain.Branch{ID: row.ID, BranchName: row.BranchName, City: row.City, Country: row.Country}, nil
}

func (s *Store) CreateTransactionType(ctx context.Context, transactionType *domain.TransactionType) error {
	row := sqlTransactionType{TypeName: transactionType.TypeName}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classify(err, nil)
	}
	transactionType.ID = row.ID
	return nil
}

func (s *Store) GetTransactionType(ctx context.Context, id int64) (*domain.TransactionType, error) {
	var row sqlTransactionType
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, classify(err, domain.ErrTransactionTypeNotFound)
	}
	return &domain.TransactionType{ID: row.ID, TypeName: row.TypeName}, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	var rows []sqlClient
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, classify(err, nil)
	}
	out := make([]domain.Client, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	var rows []sqlAccountType
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, classify(err, nil)
	}
	out := make([]domain.AccountType, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.AccountType{ID: row.ID, TypeName: row.TypeName, Description: row.Description})
	}
	return out, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	var rows []sqlBranch
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, classify(err, nil)
	}
	out := make([]domain.Branch, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Branch{ID: row.ID, BranchName: row.BranchName, City: row.City, Country: row.Country})
	}
	return out, nil
}

func (s *Store) ListTransactionTypes(ctx context.Context) ([]domain.TransactionType, error) {
	var rows []sqlTransactionType
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, classify(err, nil)
	}
	out := make([]domain.TransactionType, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.TransactionType{ID: row.ID, TypeName: row.TypeName})
	}
	return out, nil
}

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	row := sqlAccount{
		ClientID:      account.ClientID,
		AccountTypeID: account.AccountTypeID,
		BranchID:      account.BranchID,
		Balance:       account.Balance,
		CreatedAt:     account.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return classify(err, nil)
	}
	account.ID = row.ID
	account.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	var row sqlAccount
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, classify(err, domain.ErrAccountNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	query := s.db.WithContext(ctx).Order("id")
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	var rows []sqlAccount
	if err := query.Find(&rows).Error; err != nil {
		return nil, classify(err, nil)
	}
	out := make([]domain.Account, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

// DeleteAccount 外鍵 RESTRICT 會擋下被帳本參照的帳戶；進行中的轉帳持有列鎖時會等待
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&sqlAccount{}, id)
	if result.Error != nil {
		return classify(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	var row sqlTransaction
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, classify(err, domain.ErrTransactionNotFound)
	}
	return row.toDomain(), nil
}

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	query := s.db.WithContext(ctx).Order("id DESC").Limit(filter.EffectiveLimit())
	if filter.AccountID != 0 {
		query = query.Where("sender_account_id = ? OR receiver_account_id = ?", filter.AccountID, filter.AccountID)
	}
	var rows []sqlTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, classify(err, nil)
	}
	out := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

type branchRow struct {
	BranchID     int64
	BranchName   string
	Accounts     int64
	TotalBalance decimal.Decimal
}

func (s *Store) Summary(ctx context.Context) (*domain.Summary, error) {
	db := s.db.WithContext(ctx)
	summary := &domain.Summary{}

	if err := db.Model(&sqlClient{}).Count(&summary.TotalClients).Error; err != nil {
		return nil, classify(err, nil)
	}
	if err := db.Model(&sqlAccount{}).Count(&summary.TotalAccounts).Error; err != nil {
		return nil, classify(err, nil)
	}
	if err := db.Model(&sqlAccount{}).Select("COALESCE(SUM(balance), 0)").Row().Scan(&summary.TotalBalance); err != nil {
		return nil, classify(err, nil)
	}
	if err := db.Model(&sqlTransaction{}).Count(&summary.TotalTransactions).Error; err != nil {
		return nil, classify(err, nil)
	}
	if err := db.Model(&sqlTransaction{}).Select("COALESCE(SUM(amount), 0)").Row().Scan(&summary.SumTransactions); err != nil {
		return nil, classify(err, nil)
	}

	var rows []branchRow
	err := db.Table("branches AS b").
		Select("b.id AS branch_id, b.branch_name, COUNT(a.id) AS accounts, COALESCE(SUM(a.balance), 0) AS total_balance").
		Joins("LEFT JOIN accounts AS a ON a.branch_id = b.id").
		Group("b.id, b.branch_name").
		Order("b.id").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err, nil)
	}
	for _, r := range rows {
		summary.ByBranch = append(summary.ByBranch, domain.BranchSummary(r))
	}
	return summary, nil
}

var _ usecase.Store = (*Store)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/postgres"
)

const accountColumns = `id, client_id, account_type_id, branch_id, balance, created_at`

const transactionColumns = `id, reference, sender_account_id, receiver_account_id, transaction_type_id, amount, created_at, description`

type rowScanner interface {
	Scan(dest ...any) error
}

// Store 以 database/sql + lib/pq 實作 usecase.Store
type Store struct {
	client *postgres.Client
	db     *sql.DB
	logger *logging.Logger
}

// NewStore 建立 Store
func NewStore(client *postgres.Client, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Store{client: client, db: client.DB(), logger: logger.Named("postgres")}
}

// Migrate 套用內建的 schema migration
func (s *Store) Migrate(ctx context.Context) error {
	applied, err := postgres.Migrate(ctx, s.db)
	if err != nil {
		return classify(err, nil)
	}
	s.logger.Info("schema migrated", zap.Strings("applied", applied))
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) CreateClient(ctx context.Context, client *domain.Client) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO clients (full_name, email, phone, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		client.FullName, client.Email, client.Phone, client.CreatedAt,
	).Scan(&client.ID)
	return classify(err, nil)
}

func (s *Store) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	c := &domain.Client{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, phone, created_at FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		return nil, classify(err, domain.ErrClientNotFound)
	}
	return c, nil
}

func (s *Store) CreateAccountType(ctx context.Context, accountType *domain.AccountType) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO account_types (type_name, description) VALUES ($1, $2) RETURNING id`,
		accountType.TypeName, accountType.Description,
	).Scan(&accountType.ID)
	return classify(err, nil)
}

func (s *Store) GetAccountType(ctx context.Context, id int64) (*domain.AccountType, error) {
	t := &domain.AccountType{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, type_name, description FROM account_types WHERE id = $1`, id,
	).Scan(&t.ID, &t.TypeName, &t.Description)
	if err != nil {
		return nil, classify(err, domain.ErrAccountTypeNotFound)
	}
	return t, nil
}

func (s *Store) CreateBranch(ctx context.Context, branch *domain.Branch) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO branches (branch_name, city, country) VALUES ($1, $2, $3) RETURNING id`,
		branch.BranchName, branch.City, branch.Country,
	).Scan(&branch.ID)
	return classify(err, nil)
}

func (s *Store) GetBranch(ctx context.Context, id int64) (*domain.Branch, error) {
	b := &domain.Branch{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, branch_name, city, country FROM branches WHERE id = $1`, id,
	).Scan(&b.ID, &b.BranchName, &b.City, &b.Country)
	if err != nil {
		return nil, classify(err, domain.ErrBranchNotFound)
	}
	return b, nil
}

func (s *Store) CreateTransactionType(ctx context.Context, transactionType *domain.TransactionType) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO transaction_types (type_name) VALUES ($1) RETURNING id`,
		transactionType.TypeName,
	).Scan(&transactionType.ID)
	return classify(err, nil)
}

func (s *Store) GetTransactionType(ctx context.Context, id int64) (*domain.TransactionType, error) {
	t := &domain.TransactionType{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, type_name FROM transaction_types WHERE id = $1`, id,
	).Scan(&t.ID, &t.TypeName)
	if err != nil {
		return nil, classify(err, domain.ErrTransactionTypeNotFound)
	}
	return t, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	return queryAll(ctx, s.db, func(row rowScanner) (domain.Client, error) {
		var c domain.Client
		err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.CreatedAt)
		return c, err
	}, `SELECT id, full_name, email, phone, created_at FROM clients ORDER BY id`)
}

func (s *Store) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	return queryAll(ctx, s.db, func(row rowScanner) (domain.AccountType, error) {
		var t domain.AccountType
		err := row.Scan(&t.ID, &t.TypeName, &t.Description)
		return t, err
	}, `SELECT id, type_name, description FROM account_types ORDER BY id`)
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return queryAll(ctx, s.db, func(row rowScanner) (domain.Branch, error) {
		var b domain.Branch
		err := row.Scan(&b.ID, &b.BranchName, &b.City, &b.Country)
		return b, err
	}, `SELECT id, branch_name, city, country FROM branches ORDER BY id`)
}

func (s *Store) ListTransactionTypes(ctx context.Context) ([]domain.TransactionType, error) {
	return queryAll(ctx, s.db, func(row rowScanner) (domain.TransactionType, error) {
		var t domain.TransactionType
		err := row.Scan(&t.ID, &t.TypeName)
		return t, err
	}, `SELECT id, type_name FROM transaction_types ORDER BY id`)
}

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO accounts (client_id, account_type_id, branch_id, balance, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		account.ClientID, account.AccountTypeID, account.BranchID, account.Balance, account.CreatedAt,
	).Scan(&account.ID)
	return classify(err, nil)
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		return nil, classify(err, domain.ErrAccountNotFound)
	}
	return account, nil
}

func (s *Store) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var args []any
	if filter.ClientID != 0 {
		query += ` WHERE client_id = $1`
		args = append(args, filter.ClientID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, classify(err, nil)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, classify(err, nil)
		}
		out = append(out, *account)
	}
	return out, classify(rows.Err(), nil)
}

// DeleteAccount 外鍵 ON DELETE RESTRICT 擋下仍被帳本參照的帳戶
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	err := execRequiredRows(ctx, s.db, domain.ErrAccountNotFound, `DELETE FROM accounts WHERE id = $1`, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAccountNotFound):
		return err
	case isForeignKeyViolation(err):
		return errors.Join(domain.ErrAccountInUse, err)
	default:
		return classify(err, nil)
	}
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	tran, err := scanTransaction(row)
	if err != nil {
		return nil, classify(err, domain.ErrTransactionNotFound)
	}
	return tran, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	args := []any{filter.EffectiveLimit()}
	if filter.AccountID != 0 {
		query += ` WHERE sender_account_id = $2 OR receiver_account_id = $2`
		args = append(args, filter.AccountID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id DESC LIMIT $1`, args...)
	if err != nil {
		return nil, classify(err, nil)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tran, err := scanTransaction(rows)
		if err != nil {
			return nil, classify(err, nil)
		}
		out = append(out, *tran)
	}
	return out, classify(rows.Err(), nil)
}

func (s *Store) Summary(ctx context.Context) (*domain.Summary, error) {
	summary := &domain.Summary{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM accounts),
			(SELECT COALESCE(SUM(balance), 0) FROM accounts),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions)`,
	).Scan(&summary.TotalClients, &summary.TotalAccounts, &summary.TotalBalance,
		&summary.TotalTransactions, &summary.SumTransactions)
	if err != nil {
		return nil, classify(err, nil)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.branch_name, COUNT(a.id), COALESCE(SUM(a.balance), 0)
		FROM branches AS b
		LEFT JOIN accounts AS a ON a.branch_id = b.id
		GROUP BY b.id, b.branch_name
		ORDER BY b.id`)
	if err != nil {
		return nil, classify(err, nil)
	}
	defer rows.Close()
	for rows.Next() {
		var b domain.BranchSummary
		if err := rows.Scan(&b.BranchID, &b.BranchName, &b.Accounts, &b.TotalBalance); err != nil {
			return nil, classify(err, nil)
		}
		summary.ByBranch = append(summary.ByBranch, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, nil)
	}
	return summary, nil
}

// queryAll 執行查詢並以 scan 逐列轉換
func queryAll[T any](ctx context.Context, db *sql.DB, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, nil)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, classify(err, nil)
		}
		out = append(out, v)
	}
	return out, classify(rows.Err(), nil)
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	a := &domain.Account{}
	if err := row.Scan(&a.ID, &a.ClientID, &a.AccountTypeID, &a.BranchID, &a.Balance, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var receiver sql.NullInt64
	err := row.Scan(&t.ID, &t.Reference, &t.SenderAccountID, &receiver,
		&t.TransactionTypeID, &t.Amount, &t.Timestamp, &t.Description)
	if err != nil {
		return nil, err
	}
	if receiver.Valid {
		t.ReceiverAccountID = &receiver.Int64
	}
	t.Timestamp = t.Timestamp.UTC()
	return t, nil
}

var _ usecase.Store = (*Store)(nil)

package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	pgclient "github.com/JoeShih716/go-bank-ledger/pkg/postgres"
)

var (
	lockQuery   = regexp.QuoteMeta(`FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`)
	updateQuery = regexp.QuoteMeta(`UPDATE accounts SET balance = $2 WHERE id = $1`)
	insertQuery = regexp.QuoteMeta(`INSERT INTO transactions`)
	accountCols = []string{"id", "client_id", "account_type_id", "branch_id", "balance", "created_at"}
)

// amountArg 以數值比對 decimal 參數 ("60" 與 "60.00" 視為相同)
type amountArg string

func (a amountArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(s)
	return err == nil && d.Equal(decimal.RequireFromString(string(a)))
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(pgclient.NewClientFromDB(db, 1500*time.Millisecond), nil), mock
}

func accountRows(balances map[int64]string, ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows(accountCols)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, id := range ids {
		rows.AddRow(id, int64(1), int64(1), int64(1), balances[id], created)
	}
	return rows
}

func expectBegin(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL lock_timeout = 1500`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestUnitOfWorkCommit(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	expectBegin(mock)
	mock.ExpectQuery(lockQuery).
		WithArgs("{1,2}").
		WillReturnRows(accountRows(map[int64]string{1: "100.00", 2: "5.00"}, 1, 2))
	mock.ExpectExec(updateQuery).WithArgs(int64(2), amountArg("0.00")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateQuery).WithArgs(int64(1), amountArg("105.00")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertQuery).
		WithArgs(sqlmock.AnyArg(), int64(2), int64(1), int64(3), amountArg("5.00"), sqlmock.AnyArg(), "repay").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer uow.Rollback()

	// 呼叫端給的順序不影響上鎖順序
	accounts, err := uow.LockAccounts(ctx, 2, 1)
	if err != nil {
		t.Fatalf("LockAccounts: %v", err)
	}
	if got := domain.FormatAmount(accounts[1].Balance); got != "100.00" {
		t.Fatalf("account 1 balance = %s", got)
	}
	if err := uow.UpdateBalance(ctx, 2, decimal.Zero); err != nil {
		t.Fatalf("UpdateBalance: %v", err)
	}
	if err := uow.UpdateBalance(ctx, 1, decimal.RequireFromString("105.00")); err != nil {
		t.Fatalf("UpdateBalance: %v", err)
	}
	receiver := int64(1)
	tran := &domain.Transaction{
		SenderAccountID:   2,
		ReceiverAccountID: &receiver,
		TransactionTypeID: 3,
		Amount:            decimal.RequireFromString("5.00"),
		Timestamp:         time.Now().UTC(),
		Description:       "repay",
	}
	if err := uow.AppendTransaction(ctx, tran); err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tran.ID != 42 {
		t.Errorf("transaction id = %d, want 42", tran.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLockAccountsMissingAccount(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	expectBegin(mock)
	mock.ExpectQuery(lockQuery).
		WithArgs("{1,9}").
		WillReturnRows(accountRows(map[int64]string{1: "10.00"}, 1))
	mock.ExpectRollback()

	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := uow.LockAccounts(ctx, 9, 1); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("LockAccounts err = %v, want ErrAccountNotFound", err)
	}
	// 未鎖定的帳戶不可更新
	if err := uow.UpdateBalance(ctx, 1, decimal.Zero); err == nil {
		t.Fatal("UpdateBalance on unlocked account succeeded")
	}
	if err := uow.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLockAccountsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   error
	}{
		{"lock timeout", &pq.Error{Code: "55P03"}, domain.ErrLockTimeout},
		{"deadlock", &pq.Error{Code: "40P01"}, domain.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			ctx := context.Background()
			expectBegin(mock)
			mock.ExpectQuery(lockQuery).WillReturnError(tt.err)
			mock.ExpectRollback()

			uow, err := s.Begin(ctx)
			if err != nil {
				t.Fatalf("Begin: %v", err)
			}
			if _, err := uow.LockAccounts(ctx, 1, 2); !errors.Is(err, tt.is) {
				t.Fatalf("LockAccounts err = %v, want %v", err, tt.is)
			}
			uow.Rollback()
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestLockAccountsCanceledWhileWaiting(t *testing.T) {
	s, mock := newMockStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	expectBegin(mock)
	mock.ExpectQuery(lockQuery).
		WillDelayFor(2 * time.Second).
		WillReturnRows(accountRows(map[int64]string{1: "1.00", 2: "1.00"}, 1, 2))
	mock.ExpectRollback()

	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := uow.LockAccounts(ctx, 1, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("LockAccounts err = %v, want DeadlineExceeded", err)
	}
	// 交易本身沒有被取消，Rollback 仍然送出
	if err := uow.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateBalanceNoRowAffected(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	expectBegin(mock)
	mock.ExpectQuery(lockQuery).WithArgs("{4}").
		WillReturnRows(accountRows(map[int64]string{4: "10.00"}, 4))
	mock.ExpectExec(updateQuery).WithArgs(int64(4), amountArg("3.00")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := uow.LockAccounts(ctx, 4); err != nil {
		t.Fatalf("LockAccounts: %v", err)
	}
	if err := uow.UpdateBalance(ctx, 4, decimal.RequireFromString("3.00")); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("UpdateBalance err = %v, want ErrAccountNotFound", err)
	}
	uow.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTransferRollsBackWhenInsertFails(t *testing.T) {
	s, mock := newMockStore(t)
	core := usecase.NewCoreUseCase(s)
	balances := map[int64]string{1: "50.00", 2: "80.00"}

	getAccount := regexp.QuoteMeta(`FROM accounts WHERE id = $1`)
	mock.ExpectQuery(getAccount).WithArgs(int64(2)).WillReturnRows(accountRows(balances, 2))
	mock.ExpectQuery(getAccount).WithArgs(int64(1)).WillReturnRows(accountRows(balances, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM transaction_types WHERE id = $1`)).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type_name"}).AddRow(int64(3), "Transfer"))
	expectBegin(mock)
	mock.ExpectQuery(lockQuery).WithArgs("{1,2}").WillReturnRows(accountRows(balances, 1, 2))
	mock.ExpectExec(updateQuery).WithArgs(int64(2), amountArg("60.00")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateQuery).WithArgs(int64(1), amountArg("70.00")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertQuery).WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	_, err := core.Transfer(context.Background(), domain.TransferRequest{
		SenderAccountID:   2,
		ReceiverAccountID: 1,
		TransactionTypeID: 3,
		Amount:            "20.00",
	})
	if err == nil {
		t.Fatal("Transfer succeeded, want failure")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListClients(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, full_name, email, phone, created_at FROM clients ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "created_at"}).
			AddRow(int64(1), "Alice", "client1@bank.com", "555-0100", created).
			AddRow(int64(2), "Bob", "client2@bank.com", "", created))

	clients, err := s.ListClients(context.Background())
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if len(clients) != 2 || clients[0].FullName != "Alice" || clients[1].ID != 2 {
		t.Fatalf("clients = %+v", clients)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListTransactionTypesScanError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM transaction_types ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type_name"}).
			AddRow(int64(1), "Transfer").
			RowError(0, &pq.Error{Code: "40P01"}))

	if _, err := s.ListTransactionTypes(context.Background()); !domain.IsTransient(err) {
		t.Fatalf("ListTransactionTypes err = %v, want transient", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// unitOfWork 一個 READ COMMITTED transaction，列鎖以 SELECT ... FOR UPDATE 取得
type unitOfWork struct {
	tx     *sql.Tx
	locked map[int64]bool
	done   bool
	logger *zap.Logger
}

// Begin 開啟 transaction 並設定 lock_timeout
//
// tx 綁定 context.WithoutCancel(ctx)，呼叫端取消時由 Rollback 收尾，而不是由 database/sql 自動回滾
func (s *Store) Begin(ctx context.Context) (usecase.UnitOfWork, error) {
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, domain.Transient(classify(err, nil))
	}
	// SET 不接受參數綁定，值為整數毫秒
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.client.LockTimeout().Milliseconds())
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		_ = tx.Rollback()
		return nil, classify(err, nil)
	}
	return &unitOfWork{tx: tx, locked: make(map[int64]bool, 2), logger: s.logger.Logger}, nil
}

// LockAccounts 一次查詢鎖定所有帳戶
//
// ORDER BY id 讓 PostgreSQL 依 ID 遞增順序取得列鎖
//
// 回傳:
//
//	map[int64]*domain.Account: 鎖定後的帳戶資料
//	error: 任一帳戶不存在時回傳 domain.ErrAccountNotFound；55P03 為 domain.ErrLockTimeout
func (u *unitOfWork) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	if u.done {
		return nil, errUnitOfWorkDone
	}
	ordered := domain.LockOrder(ids...)
	rows, err := u.tx.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(ordered))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classify(err, nil)
	}
	defer rows.Close()

	out := make(map[int64]*domain.Account, len(ordered))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, classify(err, nil)
		}
		out[account.ID] = account
	}
	if err := rows.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classify(err, nil)
	}
	if len(out) != len(ordered) {
		return nil, domain.ErrAccountNotFound
	}
	for id := range out {
		u.locked[id] = true
	}
	return out, nil
}

func (u *unitOfWork) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	if u.done {
		return errUnitOfWorkDone
	}
	if !u.locked[accountID] {
		return fmt.Errorf("postgres: account %d is not locked by this unit of work", accountID)
	}
	err := execRequiredRows(context.WithoutCancel(ctx), u.tx, domain.ErrAccountNotFound,
		`UPDATE accounts SET balance = $2 WHERE id = $1`, accountID, balance)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}
	return classify(err, nil)
}

// AppendTransaction 寫入帳本並以 RETURNING 回填 ID
func (u *unitOfWork) AppendTransaction(ctx context.Context, tran *domain.Transaction) error {
	if u.done {
		return errUnitOfWorkDone
	}
	var receiver sql.NullInt64
	if tran.ReceiverAccountID != nil {
		receiver = sql.NullInt64{Int64: *tran.ReceiverAccountID, Valid: true}
	}
	err := u.tx.QueryRowContext(context.WithoutCancel(ctx),
		`INSERT INTO transactions (reference, sender_account_id, receiver_account_id, transaction_type_id, amount, created_at, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		tran.Reference, tran.SenderAccountID, receiver, tran.TransactionTypeID,
		tran.Amount, tran.Timestamp, tran.Description,
	).Scan(&tran.ID)
	return classify(err, nil)
}

func (u *unitOfWork) Commit() error {
	if u.done {
		return errUnitOfWorkDone
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return domain.Transient(classify(err, nil))
	}
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		u.logger.Warn("rollback failed", zap.Error(err))
		return classify(err, nil)
	}
	return nil
}

var errUnitOfWorkDone = errors.New("postgres: unit of work already committed or rolled back")

var _ usecase.UnitOfWork = (*unitOfWork)(nil)

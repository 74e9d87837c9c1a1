package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// unitOfWork 一個 MySQL transaction
//
// tx 綁定的 context 不會被取消 (context.WithoutCancel)，只有上鎖的查詢使用呼叫端的 ctx
type unitOfWork struct {
	tx     *gorm.DB
	locked map[int64]bool
	done   bool
	logger *zap.Logger
}

// Begin 開啟 transaction
func (s *Store) Begin(ctx context.Context) (usecase.UnitOfWork, error) {
	tx := s.db.WithContext(context.WithoutCancel(ctx)).Begin()
	if tx.Error != nil {
		return nil, domain.Transient(classify(tx.Error, nil))
	}
	return &unitOfWork{tx: tx, locked: make(map[int64]bool, 2), logger: s.logger.Logger}, nil
}

// LockAccounts 依 ID 由小到大逐筆 SELECT ... FOR UPDATE
//
// 參數:
//
//	ctx: 等鎖期間可取消
//	ids: 帳戶 ID
//
// 回傳:
//
//	map[int64]*domain.Account: 鎖定後的帳戶資料
//	error: domain.ErrAccountNotFound, domain.ErrLockTimeout (innodb_lock_wait_timeout), 死鎖為 Transient
func (u *unitOfWork) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	if u.done {
		return nil, errUnitOfWorkDone
	}
	out := make(map[int64]*domain.Account, len(ids))
	for _, id := range domain.LockOrder(ids...) {
		var row sqlAccount
		err := u.tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&row).Error
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, classify(err, domain.ErrAccountNotFound)
		}
		u.locked[id] = true
		out[id] = row.toDomain()
	}
	return out, nil
}

func (u *unitOfWork) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	if u.done {
		return errUnitOfWorkDone
	}
	if !u.locked[accountID] {
		return fmt.Errorf("mysql: account %d is not locked by this unit of work", accountID)
	}
	result := u.tx.Model(&sqlAccount{}).Where("id = ?", accountID).Update("balance", balance)
	if result.Error != nil {
		return classify(result.Error, nil)
	}
	if result.RowsAffected != 1 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// AppendTransaction 寫入帳本，ID 由 AUTO_INCREMENT 分配後回填
func (u *unitOfWork) AppendTransaction(ctx context.Context, tran *domain.Transaction) error {
	if u.done {
		return errUnitOfWorkDone
	}
	row := fromDomainTransaction(tran)
	if err := u.tx.Omit(clause.Associations).Create(row).Error; err != nil {
		return classify(err, nil)
	}
	tran.ID = row.ID
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.done {
		return errUnitOfWorkDone
	}
	u.done = true
	if err := u.tx.Commit().Error; err != nil {
		return domain.Transient(classify(err, nil))
	}
	return nil
}

// Rollback 已結束的 unit of work 不做任何事
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback().Error; err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		u.logger.Warn("rollback failed", zap.Error(err))
		return classify(err, nil)
	}
	return nil
}

var errUnitOfWorkDone = errors.New("mysql: unit of work already committed or rolled back")

var _ usecase.UnitOfWork = (*unitOfWork)(nil)

package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

var errUnitOfWorkDone = errors.New("memory: unit of work already committed or rolled back")

// unitOfWork 持有帳戶鎖，變更先暫存，Commit 時一次寫入
type unitOfWork struct {
	s        *Store
	held     []chan struct{}
	locked   map[int64]*domain.Account
	balances map[int64]decimal.Decimal
	order    []int64
	entries  []*domain.Transaction
	done     bool
}

// Begin 開始一個 unit of work (不佔用任何資源，直到 LockAccounts)
func (s *Store) Begin(ctx context.Context) (usecase.UnitOfWork, error) {
	return s.newUnitOfWork(), nil
}

func (s *Store) newUnitOfWork() *unitOfWork {
	return &unitOfWork{
		s:        s,
		locked:   make(map[int64]*domain.Account, 2),
		balances: make(map[int64]decimal.Decimal, 2),
	}
}

// LockAccounts 依 ID 由小到大取得帳戶鎖
//
// 參數:
//
//	ctx: 等鎖期間可取消
//	ids: 帳戶 ID
//
// 回傳:
//
//	map[int64]*domain.Account: 鎖定後的帳戶快照
//	error: domain.ErrAccountNotFound, domain.ErrLockTimeout, ctx.Err()
func (u *unitOfWork) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	if u.done {
		return nil, errUnitOfWorkDone
	}
	timeout := time.NewTimer(u.s.lockTimeout)
	defer timeout.Stop()

	out := make(map[int64]*domain.Account, len(ids))
	for _, id := range domain.LockOrder(ids...) {
		if a, ok := u.locked[id]; ok {
			out[id] = a
			continue
		}

		u.s.mu.RLock()
		lock, ok := u.s.rowLocks[id]
		u.s.mu.RUnlock()
		if !ok {
			return nil, domain.ErrAccountNotFound
		}

		select {
		case lock <- struct{}{}:
			u.held = append(u.held, lock)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, fmt.Errorf("%w: account %d", domain.ErrLockTimeout, id)
		}

		// 取得鎖之後重新讀取，帳戶可能在等待期間被刪除
		u.s.mu.RLock()
		a, ok := u.s.accounts[id]
		var snapshot domain.Account
		if ok {
			snapshot = *a
		}
		u.s.mu.RUnlock()
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		u.locked[id] = &snapshot
		out[id] = &snapshot
	}
	return out, nil
}

func (u *unitOfWork) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	if u.done {
		return errUnitOfWorkDone
	}
	if _, ok := u.locked[accountID]; !ok {
		return fmt.Errorf("memory: account %d is not locked by this unit of work", accountID)
	}
	if balance.IsNegative() {
		return fmt.Errorf("%w: balance of account %d would become negative", domain.ErrInsufficientFunds, accountID)
	}
	if _, staged := u.balances[accountID]; !staged {
		u.order = append(u.order, accountID)
	}
	u.balances[accountID] = balance
	return nil
}

// AppendTransaction 暫存帳本紀錄，ID 於 Commit 時依提交順序分配並回填
func (u *unitOfWork) AppendTransaction(ctx context.Context, tran *domain.Transaction) error {
	if u.done {
		return errUnitOfWorkDone
	}
	if _, ok := u.locked[tran.SenderAccountID]; !ok {
		return fmt.Errorf("memory: sender %d is not locked by this unit of work", tran.SenderAccountID)
	}
	u.entries = append(u.entries, tran)
	return nil
}

// Commit 寫入 WAL 並套用所有暫存變更，然後釋放帳戶鎖
func (u *unitOfWork) Commit() error {
	if u.done {
		return errUnitOfWorkDone
	}
	defer u.release()

	if len(u.balances) == 0 && len(u.entries) == 0 {
		return nil
	}
	rec, err := u.s.journal.submit(func() (*walRecord, error) {
		rec := &walRecord{Kind: kindCommit}
		for _, id := range u.order {
			rec.Balances = append(rec.Balances, balanceRecord{AccountID: id, Balance: u.balances[id]})
		}
		next := u.s.seq.transaction
		for _, tran := range u.entries {
			next++
			entry := *cloneTransaction(*tran)
			entry.ID = next
			rec.Entries = append(rec.Entries, entry)
		}
		return rec, nil
	})
	if err != nil {
		return err
	}
	for i, tran := range u.entries {
		tran.ID = rec.Entries[i].ID
	}
	return nil
}

// Rollback 丟棄暫存變更並釋放帳戶鎖，已結束的 unit of work 不做任何事
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.release()
	return nil
}

func (u *unitOfWork) release() {
	u.done = true
	for i := len(u.held) - 1; i >= 0; i-- {
		<-u.held[i]
	}
	u.held = nil
}

var _ usecase.UnitOfWork = (*unitOfWork)(nil)

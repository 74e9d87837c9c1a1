package memory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// WAL 紀錄種類
const (
	kindClient          = "client"
	kindAccountType     = "account_type"
	kindBranch          = "branch"
	kindTransactionType = "transaction_type"
	kindAccount         = "account"
	kindDeleteAccount   = "delete_account"
	kindCommit          = "commit"
)

// walRecord 一筆已確認的變更，重播時依序套用即可得到相同狀態
type walRecord struct {
	Kind            string                  `json:"kind"`
	Client          *domain.Client          `json:"client,omitempty"`
	AccountType     *domain.AccountType     `json:"account_type,omitempty"`
	Branch          *domain.Branch          `json:"branch,omitempty"`
	TransactionType *domain.TransactionType `json:"transaction_type,omitempty"`
	Account         *domain.Account         `json:"account,omitempty"`
	AccountID       int64                   `json:"account_id,omitempty"`
	Balances        []balanceRecord         `json:"balances,omitempty"`
	Entries         []domain.Transaction    `json:"entries,omitempty"`
}

type balanceRecord struct {
	AccountID int64           `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// recoverFromWAL 從 WAL 檔案恢復狀態
//
// 只有 NewStore 呼叫，此時寫入迴圈尚未啟動，無需 Lock
//
// 回傳:
//
//	int: 重播的紀錄數
//	error: 解析錯誤
func (s *Store) recoverFromWAL() (int, error) {
	if s.wal == nil {
		return 0, nil
	}
	count := 0
	err := s.wal.ReadAll(func(jsonRaw []byte) error {
		var rec walRecord
		if err := json.Unmarshal(jsonRaw, &rec); err != nil {
			return fmt.Errorf("decode wal record %d: %w", count+1, err)
		}
		if err := rec.validate(); err != nil {
			return fmt.Errorf("wal record %d: %w", count+1, err)
		}
		s.applyRecord(&rec)
		count++
		return nil
	})
	return count, err
}

func (r *walRecord) validate() error {
	ok := false
	switch r.Kind {
	case kindClient:
		ok = r.Client != nil
	case kindAccountType:
		ok = r.AccountType != nil
	case kindBranch:
		ok = r.Branch != nil
	case kindTransactionType:
		ok = r.TransactionType != nil
	case kindAccount:
		ok = r.Account != nil
	case kindDeleteAccount:
		ok = r.AccountID != 0
	case kindCommit:
		ok = len(r.Balances) > 0
	}
	if !ok {
		return fmt.Errorf("malformed record of kind %q", r.Kind)
	}
	return nil
}

// applyRecord 套用一筆紀錄到記憶體，呼叫端需持有寫鎖 (或處於單執行緒的恢復階段)
func (s *Store) applyRecord(rec *walRecord) {
	switch rec.Kind {
	case kindClient:
		c := *rec.Client
		s.clients[c.ID] = &c
		s.seq.client = max(s.seq.client, c.ID)
	case kindAccountType:
		t := *rec.AccountType
		s.accountTypes[t.ID] = &t
		s.seq.accountType = max(s.seq.accountType, t.ID)
	case kindBranch:
		b := *rec.Branch
		s.branches[b.ID] = &b
		s.seq.branch = max(s.seq.branch, b.ID)
	case kindTransactionType:
		t := *rec.TransactionType
		s.transactionTypes[t.ID] = &t
		s.seq.transactionType = max(s.seq.transactionType, t.ID)
	case kindAccount:
		a := *rec.Account
		s.accounts[a.ID] = &a
		s.rowLocks[a.ID] = make(chan struct{}, 1)
		s.seq.account = max(s.seq.account, a.ID)
	case kindDeleteAccount:
		delete(s.accounts, rec.AccountID)
		delete(s.rowLocks, rec.AccountID)
	case kindCommit:
		for _, b := range rec.Balances {
			if a, ok := s.accounts[b.AccountID]; ok {
				a.Balance = b.Balance
			}
		}
		for _, tran := range rec.Entries {
			s.transactions = append(s.transactions, tran)
			s.references[tran.SenderAccountID]++
			if tran.ReceiverAccountID != nil {
				s.references[*tran.ReceiverAccountID]++
			}
			s.seq.transaction = max(s.seq.transaction, tran.ID)
		}
	}
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Amount 接受 JSON 字串 ("500.00") 或數字 (500.00)
//
// 數字保留原始文字，不經過 float64
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("amount must be a decimal string or number")
	}
	*a = Amount(n.String())
	return nil
}

type transferRequest struct {
	SenderAccountID   int64  `json:"sender_account_id"`
	ReceiverAccountID int64  `json:"receiver_account_id"`
	TransactionTypeID int64  `json:"transaction_type_id"`
	Amount            Amount `json:"amount"`
	Description       string `json:"description"`
}

type withdrawRequest struct {
	SenderAccountID   int64  `json:"sender_account_id"`
	TransactionTypeID int64  `json:"transaction_type_id"`
	Amount            Amount `json:"amount"`
	Description       string `json:"description"`
}

type createClientRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type createAccountTypeRequest struct {
	TypeName    string `json:"type_name"`
	Description string `json:"description"`
}

type createBranchRequest struct {
	BranchName string `json:"branch_name"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

type createTransactionTypeRequest struct {
	TypeName string `json:"type_name"`
}

type openAccountRequest struct {
	ClientID      int64  `json:"client_id"`
	AccountTypeID int64  `json:"account_type_id"`
	BranchID      int64  `json:"branch_id"`
	Balance       Amount `json:"balance"`
}

type transactionResponse struct {
	ID                int64     `json:"id"`
	Reference         string    `json:"reference"`
	SenderAccountID   int64     `json:"sender_account_id"`
	ReceiverAccountID *int64    `json:"receiver_account_id"`
	TransactionTypeID int64     `json:"transaction_type_id"`
	Amount            string    `json:"amount"`
	Timestamp         time.Time `json:"timestamp"`
	Description       string    `json:"description"`
}

func toTransactionResponse(t *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:                t.ID,
		Reference:         t.Reference.String(),
		SenderAccountID:   t.SenderAccountID,
		ReceiverAccountID: t.ReceiverAccountID,
		TransactionTypeID: t.TransactionTypeID,
		Amount:            domain.FormatAmount(t.Amount),
		Timestamp:         t.Timestamp.UTC(),
		Description:       t.Description,
	}
}

type accountResponse struct {
	ID            int64     `json:"id"`
	ClientID      int64     `json:"client_id"`
	AccountTypeID int64     `json:"account_type_id"`
	BranchID      int64     `json:"branch_id"`
	Balance       string    `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		ClientID:      a.ClientID,
		AccountTypeID: a.AccountTypeID,
		BranchID:      a.BranchID,
		Balance:       domain.FormatAmount(a.Balance),
		CreatedAt:     a.CreatedAt.UTC(),
	}
}

type branchSummaryResponse struct {
	BranchID     int64  `json:"branch_id"`
	BranchName   string `json:"branch_name"`
	Accounts     int64  `json:"accounts"`
	TotalBalance string `json:"total_balance"`
}

type summaryResponse struct {
	TotalClients      int64                   `json:"total_clients"`
	TotalAccounts     int64                   `json:"total_accounts"`
	TotalBalance      string                  `json:"total_balance"`
	TotalTransactions int64                   `json:"total_transactions"`
	SumTransactions   string                  `json:"sum_transactions"`
	ByBranch          []branchSummaryResponse `json:"by_branch"`
}

func toSummaryResponse(s *domain.Summary) summaryResponse {
	out := summaryResponse{
		TotalClients:      s.TotalClients,
		TotalAccounts:     s.TotalAccounts,
		TotalBalance:      domain.FormatAmount(s.TotalBalance),
		TotalTransactions: s.TotalTransactions,
		SumTransactions:   domain.FormatAmount(s.SumTransactions),
		ByBranch:          make([]branchSummaryResponse, 0, len(s.ByBranch)),
	}
	for _, b := range s.ByBranch {
		out.ByBranch = append(out.ByBranch, branchSummaryResponse{
			BranchID:     b.BranchID,
			BranchName:   b.BranchName,
			Accounts:     b.Accounts,
			TotalBalance: domain.FormatAmount(b.TotalBalance),
		})
	}
	return out
}

type clientResponse struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type accountTypeResponse struct {
	ID          int64  `json:"id"`
	TypeName    string `json:"type_name"`
	Description string `json:"description"`
}

type branchResponse struct {
	ID         int64  `json:"id"`
	BranchName string `json:"branch_name"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

type transactionTypeResponse struct {
	ID       int64  `json:"id"`
	TypeName string `json:"type_name"`
}

package ledgerrpc

// 金額一律以十進位字串傳遞 (例如 "500.00")

type TransferRequest struct {
	SenderAccountID   int64  `json:"sender_account_id"`
	ReceiverAccountID int64  `json:"receiver_account_id"`
	TransactionTypeID int64  `json:"transaction_type_id"`
	Amount            string `json:"amount"`
	Description       string `json:"description,omitempty"`
}

type WithdrawRequest struct {
	SenderAccountID   int64  `json:"sender_account_id"`
	TransactionTypeID int64  `json:"transaction_type_id"`
	Amount            string `json:"amount"`
	Description       string `json:"description,omitempty"`
}

// PostResponse Transfer / Withdraw 的回應
//
// 業務拒絕 (餘額不足、帳戶不存在...) 以 Success=false 回傳，不是 gRPC 錯誤
type PostResponse struct {
	Success       bool         `json:"success"`
	Code          string       `json:"code,omitempty"`
	Message       string       `json:"message,omitempty"`
	Transaction   *Transaction `json:"transaction,omitempty"`
	SenderBalance string       `json:"sender_balance,omitempty"`
}

type GetBalanceRequest struct {
	AccountID int64 `json:"account_id"`
}

type GetBalanceResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   string `json:"balance"`
}

type GetTransactionRequest struct {
	TransactionID int64 `json:"transaction_id"`
}

type GetTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

// Transaction 帳本紀錄
type Transaction struct {
	ID                int64  `json:"id"`
	Reference         string `json:"reference"`
	SenderAccountID   int64  `json:"sender_account_id"`
	ReceiverAccountID *int64 `json:"receiver_account_id"`
	TransactionTypeID int64  `json:"transaction_type_id"`
	Amount            string `json:"amount"`
	Timestamp         string `json:"timestamp"`
	Description       string `json:"description"`
}

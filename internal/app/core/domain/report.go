package domain

import "github.com/shopspring/decimal"

// Summary 全行彙總報表 (唯讀)
type Summary struct {
	TotalClients      int64
	TotalAccounts     int64
	TotalBalance      decimal.Decimal
	TotalTransactions int64
	SumTransactions   decimal.Decimal
	ByBranch          []BranchSummary
}

// BranchSummary 分行彙總
type BranchSummary struct {
	BranchID     int64
	BranchName   string
	Accounts     int64
	TotalBalance decimal.Decimal
}

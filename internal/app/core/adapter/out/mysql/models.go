package mysql

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// sqlClient 對應資料庫的 clients 表
type sqlClient struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	FullName  string `gorm:"size:100;not null"`
	Email     string `gorm:"size:254;not null;uniqueIndex"`
	Phone     string `gorm:"size:20"`
	CreatedAt time.Time
}

func (*sqlClient) TableName() string { return "clients" }

type sqlAccountType struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	TypeName    string `gorm:"size:50;not null;uniqueIndex"`
	Description string `gorm:"type:text"`
}

func (*sqlAccountType) TableName() string { return "account_types" }

type sqlBranch struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	BranchName string `gorm:"size:100;not null"`
	City       string `gorm:"size:50"`
	Country    string `gorm:"size:50"`
}

func (*sqlBranch) TableName() string { return "branches" }

type sqlTransactionType struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	TypeName string `gorm:"size:50;not null;uniqueIndex"`
}

func (*sqlTransactionType) TableName() string { return "transaction_types" }

// sqlAccount 對應 accounts 表，外鍵一律 RESTRICT
type sqlAccount struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	ClientID      int64           `gorm:"not null;index"`
	Client        *sqlClient      `gorm:"constraint:OnDelete:RESTRICT"`
	AccountTypeID int64           `gorm:"not null;index"`
	AccountType   *sqlAccountType `gorm:"constraint:OnDelete:RESTRICT"`
	BranchID      int64           `gorm:"not null;index"`
	Branch        *sqlBranch      `gorm:"constraint:OnDelete:RESTRICT"`
	Balance       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	CreatedAt     time.Time
}

func (*sqlAccount) TableName() string { return "accounts" }

// sqlTransaction 對應 transactions 表 (append-only)
type sqlTransaction struct {
	ID                int64               `gorm:"primaryKey;autoIncrement"`
	Reference         []byte              `gorm:"column:reference;type:binary(16);uniqueIndex"`
	SenderAccountID   int64               `gorm:"not null;index"`
	Sender            *sqlAccount         `gorm:"foreignKey:SenderAccountID;constraint:OnDelete:RESTRICT"`
	ReceiverAccountID *int64              `gorm:"index"`
	Receiver          *sqlAccount         `gorm:"foreignKey:ReceiverAccountID;constraint:OnDelete:RESTRICT"`
	TransactionTypeID int64               `gorm:"not null;index"`
	TransactionType   *sqlTransactionType `gorm:"constraint:OnDelete:RESTRICT"`
	Amount            decimal.Decimal     `gorm:"type:decimal(15,2);not null"`
	Timestamp         time.Time           `gorm:"not null;index"`
	Description       string              `gorm:"type:text"`
}

func (*sqlTransaction) TableName() string { return "transactions" }

// models AutoMigrate 的順序 (被參照的表在前)
func models() []any {
	return []any{
		&sqlClient{}, &sqlAccountType{}, &sqlBranch{}, &sqlTransactionType{},
		&sqlAccount{}, &sqlTransaction{},
	}
}

func (c *sqlClient) toDomain() *domain.Client {
	return &domain.Client{ID: c.ID, FullName: c.FullName, Email: c.Email, Phone: c.Phone, CreatedAt: c.CreatedAt}
}

func (a *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:            a.ID,
		ClientID:      a.ClientID,
		AccountTypeID: a.AccountTypeID,
		BranchID:      a.BranchID,
		Balance:       a.Balance,
		CreatedAt:     a.CreatedAt,
	}
}

func (t *sqlTransaction) toDomain() *domain.Transaction {
	ref, _ := uuid.FromBytes(t.Reference)
	return &domain.Transaction{
		ID:                t.ID,
		Reference:         ref,
		SenderAccountID:   t.SenderAccountID,
		ReceiverAccountID: t.ReceiverAccountID,
		TransactionTypeID: t.TransactionTypeID,
		Amount:            t.Amount,
		Timestamp:         t.Timestamp,
		Description:       t.Description,
	}
}

func fromDomainTransaction(t *domain.Transaction) *sqlTransaction {
	return &sqlTransaction{
		Reference:         t.Reference[:],
		SenderAccountID:   t.SenderAccountID,
		ReceiverAccountID: t.ReceiverAccountID,
		TransactionTypeID: t.TransactionTypeID,
		Amount:            t.Amount,
		Timestamp:         t.Timestamp,
		Description:       t.Description,
	}
}

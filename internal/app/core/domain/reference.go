package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Client 客戶
type Client struct {
	ID        int64
	FullName  string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// Validate 檢查必填欄位
func (c *Client) Validate() error {
	c.FullName = strings.TrimSpace(c.FullName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.FullName == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidOperation)
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidOperation, c.Email)
	}
	return nil
}

// AccountType 帳戶類型
type AccountType struct {
	ID          int64
	TypeName    string
	Description string
}

func (t *AccountType) Validate() error {
	t.TypeName = strings.TrimSpace(t.TypeName)
	if t.TypeName == "" {
		return fmt.Errorf("%w: type name is required", ErrInvalidOperation)
	}
	return nil
}

// Branch 分行
type Branch struct {
	ID         int64
	BranchName string
	City       string
	Country    string
}

func (b *Branch) Validate() error {
	b.BranchName = strings.TrimSpace(b.BranchName)
	if b.BranchName == "" {
		return fmt.Errorf("%w: branch name is required", ErrInvalidOperation)
	}
	return nil
}

// TransactionType 交易類型 (Transfer, Deposit, Withdrawal, Fee ...)
type TransactionType struct {
	ID       int64
	TypeName string
}

func (t *TransactionType) Validate() error {
	t.TypeName = strings.TrimSpace(t.TypeName)
	if t.TypeName == "" {
		return fmt.Errorf("%w: type name is required", ErrInvalidOperation)
	}
	return nil
}

package mysql

import (
	"context"
	sqldriver "database/sql/driver"
	"errors"
	"fmt"
	"testing"

	driver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound error
		want     string
		is       error
	}{
		{"record not found", gorm.ErrRecordNotFound, domain.ErrAccountNotFound, "not_found", domain.ErrAccountNotFound},
		{"lock wait timeout", &driver.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, nil, "transient", domain.ErrLockTimeout},
		{"deadlock", fmt.Errorf("update: %w", &driver.MySQLError{Number: 1213}), nil, "transient", domain.ErrTransient},
		{"duplicate", &driver.MySQLError{Number: 1062}, nil, "invalid_operation", domain.ErrDuplicate},
		{"referenced", &driver.MySQLError{Number: 1451}, nil, "invalid_operation", domain.ErrAccountInUse},
		{"missing parent", &driver.MySQLError{Number: 1452}, nil, "not_found", domain.ErrNotFound},
		{"out of range", &driver.MySQLError{Number: 1264}, nil, "invalid_amount", domain.ErrInvalidAmount},
		{"bad conn", sqldriver.ErrBadConn, nil, "transient", domain.ErrTransient},
		{"invalid conn", driver.ErrInvalidConn, nil, "transient", domain.ErrTransient},
		{"canceled", context.Canceled, nil, "canceled", context.Canceled},
		{"other", errors.New("syntax error"), nil, "internal", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, tt.notFound)
			if label := domain.Classify(got); label != tt.want {
				t.Errorf("Classify = %q, want %q (err %v)", label, tt.want, got)
			}
			if tt.is != nil && !errors.Is(got, tt.is) {
				t.Errorf("errors.Is(%v, %v) = false", got, tt.is)
			}
		})
	}
}

func TestClassifyKeepsRecordNotFoundWithoutMapping(t *testing.T) {
	if err := classify(gorm.ErrRecordNotFound, nil); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v", err)
	}
	if classify(nil, domain.ErrAccountNotFound) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestTransactionRowConversion(t *testing.T) {
	receiver := int64(7)
	in := &domain.Transaction{
		Reference:         uuid.New(),
		SenderAccountID:   3,
		ReceiverAccountID: &receiver,
		TransactionTypeID: 1,
		Amount:            decimal.RequireFromString("12.34"),
		Description:       "test",
	}
	row := fromDomainTransaction(in)
	row.ID = 9
	out := row.toDomain()

	if out.ID != 9 || out.Reference != in.Reference || *out.ReceiverAccountID != 7 || !out.Amount.Equal(in.Amount) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

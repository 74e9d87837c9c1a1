package domain

import (
	"errors"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"500.00", "500.00", false},
		{"0.01", "0.01", false},
		{" 12.5 ", "12.50", false},
		{"500.000", "500.00", false},
		{"5e2", "500.00", false},
		{"9999999999999.99", "9999999999999.99", false},
		{"10000000000000.00", "", true},
		{"10000000000000", "", true},
		{"1.005", "", true},
		{"1e-3", "", true},
		{"0", "", true},
		{"0.00", "", true},
		{"-5.00", "", true},
		{"", "", true},
		{"abc", "", true},
		{"12,50", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseAmount(%q) err = %v, want ErrInvalidAmount", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q): %v", tt.raw, err)
			}
			if FormatAmount(got) != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.raw, FormatAmount(got), tt.want)
			}
		})
	}
}

func TestParseBalance(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"", "0.00", false},
		{"  ", "0.00", false},
		{"0", "0.00", false},
		{"1500.5", "1500.50", false},
		{"9999999999999.99", "9999999999999.99", false},
		{"10000000000000.00", "", true},
		{"-0.01", "", true},
		{"12.345", "", true},
		{"twelve", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseBalance(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseBalance(%q) err = %v, want ErrInvalidAmount", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBalance(%q): %v", tt.raw, err)
			}
			if FormatAmount(got) != tt.want {
				t.Errorf("ParseBalance(%q) = %s, want %s", tt.raw, FormatAmount(got), tt.want)
			}
		})
	}
}

func TestMaxBalance(t *testing.T) {
	if got := MaxBalance(); got != "9999999999999.99" {
		t.Fatalf("MaxBalance = %s", got)
	}
}

func TestLockOrder(t *testing.T) {
	tests := []struct {
		name string
		ids  []int64
		want []int64
	}{
		{"ascending", []int64{1, 2}, []int64{1, 2}},
		{"descending", []int64{9, 3}, []int64{3, 9}},
		{"duplicates", []int64{5, 2, 5, 1, 2}, []int64{1, 2, 5}},
		{"single", []int64{7}, []int64{7}},
		{"empty", nil, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := slices.Clone(tt.ids)
			got := LockOrder(in...)
			if !slices.Equal(got, tt.want) {
				t.Errorf("LockOrder(%v) = %v, want %v", tt.ids, got, tt.want)
			}
			if !slices.Equal(in, tt.ids) {
				t.Errorf("input modified: %v", in)
			}
		})
	}
}

func TestTransactionLockIDs(t *testing.T) {
	receiver := int64(3)
	tran := Transaction{SenderAccountID: 8, ReceiverAccountID: &receiver}
	if got := tran.LockIDs(); !slices.Equal(got, []int64{3, 8}) {
		t.Errorf("transfer LockIDs = %v", got)
	}
	withdraw := Transaction{SenderAccountID: 8}
	if got := withdraw.LockIDs(); !slices.Equal(got, []int64{8}) {
		t.Errorf("withdraw LockIDs = %v", got)
	}
}

func TestAccountCredit(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		amount  string
		want    string
		wantErr bool
	}{
		{"normal", "100.00", "0.50", "100.50", false},
		{"up to ceiling", "9999999999999.98", "0.01", "9999999999999.99", false},
		{"over ceiling", "9999999999999.98", "0.02", "9999999999999.98", true},
		{"zero", "10.00", "0", "10.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{ID: 1, Balance: decimal.RequireFromString(tt.balance)}
			err := a.Credit(decimal.RequireFromString(tt.amount))
			if tt.wantErr != (err != nil) {
				t.Fatalf("Credit err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("Credit err = %v, want ErrInvalidAmount", err)
			}
			if FormatAmount(a.Balance) != tt.want {
				t.Errorf("balance = %s, want %s", FormatAmount(a.Balance), tt.want)
			}
		})
	}
}

func TestAccountDebit(t *testing.T) {
	a := &Account{Balance: decimal.RequireFromString("10.00")}
	if err := a.Debit(decimal.RequireFromString("10.01")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Debit err = %v, want ErrInsufficientFunds", err)
	}
	if FormatAmount(a.Balance) != "10.00" {
		t.Fatalf("balance changed to %s", FormatAmount(a.Balance))
	}
	if err := a.Debit(decimal.RequireFromString("10.00")); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if !a.Balance.IsZero() {
		t.Fatalf("balance = %s, want 0", a.Balance)
	}
}

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, DefaultListLimit},
		{-3, DefaultListLimit},
		{10, 10},
		{MaxListLimit, MaxListLimit},
		{MaxListLimit + 1, MaxListLimit},
		{1 << 20, MaxListLimit},
	}
	for _, tt := range tests {
		if got := (TransactionFilter{Limit: tt.limit}).EffectiveLimit(); got != tt.want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

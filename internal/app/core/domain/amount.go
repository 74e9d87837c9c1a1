package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// 金額一律使用定點小數，精度為小數點後 2 位，對應資料庫 DECIMAL(15,2)
const (
	AmountScale     int32 = 2
	amountPrecision int32 = 15
)

// maxAmount DECIMAL(15,2) 可容納的上限 (不含)
var maxAmount = decimal.New(1, amountPrecision-AmountScale)

// MaxBalance 單一金額或餘額可容納的最大值 (9999999999999.99)
func MaxBalance() string {
	return FormatAmount(maxAmount.Sub(decimal.New(1, -AmountScale)))
}

// ParseAmount 解析交易金額，必須大於零
//
// 參數:
//
//	raw: 十進位字串 (如 "500.00")
//
// 回傳:
//
//	decimal.Decimal: 金額
//	error: ErrInvalidAmount
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := parseScaled(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, amount.StringFixed(AmountScale))
	}
	return amount, nil
}

// ParseBalance 解析開戶餘額，空字串視為 0，不可為負
func ParseBalance(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	balance, err := parseScaled(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if balance.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: opening balance must not be negative", ErrInvalidAmount)
	}
	return balance, nil
}

// FormatAmount 以固定兩位小數輸出
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

func parseScaled(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	// "500.000" 可以，"500.005" 不行
	if !d.Equal(d.Truncate(AmountScale)) {
		return decimal.Zero, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, AmountScale)
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}
	return d.Truncate(AmountScale), nil
}

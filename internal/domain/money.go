package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Amounts are stored as NUMERIC(14,2) and quantities as INT.
const (
	MoneyScale  = 2
	MaxQuantity = math.MaxInt32
)

// MaxMoney is the largest amount a money column can hold.
var MaxMoney = decimal.New(99999999999999, -MoneyScale)

// CentExact reports whether d has no digits below the cent. "1.500" passes,
// "0.005" does not.
func CentExact(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// CheckAmount rejects values above MaxMoney.
func CheckAmount(d decimal.Decimal) error {
	if d.GreaterThan(MaxMoney) {
		return ErrAmountOutOfRange
	}
	return nil
}

// CheckDeposit validates a deposit before it reaches storage.
func CheckDeposit(d decimal.Decimal) error {
	if d.IsNegative() || !CentExact(d) {
		return ErrInvalidDeposit
	}
	return CheckAmount(d)
}

package shared

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places kept for monetary amounts (decimal(10,2))
const MoneyScale = 2

// RoundMoney rounds an amount half-away-from-zero to two decimal places
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}

// ToMinorUnits converts an amount to cents, as payment providers expect
func ToMinorUnits(amount decimal.Decimal) int64 {
	return RoundMoney(amount).Shift(MoneyScale).IntPart()
}

// FromMinorUnits converts cents back to a decimal amount
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -MoneyScale)
}

// ValidateNonNegative returns an INVALID_INPUT error when amount is negative
func ValidateNonNegative(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return NewDomainError("INVALID_INPUT", field+" cannot be negative")
	}
	return nil
}

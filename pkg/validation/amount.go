package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"withdrawal_settlement/models"
)

var (
	// TaxRate is charged on the whole account balance, not on the amount moved.
	TaxRate = decimal.RequireFromString("0.06")
	// MinimumWithdrawal is the smallest amount a user may request.
	MinimumWithdrawal = decimal.RequireFromString("10.00")
)

const feePlaces = 2

type AmountErrorKind string

const (
	MissingAmount     AmountErrorKind = "MissingAmount"
	NonPositiveAmount AmountErrorKind = "NonPositiveAmount"
	TooPrecise        AmountErrorKind = "TooPrecise"
	BelowMinimum      AmountErrorKind = "BelowMinimum"
	ExceedsAvailable  AmountErrorKind = "ExceedsAvailable"
)

type AmountError struct {
	Kind AmountErrorKind
	// Limit is the bound that was violated, if any.
	Limit decimal.Decimal
}

func (e *AmountError) Error() string {
	switch e.Kind {
	case MissingAmount:
		return "amount is required"
	case NonPositiveAmount:
		return "amount must be greater than zero"
	case TooPrecise:
		return fmt.Sprintf("amount may have at most %d decimal places", feePlaces)
	case BelowMinimum:
		return fmt.Sprintf("amount is below the minimum withdrawal of %s", e.Limit.StringFixed(feePlaces))
	case ExceedsAvailable:
		return fmt.Sprintf("amount exceeds the available %s after fees", e.Limit.StringFixed(feePlaces))
	}
	return string(e.Kind)
}

// NormalizeBalance cuts a balance to whole cents. Fractions of a cent are
// never counted as available.
func NormalizeBalance(balance decimal.Decimal) decimal.Decimal {
	return balance.Truncate(feePlaces)
}

// ComputeLimits returns the fee and the most a user may withdraw for a
// balance. Both are floored at zero.
func ComputeLimits(balance decimal.Decimal) models.Limits {
	balance = NormalizeBalance(balance)
	fee := balance.Mul(TaxRate).Round(feePlaces)
	if fee.IsNegative() {
		fee = decimal.Zero
	}
	available := balance.Sub(fee)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return models.Limits{
		Balance:         balance,
		TaxFee:          fee,
		MaxWithdrawable: available,
	}
}

// ValidateAmount checks requested against policy for balance. The minimum
// is checked before availability, so a small amount on a small balance
// reports BelowMinimum.
func ValidateAmount(requested *decimal.Decimal, balance decimal.Decimal) error {
	if requested == nil {
		return &AmountError{Kind: MissingAmount}
	}
	if !requested.IsPositive() {
		return &AmountError{Kind: NonPositiveAmount}
	}
	if !requested.Equal(requested.Truncate(feePlaces)) {
		return &AmountError{Kind: TooPrecise}
	}
	if requested.LessThan(MinimumWithdrawal) {
		return &AmountError{Kind: BelowMinimum, Limit: MinimumWithdrawal}
	}
	limits := ComputeLimits(balance)
	if requested.GreaterThan(limits.MaxWithdrawable) {
		return &AmountError{Kind: ExceedsAvailable, Limit: limits.MaxWithdrawable}
	}
	return nil
}

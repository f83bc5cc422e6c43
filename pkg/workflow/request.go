package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"withdrawal_settlement/models"
	"withdrawal_settlement/pkg/validation"
)

// NewRequest builds a pending request. The fee is frozen from the balance
// snapshot here and never recomputed. The snapshot is kept in whole cents.
// Inputs must already be validated.
func NewRequest(userID string, amount, balance decimal.Decimal, details models.MethodDetails, notes string, now time.Time) *models.WithdrawalRequest {
	method, _ := details.Method()
	limits := validation.ComputeLimits(balance)
	return &models.WithdrawalRequest{
		ID:                     uuid.NewString(),
		UserID:                 userID,
		RequestedAmount:        amount,
		AccountBalanceSnapshot: limits.Balance,
		TaxFee:                 limits.TaxFee,
		Method:                 method,
		MethodDetails:          details.Clone(),
		Notes:                  strings.TrimSpace(notes),
		Status:                 models.StatusPendingTaxPayment,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

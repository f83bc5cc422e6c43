package models

import "github.com/shopspring/decimal"

// Limits is what a user may withdraw from a balance after the tax fee.
type Limits struct {
	Balance         decimal.Decimal `json:"balance"`
	TaxFee          decimal.Decimal `json:"tax_fee"`
	MaxWithdrawable decimal.Decimal `json:"max_withdrawable"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendingTaxPayment Status = "pending_tax_payment"
	StatusTaxPaid           Status = "tax_paid"
	StatusProcessing        Status = "processing"
	StatusCompleted         Status = "completed"
	StatusRejected          Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingTaxPayment, StatusTaxPaid, StatusProcessing, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

type Method string

const (
	MethodBankTransfer Method = "bank_transfer"
	MethodCrypto       Method = "crypto"
	MethodPayPal       Method = "paypal"
)

func (m Method) Valid() bool {
	switch m {
	case MethodBankTransfer, MethodCrypto, MethodPayPal:
		return true
	}
	return false
}

// WithdrawalRequest is a user's request to move funds out of the platform.
// Amount, snapshot, fee, method and details are fixed at creation; only
// status, tax_paid, admin notes and the review stamps change afterwards.
type WithdrawalRequest struct {
	ID                     string          `db:"id" json:"id"`
	UserID                 string          `db:"user_id" json:"user_id"`
	RequestedAmount        decimal.Decimal `db:"requested_amount" json:"requested_amount"`
	AccountBalanceSnapshot decimal.Decimal `db:"account_balance_snapshot" json:"account_balance_snapshot"`
	TaxFee                 decimal.Decimal `db:"tax_fee" json:"tax_fee"`
	TaxPaid                bool            `db:"tax_paid" json:"tax_paid"`
	Method                 Method          `db:"method" json:"method"`
	MethodDetails          MethodDetails   `db:"method_details" json:"method_details"`
	Notes                  string          `db:"notes" json:"notes,omitempty"`
	AdminNotes             string          `db:"admin_notes" json:"admin_notes,omitempty"`
	Status                 Status          `db:"status" json:"status"`
	ReviewedBy             string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	TaxPaidAt              *time.Time      `db:"tax_paid_at" json:"tax_paid_at,omitempty"`
	SettledAt              *time.Time      `db:"settled_at" json:"settled_at,omitempty"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (w *WithdrawalRequest) Clone() *WithdrawalRequest {
	if w == nil {
		return nil
	}
	c := *w
	c.MethodDetails = w.MethodDetails.Clone()
	if w.TaxPaidAt != nil {
		t := *w.TaxPaidAt
		c.TaxPaidAt = &t
	}
	if w.SettledAt != nil {
		t := *w.SettledAt
		c.SettledAt = &t
	}
	return &c
}

func (w *WithdrawalRequest) Summary() Summary {
	return Summary{
		ID:              w.ID,
		UserID:          w.UserID,
		RequestedAmount: w.RequestedAmount,
		TaxFee:          w.TaxFee,
		TaxPaid:         w.TaxPaid,
		Method:          w.Method,
		Status:          w.Status,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

// Summary is the row shown on the review list.
type Summary struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	RequestedAmount decimal.Decimal `db:"requested_amount" json:"requested_amount"`
	TaxFee          decimal.Decimal `db:"tax_fee" json:"tax_fee"`
	TaxPaid         bool            `db:"tax_paid" json:"tax_paid"`
	Method          Method          `db:"method" json:"method"`
	Status          Status          `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Filter narrows the review list. Zero values match everything.
type Filter struct {
	Status    Status `form:"status" json:"status,omitempty"`
	Method    Method `form:"method" json:"method,omitempty"`
	UserQuery string `form:"q" json:"q,omitempty"`
	Limit     int    `form:"limit" json:"limit,omitempty"`
	Offset    int    `form:"offset" json:"offset,omitempty"`
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Normalize clamps paging to sane bounds.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuditKind string

const (
	AuditSubmitted     AuditKind = "withdrawal.submitted"
	AuditTaxMarkedPaid AuditKind = "withdrawal.tax_marked_paid"
	AuditApproved      AuditKind = "withdrawal.approved"
	AuditRejected      AuditKind = "withdrawal.rejected"
)

// AuditEvent is one entry of the withdrawal audit trail.
type AuditEvent struct {
	ID        int64                  `db:"id" json:"id"`
	Kind      AuditKind              `db:"kind" json:"kind"`
	RequestID string                 `db:"request_id" json:"request_id"`
	ActorID   string                 `db:"actor_id" json:"actor_id"`
	Details   map[string]interface{} `db:"-" json:"details,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

type NotificationEvent string

const (
	NotifySubmitted NotificationEvent = "submitted"
	NotifyTaxPaid   NotificationEvent = "tax_paid"
	NotifyCompleted NotificationEvent = "completed"
	NotifyRejected  NotificationEvent = "rejected"
)

// Notification tells a user their request moved.
type Notification struct {
	UserID    string            `json:"user_id"`
	RequestID string            `json:"request_id"`
	Event     NotificationEvent `json:"event"`
	Status    Status            `json:"status"`
	Amount    decimal.Decimal   `json:"amount"`
	TaxFee    decimal.Decimal   `json:"tax_fee"`
	Reason    string            `json:"reason,omitempty"`
	At        time.Time         `json:"at"`
}

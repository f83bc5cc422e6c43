package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"withdrawal_settlement/models"
)

var (
	ErrNotFound = errors.New("withdrawal request not found")
	// ErrStaleState means the stored status no longer matched the expected one.
	ErrStaleState = errors.New("withdrawal request status changed concurrently")
)

type Withdrawal interface {
	Create(ctx context.Context, req *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	// CompareAndSwap stores next only if the current status equals expected.
	CompareAndSwap(ctx context.Context, expected models.Status, next *models.WithdrawalRequest) error
	List(ctx context.Context, filter models.Filter) ([]models.Summary, error)
	ListByUser(ctx context.Context, userID string) ([]models.WithdrawalRequest, error)
}

type Audit interface {
	Record(ctx context.Context, event models.AuditEvent) error
	ListByRequest(ctx context.Context, requestID string) ([]models.AuditEvent, error)
}

type Repository struct {
	Withdrawal
	Audit
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		Withdrawal: NewWithdrawalPostgres(db),
		Audit:      NewAuditPostgres(db),
	}
}

// NewMemoryRepository keeps everything in process. Used for local runs and tests.
func NewMemoryRepository() *Repository {
	return &Repository{
		Withdrawal: NewWithdrawalMemory(),
		Audit:      NewAuditMemory(),
	}
}

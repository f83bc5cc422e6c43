package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"withdrawal_settlement/models"
	"withdrawal_settlement/pkg/cache"
	"withdrawal_settlement/pkg/repository"
	"withdrawal_settlement/pkg/validation"
)

// Balances is the account read model.
type Balances interface {
	GetAccountBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

// Permissions answers capability checks for administrators.
type Permissions interface {
	HasPermission(ctx context.Context, adminID, capability string) (bool, error)
}

// SideChannel receives audit events and notifications. Calls must not block.
type SideChannel interface {
	Audit(event models.AuditEvent)
	Notify(n models.Notification)
}

type Withdrawal interface {
	Submit(ctx context.Context, in SubmitInput) (*models.WithdrawalRequest, error)
	Limits(ctx context.Context, userID string) (models.Limits, error)
	ListForUser(ctx context.Context, userID string) ([]models.WithdrawalRequest, error)
	GetForUser(ctx context.Context, userID, id string) (*models.WithdrawalRequest, error)

	ApplyAdminAction(ctx context.Context, in ActionInput) (*models.WithdrawalRequest, error)
	List(ctx context.Context, adminID string, filter models.Filter) ([]models.Summary, error)
	GetForAdmin(ctx context.Context, adminID, id string) (*models.WithdrawalRequest, error)
	AuditTrail(ctx context.Context, adminID, id string) ([]models.AuditEvent, error)
}

type Service struct {
	Withdrawal
}

type Deps struct {
	Repos       *repository.Repository
	Balances    Balances
	Permissions Permissions
	Events      SideChannel
	Cache       *cache.ListCache
	Validator   validation.Validator
	// Clock defaults to time.Now in UTC.
	Clock func() time.Time
}

func NewService(deps Deps) *Service {
	return &Service{
		Withdrawal: NewWithdrawalService(deps),
	}
}

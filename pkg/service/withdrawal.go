package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"withdrawal_settlement/models"
	"withdrawal_settlement/pkg/cache"
	"withdrawal_settlement/pkg/repository"
	"withdrawal_settlement/pkg/validation"
	"withdrawal_settlement/pkg/workflow"
)

const CapabilityReview = "withdrawals.review"

var actionCapabilities = map[workflow.Event]string{
	workflow.EventMarkTaxPaid:   "withdrawals.mark_tax_paid",
	workflow.EventApprove:       "withdrawals.approve",
	workflow.EventReject:        "withdrawals.reject",
	workflow.EventRejectPending: "withdrawals.reject",
}

var actionAudit = map[workflow.Event]models.AuditKind{
	workflow.EventMarkTaxPaid:   models.AuditTaxMarkedPaid,
	workflow.EventApprove:       models.AuditApproved,
	workflow.EventReject:        models.AuditRejected,
	workflow.EventRejectPending: models.AuditRejected,
}

var actionNotification = map[workflow.Event]models.NotificationEvent{
	workflow.EventMarkTaxPaid:   models.NotifyTaxPaid,
	workflow.EventApprove:       models.NotifyCompleted,
	workflow.EventReject:        models.NotifyRejected,
	workflow.EventRejectPending: models.NotifyRejected,
}

// CapabilityFor returns the capability an admin needs to run action.
func CapabilityFor(action workflow.Event) string {
	return actionCapabilities[action]
}

type SubmitInput struct {
	UserID  string
	Amount  *decimal.Decimal
	Method  models.Method
	Details models.MethodDetails
	Notes   string
}

type ActionInput struct {
	RequestID string
	AdminID   string
	Action    workflow.Event
	Notes     string
}

type WithdrawalService struct {
	repos       *repository.Repository
	balances    Balances
	permissions Permissions
	events      SideChannel
	cache       *cache.ListCache
	validator   validation.Validator
	now         func() time.Time
}

func NewWithdrawalService(deps Deps) *WithdrawalService {
	now := deps.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	c := deps.Cache
	if c == nil {
		c = cache.NewListCache(cache.DefaultTTL)
	}
	return &WithdrawalService{
		repos:       deps.Repos,
		balances:    deps.Balances,
		permissions: deps.Permissions,
		events:      deps.Events,
		cache:       c,
		validator:   deps.Validator,
		now:         now,
	}
}

func (s *WithdrawalService) balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	balance, err := s.balances.GetAccountBalance(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Warn("balance lookup failed")
		return decimal.Zero, errors.Wrapf(ErrDependencyUnavailable, "balance lookup: %v", err)
	}
	return balance, nil
}

func (s *WithdrawalService) Limits(ctx context.Context, userID string) (models.Limits, error) {
	balance, err := s.balance(ctx, userID)
	if err != nil {
		return models.Limits{}, err
	}
	return validation.ComputeLimits(balance), nil
}

// Submit validates a client request against a fresh balance snapshot and
// stores it as pending_tax_payment.
func (s *WithdrawalService) Submit(ctx context.Context, in SubmitInput) (*models.WithdrawalRequest, error) {
	balance, err := s.balance(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if verr := NewValidationError(
		validation.ValidateAmount(in.Amount, balance),
		s.validator.Details(in.Method, in.Details),
	); verr != nil {
		return nil, verr
	}

	req := workflow.NewRequest(in.UserID, *in.Amount, balance, in.Details, in.Notes, s.now())
	if err := s.repos.Create(ctx, req); err != nil {
		return nil, errors.Wrap(err, "submit withdrawal")
	}
	s.cache.Invalidate()

	logrus.WithFields(logrus.Fields{
		"request_id": req.ID,
		"user_id":    req.UserID,
		"amount":     req.RequestedAmount.String(),
		"tax_fee":    req.TaxFee.String(),
		"method":     req.Method,
	}).Info("withdrawal request submitted")

	s.publish(req, models.AuditSubmitted, models.NotifySubmitted, req.UserID, "")
	return req, nil
}

// ApplyAdminAction runs one guarded transition. Repeating an action that
// already took effect returns the stored request without new events.
func (s *WithdrawalService) ApplyAdminAction(ctx context.Context, in ActionInput) (*models.WithdrawalRequest, error) {
	if !in.Action.Valid() {
		return nil, errors.Wrapf(ErrUnknownAction, "%q", in.Action)
	}
	if err := s.authorize(ctx, in.AdminID, CapabilityFor(in.Action)); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"request_id": current.ID,
		"admin_id":   in.AdminID,
		"action":     in.Action,
		"from":       current.Status,
	})

	if target, _ := workflow.Target(in.Action); current.Status == target {
		log.Info("admin action already applied")
		return current, nil
	}

	next, err := workflow.Apply(current, in.Action, in.AdminID, in.Notes, s.now())
	if err != nil {
		log.WithError(err).Info("admin action refused")
		return nil, err
	}

	if err := s.repos.CompareAndSwap(ctx, current.Status, next); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			log.Info("admin action lost a concurrent update")
			return nil, errors.Wrapf(ErrInvalidTransition, "request %s changed concurrently", current.ID)
		}
		return nil, errors.Wrap(err, "apply admin action")
	}
	s.cache.Invalidate()

	log.WithField("to", next.Status).Info("withdrawal request transitioned")
	s.publish(next, actionAudit[in.Action], actionNotification[in.Action], in.AdminID, next.AdminNotes)
	return next, nil
}

func (s *WithdrawalService) List(ctx context.Context, adminID string, filter models.Filter) ([]models.Summary, error) {
	if err := s.authorize(ctx, adminID, CapabilityReview); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	filter = filter.Normalize()

	if items, ok := s.cache.Get(filter); ok {
		return items, nil
	}
	gen := s.cache.Generation()
	items, err := s.repos.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list withdrawal requests")
	}
	s.cache.Set(filter, items, gen)
	return items, nil
}

func (s *WithdrawalService) GetForAdmin(ctx context.Context, adminID, id string) (*models.WithdrawalRequest, error) {
	if err := s.authorize(ctx, adminID, CapabilityReview); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *WithdrawalService) AuditTrail(ctx context.Context, adminID, id string) ([]models.AuditEvent, error) {
	if err := s.authorize(ctx, adminID, CapabilityReview); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.repos.ListByRequest(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "audit trail")
	}
	return events, nil
}

func (s *WithdrawalService) ListForUser(ctx context.Context, userID string) ([]models.WithdrawalRequest, error) {
	reqs, err := s.repos.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user withdrawals")
	}
	return reqs, nil
}

// GetForUser hides requests owned by someone else behind ErrNotFound.
func (s *WithdrawalService) GetForUser(ctx context.Context, userID, id string) (*models.WithdrawalRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrNotFound
	}
	return req, nil
}

// load treats ids that are not UUIDs as unknown, so they never reach the
// uuid column.
func (s *WithdrawalService) load(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	req, err := s.repos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "load withdrawal request")
	}
	return req, nil
}

// authorize fails closed: a permission service error denies the call.
func (s *WithdrawalService) authorize(ctx context.Context, adminID, capability string) error {
	ok, err := s.permissions.HasPermission(ctx, adminID, capability)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"admin_id":   adminID,
			"capability": capability,
		}).WithError(err).Warn("permission check failed")
		return errors.Wrapf(ErrDependencyUnavailable, "permission check: %v", err)
	}
	if !ok {
		return errors.Wrapf(ErrForbidden, "%s needs %s", adminID, capability)
	}
	return nil
}

func (s *WithdrawalService) publish(req *models.WithdrawalRequest, kind models.AuditKind, event models.NotificationEvent, actorID, reason string) {
	if s.events == nil {
		return
	}
	details := map[string]interface{}{
		"status":  string(req.Status),
		"amount":  req.RequestedAmount.String(),
		"tax_fee": req.TaxFee.String(),
		"method":  string(req.Method),
	}
	if reason != "" {
		details["notes"] = reason
	}
	s.events.Audit(models.AuditEvent{
		Kind:      kind,
		RequestID: req.ID,
		ActorID:   actorID,
		Details:   details,
		CreatedAt: req.UpdatedAt,
	})

	n := models.Notification{
		UserID:    req.UserID,
		RequestID: req.ID,
		Event:     event,
		Status:    req.Status,
		Amount:    req.RequestedAmount,
		TaxFee:    req.TaxFee,
		At:        req.UpdatedAt,
	}
	if event == models.NotifyRejected {
		n.Reason = reason
	}
	s.events.Notify(n)
}

func validateFilter(f models.Filter) error {
	var verr ValidationError
	if f.Status != "" && !f.Status.Valid() {
		verr.Errors = append(verr.Errors, FieldError{Field: "status", Code: "UnknownStatus", Message: "unknown status " + string(f.Status)})
	}
	if f.Method != "" && !f.Method.Valid() {
		verr.Errors = append(verr.Errors, FieldError{Field: "method", Code: string(validation.UnknownMethod), Message: "unknown method " + string(f.Method)})
	}
	if len(verr.Errors) > 0 {
		return &verr
	}
	return nil
}

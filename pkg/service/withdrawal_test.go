package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"withdrawal_settlement/models"
	"withdrawal_settlement/pkg/events"
	"withdrawal_settlement/pkg/repository"
	"withdrawal_settlement/pkg/workflow"
)

type stubBalances struct {
	balance decimal.Decimal
	err     error
}

func (s *stubBalances) GetAccountBalance(context.Context, string) (decimal.Decimal, error) {
	return s.balance, s.err
}

type stubPermissions struct {
	allowed bool
	err     error
}

func (s *stubPermissions) HasPermission(context.Context, string, string) (bool, error) {
	return s.allowed, s.err
}

type recorder struct {
	mu     sync.Mutex
	audits []models.AuditEvent
	notes  []models.Notification
}

func (r *recorder) Audit(ev models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, ev)
}

func (r *recorder) Notify(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) auditKinds() []models.AuditKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]models.AuditKind, 0, len(r.audits))
	for _, a := range r.audits {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

type fixture struct {
	svc         *WithdrawalService
	repos       *repository.Repository
	balances    *stubBalances
	permissions *stubPermissions
	events      *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repos:       repository.NewMemoryRepository(),
		balances:    &stubBalances{balance: dec("10000.00")},
		permissions: &stubPermissions{allowed: true},
		events:      &recorder{},
	}
	var mu sync.Mutex
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc = NewWithdrawalService(Deps{
		Repos:       f.repos,
		Balances:    f.balances,
		Permissions: f.permissions,
		Events:      f.events,
		Clock: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func cryptoInput(amount string) SubmitInput {
	return SubmitInput{
		UserID: "user-1",
		Amount: decPtr(amount),
		Method: models.MethodCrypto,
		Details: models.Crypto(models.CryptoDetails{
			WalletAddress: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
			Network:       models.NetworkBitcoin,
		}),
	}
}

func (f *fixture) submit(t *testing.T) *models.WithdrawalRequest {
	t.Helper()
	req, err := f.svc.Submit(context.Background(), cryptoInput("9400.00"))
	require.NoError(t, err)
	return req
}

func (f *fixture) act(id string, action workflow.Event, notes string) (*models.WithdrawalRequest, error) {
	return f.svc.ApplyAdminAction(context.Background(), ActionInput{
		RequestID: id,
		AdminID:   "admin-1",
		Action:    action,
		Notes:     notes,
	})
}

func (f *fixture) stored(t *testing.T, id string) *models.WithdrawalRequest {
	t.Helper()
	req, err := f.repos.GetByID(context.Background(), id)
	require.NoError(t, err)
	return req
}

func TestSubmitAtMaximum(t *testing.T) {
	f := newFixture(t)

	limits, err := f.svc.Limits(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "600.00", limits.TaxFee.StringFixed(2))
	assert.Equal(t, "9400.00", limits.MaxWithdrawable.StringFixed(2))

	req := f.submit(t)
	assert.Equal(t, models.StatusPendingTaxPayment, req.Status)
	assert.True(t, req.TaxFee.Equal(dec("600.00")))
	assert.True(t, req.AccountBalanceSnapshot.Equal(dec("10000.00")))
	assert.False(t, req.TaxPaid)

	stored := f.stored(t, req.ID)
	assert.Equal(t, req.ID, stored.ID)
	assert.Equal(t, []models.AuditKind{models.AuditSubmitted}, f.events.auditKinds())
	require.Len(t, f.events.notes, 1)
	assert.Equal(t, models.NotifySubmitted, f.events.notes[0].Event)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		input SubmitInput
		field string
		code  string
	}{
		{name: "one cent over available", input: cryptoInput("9400.01"), field: "amount", code: "ExceedsAvailable"},
		{name: "below minimum", input: cryptoInput("5.00"), field: "amount", code: "BelowMinimum"},
		{name: "sub-cent amount", input: cryptoInput("10.005"), field: "amount", code: "TooPrecise"},
		{name: "missing amount", input: SubmitInput{UserID: "user-1", Method: models.MethodPayPal,
			Details: models.PayPal(models.PayPalDetails{Email: "a@example.com"})}, field: "amount", code: "MissingAmount"},
		{name: "short wallet", input: func() SubmitInput {
			in := cryptoInput("100")
			in.Details.Crypto.WalletAddress = "abc"
			return in
		}(), field: "wallet_address", code: "TooShort"},
		{name: "details for another method", input: func() SubmitInput {
			in := cryptoInput("100")
			in.Method = models.MethodBankTransfer
			return in
		}(), field: "method_details", code: "VariantMismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Submit(context.Background(), tt.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.Has(tt.field, tt.code), "got %+v", verr.Errors)

			all, err := f.repos.ListByUser(context.Background(), "user-1")
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Empty(t, f.events.auditKinds())
		})
	}
}

func TestSubmitReportsAmountAndDetailsTogether(t *testing.T) {
	f := newFixture(t)
	in := SubmitInput{
		UserID: "user-1",
		Amount: decPtr("0"),
		Method: models.MethodBankTransfer,
		Details: models.BankTransfer(models.BankDetails{
			AccountHolderName: "Jane Doe",
			BankName:          "First Bank",
		}),
	}

	_, err := f.svc.Submit(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("amount", "NonPositiveAmount"))
	assert.True(t, verr.Has("account_number", "Required"))
	assert.True(t, verr.Has("routing_number", "Required"))
}

func TestSubmitBalanceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.balances.err = errors.New("connection refused")

	_, err := f.svc.Submit(context.Background(), cryptoInput("100"))
	assert.ErrorIs(t, err, ErrDependencyUnavailable)

	_, err = f.svc.Limits(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestAdminActionOrdering(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	_, err := f.act(req.ID, workflow.EventApprove, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.StatusPendingTaxPayment, f.stored(t, req.ID).Status)

	paid, err := f.act(req.ID, workflow.EventMarkTaxPaid, "receipt 42")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTaxPaid, paid.Status)
	assert.True(t, paid.TaxPaid)
	require.NotNil(t, paid.TaxPaidAt)

	done, err := f.act(req.ID, workflow.EventApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, "admin-1", done.ReviewedBy)

	stored := f.stored(t, req.ID)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.True(t, stored.RequestedAmount.Equal(req.RequestedAmount))
	assert.True(t, stored.TaxFee.Equal(req.TaxFee))

	assert.Equal(t, []models.AuditKind{
		models.AuditSubmitted, models.AuditTaxMarkedPaid, models.AuditApproved,
	}, f.events.auditKinds())
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)
	_, err := f.act(req.ID, workflow.EventMarkTaxPaid, "")
	require.NoError(t, err)

	_, err = f.act(req.ID, workflow.EventReject, "   ")
	assert.ErrorIs(t, err, ErrMissingReason)
	assert.Equal(t, models.StatusTaxPaid, f.stored(t, req.ID).Status)

	rejected, err := f.act(req.ID, workflow.EventReject, "insufficient documentation")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "insufficient documentation", f.stored(t, req.ID).AdminNotes)

	f.events.mu.Lock()
	last := f.events.notes[len(f.events.notes)-1]
	f.events.mu.Unlock()
	assert.Equal(t, models.NotifyRejected, last.Event)
	assert.Equal(t, "insufficient documentation", last.Reason)
}

func TestRejectPending(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	_, err := f.act(req.ID, workflow.EventRejectPending, "")
	assert.ErrorIs(t, err, ErrMissingReason)

	got, err := f.act(req.ID, workflow.EventRejectPending, "failed KYC")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.False(t, got.TaxPaid)
}

func TestTerminalStatesAreClosed(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)
	_, err := f.act(req.ID, workflow.EventMarkTaxPaid, "")
	require.NoError(t, err)
	_, err = f.act(req.ID, workflow.EventApprove, "")
	require.NoError(t, err)

	for _, action := range []workflow.Event{workflow.EventMarkTaxPaid, workflow.EventReject, workflow.EventRejectPending} {
		_, err := f.act(req.ID, action, "too late")
		assert.ErrorIs(t, err, ErrTerminalState, "action %s", action)
	}
	assert.Equal(t, models.StatusCompleted, f.stored(t, req.ID).Status)
}

func TestAdminActionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	first, err := f.act(req.ID, workflow.EventMarkTaxPaid, "receipt 42")
	require.NoError(t, err)
	second, err := f.act(req.ID, workflow.EventMarkTaxPaid, "receipt 42")
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Equal(t, []models.AuditKind{models.AuditSubmitted, models.AuditTaxMarkedPaid}, f.events.auditKinds())
}

// gatedWithdrawals holds every loader until all expected callers have read,
// so they all start from the same status.
type gatedWithdrawals struct {
	repository.Withdrawal
	loaded sync.WaitGroup
}

func (g *gatedWithdrawals) GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	req, err := g.Withdrawal.GetByID(ctx, id)
	g.loaded.Done()
	g.loaded.Wait()
	return req, err
}

func TestConcurrentApproveHasOneWinner(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)
	_, err := f.act(req.ID, workflow.EventMarkTaxPaid, "")
	require.NoError(t, err)

	gated := &gatedWithdrawals{Withdrawal: f.repos.Withdrawal}
	gated.loaded.Add(2)
	f.svc.repos = &repository.Repository{Withdrawal: gated, Audit: f.repos.Audit}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.act(req.ID, workflow.EventApprove, "")
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrInvalidTransition):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
	assert.Equal(t, models.StatusCompleted, f.stored(t, req.ID).Status)

	approvals := 0
	for _, k := range f.events.auditKinds() {
		if k == models.AuditApproved {
			approvals++
		}
	}
	assert.Equal(t, 1, approvals)
}

func TestAdminActionPermissions(t *testing.T) {
	tests := []struct {
		name    string
		allowed bool
		err     error
		want    error
	}{
		{name: "denied", allowed: false, want: ErrForbidden},
		{name: "permission service down", err: errors.New("timeout"), want: ErrDependencyUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.submit(t)
			f.permissions.allowed = tt.allowed
			f.permissions.err = tt.err

			_, err := f.act(req.ID, workflow.EventMarkTaxPaid, "")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, models.StatusPendingTaxPayment, f.stored(t, req.ID).Status)

			_, err = f.svc.List(context.Background(), "admin-1", models.Filter{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAdminActionUnknownRequestAndAction(t *testing.T) {
	f := newFixture(t)

	_, err := f.act("missing", workflow.EventApprove, "")
	assert.ErrorIs(t, err, ErrNotFound)

	req := f.submit(t)
	_, err = f.act(req.ID, workflow.Event("refund"), "")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestSideChannelFailuresDoNotUndoTransitions(t *testing.T) {
	f := newFixture(t)
	d := events.NewDispatcher(failingSink{}, failingNotifier{}, 4, 1)
	f.svc.events = d

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	req := f.submit(t)
	paid, err := f.act(req.ID, workflow.EventMarkTaxPaid, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTaxPaid, paid.Status)
	assert.Equal(t, models.StatusTaxPaid, f.stored(t, req.ID).Status)

	cancel()
	require.NoError(t, <-done)
}

// brokenLookups fails every read the way the database rejects a malformed
// uuid, which is not a not-found error.
type brokenLookups struct {
	repository.Withdrawal
	calls int
}

func (b *brokenLookups) GetByID(context.Context, string) (*models.WithdrawalRequest, error) {
	b.calls++
	return nil, errors.New(`pq: invalid input syntax for type uuid: "missing"`)
}

func TestNonUUIDIDsAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	broken := &brokenLookups{Withdrawal: f.repos.Withdrawal}
	f.svc.repos = &repository.Repository{Withdrawal: broken, Audit: f.repos.Audit}

	_, err := f.act("missing", workflow.EventApprove, "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetForAdmin(ctx, "admin-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetForUser(ctx, "user-1", "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.AuditTrail(ctx, "admin-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, broken.calls)
}

type failingSink struct{}

func (failingSink) Record(context.Context, models.AuditEvent) error { return errors.New("audit down") }

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, models.Notification) error {
	return errors.New("mail down")
}

func TestListIsCachedUntilWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t)

	first, err := f.svc.List(ctx, "admin-1", models.Filter{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	second := f.submit(t)
	got, err := f.svc.List(ctx, "admin-1", models.Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.act(second.ID, workflow.EventMarkTaxPaid, "")
	require.NoError(t, err)
	paid, err := f.svc.List(ctx, "admin-1", models.Filter{Status: models.StatusTaxPaid})
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, second.ID, paid[0].ID)

	_, err = f.svc.List(ctx, "admin-1", models.Filter{Status: "archived"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUserReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)

	mine, err := f.svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	got, err := f.svc.GetForUser(ctx, "user-1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	_, err = f.svc.GetForUser(ctx, "user-2", req.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t)
	require.NoError(t, f.repos.Record(ctx, models.AuditEvent{Kind: models.AuditSubmitted, RequestID: req.ID}))

	trail, err := f.svc.AuditTrail(ctx, "admin-1", req.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 1)

	_, err = f.svc.AuditTrail(ctx, "admin-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

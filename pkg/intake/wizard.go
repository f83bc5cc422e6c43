package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"withdrawal_settlement/models"
	"withdrawal_settlement/pkg/service"
	"withdrawal_settlement/pkg/validation"
)

type Step int

const (
	StepAmount Step = iota
	StepMethod
	StepDetails
	StepConfirm
	StepSubmit
)

var stepNames = [...]string{"amount", "method", "details", "confirm", "submit"}

func (s Step) String() string {
	if s < StepAmount || s > StepSubmit {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Phase is what the client sees. After submit it only mirrors the outcome
// of the service call.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseProcessing Phase = "processing"
	PhaseSuccess    Phase = "success"
	PhaseFailure    Phase = "failure"
	PhaseCancelled  Phase = "cancelled"
)

var (
	ErrWrongStep = errors.New("not available at the current step")
	ErrClosed    = errors.New("wizard no longer accepts input")
)

// Backend is the part of the settlement service the wizard calls.
type Backend interface {
	Limits(ctx context.Context, userID string) (models.Limits, error)
	Submit(ctx context.Context, in service.SubmitInput) (*models.WithdrawalRequest, error)
}

// Recap is the read-only summary shown on the confirm step.
type Recap struct {
	Amount          decimal.Decimal      `json:"amount"`
	TaxFee          decimal.Decimal      `json:"tax_fee"`
	MaxWithdrawable decimal.Decimal      `json:"max_withdrawable"`
	Method          models.Method        `json:"method"`
	Details         models.MethodDetails `json:"method_details"`
	Notes           string               `json:"notes,omitempty"`
}

// Wizard collects one withdrawal request step by step. It is not safe for
// concurrent use.
type Wizard struct {
	backend   Backend
	validator validation.Validator
	userID    string
	limits    models.Limits

	step    Step
	phase   Phase
	amount  decimal.Decimal
	method  models.Method
	details models.MethodDetails
	notes   string

	errs   *service.ValidationError
	result *models.WithdrawalRequest
	err    error
}

// Start opens a wizard for userID with the limits current at this moment.
// The service re-checks them on submit.
func Start(ctx context.Context, backend Backend, v validation.Validator, userID string) (*Wizard, error) {
	limits, err := backend.Limits(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Wizard{
		backend:   backend,
		validator: v,
		userID:    userID,
		limits:    limits,
		step:      StepAmount,
		phase:     PhaseCollecting,
	}, nil
}

func (w *Wizard) Step() Step            { return w.step }
func (w *Wizard) Phase() Phase          { return w.phase }
func (w *Wizard) Limits() models.Limits { return w.limits }

// FieldErrors are the inline errors of the last rejected step, if any.
func (w *Wizard) FieldErrors() []service.FieldError {
	if w.errs == nil {
		return nil
	}
	return w.errs.Errors
}

// Result is the stored request after a successful submit.
func (w *Wizard) Result() *models.WithdrawalRequest { return w.result }

// Err is the submit failure, if the phase is failure.
func (w *Wizard) Err() error { return w.err }

func (w *Wizard) at(step Step) error {
	if w.phase != PhaseCollecting {
		return ErrClosed
	}
	if w.step != step {
		return fmt.Errorf("%w: at %s, want %s", ErrWrongStep, w.step, step)
	}
	return nil
}

// reject keeps the wizard on its step and records the inline errors.
func (w *Wizard) reject(verr *service.ValidationError) error {
	w.errs = verr
	return verr
}

func (w *Wizard) advance() {
	w.errs = nil
	w.step++
}

func (w *Wizard) SetAmount(amount *decimal.Decimal) error {
	if err := w.at(StepAmount); err != nil {
		return err
	}
	if verr := service.NewValidationError(validation.ValidateAmount(amount, w.limits.Balance), nil); verr != nil {
		return w.reject(verr)
	}
	w.amount = *amount
	w.advance()
	return nil
}

// SetMethod picks the payout rail. Changing it drops details entered for
// a previous method.
func (w *Wizard) SetMethod(m models.Method) error {
	if err := w.at(StepMethod); err != nil {
		return err
	}
	if !m.Valid() {
		return w.reject(service.NewValidationError(nil, []*validation.DetailError{
			{Field: "method", Kind: validation.UnknownMethod},
		}))
	}
	if m != w.method {
		w.details = models.MethodDetails{}
	}
	w.method = m
	w.advance()
	return nil
}

func (w *Wizard) SetDetails(details models.MethodDetails, notes string) error {
	if err := w.at(StepDetails); err != nil {
		return err
	}
	if verr := service.NewValidationError(nil, w.validator.Details(w.method, details)); verr != nil {
		return w.reject(verr)
	}
	w.details = details.Clone()
	w.notes = strings.TrimSpace(notes)
	w.advance()
	return nil
}

func (w *Wizard) Recap() (Recap, error) {
	if err := w.at(StepConfirm); err != nil {
		return Recap{}, err
	}
	return Recap{
		Amount:          w.amount,
		TaxFee:          w.limits.TaxFee,
		MaxWithdrawable: w.limits.MaxWithdrawable,
		Method:          w.method,
		Details:         w.details.Clone(),
		Notes:           w.notes,
	}, nil
}

func (w *Wizard) Confirm() error {
	if err := w.at(StepConfirm); err != nil {
		return err
	}
	w.advance()
	return nil
}

// Submit is the only call that reaches the service. Afterwards the wizard
// is closed whatever the outcome.
func (w *Wizard) Submit(ctx context.Context) (*models.WithdrawalRequest, error) {
	if err := w.at(StepSubmit); err != nil {
		return nil, err
	}
	w.phase = PhaseProcessing

	amount := w.amount
	req, err := w.backend.Submit(ctx, service.SubmitInput{
		UserID:  w.userID,
		Amount:  &amount,
		Method:  w.method,
		Details: w.details.Clone(),
		Notes:   w.notes,
	})
	if err != nil {
		w.phase = PhaseFailure
		w.err = err
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			w.errs = verr
		}
		logrus.WithField("user_id", w.userID).WithError(err).Info("withdrawal submit failed")
		return nil, err
	}

	w.phase = PhaseSuccess
	w.result = req
	return req, nil
}

// Back returns to the previous step. It is refused on the first step and
// once the request has been submitted.
func (w *Wizard) Back() error {
	if w.phase != PhaseCollecting {
		return ErrClosed
	}
	if w.step == StepAmount {
		return fmt.Errorf("%w: already at %s", ErrWrongStep, w.step)
	}
	w.errs = nil
	w.step--
	return nil
}

func (w *Wizard) Cancel() error {
	if w.phase != PhaseCollecting {
		return ErrClosed
	}
	w.phase = PhaseCancelled
	return nil
}

package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"withdrawal_settlement/models"
)

type Event string

const (
	EventMarkTaxPaid Event = "mark_tax_paid"
	EventApprove     Event = "approve"
	EventReject      Event = "reject"
	// EventRejectPending rejects a request before its tax is confirmed,
	// e.g. on KYC or fraud grounds.
	EventRejectPending Event = "reject_pending"
)

func (e Event) Valid() bool {
	_, ok := targets[e]
	return ok
}

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrTerminalState     = errors.New("request is in a terminal state")
	ErrMissingReason     = errors.New("a reason is required for this action")
	ErrUnknownEvent      = errors.New("unknown action")
)

type transition struct {
	from  models.Status
	event Event
}

// transitions is the only place legal moves are defined.
var transitions = map[transition]models.Status{
	{models.StatusPendingTaxPayment, EventMarkTaxPaid}:   models.StatusTaxPaid,
	{models.StatusPendingTaxPayment, EventRejectPending}: models.StatusRejected,
	{models.StatusTaxPaid, EventApprove}:                 models.StatusCompleted,
	{models.StatusTaxPaid, EventReject}:                  models.StatusRejected,
}

var targets = map[Event]models.Status{
	EventMarkTaxPaid:   models.StatusTaxPaid,
	EventApprove:       models.StatusCompleted,
	EventReject:        models.StatusRejected,
	EventRejectPending: models.StatusRejected,
}

var reasonRequired = map[Event]bool{
	EventReject:        true,
	EventRejectPending: true,
}

// Next returns the status event leads to from the given status.
func Next(from models.Status, event Event) (models.Status, error) {
	if !event.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if from.IsTerminal() {
		return "", fmt.Errorf("%w: %s", ErrTerminalState, from)
	}
	to, ok := transitions[transition{from, event}]
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, from)
	}
	return to, nil
}

// Target is the status a successful event leaves the request in.
func Target(event Event) (models.Status, bool) {
	s, ok := targets[event]
	return s, ok
}

func RequiresReason(event Event) bool {
	return reasonRequired[event]
}

// Apply runs event against req and returns the updated copy. req itself is
// never modified.
func Apply(req *models.WithdrawalRequest, event Event, actorID, notes string, now time.Time) (*models.WithdrawalRequest, error) {
	to, err := Next(req.Status, event)
	if err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if RequiresReason(event) && notes == "" {
		return nil, ErrMissingReason
	}

	next := req.Clone()
	next.Status = to
	next.ReviewedBy = actorID
	next.UpdatedAt = now
	if notes != "" {
		next.AdminNotes = notes
	}

	switch event {
	case EventMarkTaxPaid:
		next.TaxPaid = true
		next.TaxPaidAt = &now
	case EventApprove, EventReject, EventRejectPending:
		next.SettledAt = &now
	}
	return next, nil
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"withdrawal_settlement/models"
)

// WithdrawalMemory is an in-process store with the same compare-and-swap
// contract as the Postgres one.
type WithdrawalMemory struct {
	mu   sync.Mutex
	rows map[string]*models.WithdrawalRequest
}

func NewWithdrawalMemory() *WithdrawalMemory {
	return &WithdrawalMemory{rows: make(map[string]*models.WithdrawalRequest)}
}

func (m *WithdrawalMemory) Create(_ context.Context, req *models.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[req.ID]; ok {
		return fmt.Errorf("withdrawal request %s already exists", req.ID)
	}
	m.rows[req.ID] = req.Clone()
	return nil
}

func (m *WithdrawalMemory) GetByID(_ context.Context, id string) (*models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return row.Clone(), nil
}

func (m *WithdrawalMemory) CompareAndSwap(_ context.Context, expected models.Status, next *models.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[next.ID]
	if !ok || row.Status != expected {
		return ErrStaleState
	}
	// Only the mutable columns are written, as in the UPDATE statement.
	row.Status = next.Status
	row.TaxPaid = next.TaxPaid
	row.AdminNotes = next.AdminNotes
	row.ReviewedBy = next.ReviewedBy
	updated := next.Clone()
	row.TaxPaidAt = updated.TaxPaidAt
	row.SettledAt = updated.SettledAt
	row.UpdatedAt = next.UpdatedAt
	return nil
}

func (m *WithdrawalMemory) List(_ context.Context, filter models.Filter) ([]models.Summary, error) {
	filter = filter.Normalize()
	q := strings.ToLower(strings.TrimSpace(filter.UserQuery))

	m.mu.Lock()
	matched := make([]*models.WithdrawalRequest, 0, len(m.rows))
	for _, row := range m.rows {
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		if filter.Method != "" && row.Method != filter.Method {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(row.UserID), q) {
			continue
		}
		matched = append(matched, row.Clone())
	}
	m.mu.Unlock()

	sortNewestFirst(matched)

	summaries := []models.Summary{}
	for i := filter.Offset; i < len(matched) && len(summaries) < filter.Limit; i++ {
		summaries = append(summaries, matched[i].Summary())
	}
	return summaries, nil
}

func (m *WithdrawalMemory) ListByUser(_ context.Context, userID string) ([]models.WithdrawalRequest, error) {
	m.mu.Lock()
	matched := make([]*models.WithdrawalRequest, 0)
	for _, row := range m.rows {
		if row.UserID == userID {
			matched = append(matched, row.Clone())
		}
	}
	m.mu.Unlock()

	sortNewestFirst(matched)

	reqs := make([]models.WithdrawalRequest, 0, len(matched))
	for _, r := range matched {
		reqs = append(reqs, *r)
	}
	return reqs, nil
}

func sortNewestFirst(reqs []*models.WithdrawalRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID < reqs[j].ID
		}
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}

type AuditMemory struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func NewAuditMemory() *AuditMemory {
	return &AuditMemory{}
}

func (m *AuditMemory) Record(_ context.Context, event models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	event.ID = int64(len(m.events) + 1)
	m.events = append(m.events, event)
	return nil
}

func (m *AuditMemory) ListByRequest(_ context.Context, requestID string) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := []models.AuditEvent{}
	for _, ev := range m.events {
		if ev.RequestID == requestID {
			events = append(events, ev)
		}
	}
	return events, nil
}

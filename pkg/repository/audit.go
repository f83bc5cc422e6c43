package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"withdrawal_settlement/models"
)

type AuditPostgres struct {
	db *sqlx.DB
}

func NewAuditPostgres(db *sqlx.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

type auditRow struct {
	ID        int64            `db:"id"`
	Kind      models.AuditKind `db:"kind"`
	RequestID string           `db:"request_id"`
	ActorID   string           `db:"actor_id"`
	Details   []byte           `db:"details"`
	CreatedAt time.Time        `db:"created_at"`
}

func (r *AuditPostgres) Record(ctx context.Context, event models.AuditEvent) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return errors.Wrap(err, "marshal audit details")
	}
	if event.Details == nil {
		details = []byte("{}")
	}

	query := fmt.Sprintf(`INSERT INTO %s (kind, request_id, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`, auditTable)
	if _, err := r.db.ExecContext(ctx, query, event.Kind, event.RequestID, event.ActorID, details, event.CreatedAt); err != nil {
		return errors.Wrapf(err, "record audit event %s for %s", event.Kind, event.RequestID)
	}
	return nil
}

func (r *AuditPostgres) ListByRequest(ctx context.Context, requestID string) ([]models.AuditEvent, error) {
	query := fmt.Sprintf(`SELECT id, kind, request_id, actor_id, details, created_at
		FROM %s WHERE request_id = $1 ORDER BY created_at, id`, auditTable)

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, errors.Wrapf(err, "list audit events for %s", requestID)
	}

	events := make([]models.AuditEvent, 0, len(rows))
	for _, row := range rows {
		ev := models.AuditEvent{
			ID:        row.ID,
			Kind:      row.Kind,
			RequestID: row.RequestID,
			ActorID:   row.ActorID,
			CreatedAt: row.CreatedAt,
		}
		if len(row.Details) > 0 {
			if err := json.Unmarshal(row.Details, &ev.Details); err != nil {
				return nil, errors.Wrapf(err, "decode audit details %d", row.ID)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

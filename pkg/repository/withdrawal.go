package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"withdrawal_settlement/models"
)

const withdrawalColumns = `id, user_id, requested_amount, account_balance_snapshot, tax_fee, tax_paid,
	method, method_details, notes, admin_notes, status, reviewed_by,
	tax_paid_at, settled_at, created_at, updated_at`

const summaryColumns = `id, user_id, requested_amount, tax_fee, tax_paid, method, status, created_at, updated_at`

type WithdrawalPostgres struct {
	db *sqlx.DB
}

func NewWithdrawalPostgres(db *sqlx.DB) *WithdrawalPostgres {
	return &WithdrawalPostgres{db: db}
}

func (r *WithdrawalPostgres) Create(ctx context.Context, req *models.WithdrawalRequest) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, requested_amount, account_balance_snapshot, tax_fee, tax_paid,
			method, method_details, notes, admin_notes, status, reviewed_by,
			tax_paid_at, settled_at, created_at, updated_at)
		VALUES (:id, :user_id, :requested_amount, :account_balance_snapshot, :tax_fee, :tax_paid,
			:method, :method_details, :notes, :admin_notes, :status, :reviewed_by,
			:tax_paid_at, :settled_at, :created_at, :updated_at)`, withdrawalTable)

	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return errors.Wrapf(err, "insert withdrawal request %s", req.ID)
	}
	return nil
}

func (r *WithdrawalPostgres) GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, withdrawalColumns, withdrawalTable)

	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get withdrawal request %s", id)
	}
	return &req, nil
}

// CompareAndSwap relies on the status predicate in the WHERE clause, so two
// writers racing from the same state cannot both succeed.
func (r *WithdrawalPostgres) CompareAndSwap(ctx context.Context, expected models.Status, next *models.WithdrawalRequest) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, tax_paid = $2, admin_notes = $3, reviewed_by = $4,
			tax_paid_at = $5, settled_at = $6, updated_at = $7
		WHERE id = $8 AND status = $9`, withdrawalTable)

	res, err := r.db.ExecContext(ctx, query,
		next.Status,
		next.TaxPaid,
		next.AdminNotes,
		next.ReviewedBy,
		next.TaxPaidAt,
		next.SettledAt,
		next.UpdatedAt,
		next.ID,
		expected,
	)
	if err != nil {
		return errors.Wrapf(err, "update withdrawal request %s", next.ID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *WithdrawalPostgres) List(ctx context.Context, filter models.Filter) ([]models.Summary, error) {
	filter = filter.Normalize()

	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Method != "" {
		args = append(args, filter.Method)
		conds = append(conds, fmt.Sprintf("method = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.UserQuery); q != "" {
		args = append(args, "%"+likeEscaper.Replace(q)+"%")
		conds = append(conds, fmt.Sprintf("user_id ILIKE $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		summaryColumns, withdrawalTable, where, len(args)-1, len(args))

	summaries := []models.Summary{}
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, errors.Wrap(err, "list withdrawal requests")
	}
	return summaries, nil
}

func (r *WithdrawalPostgres) ListByUser(ctx context.Context, userID string) ([]models.WithdrawalRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at DESC`, withdrawalColumns, withdrawalTable)

	reqs := []models.WithdrawalRequest{}
	if err := r.db.SelectContext(ctx, &reqs, query, userID); err != nil {
		return nil, errors.Wrapf(err, "list withdrawal requests of %s", userID)
	}
	return reqs, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

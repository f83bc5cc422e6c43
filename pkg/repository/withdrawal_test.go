package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"withdrawal_settlement/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

var fullColumns = []string{
	"id", "user_id", "requested_amount", "account_balance_snapshot", "tax_fee", "tax_paid",
	"method", "method_details", "notes", "admin_notes", "status", "reviewed_by",
	"tax_paid_at", "settled_at", "created_at", "updated_at",
}

func sampleRequest() *models.WithdrawalRequest {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.WithdrawalRequest{
		ID:                     "7f0c1d8e-8a43-4c39-9b39-6a8f6a0f2c11",
		UserID:                 "user-1",
		RequestedAmount:        decimal.RequireFromString("9400.00"),
		AccountBalanceSnapshot: decimal.RequireFromString("10000.00"),
		TaxFee:                 decimal.RequireFromString("600.00"),
		Method:                 models.MethodCrypto,
		MethodDetails: models.Crypto(models.CryptoDetails{
			WalletAddress: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
			Network:       models.NetworkBitcoin,
		}),
		Status:    models.StatusPendingTaxPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWithdrawalPostgresCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWithdrawalPostgres(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO withdrawal_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), sampleRequest()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalPostgresGetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWithdrawalPostgres(db)
	want := sampleRequest()

	rows := sqlmock.NewRows(fullColumns).AddRow(
		want.ID, want.UserID, "9400.00", "10000.00", "600.00", false,
		"crypto", []byte(`{"method":"crypto","wallet_address":"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa","network":"bitcoin"}`),
		"", "", "pending_tax_payment", "",
		nil, nil, want.CreatedAt, want.UpdatedAt,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM withdrawal_requests WHERE id = $1")).
		WithArgs(want.ID).
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, got.TaxFee.Equal(want.TaxFee))
	assert.Equal(t, models.StatusPendingTaxPayment, got.Status)
	require.NotNil(t, got.MethodDetails.Crypto)
	assert.Equal(t, models.NetworkBitcoin, got.MethodDetails.Crypto.Network)
	assert.Nil(t, got.TaxPaidAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalPostgresGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWithdrawalPostgres(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM withdrawal_requests WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithdrawalPostgresCompareAndSwap(t *testing.T) {
	next := sampleRequest()
	next.Status = models.StatusTaxPaid
	next.TaxPaid = true
	next.AdminNotes = "receipt #42"
	next.ReviewedBy = "admin-1"

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "swapped", affected: 1},
		{name: "stale", affected: 0, wantErr: ErrStaleState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewWithdrawalPostgres(db)

			mock.ExpectExec(regexp.QuoteMeta("WHERE id = $8 AND status = $9")).
				WithArgs("tax_paid", true, "receipt #42", "admin-1",
					sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
					next.ID, "pending_tax_payment").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.CompareAndSwap(context.Background(), models.StatusPendingTaxPayment, next)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWithdrawalPostgresListBuildsFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWithdrawalPostgres(db)
	req := sampleRequest()

	rows := sqlmock.NewRows([]string{"id", "user_id", "requested_amount", "tax_fee", "tax_paid", "method", "status", "created_at", "updated_at"}).
		AddRow(req.ID, req.UserID, "9400.00", "600.00", false, "crypto", "pending_tax_payment", req.CreatedAt, req.UpdatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND method = $2 AND user_id ILIKE $3 ORDER BY created_at DESC LIMIT $4 OFFSET $5")).
		WithArgs("pending_tax_payment", "crypto", `%user\_1%`, 10, 20).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), models.Filter{
		Status:    models.StatusPendingTaxPayment,
		Method:    models.MethodCrypto,
		UserQuery: "user_1",
		Limit:     10,
		Offset:    20,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, req.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalPostgresListWithoutFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWithdrawalPostgres(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM withdrawal_requests ORDER BY created_at DESC LIMIT $1 OFFSET $2")).
		WithArgs(models.DefaultListLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.List(context.Background(), models.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditPostgresRecord(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditPostgres(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO withdrawal_audit_events")).
		WithArgs("withdrawal.approved", "req-1", "admin-1", []byte(`{"notes":"ok"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Record(context.Background(), models.AuditEvent{
		Kind:      models.AuditApproved,
		RequestID: "req-1",
		ActorID:   "admin-1",
		Details:   map[string]interface{}{"notes": "ok"},
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"testing"
	"time"

	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAlert(walletID uuid.UUID) *domain.FraudAlert {
	txID := uuid.New()
	return &domain.FraudAlert{
		ID:            uuid.New(),
		WalletID:      walletID,
		TransactionID: &txID,
		AlertType:     domain.AlertTypeVelocity,
		Severity:      domain.SeverityMedium,
		Status:        domain.AlertStatusPending,
		Detail:        "11 transfers in rolling window",
		DetectedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func alertCols() []string {
	return []string{"id", "wallet_id", "transaction_id", "alert_type", "severity", "status",
		"detail", "detected_at", "resolution", "resolved_at"}
}

func alertRow(a *domain.FraudAlert) *pgxmock.Rows {
	return pgxmock.NewRows(alertCols()).AddRow(
		a.ID, a.WalletID, a.TransactionID, a.AlertType, a.Severity, a.Status,
		a.Detail, a.DetectedAt, a.Resolution, a.ResolvedAt,
	)
}

func TestAlertRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAlertRepo(mock)
	a := newTestAlert(uuid.New())

	mock.ExpectExec("INSERT INTO fraud_alerts").
		WithArgs(a.ID, a.WalletID, a.TransactionID, a.AlertType, a.Severity, a.Status,
			a.Detail, a.DetectedAt, a.Resolution, a.ResolvedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAlertRepo(mock)
	a := newTestAlert(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM fraud_alerts WHERE id").
		WithArgs(a.ID).
		WillReturnRows(alertRow(a))

	result, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.Equal(t, domain.AlertTypeVelocity, result.AlertType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepo_List_FiltersByWalletAndStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAlertRepo(mock)
	walletID := uuid.New()
	status := domain.AlertStatusPending
	a := newTestAlert(walletID)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(walletID, status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM fraud_alerts").
		WithArgs(walletID, status, 20, 0).
		WillReturnRows(alertRow(a))

	alerts, total, err := repo.List(context.Background(), ports.AlertListParams{
		WalletID: &walletID,
		Status:   &status,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, alerts, 1)
	assert.Equal(t, a.ID, alerts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepo_List_Pagination(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAlertRepo(mock)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))
	mock.ExpectQuery("SELECT .+ FROM fraud_alerts").
		WithArgs(10, 20).
		WillReturnRows(pgxmock.NewRows(alertCols()))

	alerts, total, err := repo.List(context.Background(), ports.AlertListParams{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	assert.Empty(t, alerts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAlertRepo(mock)
	id := uuid.New()
	resolution := "manual review, benign"

	mock.ExpectExec("UPDATE fraud_alerts SET status").
		WithArgs(domain.AlertStatusResolved, &resolution, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateStatus(context.Background(), id, domain.AlertStatusResolved, &resolution)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAlertRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE fraud_alerts SET status").
		WithArgs(domain.AlertStatusInvestigating, (*string)(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), id, domain.AlertStatusInvestigating, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "alert not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

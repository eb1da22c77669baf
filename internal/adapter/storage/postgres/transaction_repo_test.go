package postgres

import (
	"context"
	"testing"
	"time"

	"campus-credit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction() *domain.Transaction {
	from := uuid.New()
	to := uuid.New()
	return &domain.Transaction{
		ID:           uuid.New(),
		Type:         domain.TransactionTypeTransfer,
		FromWalletID: &from,
		ToWalletID:   &to,
		Amount:       2500,
		Status:       domain.TransactionStatusPending,
		Reason:       "lunch split",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func transactionCols() []string {
	return []string{"id", "type", "from_wallet_id", "to_wallet_id", "amount", "status",
		"reward_dedup_key", "chain_tx_ref", "reason", "created_at", "confirmed_at"}
}

func transactionRow(t *domain.Transaction) *pgxmock.Rows {
	return pgxmock.NewRows(transactionCols()).AddRow(
		t.ID, t.Type, t.FromWalletID, t.ToWalletID, t.Amount, t.Status,
		t.RewardDedupKey, t.ChainTxRef, t.Reason, t.CreatedAt, t.ConfirmedAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.Type, txn.FromWalletID, txn.ToWalletID, txn.Amount, txn.Status,
			txn.RewardDedupKey, txn.ChainTxRef, txn.Reason, txn.CreatedAt, txn.ConfirmedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(transactionRow(txn))

	result, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	assert.Equal(t, txn.Amount, result.Amount)
	assert.Equal(t, *txn.FromWalletID, *result.FromWalletID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(transactionCols()))

	result, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs(domain.TransactionStatusProcessing, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, id, domain.TransactionStatusProcessing)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_MarkConfirmed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()
	confirmedAt := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions SET status = 'CONFIRMED'").
		WithArgs("chain-tx-0042", confirmedAt, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.MarkConfirmed(context.Background(), tx, id, "chain-tx-0042", confirmedAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_DedupKeyExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("event-2026-fall-hackathon:alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.DedupKeyExists(context.Background(), "event-2026-fall-hackathon:alice")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListRecentByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	t1 := newTestTransaction()
	t2 := newTestTransaction()

	rows := pgxmock.NewRows(transactionCols())
	for _, txn := range []*domain.Transaction{t1, t2} {
		rows.AddRow(
			txn.ID, txn.Type, txn.FromWalletID, txn.ToWalletID, txn.Amount, txn.Status,
			txn.RewardDedupKey, txn.ChainTxRef, txn.Reason, txn.CreatedAt, txn.ConfirmedAt,
		)
	}
	mock.ExpectQuery("SELECT .+ FROM transactions").
		WithArgs(walletID, 50).
		WillReturnRows(rows)

	result, err := repo.ListRecentByWallet(context.Background(), walletID, 50)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, t1.ID, result[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ReplayConfirmedBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("FROM transactions WHERE status = 'CONFIRMED'").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(4500)))

	balance, err := repo.ReplayConfirmedBalance(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListProcessingOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	stuck := newTestTransaction()
	stuck.Status = domain.TransactionStatusProcessing
	cutoff := time.Now().UTC().Add(-time.Minute)

	rows := pgxmock.NewRows(transactionCols()).AddRow(
		stuck.ID, stuck.Type, stuck.FromWalletID, stuck.ToWalletID, stuck.Amount, stuck.Status,
		stuck.RewardDedupKey, stuck.ChainTxRef, stuck.Reason, stuck.CreatedAt, stuck.ConfirmedAt,
	)
	mock.ExpectQuery("SELECT .+ FROM transactions").
		WithArgs(cutoff).
		WillReturnRows(rows)

	txns, err := repo.ListProcessingOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, stuck.ID, txns[0].ID)
	assert.Equal(t, domain.TransactionStatusProcessing, txns[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

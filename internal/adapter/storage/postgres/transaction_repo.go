package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-credit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, type, from_wallet_id, to_wallet_id, amount, status,
	reward_dedup_key, chain_tx_ref, reason, created_at, confirmed_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.Type, &t.FromWalletID, &t.ToWalletID, &t.Amount, &t.Status,
		&t.RewardDedupKey, &t.ChainTxRef, &t.Reason, &t.CreatedAt, &t.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a transaction record within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Type, t.FromWalletID, t.ToWalletID, t.Amount, t.Status,
		t.RewardDedupKey, t.ChainTxRef, t.Reason, t.CreatedAt, t.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by its UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// UpdateStatus moves a transaction to a new lifecycle state.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus) error {
	query := `UPDATE transactions SET status = $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// MarkConfirmed finalizes a transaction with its chain reference.
func (r *TransactionRepo) MarkConfirmed(ctx context.Context, tx pgx.Tx, id uuid.UUID, chainTxRef string, confirmedAt time.Time) error {
	query := `UPDATE transactions SET status = 'CONFIRMED', chain_tx_ref = $1, confirmed_at = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, chainTxRef, confirmedAt, id)
	if err != nil {
		return fmt.Errorf("mark transaction confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// DedupKeyExists reports whether a reward dedup key was already used.
// The column carries a unique index, so this is the durable layer of the
// duplicate reward check.
func (r *TransactionRepo) DedupKeyExists(ctx context.Context, dedupKey string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE reward_dedup_key = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, dedupKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("check dedup key: %w", err)
	}
	return exists, nil
}

// ListRecentByWallet returns the wallet's most recent transactions on either
// endpoint, newest first.
func (r *TransactionRepo) ListRecentByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// ListProcessingOlderThan returns transactions stuck in PROCESSING since
// before cutoff, oldest first, for the settlement sweep.
func (r *TransactionRepo) ListProcessingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = 'PROCESSING' AND created_at < $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list processing transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// ReplayConfirmedBalance derives a wallet's balance from the confirmed log:
// confirmed credits in, minus confirmed debits out.
func (r *TransactionRepo) ReplayConfirmedBalance(ctx context.Context, walletID uuid.UUID) (int64, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE to_wallet_id = $1), 0)
		- COALESCE(SUM(amount) FILTER (WHERE from_wallet_id = $1), 0)
		FROM transactions WHERE status = 'CONFIRMED'`

	var balance int64
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("replay confirmed balance: %w", err)
	}
	return balance, nil
}

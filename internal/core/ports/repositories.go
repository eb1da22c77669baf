package ports

import (
	"context"
	"time"

	"campus-credit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic
// locking; only the WalletRegistry may call the mutating ones.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error
	UpdateDailyCounter(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, transferred int64, windowStart time.Time) error
	UpdateStatus(ctx context.Context, walletID uuid.UUID, status domain.WalletStatus) error
	ListActive(ctx context.Context) ([]domain.Wallet, error)
}

// TransactionRepository defines persistence operations for the transaction log.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus) error
	MarkConfirmed(ctx context.Context, tx pgx.Tx, id uuid.UUID, chainTxRef string, confirmedAt time.Time) error
	DedupKeyExists(ctx context.Context, dedupKey string) (bool, error)
	// ListRecentByWallet returns the wallet's most recent transactions
	// (either endpoint), newest first, capped at limit.
	ListRecentByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error)
	// ReplayConfirmedBalance derives a wallet's balance from the confirmed
	// transaction log: sum of confirmed credits minus confirmed debits.
	ReplayConfirmedBalance(ctx context.Context, walletID uuid.UUID) (int64, error)
	// ListProcessingOlderThan returns transactions stuck in PROCESSING
	// since before cutoff, oldest first.
	ListProcessingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error)
}

// RateRepository persists the exchange rate interval table.
type RateRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, rate *domain.ExchangeRate) error
	// CloseOpenInterval sets effective_to on the single open-ended interval.
	CloseOpenInterval(ctx context.Context, tx pgx.Tx, effectiveTo time.Time) error
	// ListAll returns every rate ordered by effective_from ascending.
	ListAll(ctx context.Context) ([]domain.ExchangeRate, error)
}

// AlertListParams holds filter + pagination for listing fraud alerts.
type AlertListParams struct {
	WalletID *uuid.UUID
	Status   *domain.AlertStatus
	Severity *domain.AlertSeverity
	Page     int
	PageSize int
}

// AlertRepository persists fraud alerts and their review workflow.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.FraudAlert) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FraudAlert, error)
	List(ctx context.Context, params AlertListParams) ([]domain.FraudAlert, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus, resolution *string) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

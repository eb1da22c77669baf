package ports

import (
	"context"
	"time"

	"campus-credit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Ledger Core ---

// LedgerService orchestrates mint, transfer and burn operations: validation,
// fraud screening, reservation, chain submission and finalization.
type LedgerService interface {
	Mint(ctx context.Context, req MintRequest) (*domain.Transaction, error)
	Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
	Burn(ctx context.Context, req BurnRequest) (*domain.Transaction, error)
	// Cancel aborts a PENDING transaction. PROCESSING transactions can only
	// fail by timing out; in-flight chain submissions are never interrupted.
	Cancel(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error)
}

// MintRequest creates value with no source wallet. DedupKey, when set, makes
// the mint idempotent: a second call with the same key fails DuplicateReward.
type MintRequest struct {
	ToWalletID uuid.UUID
	Amount     int64
	Reason     string
	DedupKey   *string
	Type       domain.TransactionType // MINT or REWARD; zero value means MINT
}

// TransferRequest moves value between two wallets.
type TransferRequest struct {
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Amount       int64
	Reason       string
}

// BurnRequest destroys value, typically against a purchase.
type BurnRequest struct {
	FromWalletID uuid.UUID
	Amount       int64
	Reason       string
	Type         domain.TransactionType // BURN or PURCHASE; zero value means BURN
}

// --- Wallet Registry ---

// WalletRegistry is the sole mutator of wallet state. Each wallet's mutations
// are serialized behind a per-wallet exclusive section held only for
// bookkeeping, never across chain I/O.
type WalletRegistry interface {
	Provision(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	GetBalance(ctx context.Context, walletID uuid.UUID) (int64, error)
	// Reserve optimistically decrements the cached balance and returns a
	// handle that must later be committed or released.
	Reserve(ctx context.Context, walletID uuid.UUID, amount int64) (*domain.Reservation, error)
	// ReserveTransfer reserves on the source after validating both endpoints,
	// acquiring both wallet sections in ascending ID order.
	ReserveTransfer(ctx context.Context, fromID, toID uuid.UUID, amount int64) (*domain.Reservation, error)
	Commit(ctx context.Context, res *domain.Reservation) error
	Release(ctx context.Context, res *domain.Reservation) error
	Credit(ctx context.Context, walletID uuid.UUID, amount int64) error
	SetStatus(ctx context.Context, walletID uuid.UUID, status domain.WalletStatus) error
	RemainingDailyLimit(ctx context.Context, walletID uuid.UUID) (int64, error)
	// RecordDailyTransfer bumps the rolling 24h counter after a confirmed
	// mint or transfer. The cap is rechecked on the next operation, not
	// retroactively.
	RecordDailyTransfer(ctx context.Context, walletID uuid.UUID, amount int64) error
	// SignOperation authorizes a chain payload with the wallet's private
	// key. The key is decrypted, used and discarded inside the call; it is
	// never returned to the caller.
	SignOperation(ctx context.Context, walletID uuid.UUID, payload []byte) (string, error)
}

// --- Fraud Engine ---

// FraudVerdict is the combined outcome of all fraud checks.
type FraudVerdict string

const (
	VerdictAdmit FraudVerdict = "ADMIT"
	VerdictFlag  FraudVerdict = "FLAG"
	VerdictDeny  FraudVerdict = "DENY"
)

// FraudInput is a snapshot of everything a fraud evaluation may consult.
// It carries no live handles, so evaluation is deterministic and lock-free.
type FraudInput struct {
	Type          domain.TransactionType
	Amount        int64
	From          *domain.Wallet // nil for mints
	To            *domain.Wallet // nil for burns
	History       []domain.Transaction
	DedupKeyTaken bool
	Now           time.Time
}

// FraudResult carries the verdict plus the alerts backing it. Alerts are
// evidence only; the caller persists them.
type FraudResult struct {
	Verdict FraudVerdict
	Alerts  []domain.FraudAlert
}

// FraudEngine evaluates a proposed operation against the wallet's recent
// history. Pure: same input, same result.
type FraudEngine interface {
	Evaluate(in FraudInput) FraudResult
}

// --- Exchange Rates ---

// RateStore answers rate-at-time queries over the half-open interval table
// and performs credit/reference-currency conversions.
type RateStore interface {
	GetRateAt(ctx context.Context, at time.Time) (decimal.Decimal, error)
	SetRate(ctx context.Context, rate decimal.Decimal, effectiveFrom time.Time) (*domain.ExchangeRate, error)
	Convert(ctx context.Context, credits int64, at time.Time) (decimal.Decimal, error)
	ConvertToCredits(ctx context.Context, reference decimal.Decimal, at time.Time) (int64, error)
}

// --- Key Custody ---

// CustodyService encrypts and decrypts wallet private keys under the
// process-wide master key. Plaintext keys never appear in logs, responses or
// errors.
type CustodyService interface {
	EncryptKey(plaintext []byte) (domain.KeyMaterial, error)
	DecryptKey(material domain.KeyMaterial) ([]byte, error)
}

// --- Reconciliation ---

// ReconcileOutcome describes what a reconciliation pass found for one wallet.
type ReconcileOutcome string

const (
	ReconcileOK       ReconcileOutcome = "OK"
	ReconcileRepaired ReconcileOutcome = "REPAIRED"
	ReconcileDrift    ReconcileOutcome = "DRIFT"
)

// Reconciler compares cached balances against chain truth and repairs drift.
type Reconciler interface {
	ReconcileWallet(ctx context.Context, walletID uuid.UUID) (ReconcileOutcome, error)
	ReconcileAll(ctx context.Context) error
}

// --- Tokens ---

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	SubjectID uuid.UUID
	Role      string
}

// TokenService handles JWT token operations for the API surface. Privileged
// mutations require the "admin" role claim.
type TokenService interface {
	Generate(subjectID uuid.UUID, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// --- Reward Dedup Cache ---

// DedupCache is the Redis fast path of the two-layer reward dedup check; the
// transaction log's unique dedup key column is the durable layer beneath it.
type DedupCache interface {
	// Seen reports whether the dedup key was already recorded.
	Seen(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key string, ttl time.Duration) error
}

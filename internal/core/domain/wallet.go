package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletStatus controls whether a wallet may take part in ledger operations.
type WalletStatus string

const (
	WalletStatusActive      WalletStatus = "ACTIVE"
	WalletStatusBlacklisted WalletStatus = "BLACKLISTED"
	WalletStatusWhitelisted WalletStatus = "WHITELISTED"
	WalletStatusInactive    WalletStatus = "INACTIVE"
)

// DailyWindow is the rolling window used for the daily transfer counter.
// The counter resets lazily at the start of an operation, never via a timer.
const DailyWindow = 24 * time.Hour

// KeyMaterial is the encrypted custodial key of a wallet.
// The private key plaintext must never leave the custody service.
type KeyMaterial struct {
	CiphertextHex string `json:"-"`
	SaltHex       string `json:"-"`
	Algorithm     string `json:"-"` // e.g. "aes-256-gcm/argon2id"
}

// Wallet is a user's credit wallet. CachedBalance mirrors the on-chain
// balance and is the fast path for funds checks; the chain remains the
// source of truth and drift is repaired by reconciliation.
type Wallet struct {
	ID               uuid.UUID    `json:"id"`
	OwnerID          uuid.UUID    `json:"owner_id"`
	ChainAddress     string       `json:"chain_address"`
	KeyMaterial      KeyMaterial  `json:"-"`
	CachedBalance    int64        `json:"cached_balance"` // smallest credit unit, never negative
	Status           WalletStatus `json:"status"`
	DailyTransferred int64        `json:"daily_transferred"`
	DailyWindowStart time.Time    `json:"daily_window_start"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// CanTransact reports whether the wallet may originate or receive value.
func (w *Wallet) CanTransact() bool {
	return w.Status == WalletStatusActive || w.Status == WalletStatusWhitelisted
}

// DailyWindowExpired reports whether the rolling 24h counter window has lapsed.
func (w *Wallet) DailyWindowExpired(now time.Time) bool {
	return now.Sub(w.DailyWindowStart) >= DailyWindow
}

// EffectiveDailyTransferred returns the daily counter as of now, treating an
// expired window as zero. Callers that mutate the counter must persist the
// reset through the registry.
func (w *Wallet) EffectiveDailyTransferred(now time.Time) int64 {
	if w.DailyWindowExpired(now) {
		return 0
	}
	return w.DailyTransferred
}

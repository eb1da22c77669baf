package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a ledger operation.
type TransactionType string

const (
	TransactionTypeMint     TransactionType = "MINT"
	TransactionTypeBurn     TransactionType = "BURN"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeReward   TransactionType = "REWARD"
	TransactionTypePurchase TransactionType = "PURCHASE"
	TransactionTypeRefund   TransactionType = "REFUND"
)

// TransactionStatus is the lifecycle state of a transaction. Transitions only
// move forward; CONFIRMED, FAILED and CANCELLED are terminal.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusConfirmed  TransactionStatus = "CONFIRMED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
)

// Transaction is the immutable audit record of one ledger operation.
// FromWalletID is nil for mints, ToWalletID is nil for burns.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	Type           TransactionType   `json:"type"`
	FromWalletID   *uuid.UUID        `json:"from_wallet_id,omitempty"`
	ToWalletID     *uuid.UUID        `json:"to_wallet_id,omitempty"`
	Amount         int64             `json:"amount"` // positive, smallest credit unit
	Status         TransactionStatus `json:"status"`
	RewardDedupKey *string           `json:"reward_dedup_key,omitempty"` // globally unique when set
	ChainTxRef     *string           `json:"chain_tx_ref,omitempty"`     // nil until confirmed
	Reason         string            `json:"reason"`
	CreatedAt      time.Time         `json:"created_at"`
	ConfirmedAt    *time.Time        `json:"confirmed_at,omitempty"`
}

// IsTerminal reports whether the transaction reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusConfirmed ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusCancelled
}

// validTransitions encodes the forward-only transaction state machine.
var validTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusFailed, TransactionStatusCancelled},
	TransactionStatusProcessing: {TransactionStatusConfirmed, TransactionStatusFailed},
}

// CanTransition reports whether moving from the current status to next is legal.
func (t *Transaction) CanTransition(next TransactionStatus) bool {
	for _, s := range validTransitions[t.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// CreditsWallet returns the wallet credited when this transaction confirms,
// or nil for burns.
func (t *Transaction) CreditsWallet() *uuid.UUID {
	return t.ToWalletID
}

// DebitsWallet returns the wallet debited by this transaction, or nil for mints.
func (t *Transaction) DebitsWallet() *uuid.UUID {
	return t.FromWalletID
}

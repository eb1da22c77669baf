package ports

import (
	"context"
	"strconv"
)

// ChainOpType is the on-chain operation kind.
type ChainOpType string

const (
	ChainOpMint     ChainOpType = "MINT"
	ChainOpBurn     ChainOpType = "BURN"
	ChainOpTransfer ChainOpType = "TRANSFER"
)

// ChainStatus is the confirmation state reported by the chain.
type ChainStatus string

const (
	ChainStatusPending   ChainStatus = "PENDING"
	ChainStatusConfirmed ChainStatus = "CONFIRMED"
	ChainStatusFailed    ChainStatus = "FAILED"
)

// ChainOp is one signed operation submitted to the blockchain.
// IdempotencyKey makes duplicate submission a no-op on the chain side, so
// retries after a timeout can never double-mint or double-burn. ContentHash
// is an HMAC over the operation fields for tamper-evidence.
type ChainOp struct {
	Type           ChainOpType `json:"type"`
	FromAddress    string      `json:"from_address,omitempty"`
	ToAddress      string      `json:"to_address,omitempty"`
	Amount         int64       `json:"amount"`
	IdempotencyKey string      `json:"idempotency_key"`
	ContentHash    string      `json:"content_hash"`
	// Signature is the source wallet's authorization over the operation
	// payload. Empty for mints, which are service-authorized.
	Signature string `json:"signature,omitempty"`
}

// SigningPayload is the canonical byte form a wallet signs. ContentHash and
// Signature are excluded; both are derived from these fields.
func (op ChainOp) SigningPayload() []byte {
	return []byte(string(op.Type) + "|" + op.FromAddress + "|" + op.ToAddress + "|" +
		op.IdempotencyKey + "|" + strconv.FormatInt(op.Amount, 10))
}

// PollResult is one answer from a confirmation poll.
type PollResult struct {
	Status ChainStatus
	TxRef  string // final chain transaction reference, set once confirmed
}

// ChainBridge is the adapter boundary to the external blockchain. All
// operations are high-latency and fallible: transient failures surface as
// apperror CHN_001 (retry with the same idempotency key), permanent
// rejections as CHN_002 (never retry). Submission is at-least-once; the
// ledger owns idempotency via the key.
type ChainBridge interface {
	Submit(ctx context.Context, op ChainOp) (pendingRef string, err error)
	PollStatus(ctx context.Context, pendingRef string) (*PollResult, error)
	GetOnChainBalance(ctx context.Context, address string) (int64, error)
	Verify(ctx context.Context, txRef string) (bool, error)
}

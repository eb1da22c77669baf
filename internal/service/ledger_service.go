package service

import (
	"context"
	"fmt"
	"time"

	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const dedupCacheTTL = 72 * time.Hour

// RetryPolicy bounds chain submission retries and confirmation polling.
// Delays grow exponentially from BaseDelay and are capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay returns the backoff before the given 1-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// LedgerOptions tunes the ledger pipeline.
type LedgerOptions struct {
	SingleTxCap   int64 // hard per-operation cap, 0 disables
	HistoryWindow int   // trailing transactions fed to fraud screening
	Retry         RetryPolicy
}

// LedgerServiceImpl implements ports.LedgerService. Every operation runs the
// same pipeline: validate, screen, reserve, record, submit to chain, finalize.
type LedgerServiceImpl struct {
	wallets    ports.WalletRegistry
	txRepo     ports.TransactionRepository
	alertRepo  ports.AlertRepository
	fraud      ports.FraudEngine
	chain      ports.ChainBridge
	dedupCache ports.DedupCache
	transactor ports.DBTransactor
	opts       LedgerOptions
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	wallets ports.WalletRegistry,
	txRepo ports.TransactionRepository,
	alertRepo ports.AlertRepository,
	fraud ports.FraudEngine,
	chain ports.ChainBridge,
	dedupCache ports.DedupCache,
	transactor ports.DBTransactor,
	opts LedgerOptions,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		wallets:    wallets,
		txRepo:     txRepo,
		alertRepo:  alertRepo,
		fraud:      fraud,
		chain:      chain,
		dedupCache: dedupCache,
		transactor: transactor,
		opts:       opts,
		log:        log,
	}
}

// Mint creates new credits into a wallet. A REWARD mint with a dedup key is
// idempotent: the second submission fails with a duplicate error no matter
// how the first one ended up being recorded.
func (s *LedgerServiceImpl) Mint(ctx context.Context, req ports.MintRequest) (*domain.Transaction, error) {
	txType := req.Type
	if txType == "" {
		txType = domain.TransactionTypeMint
	}
	if txType != domain.TransactionTypeMint && txType != domain.TransactionTypeReward {
		return nil, apperror.Validation("mint type must be MINT or REWARD")
	}
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:             uuid.New(),
		Type:           txType,
		ToWalletID:     &req.ToWalletID,
		Amount:         req.Amount,
		Status:         domain.TransactionStatusPending,
		RewardDedupKey: req.DedupKey,
		Reason:         req.Reason,
		CreatedAt:      now,
	}

	if s.opts.SingleTxCap > 0 && req.Amount > s.opts.SingleTxCap {
		s.recordFailed(ctx, txn)
		return txn, apperror.ErrLimitExceeded()
	}

	dedupTaken, err := s.checkDedupKey(ctx, req.DedupKey)
	if err != nil {
		if dedupTaken {
			s.recordFailed(ctx, txn)
		}
		return txn, err
	}

	toWallet, err := s.wallets.GetWallet(ctx, req.ToWalletID)
	if err != nil {
		return nil, err
	}

	history, err := s.recentHistory(ctx, req.ToWalletID)
	if err != nil {
		return nil, err
	}

	verdict := s.fraud.Evaluate(ports.FraudInput{
		Type:          txType,
		Amount:        req.Amount,
		To:            toWallet,
		History:       history,
		DedupKeyTaken: dedupTaken,
		Now:           now,
	})
	if err := s.handleVerdict(ctx, txn, verdict); err != nil {
		return txn, err
	}

	if err := s.persistPending(ctx, txn); err != nil {
		return nil, err
	}

	// Mints are service-authorized; there is no source wallet to sign.
	op := ports.ChainOp{
		Type:           ports.ChainOpMint,
		ToAddress:      toWallet.ChainAddress,
		Amount:         req.Amount,
		IdempotencyKey: txn.ID.String(),
	}
	if err := s.executeOnChain(ctx, txn, op, nil); err != nil {
		return txn, err
	}

	if req.DedupKey != nil {
		if err := s.dedupCache.Record(ctx, *req.DedupKey, dedupCacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache reward dedup key")
		}
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("type", string(txType)).
		Str("to_wallet", req.ToWalletID.String()).
		Int64("amount", req.Amount).
		Msg("mint confirmed")

	return txn, nil
}

// Transfer moves credits between two wallets.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:           uuid.New(),
		Type:         domain.TransactionTypeTransfer,
		FromWalletID: &req.FromWalletID,
		ToWalletID:   &req.ToWalletID,
		Amount:       req.Amount,
		Status:       domain.TransactionStatusPending,
		Reason:       req.Reason,
		CreatedAt:    now,
	}

	if s.opts.SingleTxCap > 0 && req.Amount > s.opts.SingleTxCap {
		s.recordFailed(ctx, txn)
		return txn, apperror.ErrLimitExceeded()
	}

	fromWallet, err := s.wallets.GetWallet(ctx, req.FromWalletID)
	if err != nil {
		return nil, err
	}
	toWallet, err := s.wallets.GetWallet(ctx, req.ToWalletID)
	if err != nil {
		return nil, err
	}

	history, err := s.recentHistory(ctx, req.FromWalletID)
	if err != nil {
		return nil, err
	}

	verdict := s.fraud.Evaluate(ports.FraudInput{
		Type:    domain.TransactionTypeTransfer,
		Amount:  req.Amount,
		From:    fromWallet,
		To:      toWallet,
		History: history,
		Now:     now,
	})
	if err := s.handleVerdict(ctx, txn, verdict); err != nil {
		return txn, err
	}

	res, err := s.wallets.ReserveTransfer(ctx, req.FromWalletID, req.ToWalletID, req.Amount)
	if err != nil {
		s.recordFailed(ctx, txn)
		return txn, err
	}

	if err := s.persistPending(ctx, txn); err != nil {
		s.releaseQuietly(ctx, res)
		return nil, err
	}

	op := ports.ChainOp{
		Type:           ports.ChainOpTransfer,
		FromAddress:    fromWallet.ChainAddress,
		ToAddress:      toWallet.ChainAddress,
		Amount:         req.Amount,
		IdempotencyKey: txn.ID.String(),
	}
	op.Signature, err = s.wallets.SignOperation(ctx, req.FromWalletID, op.SigningPayload())
	if err != nil {
		s.failTransaction(ctx, txn, res)
		return txn, err
	}
	if err := s.executeOnChain(ctx, txn, op, res); err != nil {
		return txn, err
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("from_wallet", req.FromWalletID.String()).
		Str("to_wallet", req.ToWalletID.String()).
		Int64("amount", req.Amount).
		Msg("transfer confirmed")

	return txn, nil
}

// Burn destroys credits from a wallet, typically against a purchase.
func (s *LedgerServiceImpl) Burn(ctx context.Context, req ports.BurnRequest) (*domain.Transaction, error) {
	txType := req.Type
	if txType == "" {
		txType = domain.TransactionTypeBurn
	}
	if txType != domain.TransactionTypeBurn && txType != domain.TransactionTypePurchase {
		return nil, apperror.Validation("burn type must be BURN or PURCHASE")
	}
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:           uuid.New(),
		Type:         txType,
		FromWalletID: &req.FromWalletID,
		Amount:       req.Amount,
		Status:       domain.TransactionStatusPending,
		Reason:       req.Reason,
		CreatedAt:    now,
	}

	if s.opts.SingleTxCap > 0 && req.Amount > s.opts.SingleTxCap {
		s.recordFailed(ctx, txn)
		return txn, apperror.ErrLimitExceeded()
	}

	fromWallet, err := s.wallets.GetWallet(ctx, req.FromWalletID)
	if err != nil {
		return nil, err
	}

	history, err := s.recentHistory(ctx, req.FromWalletID)
	if err != nil {
		return nil, err
	}

	verdict := s.fraud.Evaluate(ports.FraudInput{
		Type:    txType,
		Amount:  req.Amount,
		From:    fromWallet,
		History: history,
		Now:     now,
	})
	if err := s.handleVerdict(ctx, txn, verdict); err != nil {
		return txn, err
	}

	res, err := s.wallets.Reserve(ctx, req.FromWalletID, req.Amount)
	if err != nil {
		s.recordFailed(ctx, txn)
		return txn, err
	}

	if err := s.persistPending(ctx, txn); err != nil {
		s.releaseQuietly(ctx, res)
		return nil, err
	}

	op := ports.ChainOp{
		Type:           ports.ChainOpBurn,
		FromAddress:    fromWallet.ChainAddress,
		Amount:         req.Amount,
		IdempotencyKey: txn.ID.String(),
	}
	op.Signature, err = s.wallets.SignOperation(ctx, req.FromWalletID, op.SigningPayload())
	if err != nil {
		s.failTransaction(ctx, txn, res)
		return txn, err
	}
	if err := s.executeOnChain(ctx, txn, op, res); err != nil {
		return txn, err
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("type", string(txType)).
		Str("from_wallet", req.FromWalletID.String()).
		Int64("amount", req.Amount).
		Msg("burn confirmed")

	return txn, nil
}

// Cancel aborts a PENDING transaction. Anything past PENDING either already
// touched the chain or reached a terminal state and cannot be cancelled.
func (s *LedgerServiceImpl) Cancel(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !txn.CanTransition(domain.TransactionStatusCancelled) {
		return nil, apperror.ErrInvalidStateTransition(string(txn.Status), string(domain.TransactionStatusCancelled))
	}

	if err := s.setStatus(ctx, txn, domain.TransactionStatusCancelled); err != nil {
		return nil, err
	}

	s.log.Info().Str("tx_id", txID.String()).Msg("transaction cancelled")
	return txn, nil
}

func (s *LedgerServiceImpl) GetTransaction(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// RunSettlement re-drives stale PROCESSING transactions on a fixed interval
// until the context is cancelled.
func (s *LedgerServiceImpl) RunSettlement(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SettleProcessing(ctx, interval); err != nil {
				s.log.Error().Err(err).Msg("settlement sweep failed")
			}
		}
	}
}

// SettleProcessing finds transactions stuck in PROCESSING longer than
// olderThan and drives each to a terminal state: resubmit under the original
// idempotency key, poll once, then confirm or fail with a compensating
// release of the hold. Transactions the chain still reports pending are left
// for the next sweep. Returns the number settled.
func (s *LedgerServiceImpl) SettleProcessing(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	stale, err := s.txRepo.ListProcessingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, apperror.ErrDatabaseError(fmt.Errorf("list processing transactions: %w", err))
	}

	settled := 0
	for i := range stale {
		txn := stale[i]
		done, err := s.settleOne(ctx, &txn)
		if err != nil {
			s.log.Warn().Err(err).
				Str("tx_id", txn.ID.String()).
				Msg("settlement attempt failed")
			continue
		}
		if done {
			settled++
		}
	}

	if len(stale) > 0 {
		s.log.Info().
			Int("stale", len(stale)).
			Int("settled", settled).
			Msg("settlement sweep complete")
	}
	return settled, nil
}

// settleOne resolves a single stuck transaction. The hold taken at reserve
// time survives as the persisted balance decrement, so a fresh reservation
// handle over the same wallet and amount releases or commits it.
func (s *LedgerServiceImpl) settleOne(ctx context.Context, txn *domain.Transaction) (bool, error) {
	var res *domain.Reservation
	if txn.FromWalletID != nil {
		res = &domain.Reservation{
			ID:       uuid.New(),
			WalletID: *txn.FromWalletID,
			Amount:   txn.Amount,
			State:    domain.ReservationStateHeld,
		}
	}

	op, err := s.rebuildChainOp(ctx, txn)
	if err != nil {
		return false, err
	}

	// The idempotency key makes this a lookup of the original operation,
	// never a second submission.
	pendingRef, err := s.chain.Submit(ctx, op)
	if err != nil {
		if appErr, ok := err.(*apperror.AppError); ok && !appErr.Retryable {
			s.failTransaction(ctx, txn, res)
			return true, nil
		}
		return false, err
	}

	result, err := s.chain.PollStatus(ctx, pendingRef)
	if err != nil {
		if appErr, ok := err.(*apperror.AppError); ok && !appErr.Retryable {
			s.failTransaction(ctx, txn, res)
			return true, nil
		}
		return false, err
	}

	switch result.Status {
	case ports.ChainStatusConfirmed:
		if err := s.confirm(ctx, txn, res, result.TxRef); err != nil {
			return false, err
		}
		s.log.Info().
			Str("tx_id", txn.ID.String()).
			Str("chain_tx_ref", result.TxRef).
			Msg("stale transaction settled as confirmed")
		return true, nil
	case ports.ChainStatusFailed:
		s.failTransaction(ctx, txn, res)
		s.log.Info().
			Str("tx_id", txn.ID.String()).
			Msg("stale transaction settled as failed, hold released")
		return true, nil
	default:
		return false, nil
	}
}

// rebuildChainOp reconstructs the operation originally submitted for txn,
// including the wallet signature, from the persisted record.
func (s *LedgerServiceImpl) rebuildChainOp(ctx context.Context, txn *domain.Transaction) (ports.ChainOp, error) {
	op := ports.ChainOp{
		Amount:         txn.Amount,
		IdempotencyKey: txn.ID.String(),
	}
	switch txn.Type {
	case domain.TransactionTypeMint, domain.TransactionTypeReward:
		op.Type = ports.ChainOpMint
	case domain.TransactionTypeTransfer:
		op.Type = ports.ChainOpTransfer
	default:
		op.Type = ports.ChainOpBurn
	}

	if txn.FromWalletID != nil {
		w, err := s.wallets.GetWallet(ctx, *txn.FromWalletID)
		if err != nil {
			return op, err
		}
		op.FromAddress = w.ChainAddress
	}
	if txn.ToWalletID != nil {
		w, err := s.wallets.GetWallet(ctx, *txn.ToWalletID)
		if err != nil {
			return op, err
		}
		op.ToAddress = w.ChainAddress
	}
	if txn.FromWalletID != nil {
		sig, err := s.wallets.SignOperation(ctx, *txn.FromWalletID, op.SigningPayload())
		if err != nil {
			return op, err
		}
		op.Signature = sig
	}
	return op, nil
}

// checkDedupKey runs the two-layer duplicate reward check: Redis fast path,
// then the durable unique key in the transaction log. A hit at either layer
// rejects the mint before any value moves.
func (s *LedgerServiceImpl) checkDedupKey(ctx context.Context, key *string) (bool, error) {
	if key == nil {
		return false, nil
	}
	seen, err := s.dedupCache.Seen(ctx, *key)
	if err != nil {
		s.log.Warn().Err(err).Msg("dedup cache check failed, falling through to DB")
	}
	if seen {
		return true, apperror.ErrDuplicateReward()
	}
	exists, err := s.txRepo.DedupKeyExists(ctx, *key)
	if err != nil {
		return false, apperror.ErrDatabaseError(fmt.Errorf("dedup key check: %w", err))
	}
	if exists {
		return true, apperror.ErrDuplicateReward()
	}
	return false, nil
}

func (s *LedgerServiceImpl) recentHistory(ctx context.Context, walletID uuid.UUID) ([]domain.Transaction, error) {
	history, err := s.txRepo.ListRecentByWallet(ctx, walletID, s.opts.HistoryWindow)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load wallet history: %w", err))
	}
	return history, nil
}

// handleVerdict persists the alerts backing a fraud result and, on a deny,
// records the operation as FAILED before surfacing the block to the caller.
// Flagged operations proceed with their alerts on file.
func (s *LedgerServiceImpl) handleVerdict(ctx context.Context, txn *domain.Transaction, result ports.FraudResult) error {
	for i := range result.Alerts {
		alert := result.Alerts[i]
		alert.ID = uuid.New()
		alert.TransactionID = &txn.ID
		if err := s.alertRepo.Create(ctx, &alert); err != nil {
			s.log.Error().Err(err).
				Str("alert_type", string(alert.AlertType)).
				Msg("failed to persist fraud alert")
		}
	}

	if result.Verdict != ports.VerdictDeny {
		return nil
	}

	txn.Status = domain.TransactionStatusFailed
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("record denied tx: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Warn().
		Str("tx_id", txn.ID.String()).
		Int("alerts", len(result.Alerts)).
		Msg("operation denied by fraud screening")
	return apperror.ErrFraudBlocked()
}

// recordFailed persists a FAILED transaction for operations refused before
// anything reached the chain, so every rejection leaves an audit record.
// Best-effort: the caller is already returning the business error. The dedup
// key is cleared first; only a reward that actually lands owns its key.
func (s *LedgerServiceImpl) recordFailed(ctx context.Context, txn *domain.Transaction) {
	txn.Status = domain.TransactionStatusFailed
	txn.RewardDedupKey = nil

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		s.log.Error().Err(err).
			Str("tx_id", txn.ID.String()).
			Msg("failed to record rejected transaction")
		return
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		s.log.Error().Err(err).
			Str("tx_id", txn.ID.String()).
			Msg("failed to record rejected transaction")
		return
	}
	if err := dbTx.Commit(ctx); err != nil {
		s.log.Error().Err(err).
			Str("tx_id", txn.ID.String()).
			Msg("failed to record rejected transaction")
	}
}

func (s *LedgerServiceImpl) persistPending(ctx context.Context, txn *domain.Transaction) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("create transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// executeOnChain drives a transaction from PENDING through chain submission
// to a terminal state. The reservation, when present, is committed on
// confirmation and released on failure; on an ambiguous outcome (retries
// exhausted while the chain still says pending) the hold is kept and the
// transaction stays PROCESSING for the settlement sweep to finish.
func (s *LedgerServiceImpl) executeOnChain(ctx context.Context, txn *domain.Transaction, op ports.ChainOp, res *domain.Reservation) error {
	if err := s.setStatus(ctx, txn, domain.TransactionStatusProcessing); err != nil {
		s.releaseQuietly(ctx, res)
		return err
	}

	pendingRef, err := s.submitWithRetry(ctx, op)
	if err != nil {
		s.failTransaction(ctx, txn, res)
		return err
	}

	result, err := s.pollUntilSettled(ctx, pendingRef)
	if err != nil {
		if appErr, ok := err.(*apperror.AppError); ok && appErr.Retryable {
			// Outcome unknown. Keep the hold; the settlement sweep owns
			// the transaction now.
			s.log.Error().
				Str("tx_id", txn.ID.String()).
				Str("pending_ref", pendingRef).
				Msg("chain confirmation timed out, leaving transaction processing")
			return err
		}
		s.failTransaction(ctx, txn, res)
		return err
	}

	if result.Status == ports.ChainStatusFailed {
		s.failTransaction(ctx, txn, res)
		return apperror.ErrChainRejected(fmt.Errorf("chain reported failure for %s", pendingRef))
	}

	return s.confirm(ctx, txn, res, result.TxRef)
}

// submitWithRetry resubmits on transient chain errors. The idempotency key
// makes resubmission safe.
func (s *LedgerServiceImpl) submitWithRetry(ctx context.Context, op ports.ChainOp) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Retry.MaxAttempts; attempt++ {
		pendingRef, err := s.chain.Submit(ctx, op)
		if err == nil {
			return pendingRef, nil
		}
		lastErr = err
		appErr, ok := err.(*apperror.AppError)
		if !ok || !appErr.Retryable {
			return "", err
		}
		if attempt < s.opts.Retry.MaxAttempts {
			if err := sleepCtx(ctx, s.opts.Retry.Delay(attempt)); err != nil {
				return "", apperror.ErrChainUnavailable(err)
			}
		}
	}
	return "", lastErr
}

// pollUntilSettled polls the chain until the operation leaves PENDING or the
// retry budget runs out.
func (s *LedgerServiceImpl) pollUntilSettled(ctx context.Context, pendingRef string) (*ports.PollResult, error) {
	for attempt := 1; attempt <= s.opts.Retry.MaxAttempts; attempt++ {
		if err := sleepCtx(ctx, s.opts.Retry.Delay(attempt)); err != nil {
			return nil, apperror.ErrChainUnavailable(err)
		}
		result, err := s.chain.PollStatus(ctx, pendingRef)
		if err != nil {
			if appErr, ok := err.(*apperror.AppError); ok && appErr.Retryable {
				continue
			}
			return nil, err
		}
		if result.Status != ports.ChainStatusPending {
			return result, nil
		}
	}
	return nil, apperror.ErrChainUnavailable(fmt.Errorf("confirmation still pending after %d polls", s.opts.Retry.MaxAttempts))
}

// confirm finalizes a chain-confirmed transaction: commit the hold, credit
// the destination, bump the daily counter and mark the record confirmed.
func (s *LedgerServiceImpl) confirm(ctx context.Context, txn *domain.Transaction, res *domain.Reservation, chainTxRef string) error {
	if res != nil {
		if err := s.wallets.Commit(ctx, res); err != nil {
			return err
		}
	}

	if to := txn.CreditsWallet(); to != nil {
		if err := s.wallets.Credit(ctx, *to, txn.Amount); err != nil {
			// The chain already moved the value; reconciliation repairs
			// the cache.
			s.log.Error().Err(err).
				Str("tx_id", txn.ID.String()).
				Msg("failed to credit destination after chain confirmation")
		}
	}

	counterWallet := txn.DebitsWallet()
	if counterWallet == nil {
		counterWallet = txn.CreditsWallet()
	}
	if counterWallet != nil {
		if err := s.wallets.RecordDailyTransfer(ctx, *counterWallet, txn.Amount); err != nil {
			s.log.Warn().Err(err).
				Str("tx_id", txn.ID.String()).
				Msg("failed to bump daily counter")
		}
	}

	now := time.Now().UTC()
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck
	if err := s.txRepo.MarkConfirmed(ctx, dbTx, txn.ID, chainTxRef, now); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark confirmed: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	txn.Status = domain.TransactionStatusConfirmed
	txn.ChainTxRef = &chainTxRef
	txn.ConfirmedAt = &now
	return nil
}

// failTransaction releases the hold and marks the record FAILED. Best-effort:
// the caller is already returning the primary error.
func (s *LedgerServiceImpl) failTransaction(ctx context.Context, txn *domain.Transaction, res *domain.Reservation) {
	s.releaseQuietly(ctx, res)
	if err := s.setStatus(ctx, txn, domain.TransactionStatusFailed); err != nil {
		s.log.Error().Err(err).
			Str("tx_id", txn.ID.String()).
			Msg("failed to mark transaction failed")
	}
}

func (s *LedgerServiceImpl) releaseQuietly(ctx context.Context, res *domain.Reservation) {
	if res == nil {
		return
	}
	if err := s.wallets.Release(ctx, res); err != nil {
		s.log.Error().Err(err).
			Str("wallet_id", res.WalletID.String()).
			Int64("amount", res.Amount).
			Msg("failed to release reservation")
	}
}

func (s *LedgerServiceImpl) setStatus(ctx context.Context, txn *domain.Transaction, next domain.TransactionStatus) error {
	if !txn.CanTransition(next) {
		return apperror.ErrInvalidStateTransition(string(txn.Status), string(next))
	}
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck
	if err := s.txRepo.UpdateStatus(ctx, dbTx, txn.ID, next); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update status: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	txn.Status = next
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

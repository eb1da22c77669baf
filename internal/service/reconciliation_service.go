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

// ReconcilerImpl implements ports.Reconciler. It periodically compares every
// wallet's cached balance against the chain and repairs drift only when the
// confirmed transaction log agrees with the chain. A mismatch the log cannot
// explain is never papered over; it raises a critical alert instead.
type ReconcilerImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	alertRepo  ports.AlertRepository
	chain      ports.ChainBridge
	transactor ports.DBTransactor
	tolerance  int64
	log        zerolog.Logger
}

// NewReconciler creates a new ReconcilerImpl.
func NewReconciler(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	alertRepo ports.AlertRepository,
	chain ports.ChainBridge,
	transactor ports.DBTransactor,
	tolerance int64,
	log zerolog.Logger,
) *ReconcilerImpl {
	return &ReconcilerImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		alertRepo:  alertRepo,
		chain:      chain,
		transactor: transactor,
		tolerance:  tolerance,
		log:        log,
	}
}

// Run reconciles on a fixed interval until the context is cancelled.
func (s *ReconcilerImpl) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ReconcileAll(ctx); err != nil {
				s.log.Error().Err(err).Msg("reconciliation pass failed")
			}
		}
	}
}

// ReconcileAll runs one pass over every active wallet. A failure on one
// wallet does not stop the pass.
func (s *ReconcilerImpl) ReconcileAll(ctx context.Context) error {
	wallets, err := s.walletRepo.ListActive(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("list wallets: %w", err))
	}

	var failures int
	for i := range wallets {
		if _, err := s.ReconcileWallet(ctx, wallets[i].ID); err != nil {
			failures++
			s.log.Warn().Err(err).
				Str("wallet_id", wallets[i].ID.String()).
				Msg("wallet reconciliation failed")
		}
	}

	s.log.Info().
		Int("wallets", len(wallets)).
		Int("failures", failures).
		Msg("reconciliation pass complete")
	return nil
}

// ReconcileWallet compares one wallet's cached balance with the chain.
func (s *ReconcilerImpl) ReconcileWallet(ctx context.Context, walletID uuid.UUID) (ports.ReconcileOutcome, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return "", apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return "", apperror.ErrNotFound("wallet")
	}

	chainBalance, err := s.chain.GetOnChainBalance(ctx, wallet.ChainAddress)
	if err != nil {
		return "", err
	}

	if withinTolerance(wallet.CachedBalance, chainBalance, s.tolerance) {
		return ports.ReconcileOK, nil
	}

	// Replay the confirmed log. If it lands on the chain's number, the
	// cache simply missed an update and can be repaired from verified data.
	replayed, err := s.txRepo.ReplayConfirmedBalance(ctx, walletID)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("replay balance: %w", err))
	}

	explained := replayed == chainBalance
	if explained {
		// Before trusting the replayed number, check the wallet's latest
		// confirmed reference still exists on chain.
		ok, err := s.latestRefOnChain(ctx, walletID)
		if err != nil {
			return "", err
		}
		explained = ok
	}

	if explained {
		if err := s.repairBalance(ctx, walletID, chainBalance); err != nil {
			return "", err
		}
		s.log.Warn().
			Str("wallet_id", walletID.String()).
			Int64("cached", wallet.CachedBalance).
			Int64("chain", chainBalance).
			Msg("cached balance repaired from confirmed log")
		return ports.ReconcileRepaired, nil
	}

	// The log and the chain disagree. Leave both untouched and escalate.
	alert := &domain.FraudAlert{
		ID:        uuid.New(),
		WalletID:  walletID,
		AlertType: domain.AlertTypeLedgerDrift,
		Severity:  domain.SeverityCritical,
		Status:    domain.AlertStatusPending,
		Detail: fmt.Sprintf("cached=%d chain=%d replayed=%d",
			wallet.CachedBalance, chainBalance, replayed),
		DetectedAt: time.Now().UTC(),
	}
	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("create drift alert: %w", err))
	}

	s.log.Error().
		Str("wallet_id", walletID.String()).
		Int64("cached", wallet.CachedBalance).
		Int64("chain", chainBalance).
		Int64("replayed", replayed).
		Msg("unexplained ledger drift detected")
	return ports.ReconcileDrift, nil
}

func (s *ReconcilerImpl) latestRefOnChain(ctx context.Context, walletID uuid.UUID) (bool, error) {
	recent, err := s.txRepo.ListRecentByWallet(ctx, walletID, 10)
	if err != nil {
		return false, apperror.ErrDatabaseError(fmt.Errorf("list recent transactions: %w", err))
	}
	for i := range recent {
		if recent[i].Status == domain.TransactionStatusConfirmed && recent[i].ChainTxRef != nil {
			return s.chain.Verify(ctx, *recent[i].ChainTxRef)
		}
	}
	// No confirmed chain activity to check against.
	return true, nil
}

func (s *ReconcilerImpl) repairBalance(ctx context.Context, walletID uuid.UUID, balance int64) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, walletID, balance); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("repair balance: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func withinTolerance(a, b, tolerance int64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

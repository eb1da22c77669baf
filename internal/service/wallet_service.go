package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// walletStripes is the number of per-wallet lock stripes. Two wallets on the
// same stripe share a mutex; lock order is by stripe index so two-wallet
// operations cannot deadlock.
const walletStripes = 64

// WalletRegistryImpl implements ports.WalletRegistry. It is the only
// component allowed to mutate wallet rows; everything else reads.
type WalletRegistryImpl struct {
	walletRepo ports.WalletRepository
	custody    ports.CustodyService
	transactor ports.DBTransactor
	dailyCap   int64
	log        zerolog.Logger

	stripes [walletStripes]sync.Mutex
}

// NewWalletRegistry creates a new WalletRegistryImpl.
func NewWalletRegistry(
	walletRepo ports.WalletRepository,
	custody ports.CustodyService,
	transactor ports.DBTransactor,
	dailyCap int64,
	log zerolog.Logger,
) *WalletRegistryImpl {
	return &WalletRegistryImpl{
		walletRepo: walletRepo,
		custody:    custody,
		transactor: transactor,
		dailyCap:   dailyCap,
		log:        log,
	}
}

func (s *WalletRegistryImpl) stripeIndex(id uuid.UUID) uint32 {
	h := fnv.New32a()
	h.Write(id[:]) //nolint:errcheck
	return h.Sum32() % walletStripes
}

func (s *WalletRegistryImpl) stripe(id uuid.UUID) *sync.Mutex {
	return &s.stripes[s.stripeIndex(id)]
}

// lockPair acquires the stripes of both wallets in ascending stripe order.
// Ordering by stripe index, not wallet ID, keeps the order total: two ID
// pairs sharing the same two stripes always lock them the same way round.
// A single lock is taken when both map to the same stripe.
func (s *WalletRegistryImpl) lockPair(a, b uuid.UUID) func() {
	ia, ib := s.stripeIndex(a), s.stripeIndex(b)
	if ia == ib {
		m := &s.stripes[ia]
		m.Lock()
		return m.Unlock
	}
	if ia > ib {
		ia, ib = ib, ia
	}
	first, second := &s.stripes[ia], &s.stripes[ib]
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}

// Provision creates a wallet for the owner: generates a custodial keypair,
// encrypts the private key, and derives the chain address. One wallet per
// owner.
func (s *WalletRegistryImpl) Provision(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	existing, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check existing wallet: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	privateKey := make([]byte, 32)
	if _, err := rand.Read(privateKey); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate wallet key: %w", err))
	}

	material, err := s.custody.EncryptKey(privateKey)
	if err != nil {
		return nil, apperror.ErrCustodyFailure(err)
	}

	// Address is the truncated digest of the public half. Plaintext key
	// bytes exist only inside this call.
	addrDigest := sha256.Sum256(privateKey)
	chainAddress := "0x" + hex.EncodeToString(addrDigest[:20])

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		ChainAddress:     chainAddress,
		KeyMaterial:      material,
		CachedBalance:    0,
		Status:           domain.WalletStatusActive,
		DailyTransferred: 0,
		DailyWindowStart: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("owner_id", ownerID.String()).
		Str("chain_address", chainAddress).
		Msg("wallet provisioned")

	return wallet, nil
}

func (s *WalletRegistryImpl) GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

func (s *WalletRegistryImpl) GetBalance(ctx context.Context, walletID uuid.UUID) (int64, error) {
	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return 0, err
	}
	return wallet.CachedBalance, nil
}

// Reserve holds amount against the wallet by decrementing the cached balance
// up front. The hold is undone by Release or made permanent by Commit.
func (s *WalletRegistryImpl) Reserve(ctx context.Context, walletID uuid.UUID, amount int64) (*domain.Reservation, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	mu := s.stripe(walletID)
	mu.Lock()
	defer mu.Unlock()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if err := checkTransactable(wallet); err != nil {
		return nil, err
	}
	if wallet.CachedBalance < amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, walletID, wallet.CachedBalance-amount); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("hold balance: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	return &domain.Reservation{
		ID:       uuid.New(),
		WalletID: walletID,
		Amount:   amount,
		State:    domain.ReservationStateHeld,
	}, nil
}

// ReserveTransfer validates both endpoints and reserves on the source.
// Both wallet sections are acquired in ascending ID order.
func (s *WalletRegistryImpl) ReserveTransfer(ctx context.Context, fromID, toID uuid.UUID, amount int64) (*domain.Reservation, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if fromID == toID {
		return nil, apperror.Validation("source and destination wallets must differ")
	}

	unlock := s.lockPair(fromID, toID)
	defer unlock()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Row locks follow the same ascending order as the stripes.
	firstID, secondID := fromID, toID
	if bytes.Compare(fromID[:], toID[:]) > 0 {
		firstID, secondID = toID, fromID
	}
	locked := map[uuid.UUID]*domain.Wallet{}
	for _, id := range []uuid.UUID{firstID, secondID} {
		w, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		if w == nil {
			return nil, apperror.ErrNotFound("wallet")
		}
		locked[id] = w
	}
	from, to := locked[fromID], locked[toID]

	if err := checkTransactable(from); err != nil {
		return nil, err
	}
	if err := checkTransactable(to); err != nil {
		return nil, err
	}
	if from.CachedBalance < amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, fromID, from.CachedBalance-amount); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("hold balance: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	return &domain.Reservation{
		ID:       uuid.New(),
		WalletID: fromID,
		Amount:   amount,
		State:    domain.ReservationStateHeld,
	}, nil
}

// Commit finalizes a hold. The balance was already decremented at reserve
// time, so this is pure reservation bookkeeping.
func (s *WalletRegistryImpl) Commit(ctx context.Context, res *domain.Reservation) error {
	if res == nil || res.State != domain.ReservationStateHeld {
		return apperror.Validation("reservation is not held")
	}
	res.State = domain.ReservationStateCommitted
	return nil
}

// Release undoes a hold, crediting the amount back to the wallet.
func (s *WalletRegistryImpl) Release(ctx context.Context, res *domain.Reservation) error {
	if res == nil || res.State != domain.ReservationStateHeld {
		return apperror.Validation("reservation is not held")
	}

	mu := s.stripe(res.WalletID)
	mu.Lock()
	defer mu.Unlock()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, res.WalletID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, res.WalletID, wallet.CachedBalance+res.Amount); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("restore balance: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	res.State = domain.ReservationStateReleased
	s.log.Debug().
		Str("wallet_id", res.WalletID.String()).
		Int64("amount", res.Amount).
		Msg("reservation released")
	return nil
}

// Credit adds amount to the wallet's cached balance. Status is not checked:
// confirmed chain operations must always land, even on a wallet frozen after
// submission.
func (s *WalletRegistryImpl) Credit(ctx context.Context, walletID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}

	mu := s.stripe(walletID)
	mu.Lock()
	defer mu.Unlock()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, walletID, wallet.CachedBalance+amount); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("credit balance: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *WalletRegistryImpl) SetStatus(ctx context.Context, walletID uuid.UUID, status domain.WalletStatus) error {
	switch status {
	case domain.WalletStatusActive, domain.WalletStatusBlacklisted,
		domain.WalletStatusWhitelisted, domain.WalletStatusInactive:
	default:
		return apperror.Validation("unknown wallet status")
	}

	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}

	if err := s.walletRepo.UpdateStatus(ctx, walletID, status); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update status: %w", err))
	}

	s.log.Info().
		Str("wallet_id", walletID.String()).
		Str("from", string(wallet.Status)).
		Str("to", string(status)).
		Msg("wallet status changed")
	return nil
}

// RemainingDailyLimit returns the headroom left under the rolling 24h cap.
// An expired window counts as a full cap.
func (s *WalletRegistryImpl) RemainingDailyLimit(ctx context.Context, walletID uuid.UUID) (int64, error) {
	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return 0, err
	}
	remaining := s.dailyCap - wallet.EffectiveDailyTransferred(time.Now().UTC())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// RecordDailyTransfer bumps the rolling counter, resetting it first when the
// window has lapsed.
func (s *WalletRegistryImpl) RecordDailyTransfer(ctx context.Context, walletID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}

	mu := s.stripe(walletID)
	mu.Lock()
	defer mu.Unlock()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}

	now := time.Now().UTC()
	transferred := wallet.DailyTransferred + amount
	windowStart := wallet.DailyWindowStart
	if wallet.DailyWindowExpired(now) {
		transferred = amount
		windowStart = now
	}

	if err := s.walletRepo.UpdateDailyCounter(ctx, dbTx, walletID, transferred, windowStart); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update daily counter: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// SignOperation authorizes a chain payload with the wallet's private key.
// The decrypted key lives only inside this call and is zeroed before return.
func (s *WalletRegistryImpl) SignOperation(ctx context.Context, walletID uuid.UUID, payload []byte) (string, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return "", apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return "", apperror.ErrNotFound("wallet")
	}

	key, err := s.custody.DecryptKey(wallet.KeyMaterial)
	if err != nil {
		return "", apperror.ErrCustodyFailure(err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload) //nolint:errcheck
	for i := range key {
		key[i] = 0
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// checkTransactable maps wallet status to the business error the caller
// should see.
func checkTransactable(w *domain.Wallet) error {
	switch w.Status {
	case domain.WalletStatusBlacklisted:
		return apperror.ErrWalletBlacklisted()
	case domain.WalletStatusInactive:
		return apperror.ErrWalletInactive()
	default:
		return nil
	}
}

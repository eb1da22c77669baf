package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateStoreImpl implements ports.RateStore. The full interval table is held
// in memory sorted by effective_from, so rate-at-time queries are a binary
// search; mutations go through postgres first and refresh the cache on
// success.
type RateStoreImpl struct {
	repo       ports.RateRepository
	transactor ports.DBTransactor
	log        zerolog.Logger

	mu    sync.RWMutex
	rates []domain.ExchangeRate // ascending effective_from
}

// NewRateStore creates a rate store and loads the interval table.
func NewRateStore(ctx context.Context, repo ports.RateRepository, transactor ports.DBTransactor, log zerolog.Logger) (*RateStoreImpl, error) {
	s := &RateStoreImpl{repo: repo, transactor: transactor, log: log}
	if err := s.reload(ctx); err != nil {
		return nil, fmt.Errorf("loading exchange rates: %w", err)
	}
	return s, nil
}

func (s *RateStoreImpl) reload(ctx context.Context) error {
	rates, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	sort.Slice(rates, func(i, j int) bool {
		return rates[i].EffectiveFrom.Before(rates[j].EffectiveFrom)
	})

	s.mu.Lock()
	s.rates = rates
	s.mu.Unlock()
	return nil
}

// GetRateAt returns the rate whose half-open interval contains the given
// timestamp. A gap in coverage is a configuration error and surfaces as
// NoRateDefined, never a silent default.
func (s *RateStoreImpl) GetRateAt(_ context.Context, at time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// First interval starting after `at`; the candidate is the one before it.
	i := sort.Search(len(s.rates), func(i int) bool {
		return s.rates[i].EffectiveFrom.After(at)
	})
	if i == 0 {
		return decimal.Zero, apperror.ErrNoRateDefined()
	}
	candidate := s.rates[i-1]
	if !candidate.Covers(at) {
		return decimal.Zero, apperror.ErrNoRateDefined()
	}
	return candidate.Rate, nil
}

// SetRate closes the currently open-ended interval at effectiveFrom and opens
// a new one. Rates must be appended in time order: an effectiveFrom at or
// before the latest interval's start fails NonMonotonicRate.
func (s *RateStoreImpl) SetRate(ctx context.Context, rate decimal.Decimal, effectiveFrom time.Time) (*domain.ExchangeRate, error) {
	if rate.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("exchange rate must be positive")
	}

	s.mu.RLock()
	if n := len(s.rates); n > 0 && !effectiveFrom.After(s.rates[n-1].EffectiveFrom) {
		s.mu.RUnlock()
		return nil, apperror.ErrNonMonotonicRate()
	}
	s.mu.RUnlock()

	newRate := &domain.ExchangeRate{
		ID:            uuid.New(),
		Rate:          rate,
		EffectiveFrom: effectiveFrom,
		CreatedAt:     time.Now().UTC(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.repo.CloseOpenInterval(ctx, dbTx, effectiveFrom); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("close open interval: %w", err))
	}
	if err := s.repo.Insert(ctx, dbTx, newRate); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("insert rate: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if err := s.reload(ctx); err != nil {
		// The table committed; a stale cache here self-heals on next SetRate.
		s.log.Warn().Err(err).Msg("rate cache reload failed after SetRate")
	}

	s.log.Info().
		Str("rate", rate.String()).
		Time("effective_from", effectiveFrom).
		Msg("exchange rate updated")

	return newRate, nil
}

// Convert translates credits into the reference currency at the rate in
// effect at the given time.
func (s *RateStoreImpl) Convert(ctx context.Context, credits int64, at time.Time) (decimal.Decimal, error) {
	rate, err := s.GetRateAt(ctx, at)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(credits).Mul(rate), nil
}

// ConvertToCredits is the inverse of Convert, truncating toward zero to the
// smallest credit unit.
func (s *RateStoreImpl) ConvertToCredits(ctx context.Context, reference decimal.Decimal, at time.Time) (int64, error) {
	rate, err := s.GetRateAt(ctx, at)
	if err != nil {
		return 0, err
	}
	return reference.Div(rate).IntPart(), nil
}

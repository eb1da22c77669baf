package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus-credit-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRateRepo is a stateful in-memory rate table so cache reloads after
// SetRate can be exercised.
type stubRateRepo struct {
	mu    sync.Mutex
	rates []domain.ExchangeRate
}

func (r *stubRateRepo) Insert(_ context.Context, _ pgx.Tx, rate *domain.ExchangeRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = append(r.rates, *rate)
	return nil
}

func (r *stubRateRepo) CloseOpenInterval(_ context.Context, _ pgx.Tx, effectiveTo time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rates {
		if r.rates[i].EffectiveTo == nil {
			to := effectiveTo
			r.rates[i].EffectiveTo = &to
		}
	}
	return nil
}

func (r *stubRateRepo) ListAll(_ context.Context) ([]domain.ExchangeRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ExchangeRate, len(r.rates))
	copy(out, r.rates)
	return out, nil
}

func newTestRateStore(t *testing.T) (*RateStoreImpl, *stubRateRepo) {
	t.Helper()
	repo := &stubRateRepo{}
	store, err := NewRateStore(context.Background(), repo, stubTransactor{}, zerolog.Nop())
	require.NoError(t, err)
	return store, repo
}

func TestRateStore_EmptyTable_NoRateDefined(t *testing.T) {
	store, _ := newTestRateStore(t)

	_, err := store.GetRateAt(context.Background(), time.Now().UTC())
	assertAppError(t, err, "RATE_001")
}

func TestRateStore_MonotonicLookup(t *testing.T) {
	store, _ := newTestRateStore(t)
	ctx := context.Background()

	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t2.Add(24 * time.Hour)

	_, err := store.SetRate(ctx, decimal.NewFromFloat(0.10), t1)
	require.NoError(t, err)
	_, err = store.SetRate(ctx, decimal.NewFromFloat(0.20), t2)
	require.NoError(t, err)
	_, err = store.SetRate(ctx, decimal.NewFromFloat(0.30), t3)
	require.NoError(t, err)

	cases := []struct {
		at   time.Time
		want string
	}{
		{t1, "0.1"},
		{t1.Add(time.Hour), "0.1"},
		{t2.Add(-time.Second), "0.1"}, // half-open: t2 belongs to the next interval
		{t2, "0.2"},
		{t3.Add(-time.Second), "0.2"},
		{t3, "0.3"},
		{t3.Add(1000 * time.Hour), "0.3"}, // open-ended tail
	}
	for _, tc := range cases {
		rate, err := store.GetRateAt(ctx, tc.at)
		require.NoError(t, err, "at %s", tc.at)
		assert.Equal(t, tc.want, rate.String(), "at %s", tc.at)
	}

	// Before the first interval there is no coverage.
	_, err = store.GetRateAt(ctx, t1.Add(-time.Second))
	assertAppError(t, err, "RATE_001")
}

func TestRateStore_NonMonotonicRejected(t *testing.T) {
	store, _ := newTestRateStore(t)
	ctx := context.Background()

	t1 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err := store.SetRate(ctx, decimal.NewFromFloat(0.10), t1)
	require.NoError(t, err)

	_, err = store.SetRate(ctx, decimal.NewFromFloat(0.20), t1.Add(-time.Hour))
	assertAppError(t, err, "RATE_002")

	// Equal start is rejected too: it would leave a zero-width interval.
	_, err = store.SetRate(ctx, decimal.NewFromFloat(0.20), t1)
	assertAppError(t, err, "RATE_002")
}

func TestRateStore_SetRate_ClosesOpenInterval(t *testing.T) {
	store, repo := newTestRateStore(t)
	ctx := context.Background()

	t1 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(12 * time.Hour)
	_, err := store.SetRate(ctx, decimal.NewFromFloat(0.5), t1)
	require.NoError(t, err)
	_, err = store.SetRate(ctx, decimal.NewFromFloat(0.6), t2)
	require.NoError(t, err)

	rates, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 2)

	openEnded := 0
	for _, r := range rates {
		if r.EffectiveTo == nil {
			openEnded++
		} else {
			assert.Equal(t, t2, *r.EffectiveTo)
		}
	}
	assert.Equal(t, 1, openEnded, "exactly one open-ended interval at any time")
}

func TestRateStore_InvalidRateRejected(t *testing.T) {
	store, _ := newTestRateStore(t)

	_, err := store.SetRate(context.Background(), decimal.Zero, time.Now().UTC())
	assertAppError(t, err, "LED_002")

	_, err = store.SetRate(context.Background(), decimal.NewFromFloat(-1), time.Now().UTC())
	assertAppError(t, err, "LED_002")
}

func TestRateStore_Convert(t *testing.T) {
	store, _ := newTestRateStore(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.SetRate(ctx, decimal.NewFromFloat(0.25), t1)
	require.NoError(t, err)

	ref, err := store.Convert(ctx, 1000, t1.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "250", ref.String())

	credits, err := store.ConvertToCredits(ctx, decimal.NewFromInt(250), t1.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), credits)

	// Conversion truncates toward zero at sub-credit precision.
	credits, err = store.ConvertToCredits(ctx, decimal.NewFromFloat(0.26), t1.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), credits)
}

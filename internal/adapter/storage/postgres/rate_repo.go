package postgres

import (
	"context"
	"fmt"
	"time"

	"campus-credit-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// RateRepo implements ports.RateRepository over the exchange rate interval
// table. At most one row is open-ended at any time.
type RateRepo struct {
	pool Pool
}

// NewRateRepo creates a new RateRepo.
func NewRateRepo(pool Pool) *RateRepo {
	return &RateRepo{pool: pool}
}

// Insert adds a new rate interval within a database transaction.
func (r *RateRepo) Insert(ctx context.Context, tx pgx.Tx, rate *domain.ExchangeRate) error {
	query := `INSERT INTO exchange_rates (id, rate, effective_from, effective_to, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query,
		rate.ID, rate.Rate, rate.EffectiveFrom, rate.EffectiveTo, rate.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exchange rate: %w", err)
	}
	return nil
}

// CloseOpenInterval sets effective_to on the single open-ended interval.
// A no-op when the table has no open interval yet.
func (r *RateRepo) CloseOpenInterval(ctx context.Context, tx pgx.Tx, effectiveTo time.Time) error {
	query := `UPDATE exchange_rates SET effective_to = $1 WHERE effective_to IS NULL`

	if _, err := tx.Exec(ctx, query, effectiveTo); err != nil {
		return fmt.Errorf("close open rate interval: %w", err)
	}
	return nil
}

// ListAll returns every rate interval ordered by effective_from ascending.
func (r *RateRepo) ListAll(ctx context.Context) ([]domain.ExchangeRate, error) {
	query := `SELECT id, rate, effective_from, effective_to, created_at
		FROM exchange_rates ORDER BY effective_from`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list exchange rates: %w", err)
	}
	defer rows.Close()

	var rates []domain.ExchangeRate
	for rows.Next() {
		var rate domain.ExchangeRate
		if err := rows.Scan(&rate.ID, &rate.Rate, &rate.EffectiveFrom, &rate.EffectiveTo, &rate.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const alertColumns = `id, wallet_id, transaction_id, alert_type, severity, status,
	detail, detected_at, resolution, resolved_at`

// AlertRepo implements ports.AlertRepository.
type AlertRepo struct {
	pool Pool
}

// NewAlertRepo creates a new AlertRepo.
func NewAlertRepo(pool Pool) *AlertRepo {
	return &AlertRepo{pool: pool}
}

func scanAlert(row pgx.Row) (*domain.FraudAlert, error) {
	a := &domain.FraudAlert{}
	err := row.Scan(
		&a.ID, &a.WalletID, &a.TransactionID, &a.AlertType, &a.Severity, &a.Status,
		&a.Detail, &a.DetectedAt, &a.Resolution, &a.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a fraud alert.
func (r *AlertRepo) Create(ctx context.Context, a *domain.FraudAlert) error {
	query := `INSERT INTO fraud_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.WalletID, a.TransactionID, a.AlertType, a.Severity, a.Status,
		a.Detail, a.DetectedAt, a.Resolution, a.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fraud alert: %w", err)
	}
	return nil
}

// GetByID fetches an alert by its UUID.
func (r *AlertRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE id = $1`

	a, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert by id: %w", err)
	}
	return a, nil
}

// List returns alerts matching the filter, newest first, with the total count
// for pagination.
func (r *AlertRepo) List(ctx context.Context, params ports.AlertListParams) ([]domain.FraudAlert, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	idx := 1

	if params.WalletID != nil {
		where += fmt.Sprintf(" AND wallet_id = $%d", idx)
		args = append(args, *params.WalletID)
		idx++
	}
	if params.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, *params.Status)
		idx++
	}
	if params.Severity != nil {
		where += fmt.Sprintf(" AND severity = $%d", idx)
		args = append(args, *params.Severity)
		idx++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM fraud_alerts"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	query := `SELECT ` + alertColumns + ` FROM fraud_alerts` + where +
		fmt.Sprintf(" ORDER BY detected_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.FraudAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, total, rows.Err()
}

// UpdateStatus moves an alert through the review workflow. Terminal states
// stamp resolved_at.
func (r *AlertRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus, resolution *string) error {
	query := `UPDATE fraud_alerts SET status = $1, resolution = $2,
		resolved_at = CASE WHEN $1 IN ('RESOLVED', 'FALSE_POSITIVE', 'CONFIRMED_FRAUD') THEN NOW() ELSE resolved_at END
		WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, status, resolution, id)
	if err != nil {
		return fmt.Errorf("update alert status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

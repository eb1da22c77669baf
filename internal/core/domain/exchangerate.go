package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRate is one entry in the time-ordered conversion table between the
// internal credit unit and the reference currency. Intervals are half-open:
// [EffectiveFrom, EffectiveTo). A nil EffectiveTo marks the single open-ended
// interval that is currently active.
type ExchangeRate struct {
	ID            uuid.UUID       `json:"id"`
	Rate          decimal.Decimal `json:"rate"` // reference units per credit
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Covers reports whether the rate's interval contains the given timestamp.
func (r *ExchangeRate) Covers(t time.Time) bool {
	if t.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || t.Before(*r.EffectiveTo)
}

// IsOpenEnded reports whether this is the currently active, unclosed interval.
func (r *ExchangeRate) IsOpenEnded() bool {
	return r.EffectiveTo == nil
}

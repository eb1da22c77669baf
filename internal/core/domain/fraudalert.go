package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertType names the check that produced a fraud alert.
type AlertType string

const (
	AlertTypeBlacklistedWallet AlertType = "BLACKLISTED_WALLET"
	AlertTypeDailyLimit        AlertType = "DAILY_LIMIT"
	AlertTypeLargeTransaction  AlertType = "LARGE_TRANSACTION"
	AlertTypeVelocity          AlertType = "VELOCITY"
	AlertTypeAmountOutlier     AlertType = "AMOUNT_OUTLIER"
	AlertTypeDuplicateReward   AlertType = "DUPLICATE_REWARD"
	AlertTypeLedgerDrift       AlertType = "LEDGER_DRIFT"
)

// AlertSeverity grades how serious an alert is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// AlertStatus tracks the review workflow of an alert.
type AlertStatus string

const (
	AlertStatusPending        AlertStatus = "PENDING"
	AlertStatusInvestigating  AlertStatus = "INVESTIGATING"
	AlertStatusResolved       AlertStatus = "RESOLVED"
	AlertStatusFalsePositive  AlertStatus = "FALSE_POSITIVE"
	AlertStatusConfirmedFraud AlertStatus = "CONFIRMED_FRAUD"
)

// FraudAlert records a suspicious observation for human or automated review.
// TransactionID is nil for pattern alerts not tied to a single transaction,
// such as reconciliation drift.
type FraudAlert struct {
	ID            uuid.UUID     `json:"id"`
	WalletID      uuid.UUID     `json:"wallet_id"`
	TransactionID *uuid.UUID    `json:"transaction_id,omitempty"`
	AlertType     AlertType     `json:"alert_type"`
	Severity      AlertSeverity `json:"severity"`
	Status        AlertStatus   `json:"status"`
	Detail        string        `json:"detail"`
	DetectedAt    time.Time     `json:"detected_at"`
	Resolution    *string       `json:"resolution,omitempty"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
}

// IsOpen reports whether the alert still awaits review.
func (a *FraudAlert) IsOpen() bool {
	return a.Status == AlertStatusPending || a.Status == AlertStatusInvestigating
}

package service

import (
	"fmt"
	"math"
	"time"

	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"
)

// FraudConfig holds the thresholds for all fraud checks.
type FraudConfig struct {
	LargeTxThreshold int64         // FLAG above this amount
	DailyCap         int64         // DENY when the rolling 24h counter would exceed this
	VelocityMax      int           // FLAG when more than this many transactions fall in the window
	VelocityWindow   time.Duration // sliding window for the velocity check
	OutlierSigma     float64       // standard deviations from the trailing mean
	OutlierMinSample int           // below this many samples the outlier check is skipped
}

// FraudEngineImpl implements ports.FraudEngine. It is stateless and pure:
// every check reads only the input snapshot, so the same input always
// produces the same result, which makes verdicts reproducible in audits.
type FraudEngineImpl struct {
	cfg FraudConfig
}

// NewFraudEngine creates a fraud engine with the given thresholds.
func NewFraudEngine(cfg FraudConfig) *FraudEngineImpl {
	return &FraudEngineImpl{cfg: cfg}
}

// verdictRank orders verdicts by severity so independent checks combine by
// taking the most severe.
var verdictRank = map[ports.FraudVerdict]int{
	ports.VerdictAdmit: 0,
	ports.VerdictFlag:  1,
	ports.VerdictDeny:  2,
}

// Evaluate runs all checks independently and combines them by most severe
// verdict. Alert IDs are left zero; the caller assigns them on persistence.
func (e *FraudEngineImpl) Evaluate(in ports.FraudInput) ports.FraudResult {
	result := ports.FraudResult{Verdict: ports.VerdictAdmit}

	type check func(ports.FraudInput) (ports.FraudVerdict, []domain.FraudAlert)
	for _, c := range []check{
		e.checkBlacklist,
		e.checkDuplicateReward,
		e.checkDailyLimit,
		e.checkLargeTransaction,
		e.checkVelocity,
		e.checkAmountOutlier,
	} {
		verdict, alerts := c(in)
		if verdictRank[verdict] > verdictRank[result.Verdict] {
			result.Verdict = verdict
		}
		result.Alerts = append(result.Alerts, alerts...)
	}

	return result
}

// checkBlacklist denies when either endpoint wallet is blacklisted.
func (e *FraudEngineImpl) checkBlacklist(in ports.FraudInput) (ports.FraudVerdict, []domain.FraudAlert) {
	var alerts []domain.FraudAlert
	for _, w := range []*domain.Wallet{in.From, in.To} {
		if w != nil && w.Status == domain.WalletStatusBlacklisted {
			alerts = append(alerts, domain.FraudAlert{
				WalletID:   w.ID,
				AlertType:  domain.AlertTypeBlacklistedWallet,
				Severity:   domain.SeverityCritical,
				Status:     domain.AlertStatusPending,
				Detail:     fmt.Sprintf("wallet %s is blacklisted", w.ID),
				DetectedAt: in.Now,
			})
		}
	}
	if len(alerts) > 0 {
		return ports.VerdictDeny, alerts
	}
	return ports.VerdictAdmit, nil
}

// checkDuplicateReward denies a mint whose dedup key is already recorded.
func (e *FraudEngineImpl) checkDuplicateReward(in ports.FraudInput) (ports.FraudVerdict, []domain.FraudAlert) {
	if !in.DedupKeyTaken || in.To == nil {
		return ports.VerdictAdmit, nil
	}
	return ports.VerdictDeny, []domain.FraudAlert{{
		WalletID:   in.To.ID,
		AlertType:  domain.AlertTypeDuplicateReward,
		Severity:   domain.SeverityCritical,
		Status:     domain.AlertStatusPending,
		Detail:     "reward dedup key already present in the ledger",
		DetectedAt: in.Now,
	}}
}

// counterWallet returns the wallet whose rolling daily counter the operation
// would increment: the source for transfers and burns, the destination for
// mints and rewards.
func counterWallet(in ports.FraudInput) *domain.Wallet {
	if in.From != nil {
		return in.From
	}
	return in.To
}

// checkDailyLimit denies when the amount would push the wallet's rolling 24h
// transferred total over the cap. The counter window reset is evaluated
// lazily against in.Now.
func (e *FraudEngineImpl) checkDailyLimit(in ports.FraudInput) (ports.FraudVerdict, []domain.FraudAlert) {
	w := counterWallet(in)
	if w == nil || e.cfg.DailyCap <= 0 {
		return ports.VerdictAdmit, nil
	}
	current := w.EffectiveDailyTransferred(in.Now)
	if current+in.Amount <= e.cfg.DailyCap {
		return ports.VerdictAdmit, nil
	}
	return ports.VerdictDeny, []domain.FraudAlert{{
		WalletID:   w.ID,
		AlertType:  domain.AlertTypeDailyLimit,
		Severity:   domain.SeverityHigh,
		Status:     domain.AlertStatusPending,
		Detail:     fmt.Sprintf("amount %d would push daily total %d over the %d cap", in.Amount, current, e.cfg.DailyCap),
		DetectedAt: in.Now,
	}}
}

// checkLargeTransaction flags amounts above the static per-transaction
// ceiling. The operation still completes; a review task is spawned.
func (e *FraudEngineImpl) checkLargeTransaction(in ports.FraudInput) (ports.FraudVerdict, []domain.FraudAlert) {
	w := counterWallet(in)
	if w == nil || e.cfg.LargeTxThreshold <= 0 || in.Amount <= e.cfg.LargeTxThreshold {
		return ports.VerdictAdmit, nil
	}
	return ports.VerdictFlag, []domain.FraudAlert{{
		WalletID:   w.ID,
		AlertType:  domain.AlertTypeLargeTransaction,
		Severity:   domain.SeverityHigh,
		Status:     domain.AlertStatusPending,
		Detail:     fmt.Sprintf("amount %d exceeds the %d single-transaction ceiling", in.Amount, e.cfg.LargeTxThreshold),
		DetectedAt: in.Now,
	}}
}

// checkVelocity flags wallets with more than VelocityMax transactions inside
// the sliding window, counting only history entries that involve the wallet.
func (e *FraudEngineImpl) checkVelocity(in ports.FraudInput) (ports.FraudVerdict, []domain.FraudAlert) {
	w := counterWallet(in)
	if w == nil || e.cfg.VelocityMax <= 0 {
		return ports.VerdictAdmit, nil
	}
	cutoff := in.Now.Add(-e.cfg.VelocityWindow)
	recent := 0
	for _, t := range in.History {
		if !t.CreatedAt.Before(cutoff) {
			recent++
		}
	}
	if recent < e.cfg.VelocityMax {
		return ports.VerdictAdmit, nil
	}
	return ports.VerdictFlag, []domain.FraudAlert{{
		WalletID:   w.ID,
		AlertType:  domain.AlertTypeVelocity,
		Severity:   domain.SeverityMedium,
		Status:     domain.AlertStatusPending,
		Detail:     fmt.Sprintf("%d transactions within %s (threshold %d)", recent, e.cfg.VelocityWindow, e.cfg.VelocityMax),
		DetectedAt: in.Now,
	}}
}

// checkAmountOutlier flags amounts deviating more than OutlierSigma standard
// deviations from the wallet's trailing mean transaction size. With fewer
// than OutlierMinSample history entries the check is skipped, not failed.
func (e *FraudEngineImpl) checkAmountOutlier(in ports.FraudInput) (ports.FraudVerdict, []domain.FraudAlert) {
	w := counterWallet(in)
	if w == nil || len(in.History) < e.cfg.OutlierMinSample {
		return ports.VerdictAdmit, nil
	}

	mean, stddev := amountStats(in.History)
	deviation := math.Abs(float64(in.Amount) - mean)
	if deviation <= e.cfg.OutlierSigma*stddev {
		return ports.VerdictAdmit, nil
	}
	return ports.VerdictFlag, []domain.FraudAlert{{
		WalletID:   w.ID,
		AlertType:  domain.AlertTypeAmountOutlier,
		Severity:   domain.SeverityMedium,
		Status:     domain.AlertStatusPending,
		Detail:     fmt.Sprintf("amount %d deviates %.1f from trailing mean %.1f (stddev %.1f)", in.Amount, deviation, mean, stddev),
		DetectedAt: in.Now,
	}}
}

// amountStats computes the mean and population standard deviation of the
// history's transaction amounts.
func amountStats(history []domain.Transaction) (mean, stddev float64) {
	n := float64(len(history))
	var sum float64
	for _, t := range history {
		sum += float64(t.Amount)
	}
	mean = sum / n

	var sq float64
	for _, t := range history {
		d := float64(t.Amount) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

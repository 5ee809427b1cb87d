package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/store"
)

// SweepReport summarizes one integrity sweep.
type SweepReport struct {
	Checked int
	Drifted []string // account IDs whose stored fingerprint is stale
}

// IntegrityVerifier checks caller-supplied fingerprints before trades and
// periodically recomputes every stored fingerprint to detect drift.
type IntegrityVerifier struct {
	interval time.Duration
	accounts *store.AccountStore
	metrics  *Metrics
	logger   *slog.Logger
	running  atomic.Bool
}

// NewIntegrityVerifier creates a verifier sweeping every interval.
func NewIntegrityVerifier(interval time.Duration, accounts *store.AccountStore, metrics *Metrics, logger *slog.Logger) *IntegrityVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrityVerifier{
		interval: interval,
		accounts: accounts,
		metrics:  metrics,
		logger:   logger.With("component", "integrity"),
	}
}

// Verify compares supplied against the account's live fingerprint. A nil
// supplied fingerprint skips the check. On mismatch it returns an
// *domain.IntegrityMismatchError carrying a copy of the account.
func (v *IntegrityVerifier) Verify(a *domain.Account, supplied *string) error {
	if supplied == nil {
		return nil
	}
	if *supplied == domain.Fingerprint(a) {
		return nil
	}
	v.metrics.ObserveStaleFingerprint()
	return &domain.IntegrityMismatchError{Current: a.Clone()}
}

// VerifyAccount loads the account and verifies supplied against it.
func (v *IntegrityVerifier) VerifyAccount(accountID string, supplied string) error {
	a, err := v.accounts.Get(accountID)
	if err != nil {
		return err
	}
	return v.Verify(a, &supplied)
}

// Start launches a background goroutine that sweeps at the configured
// interval. It stops when ctx is cancelled.
func (v *IntegrityVerifier) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(v.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				v.Sweep(ctx)
			}
		}
	}()
}

// Sweep recomputes every account's fingerprint and compares it with the
// stored one. Drift is logged at error level; it never changes the account.
// It returns false without sweeping if a previous sweep is still running.
func (v *IntegrityVerifier) Sweep(ctx context.Context) (SweepReport, bool) {
	if !v.running.CompareAndSwap(false, true) {
		v.logger.Warn("integrity sweep still running, tick skipped")
		return SweepReport{}, false
	}
	defer v.running.Store(false)

	start := time.Now()
	var report SweepReport
	for _, a := range v.accounts.List() {
		if ctx.Err() != nil {
			break
		}
		report.Checked++
		if want := domain.Fingerprint(a); a.Fingerprint != want {
			report.Drifted = append(report.Drifted, a.AccountID)
			v.metrics.ObserveDrift()
			v.logger.Error("account fingerprint drift detected",
				slog.String("severity", "critical"),
				slog.String("account_id", a.AccountID),
				slog.String("stored", a.Fingerprint),
				slog.String("computed", want),
			)
		}
	}
	v.metrics.ObserveLoop("integrity_sweep", time.Since(start))
	v.logger.Info("integrity sweep completed",
		slog.Int("checked", report.Checked),
		slog.Int("drifted", len(report.Drifted)),
	)
	return report, true
}

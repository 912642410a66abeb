// Package compliance runs the periodic compliance audit and keeps its
// append-only log.
package compliance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mundotango/citygroups/internal/metrics"
	"github.com/mundotango/citygroups/internal/models"
)

const (
	DefaultInterval     = time.Hour
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100

	TriggeredBySystem = "system"
)

// LogStore persists audit rows.
type LogStore interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, entry *models.ComplianceAuditLog) error
	Recent(ctx context.Context, limit int) ([]models.ComplianceAuditLog, error)
}

type Auditor struct {
	scorer   Scorer
	store    LogStore
	logger   *zap.Logger
	clock    Clock
	interval time.Duration
	rules    atomic.Pointer[Rules]

	mu   sync.Mutex
	last *models.ComplianceAuditLog
	stop chan struct{}
	done chan struct{}
}

type Option func(*Auditor)

func WithClock(c Clock) Option {
	return func(a *Auditor) { a.clock = c }
}

func WithInterval(d time.Duration) Option {
	return func(a *Auditor) {
		if d > 0 {
			a.interval = d
		}
	}
}

func WithRules(r *Rules) Option {
	return func(a *Auditor) {
		if r != nil {
			a.rules.Store(r)
		}
	}
}

func NewAuditor(scorer Scorer, store LogStore, logger *zap.Logger, opts ...Option) *Auditor {
	a := &Auditor{
		scorer:   scorer,
		store:    store,
		logger:   logger,
		clock:    realClock{},
		interval: DefaultInterval,
	}
	a.rules.Store(DefaultRules())
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetRules swaps the thresholds used by subsequent runs.
func (a *Auditor) SetRules(r *Rules) {
	a.rules.Store(r)
}

func (a *Auditor) Rules() *Rules {
	return a.rules.Load()
}

// EnsureSchema creates the audit log table if needed.
func (a *Auditor) EnsureSchema(ctx context.Context) error {
	if err := a.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure compliance audit schema: %w", err)
	}
	return nil
}

// Start creates the log table, runs one audit immediately and then one per
// interval until Stop is called or ctx is done. Calling Start on a running
// auditor is a no-op.
func (a *Auditor) Start(ctx context.Context) error {
	if err := a.EnsureSchema(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		return nil
	}
	a.stop = make(chan struct{})
	a.done = make(chan struct{})

	ticker := a.clock.NewTicker(a.interval)
	go a.loop(ctx, ticker, a.stop, a.done)

	a.logger.Info("compliance auditor started", zap.Duration("interval", a.interval))
	return nil
}

func (a *Auditor) loop(ctx context.Context, ticker Ticker, stop, done chan struct{}) {
	defer a.exited(stop, done)
	defer ticker.Stop()

	a.RunAudit(ctx, models.AuditTypeStartup, TriggeredBySystem)
	for {
		select {
		case <-ticker.C():
			a.RunAudit(ctx, models.AuditTypeScheduled, TriggeredBySystem)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// exited marks the auditor as stopped when the loop ends on its own, so a
// later Start can schedule again.
func (a *Auditor) exited(stop, done chan struct{}) {
	a.mu.Lock()
	if a.stop == stop {
		a.stop, a.done = nil, nil
	}
	a.mu.Unlock()
	close(done)
}

// Stop prevents further scheduled runs. A run already in progress is
// allowed to finish; Stop returns once it has.
func (a *Auditor) Stop() {
	a.mu.Lock()
	stop, done := a.stop, a.done
	a.stop, a.done = nil, nil
	a.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	a.logger.Info("compliance auditor stopped")
}

func (a *Auditor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stop != nil
}

// RunAudit executes one audit and persists its row. A scorer failure is
// recorded as a zero-score row with a critical issue; the returned row is
// never nil. The error is non-nil only when the row could not be stored.
func (a *Auditor) RunAudit(ctx context.Context, auditType, triggeredBy string) (*models.ComplianceAuditLog, error) {
	ctx = context.WithoutCancel(ctx)
	started := a.clock.Now()

	scores, err := a.score(ctx)
	elapsed := a.clock.Now().Sub(started)

	var entry *models.ComplianceAuditLog
	status := "ok"
	if err != nil {
		status = "failed"
		a.logger.Error("compliance audit failed",
			zap.String("audit_type", auditType),
			zap.Error(err))
		entry = &models.ComplianceAuditLog{
			CriticalIssues:  []string{fmt.Sprintf("Compliance audit execution failed: %v", err)},
			Warnings:        []string{},
			Recommendations: []string{},
		}
	} else {
		findings := a.Rules().Evaluate(scores)
		entry = &models.ComplianceAuditLog{
			OverallScore:     scores.Overall(),
			GDPRScore:        scores.GDPR,
			SOC2Score:        scores.SOC2,
			EnterpriseScore:  scores.Enterprise,
			MultiTenantScore: scores.MultiTenant,
			CriticalIssues:   findings.CriticalIssues,
			Warnings:         findings.Warnings,
			Recommendations:  findings.Recommendations,
		}
	}
	entry.Timestamp = started
	entry.AuditType = auditType
	entry.TriggeredBy = triggeredBy
	entry.ExecutionTimeMs = elapsed.Milliseconds()

	a.mu.Lock()
	a.last = entry
	a.mu.Unlock()

	metrics.ComplianceAudits.WithLabelValues(auditType, status).Inc()
	metrics.ComplianceOverallScore.Set(float64(entry.OverallScore))
	metrics.ComplianceAuditDuration.Observe(float64(entry.ExecutionTimeMs))

	if err := a.store.Insert(ctx, entry); err != nil {
		a.logger.Error("could not persist compliance audit",
			zap.String("audit_type", auditType),
			zap.Error(err))
		return entry, fmt.Errorf("persist compliance audit: %w", err)
	}

	a.logger.Info("compliance audit completed",
		zap.String("audit_type", auditType),
		zap.String("triggered_by", triggeredBy),
		zap.Int("overall_score", entry.OverallScore),
		zap.Int("critical_issues", len(entry.CriticalIssues)),
		zap.Int64("execution_time_ms", entry.ExecutionTimeMs))
	return entry, nil
}

func (a *Auditor) score(ctx context.Context) (scores Scores, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compliance scorer panicked: %v", r)
		}
	}()
	return a.scorer.RunComprehensiveAudit(ctx)
}

// Refresh runs an on-demand audit.
func (a *Auditor) Refresh(ctx context.Context, triggeredBy string) (*models.ComplianceAuditLog, error) {
	return a.RunAudit(ctx, models.AuditTypeManual, triggeredBy)
}

// CurrentStatus returns the result of the most recent run in this process.
func (a *Auditor) CurrentStatus() (*models.ComplianceAuditLog, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, a.last != nil
}

// History returns the newest persisted rows. Non-positive limits use the
// default; limits above MaxHistoryLimit are clamped.
func (a *Auditor) History(ctx context.Context, limit int) ([]models.ComplianceAuditLog, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return a.store.Recent(ctx, limit)
}

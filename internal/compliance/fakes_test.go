package compliance_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mundotango/citygroups/internal/compliance"
	"github.com/mundotango/citygroups/internal/models"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	step   time.Duration
	ticker *fakeTicker
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, ticker: &fakeTicker{ch: make(chan time.Time)}}
}

// Now advances by step on every call so runs get a measurable duration.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) NewTicker(time.Duration) compliance.Ticker {
	return c.ticker
}

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeLogStore struct {
	mu        sync.Mutex
	rows      []models.ComplianceAuditLog
	inserted  chan models.ComplianceAuditLog
	failWrite error
	lastLimit int
	schemaOK  bool
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{inserted: make(chan models.ComplianceAuditLog, 16)}
}

func (s *fakeLogStore) EnsureSchema(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaOK = true
	return nil
}

func (s *fakeLogStore) Insert(_ context.Context, entry *models.ComplianceAuditLog) error {
	s.mu.Lock()
	if s.failWrite != nil {
		s.mu.Unlock()
		return s.failWrite
	}
	entry.ID = uint(len(s.rows) + 1)
	s.rows = append(s.rows, *entry)
	s.mu.Unlock()
	s.inserted <- *entry
	return nil
}

func (s *fakeLogStore) Recent(_ context.Context, limit int) ([]models.ComplianceAuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	var out []models.ComplianceAuditLog
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.rows[i])
	}
	return out, nil
}

func fixedScores(s compliance.Scores) compliance.Scorer {
	return compliance.ScorerFunc(func(context.Context) (compliance.Scores, error) {
		return s, nil
	})
}

var errProbe = errors.New("probe backend unavailable")

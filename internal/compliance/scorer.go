package compliance

import (
	"context"
	"fmt"
	"math"
)

// Scores are the four category scores of one audit, each 0-100.
type Scores struct {
	GDPR        int `json:"gdpr"`
	SOC2        int `json:"soc2"`
	Enterprise  int `json:"enterprise"`
	MultiTenant int `json:"multiTenant"`
}

// Overall is the unweighted mean, rounded half up.
func (s Scores) Overall() int {
	sum := s.GDPR + s.SOC2 + s.Enterprise + s.MultiTenant
	return int(math.Round(float64(sum) / 4))
}

// Scorer produces the category scores for an audit run.
type Scorer interface {
	RunComprehensiveAudit(ctx context.Context) (Scores, error)
}

type ScorerFunc func(ctx context.Context) (Scores, error)

func (f ScorerFunc) RunComprehensiveAudit(ctx context.Context) (Scores, error) {
	return f(ctx)
}

// Probe is one pass/fail check contributing to a category score.
type Probe struct {
	Name  string
	Check func(ctx context.Context) (bool, error)
}

// ProbeScorer scores each category as the share of its probes that pass.
// A probe that errors fails the whole audit.
type ProbeScorer struct {
	GDPR        []Probe
	SOC2        []Probe
	Enterprise  []Probe
	MultiTenant []Probe
}

func (p *ProbeScorer) RunComprehensiveAudit(ctx context.Context) (Scores, error) {
	var (
		s   Scores
		err error
	)
	if s.GDPR, err = runProbes(ctx, p.GDPR); err != nil {
		return Scores{}, err
	}
	if s.SOC2, err = runProbes(ctx, p.SOC2); err != nil {
		return Scores{}, err
	}
	if s.Enterprise, err = runProbes(ctx, p.Enterprise); err != nil {
		return Scores{}, err
	}
	if s.MultiTenant, err = runProbes(ctx, p.MultiTenant); err != nil {
		return Scores{}, err
	}
	return s, nil
}

func runProbes(ctx context.Context, probes []Probe) (int, error) {
	if len(probes) == 0 {
		return 100, nil
	}
	passed := 0
	for _, probe := range probes {
		ok, err := probe.Check(ctx)
		if err != nil {
			return 0, fmt.Errorf("probe %q: %w", probe.Name, err)
		}
		if ok {
			passed++
		}
	}
	return int(math.Round(float64(passed) * 100 / float64(len(probes)))), nil
}

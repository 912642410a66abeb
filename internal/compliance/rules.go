package compliance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Threshold flags a category score. A score below Critical is a critical
// issue, otherwise a score below Warning is a warning. Zero disables a level.
type Threshold struct {
	Critical       int    `yaml:"critical"`
	Warning        int    `yaml:"warning"`
	Recommendation string `yaml:"recommendation"`
}

type Rules struct {
	GDPR        Threshold `yaml:"gdpr"`
	SOC2        Threshold `yaml:"soc2"`
	Enterprise  Threshold `yaml:"enterprise"`
	MultiTenant Threshold `yaml:"multi_tenant"`
}

func DefaultRules() *Rules {
	return &Rules{
		GDPR: Threshold{
			Critical:       80,
			Warning:        90,
			Recommendation: "Review consent records, data retention and data subject request handling.",
		},
		SOC2: Threshold{
			Critical:       75,
			Warning:        85,
			Recommendation: "Review access controls, audit logging and change management evidence.",
		},
		Enterprise: Threshold{
			Critical:       70,
			Recommendation: "Review role management and ownership of organisation-level resources.",
		},
		MultiTenant: Threshold{
			Critical:       75,
			Recommendation: "Review isolation of groups, memberships and event assignments.",
		},
	}
}

// LoadRules reads a YAML rules file. Categories or fields missing from the
// file keep their default values.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compliance rules %s: %w", path, err)
	}
	rules := DefaultRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parse compliance rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("compliance rules %s: %w", path, err)
	}
	return rules, nil
}

func (r *Rules) Validate() error {
	for _, c := range r.categories(Scores{}) {
		if c.threshold.Critical < 0 || c.threshold.Critical > 100 {
			return fmt.Errorf("%s: critical threshold %d out of range 0-100", c.name, c.threshold.Critical)
		}
		if c.threshold.Warning < 0 || c.threshold.Warning > 100 {
			return fmt.Errorf("%s: warning threshold %d out of range 0-100", c.name, c.threshold.Warning)
		}
		if c.threshold.Warning != 0 && c.threshold.Warning < c.threshold.Critical {
			return fmt.Errorf("%s: warning threshold %d below critical threshold %d", c.name, c.threshold.Warning, c.threshold.Critical)
		}
	}
	return nil
}

type category struct {
	name      string
	score     int
	threshold Threshold
}

func (r *Rules) categories(s Scores) []category {
	return []category{
		{name: "GDPR", score: s.GDPR, threshold: r.GDPR},
		{name: "SOC2", score: s.SOC2, threshold: r.SOC2},
		{name: "Enterprise", score: s.Enterprise, threshold: r.Enterprise},
		{name: "Multi-tenant", score: s.MultiTenant, threshold: r.MultiTenant},
	}
}

// Findings lists the issues the rules raise for a set of scores.
type Findings struct {
	CriticalIssues  []string
	Warnings        []string
	Recommendations []string
}

func (r *Rules) Evaluate(s Scores) Findings {
	f := Findings{
		CriticalIssues:  []string{},
		Warnings:        []string{},
		Recommendations: []string{},
	}
	for _, c := range r.categories(s) {
		flagged := true
		switch {
		case c.threshold.Critical > 0 && c.score < c.threshold.Critical:
			f.CriticalIssues = append(f.CriticalIssues,
				fmt.Sprintf("%s compliance score %d%% is below the critical threshold of %d%%", c.name, c.score, c.threshold.Critical))
		case c.threshold.Warning > 0 && c.score < c.threshold.Warning:
			f.Warnings = append(f.Warnings,
				fmt.Sprintf("%s compliance score %d%% is below the target of %d%%", c.name, c.score, c.threshold.Warning))
		default:
			flagged = false
		}
		if flagged && c.threshold.Recommendation != "" {
			f.Recommendations = append(f.Recommendations, c.threshold.Recommendation)
		}
	}
	return f
}

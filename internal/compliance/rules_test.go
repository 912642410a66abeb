package compliance_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundotango/citygroups/internal/compliance"
)

func writeRules(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "compliance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultRules_Valid(t *testing.T) {
	require.NoError(t, compliance.DefaultRules().Validate())
}

func TestLoadRules_PartialOverride(t *testing.T) {
	path := writeRules(t, t.TempDir(), `
gdpr:
  critical: 60
multi_tenant:
  warning: 95
  recommendation: Check tenant scoping.
`)

	rules, err := compliance.LoadRules(path)
	require.NoError(t, err)

	defaults := compliance.DefaultRules()
	assert.Equal(t, 60, rules.GDPR.Critical)
	assert.Equal(t, defaults.GDPR.Warning, rules.GDPR.Warning)
	assert.Equal(t, defaults.GDPR.Recommendation, rules.GDPR.Recommendation)
	assert.Equal(t, defaults.SOC2, rules.SOC2)
	assert.Equal(t, 95, rules.MultiTenant.Warning)
	assert.Equal(t, "Check tenant scoping.", rules.MultiTenant.Recommendation)
}

func TestLoadRules_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := compliance.LoadRules(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = compliance.LoadRules(writeRules(t, dir, "gdpr: [not, a, map]"))
	assert.Error(t, err)

	_, err = compliance.LoadRules(writeRules(t, dir, "soc2:\n  critical: 120\n"))
	assert.ErrorContains(t, err, "out of range")

	_, err = compliance.LoadRules(writeRules(t, dir, "enterprise:\n  critical: 70\n  warning: 50\n"))
	assert.ErrorContains(t, err, "below critical")
}

func TestEvaluate(t *testing.T) {
	rules := compliance.DefaultRules()

	tests := []struct {
		name      string
		scores    compliance.Scores
		critical  []string
		warnings  []string
		recommend int
	}{
		{
			name:   "all clear",
			scores: compliance.Scores{GDPR: 100, SOC2: 100, Enterprise: 100, MultiTenant: 100},
		},
		{
			name:      "gdpr critical",
			scores:    compliance.Scores{GDPR: 70, SOC2: 90, Enterprise: 95, MultiTenant: 95},
			critical:  []string{"GDPR compliance score 70% is below the critical threshold of 80%"},
			recommend: 1,
		},
		{
			name:      "soc2 warning",
			scores:    compliance.Scores{GDPR: 95, SOC2: 80, Enterprise: 95, MultiTenant: 95},
			warnings:  []string{"SOC2 compliance score 80% is below the target of 85%"},
			recommend: 1,
		},
		{
			name:   "boundary scores are not flagged",
			scores: compliance.Scores{GDPR: 90, SOC2: 85, Enterprise: 70, MultiTenant: 75},
		},
		{
			name:   "everything failing",
			scores: compliance.Scores{},
			critical: []string{
				"GDPR compliance score 0% is below the critical threshold of 80%",
				"SOC2 compliance score 0% is below the critical threshold of 75%",
				"Enterprise compliance score 0% is below the critical threshold of 70%",
				"Multi-tenant compliance score 0% is below the critical threshold of 75%",
			},
			recommend: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rules.Evaluate(tt.scores)
			if tt.critical == nil {
				assert.Empty(t, f.CriticalIssues)
			} else {
				assert.Equal(t, tt.critical, f.CriticalIssues)
			}
			if tt.warnings == nil {
				assert.Empty(t, f.Warnings)
			} else {
				assert.Equal(t, tt.warnings, f.Warnings)
			}
			assert.Len(t, f.Recommendations, tt.recommend)
		})
	}
}

package analysis

import (
	"testing"

	"pr-review-engine/internal/config"
	"pr-review-engine/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestRecommend_DecisionTable(t *testing.T) {
	rules := config.DefaultScoringConfig().Approval

	testCases := []struct {
		name     string
		counts   domain.SeverityCounts
		level    domain.RiskLevel
		expected domain.ApprovalRecommendation
	}{
		{"Nothing found", domain.SeverityCounts{}, domain.RiskLow, domain.RecommendApprove},
		{"Only low", domain.SeverityCounts{Low: 4}, domain.RiskLow, domain.RecommendApprove},
		{"Medium comments", domain.SeverityCounts{Medium: 1}, domain.RiskMedium, domain.RecommendComment},
		{"Critical blocks", domain.SeverityCounts{Critical: 1}, domain.RiskLow, domain.RecommendRequestChanges},
		{"Below high threshold", domain.SeverityCounts{High: 2}, domain.RiskMedium, domain.RecommendApprove},
		{"High threshold reached", domain.SeverityCounts{High: 3}, domain.RiskMedium, domain.RecommendRequestChanges},
		{"High risk level", domain.SeverityCounts{}, domain.RiskHigh, domain.RecommendRequestChanges},
		{"Critical risk level", domain.SeverityCounts{Low: 1}, domain.RiskCritical, domain.RecommendRequestChanges},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Recommend(rules, tc.counts, tc.level))
		})
	}
}

func TestRecommend_RespectsDisabledRules(t *testing.T) {
	rules := config.DefaultScoringConfig().Approval
	rules.RequestChangesOnCritical = false
	rules.RequestChangesOnHighRisk = false
	rules.CommentOnMediumIssues = false

	assert.Equal(t, domain.RecommendApprove,
		Recommend(rules, domain.SeverityCounts{Critical: 1, Medium: 2}, domain.RiskCritical))
}

func TestSortBySeverity_IsStable(t *testing.T) {
	comments := []domain.ReviewComment{
		{File: "a", Severity: domain.SeverityLow},
		{File: "b", Severity: domain.SeverityHigh},
		{File: "c", Severity: domain.SeverityLow},
		{File: "d", Severity: domain.SeverityCritical},
		{File: "e", Severity: domain.SeverityHigh},
	}

	ordered := SortBySeverity(comments)

	files := make([]string, 0, len(ordered))
	for _, c := range ordered {
		files = append(files, c.File)
	}
	assert.Equal(t, []string{"d", "b", "e", "a", "c"}, files)
	assert.Equal(t, "a", comments[0].File)
}

func TestScoreRisk_ClampsAndDampens(t *testing.T) {
	cfg := config.DefaultScoringConfig()
	factors := []domain.RiskFactor{{Factor: config.FactorComplexity, Score: 100, Weight: 1}}
	many := make([]domain.ReviewComment, 10)
	for i := range many {
		many[i] = domain.ReviewComment{Severity: domain.SeverityHigh}
	}

	full := scoreRisk(cfg, factors, many, 1)
	assert.Equal(t, 100.0, full.Overall)
	assert.Equal(t, domain.RiskCritical, full.Level)

	dampened := scoreRisk(cfg, factors, many, 0.5)
	assert.Equal(t, 50.0, dampened.Overall)
	assert.Equal(t, domain.RiskMedium, dampened.Level)
}

func TestScoreRisk_EscalatesOnCritical(t *testing.T) {
	cfg := config.DefaultScoringConfig()
	cfg.SeverityPenalties.Critical = 10
	critical := []domain.ReviewComment{{Severity: domain.SeverityCritical}}

	escalated := scoreRisk(cfg, nil, critical, 1)
	assert.Equal(t, 85.0, escalated.Overall)

	cfg.EscalateOnCritical = false
	plain := scoreRisk(cfg, nil, critical, 1)
	assert.Equal(t, 10.0, plain.Overall)
	assert.Equal(t, domain.RiskLow, plain.Level)
}

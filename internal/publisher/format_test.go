package publisher

import (
	"strings"
	"testing"

	"pr-review-engine/internal/domain"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func TestDetailedBody_LimitsAndSkipsMinorFindings(t *testing.T) {
	comments := []domain.ReviewComment{
		{File: "a.go", Line: intPtr(3), Severity: domain.SeverityCritical, Category: domain.CategorySecurity, Message: "leak", Suggestion: "rotate"},
		{File: "b.go", Line: intPtr(9), Severity: domain.SeverityLow, Category: domain.CategoryStyle, Message: "print"},
		{File: "c.go", Severity: domain.SeverityHigh, Category: domain.CategorySecurity, Message: "md5"},
		{File: "d.go", Line: intPtr(1), Severity: domain.SeverityHigh, Category: domain.CategorySecurity, Message: "shell"},
	}

	body := detailedBody(comments, 2)

	assert.Contains(t, body, "`a.go:3`")
	assert.Contains(t, body, "> rotate")
	assert.Contains(t, body, "`c.go`")
	assert.NotContains(t, body, "d.go")
	assert.NotContains(t, body, "b.go")
	assert.Contains(t, body, "and 1 more")
}

func TestSummaryBody(t *testing.T) {
	result := &domain.CodeReviewResult{
		Mode:      domain.ModeIncremental,
		RiskScore: domain.RiskScore{Overall: 42.5, Level: domain.RiskMedium},
		Summary: domain.ReviewSummary{
			ApprovalRecommendation: domain.RecommendComment,
			Counts:                 domain.SeverityCounts{Medium: 1},
			KeyFindings:            []string{"Swallowed error in svc.go"},
		},
	}

	body := summaryBody(result)

	assert.True(t, strings.HasPrefix(body, "## Automated review"))
	assert.Contains(t, body, "42.50/100")
	assert.Contains(t, body, "`comment`")
	assert.Contains(t, body, "- Swallowed error in svc.go")
	assert.NotContains(t, body, "No findings")
}

func TestInlineBody(t *testing.T) {
	body := inlineBody(domain.ReviewComment{
		Severity: domain.SeverityMedium,
		Category: domain.CategoryErrorHandling,
		Message:  "error ignored",
	})

	assert.Contains(t, body, "**medium** · error-handling")
	assert.NotContains(t, body, "💡")
}

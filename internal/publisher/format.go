package publisher

import (
	"fmt"
	"strings"

	"pr-review-engine/internal/domain"
)

var severityIcons = map[domain.Severity]string{
	domain.SeverityCritical: "🔴",
	domain.SeverityHigh:     "🟠",
	domain.SeverityMedium:   "🟡",
	domain.SeverityLow:      "🔵",
}

func summaryBody(result *domain.CodeReviewResult) string {
	var b strings.Builder
	s := result.Summary

	b.WriteString("## Automated review\n\n")
	fmt.Fprintf(&b, "**Risk:** %s (%.2f/100) · **Mode:** %s · **Recommendation:** `%s`\n\n",
		result.RiskScore.Level, result.RiskScore.Overall, result.Mode, s.ApprovalRecommendation)
	fmt.Fprintf(&b, "| Critical | High | Medium | Low |\n|---|---|---|---|\n| %d | %d | %d | %d |\n",
		s.Counts.Critical, s.Counts.High, s.Counts.Medium, s.Counts.Low)

	if len(s.KeyFindings) == 0 {
		b.WriteString("\nNo findings. ✅\n")
	} else {
		b.WriteString("\n### Key findings\n")
		for _, f := range s.KeyFindings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	if len(s.AreasOfConcern) > 0 {
		b.WriteString("\n### Areas of concern\n")
		for _, a := range s.AreasOfConcern {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	if len(result.RiskScore.Factors) > 0 {
		b.WriteString("\n<details><summary>Risk factors</summary>\n\n| Factor | Score | Weight |\n|---|---|---|\n")
		for _, f := range result.RiskScore.Factors {
			fmt.Fprintf(&b, "| %s | %.2f | %.2f |\n", f.Factor, f.Score, f.Weight)
		}
		b.WriteString("\n</details>\n")
	}

	if sim := result.Simulation; sim != nil {
		fmt.Fprintf(&b, "\n**Impact:** %s across %d components\n",
			sim.ImpactAnalysis.Scope, len(sim.ImpactAnalysis.AffectedComponents))
	}

	if n := len(result.TestingSuggestions) + len(result.DocumentationSuggestions); n > 0 {
		b.WriteString("\n### Suggestions\n")
		for _, t := range result.TestingSuggestions {
			fmt.Fprintf(&b, "- [testing/%s] %s\n", t.Priority, t.Suggestion)
		}
		for _, d := range result.DocumentationSuggestions {
			fmt.Fprintf(&b, "- [docs/%s] %s\n", d.Priority, d.Suggestion)
		}
	}
	return b.String()
}

// detailedBody перечисляет не более limit находок уровня high и critical.
func detailedBody(comments []domain.ReviewComment, limit int) string {
	var b strings.Builder
	b.WriteString("## Blocking findings\n\n")

	shown, total := 0, 0
	for _, c := range comments {
		if c.Severity.Rank() < domain.SeverityHigh.Rank() {
			continue
		}
		total++
		if shown == limit {
			continue
		}
		shown++
		location := c.File
		if c.Line != nil {
			location = domain.CoordinateKey(c.File, *c.Line)
		}
		fmt.Fprintf(&b, "%d. %s **%s** `%s` (%s): %s\n", shown, severityIcons[c.Severity], c.Severity, location, c.Category, c.Message)
		if c.Suggestion != "" {
			fmt.Fprintf(&b, "   > %s\n", c.Suggestion)
		}
	}
	if total > shown {
		fmt.Fprintf(&b, "\n_…and %d more._\n", total-shown)
	}
	return b.String()
}

func inlineBody(c domain.ReviewComment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s** · %s\n\n%s\n", severityIcons[c.Severity], c.Severity, c.Category, c.Message)
	if c.Suggestion != "" {
		fmt.Fprintf(&b, "\n💡 %s\n", c.Suggestion)
	}
	return b.String()
}

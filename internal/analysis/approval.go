package analysis

import (
	"fmt"
	"sort"

	"pr-review-engine/internal/config"
	"pr-review-engine/internal/domain"
)

const maxKeyFindings = 5

// Recommend: чистая функция от (находки, уровень риска, правила).
func Recommend(rules config.ApprovalRules, counts domain.SeverityCounts, level domain.RiskLevel) domain.ApprovalRecommendation {
	highRisk := level == domain.RiskHigh || level == domain.RiskCritical
	switch {
	case rules.RequestChangesOnCritical && counts.Critical >= rules.MinCriticalForBlock,
		counts.High >= rules.MinHighForBlock,
		rules.RequestChangesOnHighRisk && highRisk:
		return domain.RecommendRequestChanges
	case counts.Medium > 0 && rules.CommentOnMediumIssues:
		return domain.RecommendComment
	default:
		return domain.RecommendApprove
	}
}

func buildSummary(cfg config.ScoringConfig, risk domain.RiskScore, comments []domain.ReviewComment) domain.ReviewSummary {
	counts := domain.CountSeverities(comments)
	rec := Recommend(cfg.Approval, counts, risk.Level)

	return domain.ReviewSummary{
		OverallScore:           risk.Overall,
		Approved:               rec == domain.RecommendApprove,
		RequiresChanges:        rec == domain.RecommendRequestChanges,
		ApprovalRecommendation: rec,
		KeyFindings:            keyFindings(comments),
		AreasOfConcern:         areasOfConcern(risk, comments),
		Counts:                 counts,
	}
}

func keyFindings(comments []domain.ReviewComment) []string {
	ordered := SortBySeverity(comments)
	findings := make([]string, 0, maxKeyFindings)
	for _, c := range ordered {
		if len(findings) == maxKeyFindings {
			break
		}
		location := c.File
		if c.Line != nil {
			location = domain.CoordinateKey(c.File, *c.Line)
		}
		findings = append(findings, fmt.Sprintf("[%s] %s: %s", c.Severity, location, c.Message))
	}
	return findings
}

func areasOfConcern(risk domain.RiskScore, comments []domain.ReviewComment) []string {
	byCategory := make(map[domain.Category]int)
	for _, c := range comments {
		if c.Severity.Rank() >= domain.SeverityMedium.Rank() {
			byCategory[c.Category]++
		}
	}
	categories := make([]domain.Category, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool {
		if byCategory[categories[i]] != byCategory[categories[j]] {
			return byCategory[categories[i]] > byCategory[categories[j]]
		}
		return categories[i] < categories[j]
	})

	areas := make([]string, 0, len(categories))
	for _, cat := range categories {
		areas = append(areas, fmt.Sprintf("%s (%d findings)", cat, byCategory[cat]))
	}
	for _, f := range risk.Factors {
		if f.Weight > 0 && f.Score >= 70 {
			areas = append(areas, fmt.Sprintf("high %s risk: %s", f.Factor, f.Description))
		}
	}
	return areas
}

// SortBySeverity возвращает копию находок, упорядоченную по убыванию критичности (стабильно).
func SortBySeverity(comments []domain.ReviewComment) []domain.ReviewComment {
	ordered := make([]domain.ReviewComment, len(comments))
	copy(ordered, comments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Severity.Rank() > ordered[j].Severity.Rank()
	})
	return ordered
}

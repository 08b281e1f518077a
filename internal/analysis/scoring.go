package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"pr-review-engine/internal/config"
	"pr-review-engine/internal/domain"
)

var branchPattern = regexp.MustCompile(`\b(if|else|for|while|switch|case|catch|select|elif|except)\b|&&|\|\|`)

var sensitivePathMarkers = []string{"auth", "security", "crypto", "password", "secret", "token", "session", "permission", "acl"}

// factorInput: данные, из которых вычисляются факторы риска.
type factorInput struct {
	pr         *domain.PRAnalysis
	lines      map[string][]AddedLine
	comments   []domain.ReviewComment
	simulation *domain.ReviewSimulation
}

// computeFactors вычисляет фиксированный набор факторов в порядке config.FactorNames.
func computeFactors(cfg config.ScoringConfig, in factorInput) []domain.RiskFactor {
	factors := make([]domain.RiskFactor, 0, len(config.FactorNames))
	for _, name := range config.FactorNames {
		var score float64
		var description string
		switch name {
		case config.FactorComplexity:
			score, description = complexityFactor(in)
		case config.FactorCoverage:
			score, description = coverageFactor(in)
		case config.FactorSecurity:
			score, description = securityFactor(in)
		case config.FactorBlastRadius:
			score, description = blastRadiusFactor(in)
		case config.FactorChurn:
			score, description = churnFactor(in)
		}
		factors = append(factors, domain.RiskFactor{
			Factor:      name,
			Score:       round2(clamp(score, 0, 100)),
			Weight:      cfg.Weight(name),
			Description: description,
		})
	}
	return factors
}

func complexityFactor(in factorInput) (float64, string) {
	branches := 0
	for _, file := range in.pr.FilesChanged {
		for _, line := range in.lines[file.Filename] {
			branches += len(branchPattern.FindAllStringIndex(line.Text, -1))
		}
	}
	files := len(in.pr.FilesChanged)
	score := float64(branches)*3 + float64(files)*2
	return score, fmt.Sprintf("%d branching constructs added across %d files", branches, files)
}

func coverageFactor(in factorInput) (float64, string) {
	sources, untested := testCoverage(in.pr.FilesChanged)
	if len(sources) == 0 {
		return 0, "no source files changed"
	}
	score := float64(len(untested)) / float64(len(sources)) * 100
	return score, fmt.Sprintf("%d of %d changed source files have no accompanying test change", len(untested), len(sources))
}

func securityFactor(in factorInput) (float64, string) {
	var score float64
	findings := 0
	for _, c := range in.comments {
		if c.Category != domain.CategorySecurity {
			continue
		}
		findings++
		switch c.Severity {
		case domain.SeverityCritical:
			score += 60
		case domain.SeverityHigh:
			score += 30
		case domain.SeverityMedium:
			score += 10
		case domain.SeverityLow:
			score += 5
		}
	}

	sensitive := 0
	for _, file := range in.pr.FilesChanged {
		if isSensitivePath(file.Filename) {
			sensitive++
		}
	}
	score += float64(sensitive) * 15
	return score, fmt.Sprintf("%d security findings, %d security-sensitive files touched", findings, sensitive)
}

func blastRadiusFactor(in factorInput) (float64, string) {
	if in.simulation == nil {
		return 0, "impact not simulated"
	}
	impact := in.simulation.ImpactAnalysis
	critical := 0
	for _, comp := range impact.AffectedComponents {
		if comp.CriticalPath {
			critical++
		}
	}
	score := float64(impact.Scope.Order())*25 + float64(critical)*10
	return score, fmt.Sprintf("%s impact across %d components (%d on critical path)", impact.Scope, len(impact.AffectedComponents), critical)
}

func churnFactor(in factorInput) (float64, string) {
	total := in.pr.TotalAdditions + in.pr.TotalDeletions
	score := float64(total) / 10
	if in.pr.Commits > 1 {
		score += float64(in.pr.Commits-1) * 2
	}
	return score, fmt.Sprintf("%d lines changed in %d commits", total, in.pr.Commits)
}

// severityPenalty суммирует фиксированные штрафы за каждую находку.
func severityPenalty(cfg config.ScoringConfig, comments []domain.ReviewComment) float64 {
	var total float64
	for _, c := range comments {
		switch c.Severity {
		case domain.SeverityCritical:
			total += cfg.SeverityPenalties.Critical
		case domain.SeverityHigh:
			total += cfg.SeverityPenalties.High
		case domain.SeverityMedium:
			total += cfg.SeverityPenalties.Medium
		case domain.SeverityLow:
			total += cfg.SeverityPenalties.Low
		}
	}
	return total
}

// scoreRisk собирает итоговую оценку. dampening=1 для полного анализа.
// Все шаги монотонны, поэтому меньший вход и меньший множитель не дают большей оценки.
func scoreRisk(cfg config.ScoringConfig, factors []domain.RiskFactor, comments []domain.ReviewComment, dampening float64) domain.RiskScore {
	overall := 0.0
	for _, f := range factors {
		overall += f.Score * f.Weight
	}
	overall += severityPenalty(cfg, comments)
	overall = clamp(overall, 0, 100) * dampening

	if cfg.EscalateOnCritical && domain.CountSeverities(comments).Critical > 0 {
		overall = math.Max(overall, cfg.Thresholds.Critical)
	}
	overall = round2(clamp(overall, 0, 100))

	return domain.RiskScore{
		Overall: overall,
		Level:   riskLevel(cfg.Thresholds, overall),
		Factors: factors,
	}
}

func riskLevel(t config.Thresholds, overall float64) domain.RiskLevel {
	switch {
	case overall >= t.Critical:
		return domain.RiskCritical
	case overall >= t.High:
		return domain.RiskHigh
	case overall >= t.Medium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func isSensitivePath(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitivePathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

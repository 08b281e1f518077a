package domain

import (
	"fmt"
	"time"
)

// Severity определяет критичность находки.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank возвращает числовой ранг для сортировки (больше = серьёзнее).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Category: открытое перечисление категорий находок.
// Детекторы могут вводить собственные значения, неизвестные категории не считаются ошибкой.
type Category string

// CategorySchemaVersion увеличивается при изменении набора встроенных категорий.
const CategorySchemaVersion = 1

const (
	CategorySecurity        Category = "security"
	CategoryErrorHandling   Category = "error-handling"
	CategoryMaintainability Category = "maintainability"
	CategoryStyle           Category = "style"
	CategoryPerformance     Category = "performance"
	CategoryTesting         Category = "testing"
	CategoryDocumentation   Category = "documentation"
)

var builtinCategories = map[Category]struct{}{
	CategorySecurity:        {},
	CategoryErrorHandling:   {},
	CategoryMaintainability: {},
	CategoryStyle:           {},
	CategoryPerformance:     {},
	CategoryTesting:         {},
	CategoryDocumentation:   {},
}

// IsBuiltin сообщает, входит ли категория во встроенный набор текущей версии схемы.
func (c Category) IsBuiltin() bool {
	_, ok := builtinCategories[c]
	return ok
}

// ReviewComment представляет одну находку в диффе.
type ReviewComment struct {
	File       string   `json:"file"`
	Line       *int     `json:"line,omitempty"`
	Severity   Severity `json:"severity"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Detector   string   `json:"detector,omitempty"`
}

// Coordinate возвращает ключ дедупликации file:line. Для находок без строки ok=false.
func (c ReviewComment) Coordinate() (string, bool) {
	if c.Line == nil {
		return "", false
	}
	return CoordinateKey(c.File, *c.Line), true
}

// CoordinateKey строит ключ file:line.
func CoordinateKey(file string, line int) string {
	return fmt.Sprintf("%s:%d", file, line)
}

// RiskLevel: уровень риска, выводимый из порогов.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

type RiskFactor struct {
	Factor      string  `json:"factor"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

type RiskScore struct {
	Overall float64      `json:"overall"`
	Level   RiskLevel    `json:"level"`
	Factors []RiskFactor `json:"factors"`
}

// ApprovalRecommendation: итоговое решение ревью.
type ApprovalRecommendation string

const (
	RecommendApprove        ApprovalRecommendation = "approve"
	RecommendComment        ApprovalRecommendation = "comment"
	RecommendRequestChanges ApprovalRecommendation = "request_changes"
)

type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// CountSeverities подсчитывает находки по уровням критичности.
func CountSeverities(comments []ReviewComment) SeverityCounts {
	var c SeverityCounts
	for _, comment := range comments {
		switch comment.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		}
	}
	return c
}

type ReviewSummary struct {
	OverallScore           float64                `json:"overall_score"`
	Approved               bool                   `json:"approved"`
	RequiresChanges        bool                   `json:"requires_changes"`
	ApprovalRecommendation ApprovalRecommendation `json:"approval_recommendation"`
	KeyFindings            []string               `json:"key_findings"`
	AreasOfConcern         []string               `json:"areas_of_concern"`
	Counts                 SeverityCounts         `json:"counts"`
}

// ImpactScope упорядочен: minimal < isolated < moderate < widespread.
type ImpactScope string

const (
	ScopeMinimal    ImpactScope = "minimal"
	ScopeIsolated   ImpactScope = "isolated"
	ScopeModerate   ImpactScope = "moderate"
	ScopeWidespread ImpactScope = "widespread"
)

var scopeOrder = []ImpactScope{ScopeMinimal, ScopeIsolated, ScopeModerate, ScopeWidespread}

// Order возвращает порядковый номер области влияния.
func (s ImpactScope) Order() int {
	for i, v := range scopeOrder {
		if v == s {
			return i
		}
	}
	return 0
}

// ScopeFromOrder возвращает область влияния по порядковому номеру с ограничением диапазона.
func ScopeFromOrder(order int) ImpactScope {
	if order < 0 {
		order = 0
	}
	if order >= len(scopeOrder) {
		order = len(scopeOrder) - 1
	}
	return scopeOrder[order]
}

type AffectedComponent struct {
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	CriticalPath bool       `json:"critical_path"`
	ChangeType   FileStatus `json:"change_type"`
	UsageCount   int        `json:"usage_count"`
}

type ImpactAnalysis struct {
	Scope              ImpactScope         `json:"scope"`
	AffectedComponents []AffectedComponent `json:"affected_components"`
}

type ReviewSimulation struct {
	ImpactAnalysis ImpactAnalysis `json:"impact_analysis"`
}

type DocumentationSuggestion struct {
	Type       string   `json:"type"`
	Priority   Severity `json:"priority"`
	Suggestion string   `json:"suggestion"`
	Location   string   `json:"location,omitempty"`
}

type TestingSuggestion struct {
	Type              string   `json:"type"`
	Priority          Severity `json:"priority"`
	Suggestion        string   `json:"suggestion"`
	Files             []string `json:"files,omitempty"`
	EstimatedCoverage *float64 `json:"estimated_coverage,omitempty"`
}

// AnalysisMode: режим анализа пул-реквеста.
type AnalysisMode string

const (
	ModeFull        AnalysisMode = "full"
	ModeIncremental AnalysisMode = "incremental"
)

// CodeReviewResult агрегирует результат анализа пул-реквеста.
type CodeReviewResult struct {
	Mode                     AnalysisMode              `json:"mode"`
	RiskScore                RiskScore                 `json:"risk_score"`
	Comments                 []ReviewComment           `json:"comments"`
	Summary                  ReviewSummary             `json:"summary"`
	Simulation               *ReviewSimulation         `json:"simulation,omitempty"`
	DocumentationSuggestions []DocumentationSuggestion `json:"documentation_suggestions"`
	TestingSuggestions       []TestingSuggestion       `json:"testing_suggestions"`
	PRAnalysis               *PRAnalysis               `json:"pr_analysis"`
}

// HasBlockingFindings сообщает о наличии находок уровня high или critical.
func (r *CodeReviewResult) HasBlockingFindings() bool {
	for _, c := range r.Comments {
		if c.Severity == SeverityCritical || c.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// PostedCommentCoordinate связывает координату file:line с идентификатором опубликованного комментария.
type PostedCommentCoordinate struct {
	File            string    `json:"file"`
	Line            int       `json:"line"`
	RemoteCommentID int64     `json:"remote_comment_id"`
	URL             string    `json:"url,omitempty"`
	PostedAt        time.Time `json:"posted_at"`
}

// Key возвращает ключ дедупликации.
func (p PostedCommentCoordinate) Key() string {
	return CoordinateKey(p.File, p.Line)
}

// PostedComment: комментарий, опубликованный на удалённом хосте.
type PostedComment struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// ReviewRecord: сохранённая запись о прогоне ревью.
type ReviewRecord struct {
	ID             string                    `json:"id"`
	ProjectID      string                    `json:"project_id"`
	PRNumber       int                       `json:"pr_number"`
	HeadSHA        string                    `json:"head_sha"`
	Mode           AnalysisMode              `json:"mode"`
	Overall        float64                   `json:"overall"`
	Level          RiskLevel                 `json:"level"`
	Recommendation ApprovalRecommendation    `json:"recommendation"`
	Result         *CodeReviewResult         `json:"result,omitempty"`
	PostedComments []PostedCommentCoordinate `json:"posted_comments"`
	CreatedAt      time.Time                 `json:"created_at"`
}

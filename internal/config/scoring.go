package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"pr-review-engine/internal/domain"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Имена факторов риска.
const (
	FactorComplexity  = "complexity"
	FactorCoverage    = "coverage"
	FactorSecurity    = "security"
	FactorBlastRadius = "blastRadius"
	FactorChurn       = "churn"
)

// FactorNames: фиксированный порядок факторов риска.
var FactorNames = []string{FactorComplexity, FactorCoverage, FactorSecurity, FactorBlastRadius, FactorChurn}

const weightTolerance = 0.01

var scoringValidate = validator.New()

type Thresholds struct {
	Critical float64 `yaml:"critical" validate:"gte=0,lte=100,gtfield=High"`
	High     float64 `yaml:"high" validate:"gte=0,lte=100,gtfield=Medium"`
	Medium   float64 `yaml:"medium" validate:"gte=0,lte=100"`
}

type SeverityPenalties struct {
	Critical float64 `yaml:"critical" validate:"gte=0,lte=100"`
	High     float64 `yaml:"high" validate:"gte=0,lte=100"`
	Medium   float64 `yaml:"medium" validate:"gte=0,lte=100"`
	Low      float64 `yaml:"low" validate:"gte=0,lte=100"`
}

type ApprovalRules struct {
	MinCriticalForBlock      int  `yaml:"min_critical_for_block" validate:"gte=1"`
	MinHighForBlock          int  `yaml:"min_high_for_block" validate:"gte=1"`
	RequestChangesOnCritical bool `yaml:"request_changes_on_critical"`
	RequestChangesOnHighRisk bool `yaml:"request_changes_on_high_risk"`
	CommentOnMediumIssues    bool `yaml:"comment_on_medium_issues"`
}

// ScoringConfig задаёт веса факторов, пороги уровней, штрафы и правила одобрения.
type ScoringConfig struct {
	Weights           map[string]float64 `yaml:"weights" validate:"required,dive,keys,oneof=complexity coverage security blastRadius churn,endkeys,gte=0,lte=1"`
	Thresholds        Thresholds         `yaml:"thresholds"`
	SeverityPenalties SeverityPenalties  `yaml:"severity_penalties"`
	Approval          ApprovalRules      `yaml:"approval"`
	// IncrementalDampening: множитель итоговой оценки в инкрементальном режиме.
	IncrementalDampening float64 `yaml:"incremental_dampening" validate:"gt=0,lte=1"`
	// EscalateOnCritical поднимает оценку до порога critical при наличии critical находки.
	EscalateOnCritical bool `yaml:"escalate_on_critical"`
}

// DefaultScoringConfig возвращает конфигурацию по умолчанию.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: map[string]float64{
			FactorComplexity:  0.25,
			FactorCoverage:    0.20,
			FactorSecurity:    0.25,
			FactorBlastRadius: 0.15,
			FactorChurn:       0.15,
		},
		Thresholds: Thresholds{Critical: 85, High: 60, Medium: 35},
		SeverityPenalties: SeverityPenalties{
			Critical: 50,
			High:     15,
			Medium:   5,
			Low:      1,
		},
		Approval: ApprovalRules{
			MinCriticalForBlock:      1,
			MinHighForBlock:          3,
			RequestChangesOnCritical: true,
			RequestChangesOnHighRisk: true,
			CommentOnMediumIssues:    true,
		},
		IncrementalDampening: 0.85,
		EscalateOnCritical:   true,
	}
}

// Validate проверяет конфигурацию. Сумма весов должна быть равна 1.0 ± 0.01.
func (c ScoringConfig) Validate() error {
	if err := scoringValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %q", domain.ErrInvalidScoringConfig, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidScoringConfig, err)
	}

	sum := 0.0
	for _, w := range c.Weights {
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: risk factor weights sum to %.3f, expected 1.0", domain.ErrInvalidScoringConfig, sum)
	}
	return nil
}

// Weight возвращает вес фактора (0, если не задан).
func (c ScoringConfig) Weight(factor string) float64 {
	return c.Weights[factor]
}

// LoadScoringConfig читает YAML поверх значений по умолчанию. Пустой путь => значения по умолчанию.
func LoadScoringConfig(path string) (ScoringConfig, error) {
	cfg := DefaultScoringConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scoring config: %w", err)
	}

	var fileWeights struct {
		Weights map[string]float64 `yaml:"weights"`
	}
	if err := yaml.Unmarshal(data, &fileWeights); err != nil {
		return cfg, fmt.Errorf("parse scoring config: %w", err)
	}
	// Веса из файла заменяют значения по умолчанию целиком, а не сливаются с ними.
	if len(fileWeights.Weights) > 0 {
		cfg.Weights = nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse scoring config: %w", err)
	}

	return cfg, cfg.Validate()
}

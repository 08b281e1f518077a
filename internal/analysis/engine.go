// Package analysis превращает дифф пул-реквеста в находки, оценку риска,
// рекомендацию по одобрению, симуляцию влияния и вторичные рекомендации.
package analysis

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"pr-review-engine/internal/config"
	"pr-review-engine/internal/domain"
	"pr-review-engine/internal/metrics"
	"pr-review-engine/internal/workerpool"

	"github.com/sirupsen/logrus"
)

// Engine детерминирован: одинаковые (PRAnalysis, конфигурация) дают одинаковый результат.
type Engine struct {
	cfg       config.ScoringConfig
	detectors []Detector
	pool      workerpool.Config
	logger    *logrus.Logger
}

// Option настраивает Engine.
type Option func(*Engine)

// WithDetectors заменяет встроенный набор детекторов.
func WithDetectors(detectors ...Detector) Option {
	return func(e *Engine) { e.detectors = detectors }
}

// WithWorkerPool задаёт параллелизм разбора файлов. ContinueOnError игнорируется:
// движок всегда изолирует сбои отдельных файлов.
func WithWorkerPool(cfg workerpool.Config) Option {
	return func(e *Engine) { e.pool = cfg }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine проверяет конфигурацию и создаёт движок.
func NewEngine(cfg config.ScoringConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		detectors: DefaultDetectors(),
		pool:      workerpool.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logrus.New()
		e.logger.SetOutput(io.Discard)
	}
	// Сбой одного файла не должен прерывать анализ остальных.
	e.pool.ContinueOnError = true
	return e, nil
}

// Config возвращает конфигурацию оценки.
func (e *Engine) Config() config.ScoringConfig {
	return e.cfg
}

// AnalyzePR выполняет полный анализ всех изменённых файлов.
func (e *Engine) AnalyzePR(ctx context.Context, pr *domain.PRAnalysis) (*domain.CodeReviewResult, error) {
	return e.analyze(ctx, pr, domain.ModeFull)
}

// AnalyzeChangedFiles выполняет инкрементальный анализ: те же находки, оценка
// умножается на IncrementalDampening, рекомендации подавляются без high/critical находок.
func (e *Engine) AnalyzeChangedFiles(ctx context.Context, pr *domain.PRAnalysis) (*domain.CodeReviewResult, error) {
	return e.analyze(ctx, pr, domain.ModeIncremental)
}

// Analyze выбирает режим по значению mode.
func (e *Engine) Analyze(ctx context.Context, pr *domain.PRAnalysis, mode domain.AnalysisMode) (*domain.CodeReviewResult, error) {
	if mode == domain.ModeIncremental {
		return e.AnalyzeChangedFiles(ctx, pr)
	}
	return e.AnalyzePR(ctx, pr)
}

func (e *Engine) analyze(ctx context.Context, pr *domain.PRAnalysis, mode domain.AnalysisMode) (*domain.CodeReviewResult, error) {
	if pr == nil {
		return nil, fmt.Errorf("%w: pull request analysis is nil", domain.ErrInvalidPayload)
	}

	lines, comments, err := e.inspectFiles(ctx, pr)
	if err != nil {
		return nil, err
	}

	var simulation *domain.ReviewSimulation
	dampening := 1.0
	if mode == domain.ModeIncremental {
		simulation = simulateImpact(incrementalFiles(pr.FilesChanged), pr.FilesChanged)
		dampening = e.cfg.IncrementalDampening
	} else {
		simulation = simulateImpact(pr.FilesChanged, pr.FilesChanged)
	}

	factors := computeFactors(e.cfg, factorInput{
		pr:         pr,
		lines:      lines,
		comments:   comments,
		simulation: simulation,
	})
	risk := scoreRisk(e.cfg, factors, comments, dampening)

	result := &domain.CodeReviewResult{
		Mode:                     mode,
		RiskScore:                risk,
		Comments:                 comments,
		Summary:                  buildSummary(e.cfg, risk, comments),
		Simulation:               simulation,
		DocumentationSuggestions: []domain.DocumentationSuggestion{},
		TestingSuggestions:       []domain.TestingSuggestion{},
		PRAnalysis:               pr,
	}
	if mode == domain.ModeFull || result.HasBlockingFindings() {
		if docs := documentationSuggestions(pr, lines); docs != nil {
			result.DocumentationSuggestions = docs
		}
		if tests := testingSuggestions(pr, comments); tests != nil {
			result.TestingSuggestions = tests
		}
	}

	metrics.AnalysisRiskScore.WithLabelValues(string(mode)).Observe(risk.Overall)
	e.logger.WithFields(logrus.Fields{
		"repository": pr.Repository,
		"pr_number":  pr.Number,
		"mode":       mode,
		"overall":    risk.Overall,
		"level":      risk.Level,
		"findings":   len(comments),
	}).Info("Pull request analyzed")

	return result, nil
}

type fileFindings struct {
	lines    []AddedLine
	comments []domain.ReviewComment
}

// inspectFiles разбирает патчи и прогоняет детекторы через пул задач.
// Результаты собираются в порядке файлов, поэтому не зависят от планирования.
func (e *Engine) inspectFiles(ctx context.Context, pr *domain.PRAnalysis) (map[string][]AddedLine, []domain.ReviewComment, error) {
	tasks := make([]workerpool.Task[domain.FileChange, fileFindings], 0, len(pr.FilesChanged))
	for i, file := range pr.FilesChanged {
		tasks = append(tasks, workerpool.Task[domain.FileChange, fileFindings]{
			ID:   strconv.Itoa(i),
			Data: file,
			Execute: func(_ context.Context, f domain.FileChange) (fileFindings, error) {
				return e.inspectFile(f), nil
			},
		})
	}

	pool := workerpool.New[domain.FileChange, fileFindings](e.pool)
	results, err := pool.Execute(ctx, tasks)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect files: %w", err)
	}
	for _, taskErr := range pool.Errors() {
		e.logger.WithError(taskErr).Warn("File inspection failed")
	}

	lines := make(map[string][]AddedLine, len(pr.FilesChanged))
	comments := []domain.ReviewComment{}
	for i, file := range pr.FilesChanged {
		found, ok := results[strconv.Itoa(i)]
		if !ok {
			continue
		}
		lines[file.Filename] = found.lines
		comments = append(comments, found.comments...)
	}
	return lines, comments, nil
}

func (e *Engine) inspectFile(file domain.FileChange) fileFindings {
	lines, err := ParsePatch(file)
	if err != nil {
		e.logAnalysisError(&domain.AnalysisError{File: file.Filename, Err: err})
		return fileFindings{}
	}

	var comments []domain.ReviewComment
	for _, d := range e.detectors {
		found, err := e.runDetector(d, file, lines)
		if err != nil {
			e.logAnalysisError(&domain.AnalysisError{File: file.Filename, Err: err})
			continue
		}
		comments = append(comments, found...)
	}
	return fileFindings{lines: lines, comments: comments}
}

// runDetector изолирует панику детектора.
func (e *Engine) runDetector(d Detector, file domain.FileChange, lines []AddedLine) (found []domain.ReviewComment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector %s panicked: %v", d.Name(), r)
			found = nil
		}
	}()
	return d.Detect(file, lines), nil
}

func (e *Engine) logAnalysisError(err *domain.AnalysisError) {
	e.logger.WithFields(logrus.Fields{
		"file":  err.File,
		"error": err.Err,
	}).Warn("File analysis skipped")
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pr-review-engine/internal/domain"
	"pr-review-engine/internal/publisher"

	"github.com/sirupsen/logrus"
)

// PRFetcher получает снимок пул-реквеста с удалённого хоста.
type PRFetcher interface {
	FetchPRDetails(ctx context.Context, owner, repo string, number int) (*domain.PRAnalysis, error)
}

// Analyzer строит результат ревью в заданном режиме.
type Analyzer interface {
	Analyze(ctx context.Context, pr *domain.PRAnalysis, mode domain.AnalysisMode) (*domain.CodeReviewResult, error)
}

// ReviewPublisher публикует результат и ведёт журнал inline-комментариев.
type ReviewPublisher interface {
	Publish(ctx context.Context, target publisher.Target, reviewID string, result *domain.CodeReviewResult) (*domain.PublishReport, error)
}

// ReviewUseCase реализует конвейер: событие → получение → анализ → сохранение → публикация.
type ReviewUseCase struct {
	fetcher   PRFetcher
	analyzer  Analyzer
	publisher ReviewPublisher
	repo      domain.ReviewRepository
	logger    *logrus.Logger
}

// NewReviewUseCase создает новый экземпляр ReviewUseCase.
func NewReviewUseCase(fetcher PRFetcher, analyzer Analyzer, pub ReviewPublisher, repo domain.ReviewRepository, logger *logrus.Logger) domain.ReviewUseCase {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &ReviewUseCase{
		fetcher:   fetcher,
		analyzer:  analyzer,
		publisher: pub,
		repo:      repo,
		logger:    logger,
	}
}

// HandlePullRequestEvent обрабатывает событие вебхука. Неподдерживаемые действия пропускаются.
func (uc *ReviewUseCase) HandlePullRequestEvent(ctx context.Context, event domain.PullRequestEvent) (*domain.PipelineResult, error) {
	if !event.IsActionSupported() {
		return &domain.PipelineResult{
			Skipped: true,
			Reason:  fmt.Sprintf("action %q is not reviewed", event.Action),
		}, nil
	}

	// Валидация входных данных
	owner, repo, err := domain.SplitRepository(event.Repository.FullName)
	if err != nil {
		return nil, err
	}
	number := event.PRNumber()
	if number <= 0 {
		return nil, domain.ErrInvalidPRNumber
	}
	projectID := event.Repository.FullName

	logEntry := uc.logger.WithFields(logrus.Fields{
		"project":   projectID,
		"pr_number": number,
		"action":    event.Action,
	})

	// 1. Выбираем режим: инкрементальный, если PR уже анализировался
	mode, err := uc.selectMode(ctx, event, projectID, number)
	if err != nil {
		return nil, err
	}

	// 2. Получаем PR и анализируем
	pr, err := uc.fetcher.FetchPRDetails(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	if pr.HeadSHA == "" {
		pr.HeadSHA = event.PullRequest.Head.SHA
	}

	result, err := uc.analyzer.Analyze(ctx, pr, mode)
	if err != nil {
		return nil, err
	}

	// 3. Сохраняем запись ревью
	record := &domain.ReviewRecord{
		ProjectID:      projectID,
		PRNumber:       number,
		HeadSHA:        pr.HeadSHA,
		Mode:           mode,
		Overall:        result.RiskScore.Overall,
		Level:          result.RiskScore.Level,
		Recommendation: result.Summary.ApprovalRecommendation,
		Result:         result,
	}
	reviewID, err := uc.repo.SaveReview(ctx, record)
	if err != nil {
		return nil, err
	}

	// 4. Публикуем
	report, err := uc.publisher.Publish(ctx, publisher.Target{
		Owner:     owner,
		Repo:      repo,
		Number:    number,
		HeadSHA:   pr.HeadSHA,
		ProjectID: projectID,
	}, reviewID, result)
	if err != nil {
		return nil, err
	}

	logEntry.WithFields(logrus.Fields{
		"review_id":      reviewID,
		"mode":           mode,
		"overall":        result.RiskScore.Overall,
		"recommendation": result.Summary.ApprovalRecommendation,
	}).Info("Review pipeline completed")

	return &domain.PipelineResult{
		ReviewID: reviewID,
		Mode:     mode,
		Result:   result,
		Publish:  report,
	}, nil
}

func (uc *ReviewUseCase) selectMode(ctx context.Context, event domain.PullRequestEvent, projectID string, number int) (domain.AnalysisMode, error) {
	if !strings.EqualFold(event.Action, "synchronize") {
		return domain.ModeFull, nil
	}
	_, err := uc.repo.GetReview(ctx, projectID, number)
	switch {
	case err == nil:
		return domain.ModeIncremental, nil
	case errors.Is(err, domain.ErrReviewNotFound):
		return domain.ModeFull, nil
	default:
		return "", err
	}
}

// AnalyzePullRequest анализирует PR без сохранения и публикации.
func (uc *ReviewUseCase) AnalyzePullRequest(ctx context.Context, owner, repo string, number int, mode domain.AnalysisMode) (*domain.CodeReviewResult, error) {
	if owner == "" || repo == "" {
		return nil, domain.ErrInvalidRepository
	}
	if number <= 0 {
		return nil, domain.ErrInvalidPRNumber
	}
	if mode == "" {
		mode = domain.ModeFull
	}

	pr, err := uc.fetcher.FetchPRDetails(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	return uc.analyzer.Analyze(ctx, pr, mode)
}

// GetLatestReview возвращает последнюю сохранённую запись ревью PR.
func (uc *ReviewUseCase) GetLatestReview(ctx context.Context, projectID string, number int) (*domain.ReviewRecord, error) {
	if _, _, err := domain.SplitRepository(projectID); err != nil {
		return nil, err
	}
	if number <= 0 {
		return nil, domain.ErrInvalidPRNumber
	}
	return uc.repo.GetReview(ctx, projectID, number)
}

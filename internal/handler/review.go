package handler

import (
	"net/http"

	"pr-review-engine/api"
	"pr-review-engine/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ReviewHandler отдаёт сохранённые ревью и запускает пробный анализ
type ReviewHandler struct {
	*BaseHandler
	reviewUseCase domain.ReviewUseCase
}

func NewReviewHandler(reviewUseCase domain.ReviewUseCase, logger *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler:   NewBaseHandler(logger),
		reviewUseCase: reviewUseCase,
	}
}

// GetReview возвращает последнее ревью пул-реквеста
func (h *ReviewHandler) GetReview(c echo.Context, owner api.Owner, repo api.Repo, prNumber api.PrNumber) error {
	projectID := owner + "/" + repo
	logEntry := h.logRequest(c, "get_review").WithFields(logrus.Fields{
		"project":   projectID,
		"pr_number": prNumber,
	})

	record, err := h.reviewUseCase.GetLatestReview(c.Request().Context(), projectID, prNumber)
	if err != nil {
		return h.respondError(c, logEntry, err, "Failed to get review")
	}

	logEntry.WithField("review_id", record.ID).Info("Review retrieved")
	return c.JSON(http.StatusOK, toAPIReview(record))
}

// PostAnalyze анализирует пул-реквест без сохранения и публикации
func (h *ReviewHandler) PostAnalyze(c echo.Context, owner api.Owner, repo api.Repo, prNumber api.PrNumber, params api.PostAnalyzeParams) error {
	mode := domain.ModeFull
	if params.Mode != nil {
		mode = domain.AnalysisMode(*params.Mode)
	}
	logEntry := h.logRequest(c, "analyze").WithFields(logrus.Fields{
		"project":   owner + "/" + repo,
		"pr_number": prNumber,
		"mode":      mode,
	})

	if mode != domain.ModeFull && mode != domain.ModeIncremental {
		logEntry.Warn("Unknown analysis mode")
		return c.JSON(http.StatusBadRequest, toErrorResponse("INVALID_REQUEST", "mode must be full or incremental"))
	}

	result, err := h.reviewUseCase.AnalyzePullRequest(c.Request().Context(), owner, repo, prNumber, mode)
	if err != nil {
		return h.respondError(c, logEntry, err, "Failed to analyze pull request")
	}

	logEntry.WithField("overall", result.RiskScore.Overall).Info("Pull request analyzed")
	return c.JSON(http.StatusOK, toAPIResult(result))
}

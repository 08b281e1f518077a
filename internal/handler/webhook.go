package handler

import (
	"net/http"

	"pr-review-engine/api"
	"pr-review-engine/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const pullRequestEvent = "pull_request"

// WebhookHandler принимает доставки вебхуков удалённого хоста
type WebhookHandler struct {
	*BaseHandler
	reviewUseCase domain.ReviewUseCase
}

func NewWebhookHandler(reviewUseCase domain.ReviewUseCase, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:   NewBaseHandler(logger),
		reviewUseCase: reviewUseCase,
	}
}

// PostWebhookGithub запускает конвейер ревью для событий pull_request
func (h *WebhookHandler) PostWebhookGithub(c echo.Context, params api.PostWebhookGithubParams) error {
	logEntry := h.logRequest(c, "webhook").WithField("event", params.XGitHubEvent)
	if params.XGitHubDelivery != nil {
		logEntry = logEntry.WithField("delivery", *params.XGitHubDelivery)
	}

	if params.XGitHubEvent != pullRequestEvent {
		logEntry.Debug("Ignoring non pull_request event")
		reason := "event " + params.XGitHubEvent + " is not handled"
		return c.JSON(http.StatusAccepted, api.WebhookResult{Status: api.Ignored, Reason: &reason})
	}

	var req api.PostWebhookGithubJSONRequestBody
	if err := c.Bind(&req); err != nil {
		logEntry.WithError(err).Warn("Failed to bind webhook payload")
		return c.JSON(http.StatusBadRequest, toErrorResponse("INVALID_PAYLOAD", err.Error()))
	}

	event := toDomainEvent(req)
	logEntry = logEntry.WithFields(logrus.Fields{
		"action":     event.Action,
		"repository": event.Repository.FullName,
		"pr_number":  event.PRNumber(),
	})
	logEntry.Info("Handling pull request event")

	res, err := h.reviewUseCase.HandlePullRequestEvent(c.Request().Context(), event)
	if err != nil {
		return h.respondError(c, logEntry, err, "Review pipeline failed")
	}

	if res.Skipped {
		logEntry.WithField("reason", res.Reason).Info("Pull request event skipped")
		return c.JSON(http.StatusAccepted, toAPIWebhookResult(res))
	}

	logEntry.WithField("review_id", res.ReviewID).Info("Pull request reviewed")
	return c.JSON(http.StatusOK, toAPIWebhookResult(res))
}

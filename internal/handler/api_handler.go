package handler

import (
	"pr-review-engine/api"
	"pr-review-engine/internal/domain"

	"github.com/sirupsen/logrus"
)

type APIHandler struct {
	*WebhookHandler
	*ReviewHandler
}

func NewAPIHandler(
	reviewUseCase domain.ReviewUseCase,
	logger *logrus.Logger,
) api.ServerInterface {

	return &APIHandler{
		WebhookHandler: NewWebhookHandler(reviewUseCase, logger),
		ReviewHandler:  NewReviewHandler(reviewUseCase, logger),
	}
}

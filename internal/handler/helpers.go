package handler

import (
	"errors"
	"net/http"

	"pr-review-engine/api"
	"pr-review-engine/internal/domain"
)

// Вспомогательные функции преобразования доменных моделей в API модели

func toDomainEvent(event api.PullRequestEvent) domain.PullRequestEvent {
	number := event.PullRequest.Number
	if event.Number != nil && number == 0 {
		number = *event.Number
	}
	return domain.PullRequestEvent{
		Action: event.Action,
		Number: number,
		PullRequest: domain.EventPullRequest{
			Number: event.PullRequest.Number,
			Head:   domain.EventHeadRef{SHA: event.PullRequest.Head.Sha},
		},
		Repository: domain.EventRepository{FullName: event.Repository.FullName},
	}
}

func toAPIResult(result *domain.CodeReviewResult) api.ReviewResult {
	factors := make([]api.RiskFactor, len(result.RiskScore.Factors))
	for i, f := range result.RiskScore.Factors {
		description := f.Description
		factors[i] = api.RiskFactor{
			Factor:      f.Factor,
			Score:       float32(f.Score),
			Weight:      float32(f.Weight),
			Description: &description,
		}
	}

	findings := make([]api.Finding, len(result.Comments))
	for i, c := range result.Comments {
		findings[i] = api.Finding{
			File:     c.File,
			Line:     c.Line,
			Severity: string(c.Severity),
			Category: string(c.Category),
			Message:  c.Message,
		}
		if c.Suggestion != "" {
			suggestion := c.Suggestion
			findings[i].Suggestion = &suggestion
		}
	}

	apiResult := api.ReviewResult{
		Mode:           api.AnalysisMode(result.Mode),
		OverallScore:   float32(result.RiskScore.Overall),
		RiskLevel:      api.RiskLevel(result.RiskScore.Level),
		Recommendation: api.Recommendation(result.Summary.ApprovalRecommendation),
		Factors:        factors,
		Findings:       findings,
	}
	if result.Simulation != nil {
		scope := string(result.Simulation.ImpactAnalysis.Scope)
		apiResult.ImpactScope = &scope
	}
	if len(result.Summary.KeyFindings) > 0 {
		keyFindings := result.Summary.KeyFindings
		apiResult.KeyFindings = &keyFindings
	}
	return apiResult
}

func toAPIReview(record *domain.ReviewRecord) api.Review {
	posted := make([]api.PostedComment, len(record.PostedComments))
	for i, p := range record.PostedComments {
		postedAt := p.PostedAt
		posted[i] = api.PostedComment{
			File:            p.File,
			Line:            p.Line,
			RemoteCommentId: p.RemoteCommentID,
			PostedAt:        &postedAt,
		}
		if p.URL != "" {
			url := p.URL
			posted[i].Url = &url
		}
	}

	review := api.Review{
		ReviewId:       record.ID,
		ProjectId:      record.ProjectID,
		PrNumber:       record.PRNumber,
		HeadSha:        record.HeadSHA,
		CreatedAt:      record.CreatedAt,
		PostedComments: posted,
	}
	if record.Result != nil {
		result := toAPIResult(record.Result)
		review.Result = &result
	}
	return review
}

func toAPIWebhookResult(res *domain.PipelineResult) api.WebhookResult {
	if res.Skipped {
		reason := res.Reason
		return api.WebhookResult{Status: api.Ignored, Reason: &reason}
	}

	reviewID := res.ReviewID
	mode := api.AnalysisMode(res.Mode)
	out := api.WebhookResult{
		Status:   api.Reviewed,
		ReviewId: &reviewID,
		Mode:     &mode,
	}
	if res.Result != nil {
		score := float32(res.Result.RiskScore.Overall)
		rec := api.Recommendation(res.Result.Summary.ApprovalRecommendation)
		out.OverallScore = &score
		out.Recommendation = &rec
	}
	if res.Publish != nil {
		inline := len(res.Publish.Inline)
		skipped := res.Publish.Skipped
		out.InlinePosted = &inline
		out.SkippedDuplicates = &skipped
	}
	return out
}

func toErrorResponse(code, message string) api.ErrorResponse {
	return api.ErrorResponse{
		Error: struct {
			Code    api.ErrorResponseErrorCode `json:"code"`
			Message string                     `json:"message"`
		}{
			Code:    api.ErrorResponseErrorCode(code),
			Message: message,
		},
	}
}

func toAPIErrorResponse(httpErr domain.HTTPError) api.ErrorResponse {
	return toErrorResponse(httpErr.Code, httpErr.Message)
}

func getHTTPStatusCode(err error) int {
	var fetchErr *domain.FetchError
	var persistErr *domain.PersistenceError

	switch {
	// Bad Request errors (400) - валидация
	case errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrInvalidRepository),
		errors.Is(err, domain.ErrInvalidPRNumber):
		return http.StatusBadRequest

	// Not Found errors (404)
	case errors.Is(err, domain.ErrReviewNotFound):
		return http.StatusNotFound

	// Too Many Requests (429)
	case errors.Is(err, domain.ErrRateLimitExhausted):
		return http.StatusTooManyRequests

	// Ошибки удалённого хоста (502)
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway

	case errors.As(err, &persistErr):
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}

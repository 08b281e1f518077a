package domain

import (
	"context"
)

// ReviewRepository определяет контракт хранилища записей ревью и журнала опубликованных комментариев.
type ReviewRepository interface {
	GetPostedInlineCommentCoordinates(ctx context.Context, projectID string, prNumber int) (map[string]struct{}, error)
	SaveReview(ctx context.Context, record *ReviewRecord) (string, error)
	GetReview(ctx context.Context, projectID string, prNumber int) (*ReviewRecord, error)
	MarkCommentsPosted(ctx context.Context, reviewID string, mappings []PostedCommentCoordinate) (int, error)
}

// PipelineResult: результат одного прогона конвейера ревью.
type PipelineResult struct {
	Skipped  bool              `json:"skipped"`
	Reason   string            `json:"reason,omitempty"`
	ReviewID string            `json:"review_id,omitempty"`
	Mode     AnalysisMode      `json:"mode,omitempty"`
	Result   *CodeReviewResult `json:"result,omitempty"`
	Publish  *PublishReport    `json:"publish,omitempty"`
}

// PublishReport описывает, что было опубликовано за один проход.
type PublishReport struct {
	Disabled bool                      `json:"disabled"`
	Summary  *PostedComment            `json:"summary,omitempty"`
	Detailed *PostedComment            `json:"detailed,omitempty"`
	Inline   []PostedCommentCoordinate `json:"inline"`
	Skipped  int                       `json:"skipped_duplicates"`
	Failed   int                       `json:"failed"`
}

// ReviewUseCase определяет бизнес-логику конвейера ревью.
type ReviewUseCase interface {
	HandlePullRequestEvent(ctx context.Context, event PullRequestEvent) (*PipelineResult, error)
	AnalyzePullRequest(ctx context.Context, owner, repo string, number int, mode AnalysisMode) (*CodeReviewResult, error)
	GetLatestReview(ctx context.Context, projectID string, number int) (*ReviewRecord, error)
}

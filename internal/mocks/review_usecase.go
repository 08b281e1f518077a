package mocks

import (
	"context"

	"pr-review-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

type ReviewUseCase struct {
	mock.Mock
}

func (m *ReviewUseCase) HandlePullRequestEvent(ctx context.Context, event domain.PullRequestEvent) (*domain.PipelineResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PipelineResult), args.Error(1)
}

func (m *ReviewUseCase) AnalyzePullRequest(ctx context.Context, owner, repo string, number int, mode domain.AnalysisMode) (*domain.CodeReviewResult, error) {
	args := m.Called(ctx, owner, repo, number, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CodeReviewResult), args.Error(1)
}

func (m *ReviewUseCase) GetLatestReview(ctx context.Context, projectID string, number int) (*domain.ReviewRecord, error) {
	args := m.Called(ctx, projectID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewRecord), args.Error(1)
}

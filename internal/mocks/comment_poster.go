package mocks

import (
	"context"

	"pr-review-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

type CommentPoster struct {
	mock.Mock
}

func (m *CommentPoster) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*domain.PostedComment, error) {
	args := m.Called(ctx, owner, repo, number, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostedComment), args.Error(1)
}

func (m *CommentPoster) CreateReviewComment(ctx context.Context, owner, repo string, number int, commitSHA, path string, line int, body string) (*domain.PostedComment, error) {
	args := m.Called(ctx, owner, repo, number, commitSHA, path, line, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostedComment), args.Error(1)
}

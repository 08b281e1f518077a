// Package mocks содержит testify-моки интерфейсов для тестов.
package mocks

import (
	"context"

	"pr-review-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

type ReviewRepository struct {
	mock.Mock
}

func (m *ReviewRepository) GetPostedInlineCommentCoordinates(ctx context.Context, projectID string, prNumber int) (map[string]struct{}, error) {
	args := m.Called(ctx, projectID, prNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *ReviewRepository) SaveReview(ctx context.Context, record *domain.ReviewRecord) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

func (m *ReviewRepository) GetReview(ctx context.Context, projectID string, prNumber int) (*domain.ReviewRecord, error) {
	args := m.Called(ctx, projectID, prNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewRecord), args.Error(1)
}

func (m *ReviewRepository) MarkCommentsPosted(ctx context.Context, reviewID string, mappings []domain.PostedCommentCoordinate) (int, error) {
	args := m.Called(ctx, reviewID, mappings)
	return args.Int(0), args.Error(1)
}

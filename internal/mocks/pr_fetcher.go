package mocks

import (
	"context"

	"pr-review-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

type PRFetcher struct {
	mock.Mock
}

func (m *PRFetcher) FetchPRDetails(ctx context.Context, owner, repo string, number int) (*domain.PRAnalysis, error) {
	args := m.Called(ctx, owner, repo, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PRAnalysis), args.Error(1)
}

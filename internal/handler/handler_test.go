package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pr-review-engine/api"
	"pr-review-engine/internal/domain"
	"pr-review-engine/internal/handler"
	"pr-review-engine/internal/mocks"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type HandlerTestSuite struct {
	suite.Suite
	echo    *echo.Echo
	useCase *mocks.ReviewUseCase
}

func (suite *HandlerTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	suite.useCase = &mocks.ReviewUseCase{}
	suite.echo = echo.New()
	suite.echo.Use(handler.LoggingMiddleware(logger))
	api.RegisterHandlers(suite.echo, handler.NewAPIHandler(suite.useCase, logger))
}

func (suite *HandlerTestSuite) TearDownTest() {
	suite.useCase.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	return rec
}

func webhookBody(action string) []byte {
	body, _ := json.Marshal(map[string]any{
		"action": action,
		"number": 12,
		"pull_request": map[string]any{
			"number": 12,
			"head":   map[string]any{"sha": "deadbeef"},
		},
		"repository": map[string]any{"full_name": "acme/shop"},
	})
	return body
}

func (suite *HandlerTestSuite) TestWebhook_ReviewsPullRequest() {
	expected := domain.PullRequestEvent{
		Action:      "opened",
		Number:      12,
		PullRequest: domain.EventPullRequest{Number: 12, Head: domain.EventHeadRef{SHA: "deadbeef"}},
		Repository:  domain.EventRepository{FullName: "acme/shop"},
	}
	suite.useCase.On("HandlePullRequestEvent", mock.Anything, expected).Return(&domain.PipelineResult{
		ReviewID: "review-1",
		Mode:     domain.ModeFull,
		Result: &domain.CodeReviewResult{
			RiskScore: domain.RiskScore{Overall: 91, Level: domain.RiskCritical},
			Summary:   domain.ReviewSummary{ApprovalRecommendation: domain.RecommendRequestChanges},
		},
		Publish: &domain.PublishReport{
			Inline:  []domain.PostedCommentCoordinate{{File: "a.go", Line: 1}},
			Skipped: 2,
		},
	}, nil)

	rec := suite.do(http.MethodPost, "/webhook/github", webhookBody("opened"), map[string]string{
		"X-GitHub-Event":    "pull_request",
		"X-GitHub-Delivery": "72d3162e",
	})

	suite.Equal(http.StatusOK, rec.Code)
	var out api.WebhookResult
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	suite.Equal(api.Reviewed, out.Status)
	suite.Equal("review-1", *out.ReviewId)
	suite.Equal(api.RequestChanges, *out.Recommendation)
	suite.Equal(1, *out.InlinePosted)
	suite.Equal(2, *out.SkippedDuplicates)
}

func (suite *HandlerTestSuite) TestWebhook_IgnoresOtherEvents() {
	rec := suite.do(http.MethodPost, "/webhook/github", []byte(`{"zen":"Keep it logically awesome."}`), map[string]string{
		"X-GitHub-Event": "ping",
	})

	suite.Equal(http.StatusAccepted, rec.Code)
	suite.Contains(rec.Body.String(), `"status":"ignored"`)
	suite.useCase.AssertNotCalled(suite.T(), "HandlePullRequestEvent", mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestWebhook_RequiresEventHeader() {
	rec := suite.do(http.MethodPost, "/webhook/github", webhookBody("opened"), nil)

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *HandlerTestSuite) TestWebhook_SkippedAction() {
	suite.useCase.On("HandlePullRequestEvent", mock.Anything, mock.AnythingOfType("domain.PullRequestEvent")).
		Return(&domain.PipelineResult{Skipped: true, Reason: `action "closed" is not reviewed`}, nil)

	rec := suite.do(http.MethodPost, "/webhook/github", webhookBody("closed"), map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	suite.Equal(http.StatusAccepted, rec.Code)
	suite.Contains(rec.Body.String(), "closed")
}

func (suite *HandlerTestSuite) TestWebhook_MalformedPayload() {
	rec := suite.do(http.MethodPost, "/webhook/github", []byte(`{"action":`), map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Contains(rec.Body.String(), "INVALID_PAYLOAD")
}

func (suite *HandlerTestSuite) TestWebhook_ErrorMapping() {
	testCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"Invalid repository", domain.ErrInvalidRepository, http.StatusBadRequest, "INVALID_PAYLOAD"},
		{"Rate limited", domain.ErrRateLimitExhausted, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"Fetch failed", &domain.FetchError{Op: "get pull request", StatusCode: 404, Err: errors.New("Not Found")}, http.StatusBadGateway, "FETCH_FAILED"},
		{"Storage failed", &domain.PersistenceError{Op: "save review", Err: errors.New("disk full")}, http.StatusInternalServerError, "STORAGE_FAILED"},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.SetupTest()
			suite.useCase.On("HandlePullRequestEvent", mock.Anything, mock.Anything).Return(nil, tc.err)

			rec := suite.do(http.MethodPost, "/webhook/github", webhookBody("opened"), map[string]string{
				"X-GitHub-Event": "pull_request",
			})

			suite.Equal(tc.status, rec.Code)
			var out api.ErrorResponse
			suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
			suite.Equal(api.ErrorResponseErrorCode(tc.code), out.Error.Code)
		})
	}
}

func (suite *HandlerTestSuite) TestGetReview() {
	line := 7
	suite.useCase.On("GetLatestReview", mock.Anything, "acme/shop", 12).Return(&domain.ReviewRecord{
		ID:        "review-1",
		ProjectID: "acme/shop",
		PRNumber:  12,
		HeadSHA:   "deadbeef",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Result: &domain.CodeReviewResult{
			Mode:      domain.ModeIncremental,
			RiskScore: domain.RiskScore{Overall: 12.5, Level: domain.RiskLow},
			Comments:  []domain.ReviewComment{{File: "a.go", Line: &line, Severity: domain.SeverityLow, Category: domain.CategoryStyle, Message: "m"}},
			Summary:   domain.ReviewSummary{ApprovalRecommendation: domain.RecommendApprove},
			Simulation: &domain.ReviewSimulation{
				ImpactAnalysis: domain.ImpactAnalysis{Scope: domain.ScopeIsolated},
			},
		},
		PostedComments: []domain.PostedCommentCoordinate{{File: "a.go", Line: 7, RemoteCommentID: 99}},
	}, nil)

	rec := suite.do(http.MethodGet, "/reviews/acme/shop/12", nil, nil)

	suite.Equal(http.StatusOK, rec.Code)
	var out api.Review
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	suite.Equal("review-1", out.ReviewId)
	suite.Require().NotNil(out.Result)
	suite.Equal(api.Incremental, out.Result.Mode)
	suite.Equal("isolated", *out.Result.ImpactScope)
	suite.Require().Len(out.Result.Findings, 1)
	suite.Equal(7, *out.Result.Findings[0].Line)
	suite.Require().Len(out.PostedComments, 1)
	suite.Equal(int64(99), out.PostedComments[0].RemoteCommentId)
}

func (suite *HandlerTestSuite) TestGetReview_NotFound() {
	suite.useCase.On("GetLatestReview", mock.Anything, "acme/shop", 404).Return(nil, domain.ErrReviewNotFound)

	rec := suite.do(http.MethodGet, "/reviews/acme/shop/404", nil, nil)

	suite.Equal(http.StatusNotFound, rec.Code)
	suite.Contains(rec.Body.String(), "NOT_FOUND")
}

func (suite *HandlerTestSuite) TestGetReview_InvalidNumber() {
	rec := suite.do(http.MethodGet, "/reviews/acme/shop/abc", nil, nil)

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *HandlerTestSuite) TestPostAnalyze() {
	suite.useCase.On("AnalyzePullRequest", mock.Anything, "acme", "shop", 12, domain.ModeIncremental).
		Return(&domain.CodeReviewResult{
			Mode:      domain.ModeIncremental,
			RiskScore: domain.RiskScore{Overall: 40, Level: domain.RiskMedium},
			Summary:   domain.ReviewSummary{ApprovalRecommendation: domain.RecommendComment},
		}, nil)

	rec := suite.do(http.MethodPost, "/reviews/acme/shop/12/analyze?mode=incremental", nil, nil)

	suite.Equal(http.StatusOK, rec.Code)
	var out api.ReviewResult
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	suite.Equal(api.Comment, out.Recommendation)
	suite.Equal(api.MEDIUM, out.RiskLevel)
}

func (suite *HandlerTestSuite) TestPostAnalyze_UnknownMode() {
	rec := suite.do(http.MethodPost, "/reviews/acme/shop/12/analyze?mode=deep", nil, nil)

	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.useCase.AssertNotCalled(suite.T(), "AnalyzePullRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"pr-review-engine/api"
	"pr-review-engine/internal/analysis"
	"pr-review-engine/internal/config"
	"pr-review-engine/internal/github"
	"pr-review-engine/internal/handler"
	"pr-review-engine/internal/publisher"
	"pr-review-engine/internal/repository"
	"pr-review-engine/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

const authPatch = "@@ -1,2 +1,3 @@\n package auth\n+const apiKey = \"sk_live_abcdef123\"\n func Login() {}"

// remoteHost имитирует REST API удалённого хоста для одного PR.
type remoteHost struct {
	mu       sync.Mutex
	issue    int
	inline   int
	inlineAt []string
}

func (h *remoteHost) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Reset", "1900000000")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("GET /repos/acme/shop/pulls/12", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]any{
			"number":  12,
			"title":   "Add login",
			"user":    map[string]any{"login": "alice"},
			"head":    map[string]any{"ref": "feature/login", "sha": "deadbeef"},
			"base":    map[string]any{"ref": "main"},
			"commits": 1,
		})
	})
	mux.HandleFunc("GET /repos/acme/shop/pulls/12/files", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, []map[string]any{
			{"filename": "internal/auth/login.go", "status": "modified", "additions": 1, "deletions": 0, "changes": 1, "patch": authPatch},
		})
	})
	mux.HandleFunc("POST /repos/acme/shop/issues/12/comments", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.issue++
		id := 100 + h.issue
		h.mu.Unlock()
		write(w, http.StatusCreated, map[string]any{"id": id})
	})
	mux.HandleFunc("POST /repos/acme/shop/pulls/12/comments", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Path string `json:"path"`
			Line int    `json:"line"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		h.mu.Lock()
		h.inline++
		h.inlineAt = append(h.inlineAt, body.Path)
		id := 200 + h.inline
		h.mu.Unlock()
		write(w, http.StatusCreated, map[string]any{"id": id})
	})
	return mux
}

// FlowTestSuite прогоняет доставку вебхука через настоящие use case, движок,
// публикатор и хранилище в памяти.
type FlowTestSuite struct {
	suite.Suite
	echo   *echo.Echo
	remote *remoteHost
}

func (suite *FlowTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	suite.remote = &remoteHost{}
	srv := httptest.NewServer(suite.remote.handler())
	suite.T().Cleanup(srv.Close)

	cfg := github.DefaultConfig()
	cfg.Token = "test-token"
	cfg.BaseURL = srv.URL
	client, err := github.NewClient(cfg, logger)
	suite.Require().NoError(err)
	suite.T().Cleanup(client.Close)

	engine, err := analysis.NewEngine(config.DefaultScoringConfig(), analysis.WithLogger(logger))
	suite.Require().NoError(err)

	repo := repository.NewMemoryReviewRepository()
	pub := publisher.New(client, repo, publisher.DefaultConfig(), logger)
	uc := usecase.NewReviewUseCase(client, engine, pub, repo, logger)

	suite.echo = echo.New()
	api.RegisterHandlers(suite.echo, handler.NewAPIHandler(uc, logger))
}

func (suite *FlowTestSuite) deliver(action string) api.WebhookResult {
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(webhookBody(action)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-GitHub-Event", "pull_request")
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var out api.WebhookResult
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (suite *FlowTestSuite) TestRedeliveryDoesNotRepeatInlineComments() {
	first := suite.deliver("opened")
	suite.Equal(api.Reviewed, first.Status)
	suite.Require().NotNil(first.Mode)
	suite.Equal(api.Full, *first.Mode)
	suite.Require().NotNil(first.Recommendation)
	suite.Equal(api.RequestChanges, *first.Recommendation)
	suite.Require().NotNil(first.InlinePosted)
	suite.Equal(1, *first.InlinePosted)

	second := suite.deliver("synchronize")
	suite.Require().NotNil(second.Mode)
	suite.Equal(api.Incremental, *second.Mode)
	suite.Require().NotNil(second.InlinePosted)
	suite.Equal(0, *second.InlinePosted)
	suite.Require().NotNil(second.SkippedDuplicates)
	suite.Equal(1, *second.SkippedDuplicates)

	suite.remote.mu.Lock()
	defer suite.remote.mu.Unlock()
	suite.Equal(1, suite.remote.inline)
	suite.Equal([]string{"internal/auth/login.go"}, suite.remote.inlineAt)
	// Сводка и подробный отчёт публикуются на каждом проходе.
	suite.Equal(4, suite.remote.issue)
}

func (suite *FlowTestSuite) TestReviewIsReadableAfterDelivery() {
	suite.deliver("opened")

	req := httptest.NewRequest(http.MethodGet, "/reviews/acme/shop/12", nil)
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var review api.Review
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &review))
	suite.Equal("acme/shop", review.ProjectId)
	suite.Equal("deadbeef", review.HeadSha)
	suite.Require().Len(review.PostedComments, 1)
	suite.Equal("internal/auth/login.go", review.PostedComments[0].File)
	suite.Equal(2, review.PostedComments[0].Line)
}

func TestFlowTestSuite(t *testing.T) {
	suite.Run(t, new(FlowTestSuite))
}

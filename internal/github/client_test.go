package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"pr-review-engine/internal/config"
	"pr-review-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPatch = "@@ -1,2 +1,3 @@\n package auth\n+var token = \"abc\"\n func Login() {}"

type fakeGitHub struct {
	mu     sync.Mutex
	calls  map[string]int
	status int
	auth   string
	// remaining и reset задают заголовки квоты следующих ответов.
	remaining int
	reset     time.Time
	// latency задерживает ответ, пока запрос не отменён.
	latency time.Duration
}

func (f *fakeGitHub) setLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

func (f *fakeGitHub) setQuota(remaining int, reset time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remaining = remaining
	f.reset = reset
}

func (f *fakeGitHub) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, r *http.Request, v any) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.auth = r.Header.Get("Authorization")
		status := f.status
		remaining, reset, latency := f.remaining, f.reset, f.latency
		f.mu.Unlock()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(headerRateRemaining, strconv.Itoa(remaining))
		w.Header().Set(headerRateReset, strconv.FormatInt(reset.Unix(), 10))
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
		}
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("GET /repos/octo/app/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		write(w, r, map[string]any{
			"number":  7,
			"title":   "Add login",
			"body":    "Implements login",
			"user":    map[string]any{"login": "alice"},
			"head":    map[string]any{"ref": "feature/login", "sha": "abc123"},
			"base":    map[string]any{"ref": "main"},
			"commits": 3,
		})
	})
	mux.HandleFunc("GET /repos/octo/app/pulls/7/files", func(w http.ResponseWriter, r *http.Request) {
		write(w, r, []map[string]any{
			{"filename": "internal/auth/login.go", "status": "modified", "additions": 1, "deletions": 0, "changes": 1, "patch": loginPatch},
			{"filename": "docs/notes.unknownext", "status": "added", "additions": 4, "deletions": 0, "changes": 4},
			{"filename": "web/app.ts", "status": "renamed", "previous_filename": "web/old.ts", "additions": 0, "deletions": 2, "changes": 2},
		})
	})
	mux.HandleFunc("POST /repos/octo/app/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		write(w, r, map[string]any{"id": 501, "html_url": "https://github.example/octo/app/pull/7#issuecomment-501"})
	})
	mux.HandleFunc("POST /repos/octo/app/pulls/7/comments", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["path"] != "internal/auth/login.go" || body["side"] != "RIGHT" || body["commit_id"] != "abc123" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		write(w, r, map[string]any{"id": 601, "html_url": "https://github.example/octo/app/pull/7#discussion_r601"})
	})
	return mux
}

func newTestClient(t *testing.T, token string, clock *fakeClock) (*Client, *fakeGitHub) {
	t.Helper()
	sleeper := &recordingSleeper{clock: clock}
	return newTestClientWith(t, clock, sleeper.Sleep, func(cfg *Config) { cfg.Token = token })
}

func newTestClientWith(t *testing.T, clock *fakeClock, sleep func(context.Context, time.Duration) error, configure func(*Config)) (*Client, *fakeGitHub) {
	t.Helper()
	fake := &fakeGitHub{calls: make(map[string]int), remaining: 4999, reset: time.Unix(1900000000, 0)}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	if configure != nil {
		configure(&cfg)
	}

	client, err := NewClient(cfg, quietLogger(), WithClock(clock.Now), WithSleeper(sleep))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, fake
}

func TestClient_FetchPRDetails(t *testing.T) {
	clock := newFakeClock()
	client, _ := newTestClient(t, "secret", clock)

	pr, err := client.FetchPRDetails(context.Background(), "octo", "app", 7)
	require.NoError(t, err)

	assert.Equal(t, 7, pr.Number)
	assert.Equal(t, "octo/app", pr.Repository)
	assert.Equal(t, "Add login", pr.Title)
	assert.Equal(t, "alice", pr.Author)
	assert.Equal(t, "feature/login", pr.HeadBranch)
	assert.Equal(t, "main", pr.BaseBranch)
	assert.Equal(t, "abc123", pr.HeadSHA)
	assert.Equal(t, 3, pr.Commits)
	assert.Equal(t, 5, pr.TotalAdditions)
	assert.Equal(t, 2, pr.TotalDeletions)
	assert.Equal(t, clock.Now(), pr.AnalyzedAt)

	require.Len(t, pr.FilesChanged, 3)
	assert.Equal(t, "go", pr.FilesChanged[0].Language)
	assert.Equal(t, loginPatch, pr.FilesChanged[0].Patch)
	assert.Equal(t, domain.FileAdded, pr.FilesChanged[1].Status)
	assert.Empty(t, pr.FilesChanged[1].Language)
	assert.Equal(t, domain.FileRenamed, pr.FilesChanged[2].Status)
	assert.Equal(t, "web/old.ts", pr.FilesChanged[2].PreviousFilename)
	assert.Equal(t, "typescript", pr.FilesChanged[2].Language)

	assert.Equal(t, 4999, client.RateLimit().Remaining)
}

func TestClient_CacheTTL(t *testing.T) {
	clock := newFakeClock()
	client, fake := newTestClient(t, "", clock)
	ctx := context.Background()

	_, err := client.FetchPRDetails(ctx, "octo", "app", 7)
	require.NoError(t, err)
	_, err = client.FetchPRDetails(ctx, "octo", "app", 7)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.count("/repos/octo/app/pulls/7"))
	assert.Equal(t, 1, fake.count("/repos/octo/app/pulls/7/files"))

	// метаданные истекают через 30s, файлы через 60s
	clock.Advance(31 * time.Second)
	_, err = client.FetchPRDetails(ctx, "octo", "app", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.count("/repos/octo/app/pulls/7"))
	assert.Equal(t, 1, fake.count("/repos/octo/app/pulls/7/files"))

	// t=60s: файлы истекли, метаданные (получены в t=31s) ещё действительны
	clock.Advance(29 * time.Second)
	_, err = client.FetchPRDetails(ctx, "octo", "app", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.count("/repos/octo/app/pulls/7"))
	assert.Equal(t, 2, fake.count("/repos/octo/app/pulls/7/files"))
}

func TestClient_FetchErrorOnNon2xx(t *testing.T) {
	clock := newFakeClock()
	client, fake := newTestClient(t, "secret", clock)
	fake.status = http.StatusNotFound

	_, err := client.FetchPRDetails(context.Background(), "octo", "app", 7)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestClient_PublishComments(t *testing.T) {
	clock := newFakeClock()
	client, fake := newTestClient(t, "secret", clock)
	ctx := context.Background()

	summary, err := client.CreateIssueComment(ctx, "octo", "app", 7, "summary")
	require.NoError(t, err)
	assert.Equal(t, int64(501), summary.ID)
	assert.Contains(t, summary.URL, "issuecomment-501")
	assert.Equal(t, "Bearer secret", fake.auth)

	inline, err := client.CreateReviewComment(ctx, "octo", "app", 7, "abc123", "internal/auth/login.go", 2, "hard-coded token")
	require.NoError(t, err)
	assert.Equal(t, int64(601), inline.ID)
}

func TestClient_PublishDisabledWithoutToken(t *testing.T) {
	clock := newFakeClock()
	client, fake := newTestClient(t, "", clock)

	assert.False(t, client.CanPublish())
	_, err := client.CreateIssueComment(context.Background(), "octo", "app", 7, "summary")
	assert.ErrorIs(t, err, domain.ErrPublishingDisabled)
	assert.Equal(t, 0, fake.count("/repos/octo/app/issues/7/comments"))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.GitHubConfig{
		Token:        "tok",
		APIURL:       "https://ghe.example/api/v3",
		MetadataTTL:  time.Minute,
		SoftFloor:    20,
		HardFloor:    5,
		MaxResetWait: time.Minute,
	})

	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "https://ghe.example/api/v3", cfg.BaseURL)
	assert.Equal(t, time.Minute, cfg.MetadataTTL)
	assert.Equal(t, 20, cfg.RateLimit.SoftFloor)
	assert.Equal(t, 5, cfg.RateLimit.HardFloor)
	assert.Equal(t, time.Minute, cfg.RateLimit.MaxResetWait)
}

// Часы тестов квоты идут от текущего времени: go-github сравнивает сброс квоты
// с настоящим временем.
func newWallClock() *fakeClock {
	return &fakeClock{now: time.Now().Truncate(time.Second)}
}

func TestClient_HardFloorWaitsForResetThenPublishes(t *testing.T) {
	clock := newWallClock()
	sleeper := &recordingSleeper{clock: clock}
	client, fake := newTestClientWith(t, clock, sleeper.Sleep, func(cfg *Config) { cfg.Token = "secret" })
	ctx := context.Background()

	fake.setQuota(0, clock.Now().Add(20*time.Second))
	_, err := client.CreateIssueComment(ctx, "octo", "app", 7, "first")
	require.NoError(t, err)
	assert.Equal(t, 0, client.RateLimit().Remaining)

	fake.setQuota(4999, clock.Now().Add(time.Hour))
	_, err = client.CreateIssueComment(ctx, "octo", "app", 7, "second")
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{20 * time.Second}, sleeper.Delays())
	assert.Equal(t, 2, fake.count("/repos/octo/app/issues/7/comments"))
}

func TestClient_ResetBeyondMaxResetWaitFailsFast(t *testing.T) {
	clock := newWallClock()
	sleeper := &recordingSleeper{clock: clock}
	client, fake := newTestClientWith(t, clock, sleeper.Sleep, func(cfg *Config) { cfg.Token = "secret" })
	ctx := context.Background()

	fake.setQuota(0, clock.Now().Add(10*time.Minute))
	_, err := client.CreateIssueComment(ctx, "octo", "app", 7, "first")
	require.NoError(t, err)

	_, err = client.FetchPRDetails(ctx, "octo", "app", 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimitExhausted)

	httpErr, ok := domain.ToHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "RATE_LIMITED", httpErr.Code)

	assert.Empty(t, sleeper.Delays())
	assert.Equal(t, 0, fake.count("/repos/octo/app/pulls/7"))
	assert.Equal(t, 0, fake.count("/repos/octo/app/pulls/7/files"))
}

func TestClient_ResetWaitLongerThanRequestTimeout(t *testing.T) {
	clock := newWallClock()
	var (
		mu     sync.Mutex
		delays []time.Duration
	)
	// Ожидание занимает реальное время дольше таймаута запроса.
	sleep := func(ctx context.Context, d time.Duration) error {
		if err := sleepContext(ctx, 300*time.Millisecond); err != nil {
			return err
		}
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		clock.Advance(d)
		return nil
	}
	client, fake := newTestClientWith(t, clock, sleep, func(cfg *Config) {
		cfg.Token = "secret"
		cfg.Timeout = 100 * time.Millisecond
	})
	ctx := context.Background()

	fake.setQuota(1, clock.Now().Add(2*time.Minute))
	_, err := client.CreateIssueComment(ctx, "octo", "app", 7, "first")
	require.NoError(t, err)

	fake.setQuota(4999, clock.Now().Add(time.Hour))
	_, err = client.CreateIssueComment(ctx, "octo", "app", 7, "second")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []time.Duration{2 * time.Minute}, delays)
}

func TestClient_TimeoutBoundsNetworkCall(t *testing.T) {
	clock := newWallClock()
	sleeper := &recordingSleeper{clock: clock}
	client, fake := newTestClientWith(t, clock, sleeper.Sleep, func(cfg *Config) {
		cfg.Token = "secret"
		cfg.Timeout = 50 * time.Millisecond
	})
	fake.setLatency(time.Second)

	started := time.Now()
	_, err := client.CreateIssueComment(context.Background(), "octo", "app", 7, "slow")
	require.Error(t, err)

	var fetchErr *domain.FetchError
	assert.ErrorAs(t, err, &fetchErr)
	assert.Less(t, time.Since(started), 900*time.Millisecond)
}

func TestClient_SharedFetchSurvivesFirstCallerCancel(t *testing.T) {
	clock := newFakeClock()
	sleeper := &recordingSleeper{clock: clock}
	client, fake := newTestClientWith(t, clock, sleeper.Sleep, nil)
	fake.setLatency(150 * time.Millisecond)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.pullRequest(firstCtx, "octo", "app", 7)
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	secondErr := make(chan error, 1)
	go func() {
		_, err := client.pullRequest(context.Background(), "octo", "app", 7)
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	assert.NoError(t, <-secondErr)
	assert.Equal(t, 1, fake.count("/repos/octo/app/pulls/7"))
}

// Package github реализует клиент удалённого хоста: получение PR и файлов с TTL-кэшем,
// единой очередью запросов с учётом квоты и публикацию комментариев.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pr-review-engine/internal/config"
	"pr-review-engine/internal/domain"
	"pr-review-engine/internal/metrics"

	gh "github.com/google/go-github/v71/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	filesPerPage = 100
	// GitHub отдаёт не более 3000 файлов на PR.
	maxFilePages = 30
)

// Config настраивает клиент.
type Config struct {
	Token         string
	BaseURL       string
	MetadataTTL   time.Duration
	FilesTTL      time.Duration
	CacheCapacity int
	Timeout       time.Duration
	RateLimit     RateLimitConfig
}

// DefaultConfig возвращает значения по умолчанию.
func DefaultConfig() Config {
	return Config{
		MetadataTTL:   30 * time.Second,
		FilesTTL:      60 * time.Second,
		CacheCapacity: DefaultCacheCapacity,
		Timeout:       30 * time.Second,
		RateLimit:     DefaultRateLimitConfig(),
	}
}

// ConfigFrom переносит настройки окружения в конфигурацию клиента.
func ConfigFrom(cfg config.GitHubConfig) Config {
	return Config{
		Token:         cfg.Token,
		BaseURL:       cfg.APIURL,
		MetadataTTL:   cfg.MetadataTTL,
		FilesTTL:      cfg.FilesTTL,
		CacheCapacity: cfg.CacheCapacity,
		Timeout:       cfg.Timeout,
		RateLimit: RateLimitConfig{
			SoftFloor:    cfg.SoftFloor,
			HardFloor:    cfg.HardFloor,
			BaseDelay:    cfg.BaseDelay,
			MaxDelay:     cfg.MaxDelay,
			MaxResetWait: cfg.MaxResetWait,
		},
	}
}

// Option: функциональная опция клиента.
type Option func(*options)

type options struct {
	base  http.RoundTripper
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// WithTransport задаёт нижележащий транспорт (по умолчанию http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSleeper подменяет функцию ожидания троттлинга.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = sleep }
}

// Client: клиент удалённого хоста. Кэш и состояние квоты принадлежат экземпляру.
type Client struct {
	gh        *gh.Client
	transport *rateLimitedTransport
	cache     *Cache
	flight    singleflight.Group
	cfg       Config
	now       func() time.Time
	logger    *logrus.Logger
}

// NewClient создаёт клиент. Пустой токен допустим: чтение публичных репозиториев работает,
// публикация отключается.
func NewClient(cfg Config, logger *logrus.Logger, opts ...Option) (*Client, error) {
	o := options{now: time.Now, sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}

	defaults := DefaultConfig()
	if cfg.MetadataTTL <= 0 {
		cfg.MetadataTTL = defaults.MetadataTTL
	}
	if cfg.FilesTTL <= 0 {
		cfg.FilesTTL = defaults.FilesTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	// Таймаут применяется транспортом к сетевому обмену: ожидание сброса квоты
	// ограничено MaxResetWait, а не таймаутом запроса.
	transport := newRateLimitedTransport(o.base, cfg.RateLimit, cfg.Timeout, logger, o.now, o.sleep)
	client := gh.NewClient(&http.Client{Transport: transport})
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			transport.close()
			return nil, fmt.Errorf("parse github api url: %w", err)
		}
		client.BaseURL = baseURL
	}

	return &Client{
		gh:        client,
		transport: transport,
		cache:     NewCache(cfg.CacheCapacity, o.now),
		cfg:       cfg,
		now:       o.now,
		logger:    logger,
	}, nil
}

// Close останавливает очередь запросов.
func (c *Client) Close() {
	c.transport.close()
}

// CanPublish сообщает, настроены ли учётные данные для публикации.
func (c *Client) CanPublish() bool {
	return c.cfg.Token != ""
}

// RateLimit возвращает последнее известное состояние квоты.
func (c *Client) RateLimit() RateLimitState {
	return c.transport.State()
}

// FetchPRDetails параллельно получает метаданные PR и список файлов и собирает PRAnalysis.
func (c *Client) FetchPRDetails(ctx context.Context, owner, repo string, number int) (*domain.PRAnalysis, error) {
	var (
		pr    *gh.PullRequest
		files []*gh.CommitFile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pr, err = c.pullRequest(gctx, owner, repo, number)
		return err
	})
	g.Go(func() error {
		var err error
		files, err = c.pullRequestFiles(gctx, owner, repo, number)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis := buildAnalysis(owner, repo, number, pr, files, c.now())
	c.logger.WithFields(logrus.Fields{
		"repo":  analysis.Repository,
		"pr":    number,
		"files": len(analysis.FilesChanged),
	}).Debug("Pull request fetched")
	return analysis, nil
}

// remoteContext отключает собственную проверку квоты go-github: учёт квоты и ожидание
// сброса выполняет rateLimitedTransport.
func remoteContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, gh.BypassRateLimitCheck, true)
}

func cacheKey(kind, owner, repo string, number int) string {
	return fmt.Sprintf("%s:%s/%s#%d", kind, owner, repo, number)
}

func (c *Client) pullRequest(ctx context.Context, owner, repo string, number int) (*gh.PullRequest, error) {
	v, err := c.cached(ctx, "pr", cacheKey("pr", owner, repo, number), c.cfg.MetadataTTL, func(ctx context.Context) (any, error) {
		pr, _, err := c.gh.PullRequests.Get(remoteContext(ctx), owner, repo, number)
		if err != nil {
			return nil, wrapFetchError("get pull request", err)
		}
		return pr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*gh.PullRequest), nil
}

func (c *Client) pullRequestFiles(ctx context.Context, owner, repo string, number int) ([]*gh.CommitFile, error) {
	v, err := c.cached(ctx, "files", cacheKey("files", owner, repo, number), c.cfg.FilesTTL, func(ctx context.Context) (any, error) {
		var all []*gh.CommitFile
		opts := &gh.ListOptions{PerPage: filesPerPage}
		for page := 0; page < maxFilePages; page++ {
			files, resp, err := c.gh.PullRequests.ListFiles(remoteContext(ctx), owner, repo, number, opts)
			if err != nil {
				return nil, wrapFetchError("list pull request files", err)
			}
			all = append(all, files...)
			if resp == nil || resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*gh.CommitFile), nil
}

// cached возвращает значение из кэша либо получает его один раз на ключ,
// схлопывая одновременные промахи.
func (c *Client) cached(ctx context.Context, kind, key string, ttl time.Duration, load func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.cache.Get(key); ok {
		metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
		return v, nil
	}
	metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()

	// Общая загрузка не наследует отмену первого вызывающего: его отмена не должна
	// обрывать запрос, которого ждут другие.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, v, ttl)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CreateIssueComment публикует общий комментарий к PR.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*domain.PostedComment, error) {
	if !c.CanPublish() {
		return nil, domain.ErrPublishingDisabled
	}
	comment, _, err := c.gh.Issues.CreateComment(remoteContext(ctx), owner, repo, number, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return nil, wrapFetchError("create issue comment", err)
	}
	return &domain.PostedComment{ID: comment.GetID(), URL: comment.GetHTMLURL()}, nil
}

// CreateReviewComment публикует построчный комментарий к новой версии файла.
func (c *Client) CreateReviewComment(ctx context.Context, owner, repo string, number int, commitSHA, path string, line int, body string) (*domain.PostedComment, error) {
	if !c.CanPublish() {
		return nil, domain.ErrPublishingDisabled
	}
	comment, _, err := c.gh.PullRequests.CreateComment(remoteContext(ctx), owner, repo, number, &gh.PullRequestComment{
		Body:     gh.Ptr(body),
		CommitID: gh.Ptr(commitSHA),
		Path:     gh.Ptr(path),
		Line:     gh.Ptr(line),
		Side:     gh.Ptr("RIGHT"),
	})
	if err != nil {
		return nil, wrapFetchError("create review comment", err)
	}
	return &domain.PostedComment{ID: comment.GetID(), URL: comment.GetHTMLURL()}, nil
}

func wrapFetchError(op string, err error) error {
	status := 0
	var (
		errResp *gh.ErrorResponse
		rlErr   *gh.RateLimitError
		abuse   *gh.AbuseRateLimitError
	)
	switch {
	case errors.As(err, &rlErr) && rlErr.Response != nil:
		status = rlErr.Response.StatusCode
	case errors.As(err, &abuse) && abuse.Response != nil:
		status = abuse.Response.StatusCode
	case errors.As(err, &errResp) && errResp.Response != nil:
		status = errResp.Response.StatusCode
	}
	return &domain.FetchError{Op: op, StatusCode: status, Err: err}
}

func buildAnalysis(owner, repo string, number int, pr *gh.PullRequest, files []*gh.CommitFile, now time.Time) *domain.PRAnalysis {
	analysis := &domain.PRAnalysis{
		Number:       pr.GetNumber(),
		Repository:   owner + "/" + repo,
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		Author:       pr.GetUser().GetLogin(),
		HeadBranch:   pr.GetHead().GetRef(),
		BaseBranch:   pr.GetBase().GetRef(),
		HeadSHA:      pr.GetHead().GetSHA(),
		Commits:      pr.GetCommits(),
		FilesChanged: make([]domain.FileChange, 0, len(files)),
		AnalyzedAt:   now,
	}
	if analysis.Number == 0 {
		analysis.Number = number
	}

	var additions, deletions int
	for _, f := range files {
		change := domain.FileChange{
			Filename:         f.GetFilename(),
			Status:           normalizeStatus(f.GetStatus()),
			Additions:        f.GetAdditions(),
			Deletions:        f.GetDeletions(),
			Changes:          f.GetChanges(),
			Patch:            f.GetPatch(),
			PreviousFilename: f.GetPreviousFilename(),
			Language:         LanguageFor(f.GetFilename()),
		}
		additions += change.Additions
		deletions += change.Deletions
		analysis.FilesChanged = append(analysis.FilesChanged, change)
	}

	analysis.TotalAdditions = pr.GetAdditions()
	analysis.TotalDeletions = pr.GetDeletions()
	if analysis.TotalAdditions == 0 && analysis.TotalDeletions == 0 {
		analysis.TotalAdditions = additions
		analysis.TotalDeletions = deletions
	}
	return analysis
}

func normalizeStatus(status string) domain.FileStatus {
	switch status {
	case "added", "copied":
		return domain.FileAdded
	case "removed":
		return domain.FileRemoved
	case "renamed":
		return domain.FileRenamed
	default:
		return domain.FileModified
	}
}

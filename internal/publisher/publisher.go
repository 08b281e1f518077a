// Package publisher публикует результат ревью на удалённый хост и ведёт журнал
// опубликованных inline-комментариев, чтобы повторные прогоны не дублировали их.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"pr-review-engine/internal/analysis"
	"pr-review-engine/internal/domain"
	"pr-review-engine/internal/metrics"

	"github.com/sirupsen/logrus"
)

// CommentPoster: удалённая сторона публикации.
type CommentPoster interface {
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*domain.PostedComment, error)
	CreateReviewComment(ctx context.Context, owner, repo string, number int, commitSHA, path string, line int, body string) (*domain.PostedComment, error)
}

// Target определяет пул-реквест, в который публикуется ревью.
type Target struct {
	Owner     string
	Repo      string
	Number    int
	HeadSHA   string
	ProjectID string
}

type Config struct {
	// MaxCandidates ограничивает пул кандидатов в inline-комментарии.
	MaxCandidates int
	// MaxInline ограничивает число inline-комментариев за один проход.
	MaxInline   int
	MaxDetailed int
}

func DefaultConfig() Config {
	return Config{MaxCandidates: 50, MaxInline: 20, MaxDetailed: 10}
}

type Publisher struct {
	poster CommentPoster
	repo   domain.ReviewRepository
	cfg    Config
	logger *logrus.Logger
	now    func() time.Time
	locks  prLocks
}

// New создаёт Publisher. poster == nil означает, что публикация отключена.
func New(poster CommentPoster, repo domain.ReviewRepository, cfg Config, logger *logrus.Logger) *Publisher {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	defaults := DefaultConfig()
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = defaults.MaxCandidates
	}
	if cfg.MaxInline <= 0 {
		cfg.MaxInline = defaults.MaxInline
	}
	if cfg.MaxDetailed <= 0 {
		cfg.MaxDetailed = defaults.MaxDetailed
	}
	return &Publisher{
		poster: poster,
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Enabled сообщает, настроена ли публикация.
func (p *Publisher) Enabled() bool {
	return p.poster != nil
}

// Publish публикует сводку, детальный комментарий и новые inline-комментарии.
// Ошибки публикации логируются и подавляются, ошибки хранилища возвращаются.
func (p *Publisher) Publish(ctx context.Context, target Target, reviewID string, result *domain.CodeReviewResult) (*domain.PublishReport, error) {
	report := &domain.PublishReport{Inline: []domain.PostedCommentCoordinate{}}
	logEntry := p.logger.WithFields(logrus.Fields{
		"project":   target.ProjectID,
		"pr_number": target.Number,
		"review_id": reviewID,
	})

	if !p.Enabled() {
		report.Disabled = true
		logEntry.Info("Publishing disabled, no remote credential configured")
		return report, nil
	}

	// Чтение журнала и запись в него должны идти под одной блокировкой PR,
	// иначе параллельные доставки опубликуют одни и те же inline-комментарии.
	release, err := p.locks.acquire(ctx, fmt.Sprintf("%s#%d", target.ProjectID, target.Number))
	if err != nil {
		return report, err
	}
	defer release()

	report.Summary = p.postIssueComment(ctx, logEntry, target, "summary", summaryBody(result))

	ordered := analysis.SortBySeverity(result.Comments)
	if result.HasBlockingFindings() {
		report.Detailed = p.postIssueComment(ctx, logEntry, target, "detailed", detailedBody(ordered, p.cfg.MaxDetailed))
	}

	posted, err := p.repo.GetPostedInlineCommentCoordinates(ctx, target.ProjectID, target.Number)
	if err != nil {
		return report, wrapPersistence("read posted coordinates", err)
	}

	candidates, skipped := p.selectInline(ordered, posted)
	report.Skipped = skipped
	metrics.DuplicatesSkipped.Add(float64(skipped))

	for _, c := range candidates {
		remote, err := p.poster.CreateReviewComment(ctx, target.Owner, target.Repo, target.Number, target.HeadSHA, c.File, *c.Line, inlineBody(c))
		if err != nil {
			report.Failed++
			p.logPublishFailure(logEntry, &domain.PublishError{Kind: "inline", Err: err}, c)
			continue
		}
		metrics.CommentsPublished.WithLabelValues("inline", "posted").Inc()
		report.Inline = append(report.Inline, domain.PostedCommentCoordinate{
			File:            c.File,
			Line:            *c.Line,
			RemoteCommentID: remote.ID,
			URL:             remote.URL,
			PostedAt:        p.now().UTC(),
		})
	}

	if len(report.Inline) > 0 {
		if _, err := p.repo.MarkCommentsPosted(ctx, reviewID, report.Inline); err != nil {
			return report, wrapPersistence("mark comments posted", err)
		}
	}

	logEntry.WithFields(logrus.Fields{
		"inline_posted":      len(report.Inline),
		"skipped_duplicates": report.Skipped,
		"failed":             report.Failed,
	}).Info("Review published")
	return report, nil
}

// selectInline отбирает находки со строкой, которых ещё нет в журнале.
// ordered уже упорядочен по критичности; при повторе координаты побеждает первая находка.
func (p *Publisher) selectInline(ordered []domain.ReviewComment, posted map[string]struct{}) ([]domain.ReviewComment, int) {
	var candidates []domain.ReviewComment
	for _, c := range ordered {
		if c.Line != nil {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) > p.cfg.MaxCandidates {
		candidates = candidates[:p.cfg.MaxCandidates]
	}

	seen := make(map[string]struct{}, len(candidates))
	selected := make([]domain.ReviewComment, 0, p.cfg.MaxInline)
	skipped := 0
	for _, c := range candidates {
		key, _ := c.Coordinate()
		if _, ok := posted[key]; ok {
			skipped++
			continue
		}
		if _, ok := seen[key]; ok {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		if len(selected) < p.cfg.MaxInline {
			selected = append(selected, c)
		}
	}
	return selected, skipped
}

func (p *Publisher) postIssueComment(ctx context.Context, logEntry *logrus.Entry, target Target, kind, body string) *domain.PostedComment {
	comment, err := p.poster.CreateIssueComment(ctx, target.Owner, target.Repo, target.Number, body)
	if err != nil {
		metrics.CommentsPublished.WithLabelValues(kind, "failed").Inc()
		logEntry.WithError(&domain.PublishError{Kind: kind, Err: err}).Warn("Failed to publish comment")
		return nil
	}
	metrics.CommentsPublished.WithLabelValues(kind, "posted").Inc()
	return comment
}

func (p *Publisher) logPublishFailure(logEntry *logrus.Entry, err *domain.PublishError, c domain.ReviewComment) {
	metrics.CommentsPublished.WithLabelValues(err.Kind, "failed").Inc()
	key, _ := c.Coordinate()
	logEntry.WithError(err).WithField("coordinate", key).Warn("Failed to publish inline comment")
}

func wrapPersistence(op string, err error) error {
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		return fmt.Errorf("publish: %w", err)
	}
	return &domain.PersistenceError{Op: op, Err: err}
}

// prLocks выдаёт по одной блокировке на пул-реквест и удаляет её после последнего владельца.
type prLocks struct {
	mu    sync.Mutex
	locks map[string]*prLock
}

type prLock struct {
	sem  chan struct{}
	refs int
}

func (l *prLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*prLock)
	}
	pl, ok := l.locks[key]
	if !ok {
		pl = &prLock{sem: make(chan struct{}, 1)}
		l.locks[key] = pl
	}
	pl.refs++
	l.mu.Unlock()

	select {
	case pl.sem <- struct{}{}:
		return func() {
			<-pl.sem
			l.unref(key, pl)
		}, nil
	case <-ctx.Done():
		l.unref(key, pl)
		return nil, ctx.Err()
	}
}

func (l *prLocks) unref(key string, pl *prLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl.refs--
	if pl.refs == 0 {
		delete(l.locks, key)
	}
}

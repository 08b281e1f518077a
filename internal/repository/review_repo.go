package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pr-review-engine/internal/database"
	"pr-review-engine/internal/domain"

	"github.com/google/uuid"
)

// ReviewRepository хранит записи ревью и журнал опубликованных комментариев в PostgreSQL.
type ReviewRepository struct {
	db      *sql.DB
	queries *database.Queries
	now     func() time.Time
}

// NewReviewRepository создает новый экземпляр ReviewRepository.
func NewReviewRepository(db *sql.DB, queries *database.Queries) *ReviewRepository {
	return &ReviewRepository{
		db:      db,
		queries: queries,
		now:     time.Now,
	}
}

var _ domain.ReviewRepository = (*ReviewRepository)(nil)

// GetPostedInlineCommentCoordinates возвращает множество ключей file:line, уже опубликованных в PR.
func (r *ReviewRepository) GetPostedInlineCommentCoordinates(ctx context.Context, projectID string, prNumber int) (map[string]struct{}, error) {
	rows, err := r.queries.ListPostedComments(ctx, database.ListPostedCommentsParams{
		ProjectID: projectID,
		PrNumber:  int32(prNumber),
	})
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list posted comments", Err: err}
	}

	coordinates := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		coordinates[domain.CoordinateKey(row.File, int(row.Line))] = struct{}{}
	}
	return coordinates, nil
}

// SaveReview сохраняет запись ревью и возвращает её идентификатор.
func (r *ReviewRepository) SaveReview(ctx context.Context, record *domain.ReviewRecord) (string, error) {
	id := uuid.New()
	if record.ID != "" {
		parsed, err := uuid.Parse(record.ID)
		if err != nil {
			return "", &domain.PersistenceError{Op: "save review", Err: fmt.Errorf("invalid review id: %w", err)}
		}
		id = parsed
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}

	payload, err := json.Marshal(record.Result)
	if err != nil {
		return "", &domain.PersistenceError{Op: "save review", Err: fmt.Errorf("encode result: %w", err)}
	}

	saved, err := r.queries.CreateReview(ctx, database.CreateReviewParams{
		ID:             id,
		ProjectID:      record.ProjectID,
		PrNumber:       int32(record.PRNumber),
		HeadSha:        record.HeadSHA,
		Mode:           string(record.Mode),
		OverallScore:   record.Overall,
		RiskLevel:      string(record.Level),
		Recommendation: string(record.Recommendation),
		Result:         payload,
		CreatedAt:      record.CreatedAt,
	})
	if err != nil {
		return "", &domain.PersistenceError{Op: "save review", Err: err}
	}

	record.ID = saved.String()
	return record.ID, nil
}

// GetReview возвращает последнюю запись ревью для PR вместе с журналом комментариев.
func (r *ReviewRepository) GetReview(ctx context.Context, projectID string, prNumber int) (*domain.ReviewRecord, error) {
	row, err := r.queries.GetLatestReview(ctx, database.GetLatestReviewParams{
		ProjectID: projectID,
		PrNumber:  int32(prNumber),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, &domain.PersistenceError{Op: "get review", Err: err}
	}

	var result domain.CodeReviewResult
	if err := json.Unmarshal(row.Result, &result); err != nil {
		return nil, &domain.PersistenceError{Op: "get review", Err: fmt.Errorf("decode result: %w", err)}
	}

	posted, err := r.queries.ListPostedComments(ctx, database.ListPostedCommentsParams{
		ProjectID: projectID,
		PrNumber:  int32(prNumber),
	})
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list posted comments", Err: err}
	}

	record := &domain.ReviewRecord{
		ID:             row.ID.String(),
		ProjectID:      row.ProjectID,
		PRNumber:       int(row.PrNumber),
		HeadSHA:        row.HeadSha,
		Mode:           domain.AnalysisMode(row.Mode),
		Overall:        row.OverallScore,
		Level:          domain.RiskLevel(row.RiskLevel),
		Recommendation: domain.ApprovalRecommendation(row.Recommendation),
		Result:         &result,
		PostedComments: make([]domain.PostedCommentCoordinate, 0, len(posted)),
		CreatedAt:      row.CreatedAt,
	}
	for _, p := range posted {
		record.PostedComments = append(record.PostedComments, domain.PostedCommentCoordinate{
			File:            p.File,
			Line:            int(p.Line),
			RemoteCommentID: p.RemoteCommentID,
			URL:             p.Url,
			PostedAt:        p.PostedAt,
		})
	}
	return record, nil
}

// MarkCommentsPosted записывает опубликованные координаты в одной транзакции.
// Уже существующие координаты пропускаются, возвращается число новых записей.
func (r *ReviewRepository) MarkCommentsPosted(ctx context.Context, reviewID string, mappings []domain.PostedCommentCoordinate) (inserted int, err error) {
	if len(mappings) == 0 {
		return 0, nil
	}

	id, err := uuid.Parse(reviewID)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "mark comments posted", Err: fmt.Errorf("invalid review id: %w", err)}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "mark comments posted", Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txQueries := r.queries.WithTx(tx)

	scope, err := txQueries.GetReviewScope(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &domain.PersistenceError{Op: "mark comments posted", Err: domain.ErrReviewNotFound}
		}
		return 0, &domain.PersistenceError{Op: "mark comments posted", Err: err}
	}

	for _, m := range mappings {
		postedAt := m.PostedAt
		if postedAt.IsZero() {
			postedAt = r.now().UTC()
		}
		var n int64
		n, err = txQueries.InsertPostedComment(ctx, database.InsertPostedCommentParams{
			ReviewID:        id,
			ProjectID:       scope.ProjectID,
			PrNumber:        scope.PrNumber,
			File:            m.File,
			Line:            int32(m.Line),
			RemoteCommentID: m.RemoteCommentID,
			Url:             m.URL,
			PostedAt:        postedAt,
		})
		if err != nil {
			return 0, &domain.PersistenceError{Op: "mark comments posted", Err: fmt.Errorf("insert %s: %w", m.Key(), err)}
		}
		inserted += int(n)
	}

	if err = tx.Commit(); err != nil {
		return 0, &domain.PersistenceError{Op: "mark comments posted", Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}

	return inserted, nil
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pr-review-engine/internal/domain"

	"github.com/google/uuid"
)

type prKey struct {
	projectID string
	prNumber  int
}

// MemoryReviewRepository: хранилище в памяти процесса для локального запуска и тестов.
type MemoryReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]*domain.ReviewRecord
	latest  map[prKey]string
	ledger  map[prKey]map[string]domain.PostedCommentCoordinate
	now     func() time.Time
}

func NewMemoryReviewRepository() *MemoryReviewRepository {
	return &MemoryReviewRepository{
		reviews: make(map[string]*domain.ReviewRecord),
		latest:  make(map[prKey]string),
		ledger:  make(map[prKey]map[string]domain.PostedCommentCoordinate),
		now:     time.Now,
	}
}

var _ domain.ReviewRepository = (*MemoryReviewRepository)(nil)

func (r *MemoryReviewRepository) GetPostedInlineCommentCoordinates(ctx context.Context, projectID string, prNumber int) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.ledger[prKey{projectID, prNumber}]
	coordinates := make(map[string]struct{}, len(entries))
	for key := range entries {
		coordinates[key] = struct{}{}
	}
	return coordinates, nil
}

func (r *MemoryReviewRepository) SaveReview(ctx context.Context, record *domain.ReviewRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	} else if _, err := uuid.Parse(record.ID); err != nil {
		return "", &domain.PersistenceError{Op: "save review", Err: fmt.Errorf("invalid review id: %w", err)}
	}
	if _, exists := r.reviews[record.ID]; exists {
		return "", &domain.PersistenceError{Op: "save review", Err: fmt.Errorf("review %s already exists", record.ID)}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}

	stored := *record
	stored.PostedComments = nil
	r.reviews[record.ID] = &stored
	r.latest[prKey{record.ProjectID, record.PRNumber}] = record.ID
	return record.ID, nil
}

func (r *MemoryReviewRepository) GetReview(ctx context.Context, projectID string, prNumber int) (*domain.ReviewRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := prKey{projectID, prNumber}
	id, ok := r.latest[key]
	if !ok {
		return nil, domain.ErrReviewNotFound
	}

	record := *r.reviews[id]
	entries := r.ledger[key]
	record.PostedComments = make([]domain.PostedCommentCoordinate, 0, len(entries))
	for _, entry := range entries {
		record.PostedComments = append(record.PostedComments, entry)
	}
	sort.Slice(record.PostedComments, func(i, j int) bool {
		a, b := record.PostedComments[i], record.PostedComments[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	return &record, nil
}

func (r *MemoryReviewRepository) MarkCommentsPosted(ctx context.Context, reviewID string, mappings []domain.PostedCommentCoordinate) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(mappings) == 0 {
		return 0, nil
	}
	review, ok := r.reviews[reviewID]
	if !ok {
		return 0, &domain.PersistenceError{Op: "mark comments posted", Err: domain.ErrReviewNotFound}
	}

	key := prKey{review.ProjectID, review.PRNumber}
	entries, ok := r.ledger[key]
	if !ok {
		entries = make(map[string]domain.PostedCommentCoordinate)
		r.ledger[key] = entries
	}

	inserted := 0
	for _, m := range mappings {
		if _, exists := entries[m.Key()]; exists {
			continue
		}
		if m.PostedAt.IsZero() {
			m.PostedAt = r.now().UTC()
		}
		entries[m.Key()] = m
		inserted++
	}
	return inserted, nil
}

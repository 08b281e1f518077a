package domain

import (
	"errors"
	"fmt"
)

// Доменные ошибки
var (
	// Validation errors
	ErrInvalidPayload       = errors.New("invalid pull request event payload")
	ErrInvalidRepository    = errors.New("repository must be in owner/repo form")
	ErrInvalidPRNumber      = errors.New("invalid pull request number")
	ErrInvalidScoringConfig = errors.New("invalid scoring configuration")

	// Review errors
	ErrReviewNotFound = errors.New("review not found")

	// Remote host errors
	ErrRateLimitExhausted = errors.New("remote rate limit exhausted")
	ErrPublishingDisabled = errors.New("publishing disabled: no remote credential configured")
)

// FetchError возвращается при ответе удалённого хоста со статусом вне 2xx.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: remote returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AnalysisError описывает некорректные данные одного файла. Не фатальна.
type AnalysisError struct {
	File string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze %s: %v", e.File, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// PublishError описывает сбой публикации комментария. Логируется и подавляется.
type PublishError struct {
	Kind string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s comment: %v", e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// PersistenceError описывает сбой хранилища. Пробрасывается вызывающему.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// HTTPError для ответов API
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error HTTPError `json:"error"`
}

// Маппинг domain ошибок в HTTP ошибки
var ErrorMapping = map[error]HTTPError{
	ErrInvalidPayload:     {Code: "INVALID_PAYLOAD", Message: "pull request event payload is malformed"},
	ErrInvalidRepository:  {Code: "INVALID_PAYLOAD", Message: "repository.full_name must be owner/repo"},
	ErrInvalidPRNumber:    {Code: "INVALID_PAYLOAD", Message: "pull request number must be positive"},
	ErrReviewNotFound:     {Code: "NOT_FOUND", Message: "review not found"},
	ErrRateLimitExhausted: {Code: "RATE_LIMITED", Message: "remote API rate limit exhausted"},
}

// ToHTTPError преобразует domain ошибку в HTTP ошибку
func ToHTTPError(err error) (HTTPError, bool) {
	for target, httpErr := range ErrorMapping {
		if errors.Is(err, target) {
			return httpErr, true
		}
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return HTTPError{Code: "FETCH_FAILED", Message: fetchErr.Error()}, true
	}
	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		return HTTPError{Code: "STORAGE_FAILED", Message: persistErr.Error()}, true
	}
	return HTTPError{}, false
}

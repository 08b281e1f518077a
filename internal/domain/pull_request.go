package domain

import (
	"strings"
	"time"
)

// FileStatus описывает тип изменения файла в пул-реквесте.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileRemoved  FileStatus = "removed"
	FileRenamed  FileStatus = "renamed"
)

// FileChange представляет один изменённый файл пул-реквеста.
type FileChange struct {
	Filename         string     `json:"filename"`
	Status           FileStatus `json:"status"`
	Additions        int        `json:"additions"`
	Deletions        int        `json:"deletions"`
	Changes          int        `json:"changes"`
	Patch            string     `json:"patch,omitempty"`
	PreviousFilename string     `json:"previous_filename,omitempty"`
	// Language пустой, если расширение не распознано.
	Language string `json:"language,omitempty"`
}

// PRAnalysis представляет снимок пул-реквеста, полученный с удалённого хоста.
// Создаётся заново при каждом получении и напрямую не сохраняется.
type PRAnalysis struct {
	Number         int          `json:"pr_number"`
	Repository     string       `json:"repository"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Author         string       `json:"author"`
	HeadBranch     string       `json:"head_branch"`
	BaseBranch     string       `json:"base_branch"`
	HeadSHA        string       `json:"head_sha"`
	FilesChanged   []FileChange `json:"files_changed"`
	TotalAdditions int          `json:"total_additions"`
	TotalDeletions int          `json:"total_deletions"`
	Commits        int          `json:"commits"`
	AnalyzedAt     time.Time    `json:"analyzed_at"`
}

// PullRequestEvent представляет входящее событие вебхука pull_request.
type PullRequestEvent struct {
	Action      string           `json:"action"`
	Number      int              `json:"number"`
	PullRequest EventPullRequest `json:"pull_request"`
	Repository  EventRepository  `json:"repository"`
}

type EventPullRequest struct {
	Number int          `json:"number"`
	Head   EventHeadRef `json:"head"`
}

type EventHeadRef struct {
	SHA string `json:"sha"`
}

type EventRepository struct {
	FullName string `json:"full_name"`
}

// IsActionSupported сообщает, нужно ли запускать ревью для события.
func (e PullRequestEvent) IsActionSupported() bool {
	action := strings.ToLower(e.Action)
	return action == "opened" || action == "synchronize"
}

// PRNumber возвращает номер PR, предпочитая значение из pull_request.
func (e PullRequestEvent) PRNumber() int {
	if e.PullRequest.Number > 0 {
		return e.PullRequest.Number
	}
	return e.Number
}

// SplitRepository разбирает full_name вида owner/repo.
func SplitRepository(fullName string) (owner, repo string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidRepository
	}
	return parts[0], parts[1], nil
}

package task

import (
	"context"
	"errors"
	"time"
)

// Task is the persisted record for one submission and the unit of pipeline
// work. nonce is globally unique; (nonce, round) is the logical submission
// key. RepoURL, CommitSHA and PagesURL are write-once: each is set by the
// step that produced it and never overwritten.
type Task struct {
	ID            int64      `json:"id"`
	Nonce         string     `json:"nonce"`
	Round         int        `json:"round"`
	Email         string     `json:"email"`
	TaskName      string     `json:"task"`
	Brief         string     `json:"brief,omitempty"`
	EvaluationURL string     `json:"evaluation_url,omitempty"`
	Status        Status     `json:"status"`
	RepoURL       string     `json:"repo_url,omitempty"`
	CommitSHA     string     `json:"commit_sha,omitempty"`
	PagesURL      string     `json:"pages_url,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ReceivedAt    time.Time  `json:"received_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ErrDuplicateNonce is returned by Create when a task with the same nonce
// already exists. The caller resolves it by re-reading the existing row.
var ErrDuplicateNonce = errors.New("task with this nonce already exists")

// ErrNotFound is returned by lookups that match no task.
var ErrNotFound = errors.New("task not found")

// ErrInvalidTransition is returned by SetStatus when the requested move is
// not in the transition table or the row is no longer in the expected state.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the contract for task persistence. SetStatus and the result
// setters are guarded: SetStatus only succeeds if the row is still in the
// given prior state and the move is allowed by the transition table; result
// setters only write a column that is still unset.
type Store interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	GetByNonce(ctx context.Context, nonce string) (*Task, error)
	SetStatus(ctx context.Context, id int64, from, to Status) error
	SetRepoURL(ctx context.Context, id int64, repoURL string) error
	SetCommitSHA(ctx context.Context, id int64, sha string) error
	SetPagesURL(ctx context.Context, id int64, pagesURL string) error
	MarkComplete(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, msg string) error
	EnsureTable(ctx context.Context) error
}

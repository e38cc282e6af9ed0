package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed task store. The UNIQUE index on nonce is
// what resolves the gatekeeper's duplicate-insert race: the second insert
// fails with a unique violation and the caller re-reads the winner's row.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id             BIGSERIAL PRIMARY KEY,
			nonce          TEXT NOT NULL UNIQUE,
			round          INTEGER NOT NULL,
			email          TEXT NOT NULL,
			task_name      TEXT NOT NULL,
			brief          TEXT NOT NULL DEFAULT '',
			evaluation_url TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'RECEIVED',
			repo_url       TEXT,
			commit_sha     TEXT,
			pages_url      TEXT,
			error_message  TEXT NOT NULL DEFAULT '',
			received_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at   TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	return err
}

const taskColumns = `id, nonce, round, email, task_name, brief, evaluation_url, status,
	repo_url, commit_sha, pages_url, error_message, received_at, completed_at`

// Create inserts a new task at RECEIVED. A unique violation on nonce is
// reported as ErrDuplicateNonce.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	if t.Status == "" {
		t.Status = StatusReceived
	}
	t.ReceivedAt = time.Now().Truncate(time.Microsecond)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (nonce, round, email, task_name, brief, evaluation_url, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		t.Nonce, t.Round, t.Email, t.TaskName, t.Brief, t.EvaluationURL, t.Status, t.ReceivedAt).
		Scan(&t.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateNonce
		}
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Get retrieves a single task by ID.
func (s *PgStore) Get(ctx context.Context, id int64) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

// GetByNonce retrieves a single task by its unique nonce.
func (s *PgStore) GetByNonce(ctx context.Context, nonce string) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE nonce = $1`, nonce)
	return scanTask(row)
}

// SetStatus moves a task from one status to another. The UPDATE is guarded
// on the previous status so a row that has already advanced (or reached a
// terminal state) is never moved backwards.
func (s *PgStore) SetStatus(ctx context.Context, id int64, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("set status %s -> %s for task %d: %w", from, to, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %d is not in %s", ErrInvalidTransition, id, from)
	}
	return nil
}

// SetRepoURL records the provisioned repository URL. Write-once.
func (s *PgStore) SetRepoURL(ctx context.Context, id int64, repoURL string) error {
	return s.setOnce(ctx, id, "repo_url", repoURL)
}

// SetCommitSHA records the pushed commit identifier. Write-once.
func (s *PgStore) SetCommitSHA(ctx context.Context, id int64, sha string) error {
	return s.setOnce(ctx, id, "commit_sha", sha)
}

// SetPagesURL records the publication URL. Write-once.
func (s *PgStore) SetPagesURL(ctx context.Context, id int64, pagesURL string) error {
	return s.setOnce(ctx, id, "pages_url", pagesURL)
}

func (s *PgStore) setOnce(ctx context.Context, id int64, column, value string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET `+column+` = $1 WHERE id = $2 AND `+column+` IS NULL`, value, id)
	if err != nil {
		return fmt.Errorf("set %s for task %d: %w", column, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set %s for task %d: already set or no such task", column, id)
	}
	return nil
}

// MarkComplete moves a task from NOTIFY_EVALUATOR to COMPLETE and stamps
// completed_at.
func (s *PgStore) MarkComplete(ctx context.Context, id int64) error {
	now := time.Now().Truncate(time.Microsecond)
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4`,
		StatusComplete, now, id, StatusNotifyEvaluator)
	if err != nil {
		return fmt.Errorf("complete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %d is not in %s", ErrInvalidTransition, id, StatusNotifyEvaluator)
	}
	return nil
}

// MarkFailed moves a task to FAILED with an error message. Terminal rows are
// left untouched.
func (s *PgStore) MarkFailed(ctx context.Context, id int64, msg string) error {
	now := time.Now().Truncate(time.Microsecond)
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4 AND status NOT IN ($5, $6)`,
		StatusFailed, msg, now, id, StatusComplete, StatusFailed)
	if err != nil {
		return fmt.Errorf("fail task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %d is already terminal", ErrInvalidTransition, id)
	}
	return nil
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var repoURL, commitSHA, pagesURL sql.NullString
	err := row.Scan(&t.ID, &t.Nonce, &t.Round, &t.Email, &t.TaskName, &t.Brief, &t.EvaluationURL,
		&t.Status, &repoURL, &commitSHA, &pagesURL, &t.ErrorMessage, &t.ReceivedAt, &t.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.RepoURL = repoURL.String
	t.CommitSHA = commitSHA.String
	t.PagesURL = pagesURL.String
	return &t, nil
}

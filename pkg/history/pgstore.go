package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/23F3003943/student-api-server/pkg/task"
)

// PgStore is a PostgreSQL-backed transition log.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the task_history table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS task_history (
			id          BIGSERIAL PRIMARY KEY,
			task_id     BIGINT NOT NULL,
			from_status TEXT NOT NULL,
			to_status   TEXT NOT NULL,
			note        TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_task_history_task ON task_history(task_id)`)
	return err
}

// Append records one transition.
func (s *PgStore) Append(ctx context.Context, taskID int64, from, to task.Status, note string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO task_history (task_id, from_status, to_status, note, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		taskID, from, to, note, time.Now().Truncate(time.Microsecond))
	if err != nil {
		return fmt.Errorf("append history for task %d: %w", taskID, err)
	}
	return nil
}

// ByTask returns all transitions for a task in insertion order.
func (s *PgStore) ByTask(ctx context.Context, taskID int64) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, from_status, to_status, note, created_at
		FROM task_history WHERE task_id = $1 ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("history for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.From, &e.To, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return entries, nil
}

// Package history records every status transition a task goes through as an
// append-only log. A task observed in FAILED is the only failure signal the
// submitter gets, so the log is what makes that signal explainable.
package history

import (
	"context"
	"time"

	"github.com/23F3003943/student-api-server/pkg/task"
)

// Entry is one recorded status transition.
type Entry struct {
	ID        int64       `json:"id"`
	TaskID    int64       `json:"task_id"`
	From      task.Status `json:"from"`
	To        task.Status `json:"to"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Store is the contract for transition-log persistence.
type Store interface {
	Append(ctx context.Context, taskID int64, from, to task.Status, note string) error
	ByTask(ctx context.Context, taskID int64) ([]Entry, error)
	EnsureTable(ctx context.Context) error
}

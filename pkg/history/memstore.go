package history

import (
	"context"
	"sync"
	"time"

	"github.com/23F3003943/student-api-server/pkg/task"
)

// MemStore is an in-memory transition log for tests and database-less runs.
type MemStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []Entry
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

// Append records one transition.
func (s *MemStore) Append(_ context.Context, taskID int64, from, to task.Status, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		ID:        s.nextID,
		TaskID:    taskID,
		From:      from,
		To:        to,
		Note:      note,
		CreatedAt: time.Now(),
	})
	s.nextID++
	return nil
}

// ByTask returns all transitions for a task in insertion order.
func (s *MemStore) ByTask(_ context.Context, taskID int64) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

// EnsureTable is a no-op for the in-memory store.
func (s *MemStore) EnsureTable(_ context.Context) error { return nil }

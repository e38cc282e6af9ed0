package task

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory task store with the same guarded semantics as
// PgStore. It backs tests and local runs without a database.
type MemStore struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*Task
	byNonce map[string]int64
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		nextID:  1,
		byID:    make(map[int64]*Task),
		byNonce: make(map[string]int64),
	}
}

// Create inserts a new task, returning ErrDuplicateNonce if the nonce is
// already taken.
func (s *MemStore) Create(_ context.Context, t *Task) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byNonce[t.Nonce]; ok {
		return nil, ErrDuplicateNonce
	}
	cp := *t
	cp.ID = s.nextID
	s.nextID++
	if cp.Status == "" {
		cp.Status = StatusReceived
	}
	cp.ReceivedAt = time.Now()
	s.byID[cp.ID] = &cp
	s.byNonce[cp.Nonce] = cp.ID
	out := cp
	return &out, nil
}

// Get retrieves a task copy by ID.
func (s *MemStore) Get(_ context.Context, id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// GetByNonce retrieves a task copy by nonce.
func (s *MemStore) GetByNonce(_ context.Context, nonce string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byNonce[nonce]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

// SetStatus performs a guarded transition, mirroring PgStore's
// compare-and-set on the previous status.
func (s *MemStore) SetStatus(_ context.Context, id int64, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok || t.Status != from {
		return fmt.Errorf("%w: task %d is not in %s", ErrInvalidTransition, id, from)
	}
	t.Status = to
	return nil
}

// SetRepoURL records the repository URL. Write-once.
func (s *MemStore) SetRepoURL(_ context.Context, id int64, repoURL string) error {
	return s.setOnce(id, "repo_url", repoURL, func(t *Task) *string { return &t.RepoURL })
}

// SetCommitSHA records the commit identifier. Write-once.
func (s *MemStore) SetCommitSHA(_ context.Context, id int64, sha string) error {
	return s.setOnce(id, "commit_sha", sha, func(t *Task) *string { return &t.CommitSHA })
}

// SetPagesURL records the publication URL. Write-once.
func (s *MemStore) SetPagesURL(_ context.Context, id int64, pagesURL string) error {
	return s.setOnce(id, "pages_url", pagesURL, func(t *Task) *string { return &t.PagesURL })
}

func (s *MemStore) setOnce(id int64, name, value string, field func(*Task) *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("set %s for task %d: no such task", name, id)
	}
	f := field(t)
	if *f != "" {
		return fmt.Errorf("set %s for task %d: already set", name, id)
	}
	*f = value
	return nil
}

// MarkComplete moves NOTIFY_EVALUATOR to COMPLETE and stamps completed_at.
func (s *MemStore) MarkComplete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok || t.Status != StatusNotifyEvaluator {
		return fmt.Errorf("%w: task %d is not in %s", ErrInvalidTransition, id, StatusNotifyEvaluator)
	}
	now := time.Now()
	t.Status = StatusComplete
	t.CompletedAt = &now
	return nil
}

// MarkFailed moves a non-terminal task to FAILED with an error message.
func (s *MemStore) MarkFailed(_ context.Context, id int64, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok || IsTerminal(t.Status) {
		return fmt.Errorf("%w: task %d is already terminal", ErrInvalidTransition, id)
	}
	now := time.Now()
	t.Status = StatusFailed
	t.ErrorMessage = msg
	t.CompletedAt = &now
	return nil
}

// EnsureTable is a no-op for the in-memory store.
func (s *MemStore) EnsureTable(_ context.Context) error { return nil }

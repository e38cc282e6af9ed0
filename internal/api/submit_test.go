package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/23F3003943/student-api-server/pkg/history"
	"github.com/23F3003943/student-api-server/pkg/task"
)

// recordQueue captures scheduled task IDs.
type recordQueue struct {
	mu  sync.Mutex
	ids []int64
}

func (q *recordQueue) Enqueue(_ context.Context, taskID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, taskID)
	return nil
}

func (q *recordQueue) scheduled() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]int64, len(q.ids))
	copy(out, q.ids)
	return out
}

const testSecret = "s3cret"

func newTestServer() (*Server, *task.MemStore, *recordQueue) {
	tasks := task.NewMemStore()
	q := &recordQueue{}
	return New(tasks, history.NewMemStore(), q, testSecret), tasks, q
}

func submit(t *testing.T, s *Server, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api-endpoint", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func validSubmission() map[string]any {
	return map[string]any{
		"nonce":  "n-001",
		"round":  1,
		"secret": testSecret,
		"task":   "portfolio",
		"email":  "a@example.com",
		"brief":  "Hello",
	}
}

func TestSubmitAccepted(t *testing.T) {
	s, tasks, q := newTestServer()

	rec := submit(t, s, validSubmission())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != task.StatusReceived || resp.Task != "portfolio" || resp.Nonce != "n-001" {
		t.Errorf("response = %+v", resp)
	}

	row, err := tasks.GetByNonce(context.Background(), "n-001")
	if err != nil {
		t.Fatalf("row not created: %v", err)
	}
	if row.Status != task.StatusReceived {
		t.Errorf("row status = %s", row.Status)
	}
	if got := q.scheduled(); len(got) != 1 || got[0] != row.ID {
		t.Errorf("scheduled = %v, want [%d]", got, row.ID)
	}
}

func TestSubmitBadSecret(t *testing.T) {
	s, tasks, q := newTestServer()

	body := validSubmission()
	body["secret"] = "wrong"
	rec := submit(t, s, body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if _, err := tasks.GetByNonce(context.Background(), "n-001"); err == nil {
		t.Error("row created despite bad secret")
	}
	if len(q.scheduled()) != 0 {
		t.Error("pipeline scheduled despite bad secret")
	}
}

func TestSubmitMissingFields(t *testing.T) {
	s, _, _ := newTestServer()

	body := validSubmission()
	delete(body, "nonce")
	rec := submit(t, s, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestResubmitAfterCompleteEchoesStoredResult(t *testing.T) {
	s, tasks, q := newTestServer()

	rec := submit(t, s, validSubmission())
	if rec.Code != http.StatusOK {
		t.Fatalf("first submit: %d", rec.Code)
	}
	row, _ := tasks.GetByNonce(context.Background(), "n-001")

	// Drive the row to COMPLETE with a recorded result.
	ctx := context.Background()
	for st := task.StatusReceived; st != task.StatusNotifyEvaluator; st = task.Next(st) {
		if err := tasks.SetStatus(ctx, row.ID, st, task.Next(st)); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if err := tasks.SetPagesURL(ctx, row.ID, "https://a.example.io/n-001/"); err != nil {
		t.Fatal(err)
	}
	if err := tasks.MarkComplete(ctx, row.ID); err != nil {
		t.Fatal(err)
	}

	rec = submit(t, s, validSubmission())
	if rec.Code != http.StatusOK {
		t.Fatalf("resubmit: %d", rec.Code)
	}
	var resp ackResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != task.StatusComplete || resp.Task != "portfolio" || resp.Nonce != "n-001" {
		t.Errorf("resubmit response = %+v", resp)
	}
	if got := q.scheduled(); len(got) != 1 {
		t.Errorf("resubmission scheduled a second run: %v", got)
	}
}

func TestDuplicateInFlightEchoesWinner(t *testing.T) {
	s, tasks, q := newTestServer()

	rec := submit(t, s, validSubmission())
	if rec.Code != http.StatusOK {
		t.Fatalf("first submit: %d", rec.Code)
	}

	// Same nonce again while the first run is still RECEIVED.
	rec = submit(t, s, validSubmission())
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate submit: %d, body %s", rec.Code, rec.Body.String())
	}
	var resp ackResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != task.StatusReceived || resp.Nonce != "n-001" {
		t.Errorf("duplicate response = %+v", resp)
	}

	row, _ := tasks.GetByNonce(context.Background(), "n-001")
	if got := q.scheduled(); len(got) != 1 || got[0] != row.ID {
		t.Errorf("scheduled = %v, want exactly one run for %d", got, row.ID)
	}
}

func TestConcurrentDuplicatesSingleRowSingleRun(t *testing.T) {
	s, tasks, q := newTestServer()

	const n = 12
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := submit(t, s, validSubmission())
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: status %d", i, code)
		}
	}
	row, err := tasks.GetByNonce(context.Background(), "n-001")
	if err != nil {
		t.Fatalf("no row: %v", err)
	}
	if got := q.scheduled(); len(got) != 1 || got[0] != row.ID {
		t.Errorf("scheduled = %v, want exactly one run", got)
	}
}

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/23F3003943/student-api-server/pkg/task"
)

// Notifier posts the final result to the submission's evaluation callback
// with bounded exponential-backoff retry.
type Notifier struct {
	HTTP           *http.Client
	Clock          Clock
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Deadline       time.Duration // measured from pipeline start, not first attempt
}

// NewNotifier creates a Notifier with the production retry discipline:
// delays of 2, 4, 8 then 16 seconds, within a 10 minute budget.
func NewNotifier(clock Clock) *Notifier {
	return &Notifier{
		HTTP:           &http.Client{Timeout: 10 * time.Second},
		Clock:          clock,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     16 * time.Second,
		Deadline:       600 * time.Second,
	}
}

// evaluationPayload is the outbound result body.
type evaluationPayload struct {
	Email     string `json:"email"`
	Task      string `json:"task"`
	Round     int    `json:"round"`
	Nonce     string `json:"nonce"`
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}

// Notify posts the task's result until a 200 lands or the deadline passes.
// All result fields and the callback URL must be present; anything missing
// fails fast. Non-200 responses and transport errors are retryable.
func (n *Notifier) Notify(ctx context.Context, t *task.Task, deadline time.Time) error {
	if t.RepoURL == "" || t.CommitSHA == "" || t.PagesURL == "" {
		return fmt.Errorf("missing result fields for evaluation notification")
	}
	if t.EvaluationURL == "" {
		return fmt.Errorf("no evaluation_url on task %s", t.Nonce)
	}

	body, err := json.Marshal(evaluationPayload{
		Email:     t.Email,
		Task:      t.TaskName,
		Round:     t.Round,
		Nonce:     t.Nonce,
		RepoURL:   t.RepoURL,
		CommitSHA: t.CommitSHA,
		PagesURL:  t.PagesURL,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	backoff := n.InitialBackoff
	for {
		lastErr := n.post(ctx, t.EvaluationURL, body)
		if lastErr == nil {
			return nil
		}
		if !n.Clock.Now().Before(deadline) {
			return fmt.Errorf("notification deadline exceeded, last attempt: %w", lastErr)
		}
		if err := n.Clock.Sleep(ctx, backoff); err != nil {
			return err
		}
		if backoff *= 2; backoff > n.MaxBackoff {
			backoff = n.MaxBackoff
		}
		if !n.Clock.Now().Before(deadline) {
			return fmt.Errorf("notification deadline exceeded, last attempt: %w", lastErr)
		}
	}
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("evaluator responded %d", resp.StatusCode)
	}
	return nil
}

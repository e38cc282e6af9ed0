// Package github talks to the hosting provider: repository creation and
// Pages publication over the REST API, content push via the git binary.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/23F3003943/student-api-server/pkg/task"
)

// Client calls the provider's REST API. BaseURL is injectable so tests can
// point it at a local server.
type Client struct {
	Token   string
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Client for api.github.com.
func NewClient(token string) *Client {
	return &Client{
		Token:   token,
		BaseURL: "https://api.github.com",
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateRepoResult distinguishes a provisioned repository from a skipped
// provisioning (no credential configured).
type CreateRepoResult struct {
	CloneURL string
	Skipped  bool
}

// CreateRepo creates a new public repository named from the task's nonce and
// round plus a random suffix, and returns its clone URL. Without a token
// there is nothing to do and the result is marked Skipped.
func (c *Client) CreateRepo(ctx context.Context, t *task.Task) (CreateRepoResult, error) {
	if c.Token == "" {
		return CreateRepoResult{Skipped: true}, nil
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	body := map[string]any{
		"name":        fmt.Sprintf("student-task-%s-%d-%s", t.Nonce, t.Round, suffix),
		"description": fmt.Sprintf("Auto-generated repo for task %s", t.TaskName),
		"private":     false,
	}

	var resp struct {
		CloneURL string `json:"clone_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/repos", body, &resp); err != nil {
		return CreateRepoResult{}, fmt.Errorf("create repo: %w", err)
	}
	if resp.CloneURL == "" {
		return CreateRepoResult{}, fmt.Errorf("create repo: response carried no clone_url")
	}
	return CreateRepoResult{CloneURL: resp.CloneURL}, nil
}

// EnablePages turns on Pages for the main branch root and provisions the
// companion gh-pages branch. Missing prerequisites are hard errors here:
// downstream verification depends on this step having really run.
func (c *Client) EnablePages(ctx context.Context, repoURL string) error {
	if c.Token == "" {
		return fmt.Errorf("enable pages: no provisioning credential configured")
	}
	owner, repo, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return fmt.Errorf("enable pages: %w", err)
	}

	pagesPath := fmt.Sprintf("/repos/%s/%s/pages", owner, repo)
	pagesBody := map[string]any{
		"source": map[string]string{"branch": "main", "path": "/"},
	}
	if err := c.do(ctx, http.MethodPost, pagesPath, pagesBody, nil); err != nil {
		return fmt.Errorf("enable pages for %s/%s: %w", owner, repo, err)
	}

	// Companion publication branch, cut from main's current head.
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	refPath := fmt.Sprintf("/repos/%s/%s/git/ref/heads/main", owner, repo)
	if err := c.do(ctx, http.MethodGet, refPath, nil, &ref); err != nil {
		return fmt.Errorf("read main ref for %s/%s: %w", owner, repo, err)
	}
	createRef := fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo)
	refBody := map[string]any{"ref": "refs/heads/gh-pages", "sha": ref.Object.SHA}
	if err := c.do(ctx, http.MethodPost, createRef, refBody, nil); err != nil {
		return fmt.Errorf("create gh-pages ref for %s/%s: %w", owner, repo, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ParseOwnerRepo extracts "owner" and "repo" from a github.com clone URL.
func ParseOwnerRepo(repoURL string) (owner, repo string, err error) {
	const marker = "github.com/"
	i := strings.Index(repoURL, marker)
	if i < 0 {
		return "", "", fmt.Errorf("not a github.com URL: %q", repoURL)
	}
	full := strings.TrimSuffix(repoURL[i+len(marker):], ".git")
	parts := strings.Split(full, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot split owner/repo from %q", repoURL)
	}
	return parts[0], parts[1], nil
}

// PagesURL computes the expected publication URL for a clone URL.
func PagesURL(repoURL string) (string, error) {
	owner, repo, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.github.io/%s/", owner, repo), nil
}

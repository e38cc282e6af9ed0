package github

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Pusher pushes a generated working tree to a provisioned repository with
// the git binary, embedding the token in the https push URL.
type Pusher struct {
	Token string
}

// Push initializes a repository in dir, commits everything as the submitter,
// and pushes to repoURL's main branch. It returns the resulting commit SHA.
// Any subprocess failure is a hard error; nothing is swallowed.
func (p *Pusher) Push(ctx context.Context, dir, repoURL, authorEmail, message string) (string, error) {
	pushURL := repoURL
	if p.Token != "" && strings.HasPrefix(repoURL, "https://") {
		pushURL = "https://" + p.Token + "@" + strings.TrimPrefix(repoURL, "https://")
	}

	cmds := [][]string{
		{"git", "init", "-b", "main"},
		{"git", "config", "user.email", authorEmail},
		{"git", "config", "user.name", authorEmail},
		{"git", "add", "."},
		{"git", "commit", "-m", message},
		{"git", "remote", "add", "origin", pushURL},
		{"git", "push", "-u", "origin", "main"},
	}
	for _, args := range cmds {
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_EMAIL="+authorEmail,
			"GIT_COMMITTER_EMAIL="+authorEmail,
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("%s: %w\n%s", redact(args, p.Token), err, redact([]string{string(out)}, p.Token))
		}
	}

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w\n%s", err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// redact keeps the credential out of error messages and logs.
func redact(args []string, token string) string {
	joined := strings.Join(args, " ")
	if token == "" {
		return joined
	}
	return strings.ReplaceAll(joined, token, "***")
}

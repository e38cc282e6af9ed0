// Package pipeline drives one accepted submission through provisioning,
// publication, verification and evaluator notification as an ordered state
// machine, persisting status to the task store after every transition.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/23F3003943/student-api-server/pkg/github"
	"github.com/23F3003943/student-api-server/pkg/history"
	"github.com/23F3003943/student-api-server/pkg/task"
)

// Host provisions repositories and publication on the hosting provider.
type Host interface {
	CreateRepo(ctx context.Context, t *task.Task) (github.CreateRepoResult, error)
	EnablePages(ctx context.Context, repoURL string) error
}

// ContentPusher pushes a generated working tree and returns the commit SHA.
type ContentPusher interface {
	Push(ctx context.Context, dir, repoURL, authorEmail, message string) (string, error)
}

// Executor runs task pipelines. One Run owns its task row exclusively; steps
// execute strictly sequentially with no internal parallelism.
type Executor struct {
	tasks    task.Store
	hist     history.Store
	host     Host
	pusher   ContentPusher
	clock    Clock
	verifier *Verifier
	notifier *Notifier
}

// New creates an Executor. A nil clock means real time.
func New(tasks task.Store, hist history.Store, host Host, pusher ContentPusher, clock Clock) *Executor {
	if clock == nil {
		clock = realClock{}
	}
	return &Executor{
		tasks:    tasks,
		hist:     hist,
		host:     host,
		pusher:   pusher,
		clock:    clock,
		verifier: NewVerifier(clock),
		notifier: NewNotifier(clock),
	}
}

// Verifier exposes the deployment verifier for tuning.
func (e *Executor) Verifier() *Verifier { return e.verifier }

// Notifier exposes the evaluator notifier for tuning.
func (e *Executor) Notifier() *Notifier { return e.notifier }

// Run executes the whole pipeline for one task ID. Errors never propagate:
// there is no synchronous caller to report to, so any step failure lands in
// the task row as FAILED plus a message. Redelivered or already-terminal IDs
// are ignored, which keeps at-least-once queue delivery safe.
func (e *Executor) Run(ctx context.Context, taskID int64) {
	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		log.Printf("pipeline: load task %d: %v", taskID, err)
		return
	}
	if t.Status != task.StatusReceived {
		log.Printf("pipeline: task %d (%s) is in %s, not RECEIVED; skipping", t.ID, t.Nonce, t.Status)
		return
	}

	log.Printf("pipeline: task %d (%s) starting", t.ID, t.Nonce)
	notifyDeadline := e.clock.Now().Add(e.notifier.Deadline)

	if err := e.run(ctx, t, notifyDeadline); err != nil {
		log.Printf("pipeline: task %d (%s) failed: %v", t.ID, t.Nonce, err)
		if ferr := e.tasks.MarkFailed(ctx, t.ID, err.Error()); ferr != nil {
			log.Printf("pipeline: mark task %d failed: %v", t.ID, ferr)
			return
		}
		e.record(ctx, t.ID, t.Status, task.StatusFailed, err.Error())
		return
	}
	log.Printf("pipeline: task %d (%s) complete", t.ID, t.Nonce)
}

func (e *Executor) run(ctx context.Context, t *task.Task, notifyDeadline time.Time) error {
	// GENERATING_PROJECT: materialize the content set into a scratch dir
	// scoped to this run.
	if err := e.advance(ctx, t, task.StatusGeneratingProject); err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", "student-task-*")
	if err != nil {
		return stepErr(task.StatusGeneratingProject, ErrGeneration, err)
	}
	defer os.RemoveAll(dir)
	if err := writeProjectFiles(dir, t, e.clock.Now()); err != nil {
		return stepErr(task.StatusGeneratingProject, ErrGeneration, err)
	}

	// CREATE_REPO: a missing credential is an explicit skip, not a failure.
	if err := e.advance(ctx, t, task.StatusCreateRepo); err != nil {
		return err
	}
	repo, err := e.host.CreateRepo(ctx, t)
	if err != nil {
		return stepErr(task.StatusCreateRepo, ErrProvisioning, err)
	}
	if repo.Skipped {
		log.Printf("pipeline: task %d: no provisioning credential, repo creation skipped", t.ID)
	} else {
		if err := e.tasks.SetRepoURL(ctx, t.ID, repo.CloneURL); err != nil {
			return stepErr(task.StatusCreateRepo, ErrProvisioning, err)
		}
		t.RepoURL = repo.CloneURL
	}

	// PUSH_COMMIT: skipped when provisioning was skipped; any push failure
	// is hard.
	if err := e.advance(ctx, t, task.StatusPushCommit); err != nil {
		return err
	}
	if t.RepoURL == "" {
		log.Printf("pipeline: task %d: no repository, push skipped", t.ID)
	} else {
		msg := fmt.Sprintf("chore: initial commit for %s (nonce: %s)", t.TaskName, t.Nonce)
		sha, err := e.pusher.Push(ctx, dir, t.RepoURL, t.Email, msg)
		if err != nil {
			return stepErr(task.StatusPushCommit, ErrProvisioning, err)
		}
		if err := e.tasks.SetCommitSHA(ctx, t.ID, sha); err != nil {
			return stepErr(task.StatusPushCommit, ErrProvisioning, err)
		}
		t.CommitSHA = sha
	}

	// ENABLE_PAGES: missing prerequisites are a hard failure; verification
	// downstream depends on this step having really run.
	if err := e.advance(ctx, t, task.StatusEnablePages); err != nil {
		return err
	}
	if err := e.host.EnablePages(ctx, t.RepoURL); err != nil {
		return stepErr(task.StatusEnablePages, ErrPublication, err)
	}

	// VERIFY_PAGES: a deadline without a 200 is soft; the pipeline proceeds
	// with the computed, unconfirmed URL.
	if err := e.advance(ctx, t, task.StatusVerifyPages); err != nil {
		return err
	}
	pagesURL, err := github.PagesURL(t.RepoURL)
	if err != nil {
		return stepErr(task.StatusVerifyPages, ErrVerification, err)
	}
	res, err := e.verifier.Verify(ctx, pagesURL)
	if err != nil {
		return stepErr(task.StatusVerifyPages, ErrVerification, err)
	}
	if !res.Verified {
		log.Printf("pipeline: task %d: pages not confirmed before deadline, proceeding with %s", t.ID, res.URL)
	}
	if err := e.tasks.SetPagesURL(ctx, t.ID, res.URL); err != nil {
		return stepErr(task.StatusVerifyPages, ErrVerification, err)
	}
	t.PagesURL = res.URL

	// NOTIFY_EVALUATOR: bounded retry against the callback, on a deadline
	// measured from pipeline start.
	if err := e.advance(ctx, t, task.StatusNotifyEvaluator); err != nil {
		return err
	}
	if err := e.notifier.Notify(ctx, t, notifyDeadline); err != nil {
		return stepErr(task.StatusNotifyEvaluator, ErrNotification, err)
	}

	// COMPLETE
	if err := e.tasks.MarkComplete(ctx, t.ID); err != nil {
		return err
	}
	e.record(ctx, t.ID, t.Status, task.StatusComplete, "")
	t.Status = task.StatusComplete
	return nil
}

// advance persists the next status before the step begins, so the store
// always reflects the step currently being attempted.
func (e *Executor) advance(ctx context.Context, t *task.Task, to task.Status) error {
	if err := e.tasks.SetStatus(ctx, t.ID, t.Status, to); err != nil {
		return err
	}
	e.record(ctx, t.ID, t.Status, to, "")
	t.Status = to
	return nil
}

func (e *Executor) record(ctx context.Context, taskID int64, from, to task.Status, note string) {
	if err := e.hist.Append(ctx, taskID, from, to, note); err != nil {
		log.Printf("pipeline: record %s -> %s for task %d: %v", from, to, taskID, err)
	}
}

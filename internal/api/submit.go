package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/23F3003943/student-api-server/pkg/task"
)

// submitRequest is the inbound submission object.
type submitRequest struct {
	Email         string `json:"email"`
	Secret        string `json:"secret"`
	Task          string `json:"task"`
	Round         int    `json:"round"`
	Nonce         string `json:"nonce"`
	Brief         string `json:"brief"`
	Checks        []any  `json:"checks"`
	EvaluationURL string `json:"evaluation_url"`
	Attachments   []any  `json:"attachments"`
}

// ackResponse acknowledges a submission with the task's current state.
type ackResponse struct {
	Status task.Status `json:"status"`
	Task   string      `json:"task"`
	Nonce  string      `json:"nonce"`
}

func ack(t *task.Task) ackResponse {
	return ackResponse{Status: t.Status, Task: t.TaskName, Nonce: t.Nonce}
}

// handleSubmit is the idempotent intake gatekeeper. For any nonce it creates
// at most one task row and schedules at most one pipeline run, no matter how
// often or how concurrently the submission is repeated: the store's unique
// constraint on nonce decides the race, and the loser echoes the winner's
// state.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Email == "" || req.Task == "" || req.Nonce == "" {
		writeError(w, http.StatusBadRequest, "email, task and nonce are required")
		return
	}
	if req.Secret != s.secret {
		writeError(w, http.StatusForbidden, "invalid secret")
		return
	}

	ctx := r.Context()

	// A finished submission for this (nonce, round) is echoed back without
	// scheduling new work.
	existing, err := s.tasks.GetByNonce(ctx, req.Nonce)
	if err == nil && existing.Round == req.Round && existing.Status == task.StatusComplete {
		writeJSON(w, http.StatusOK, ack(existing))
		return
	}
	if err != nil && !errors.Is(err, task.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	created, err := s.tasks.Create(ctx, &task.Task{
		Nonce:         req.Nonce,
		Round:         req.Round,
		Email:         req.Email,
		TaskName:      req.Task,
		Brief:         req.Brief,
		EvaluationURL: req.EvaluationURL,
		Status:        task.StatusReceived,
	})
	if errors.Is(err, task.ErrDuplicateNonce) {
		// A concurrent duplicate raced ahead. Its row is this request's
		// result too.
		winner, gerr := s.tasks.GetByNonce(ctx, req.Nonce)
		if gerr != nil {
			writeError(w, http.StatusConflict, "a task with this nonce already exists")
			return
		}
		writeJSON(w, http.StatusOK, ack(winner))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.queue.Enqueue(ctx, created.ID); err != nil {
		log.Printf("api: schedule task %d (%s): %v", created.ID, created.Nonce, err)
		writeError(w, http.StatusServiceUnavailable, "could not schedule task, retry later")
		return
	}

	log.Printf("api: accepted submission %s (task %d, round %d)", created.Nonce, created.ID, created.Round)
	writeJSON(w, http.StatusOK, ack(created))
}

package api

import (
	"errors"
	"net/http"

	"github.com/23F3003943/student-api-server/pkg/history"
	"github.com/23F3003943/student-api-server/pkg/task"
)

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	nonce := r.PathValue("nonce")
	t, err := s.tasks.GetByNonce(r.Context(), nonce)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no task for nonce "+nonce)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	nonce := r.PathValue("nonce")
	t, err := s.tasks.GetByNonce(r.Context(), nonce)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no task for nonce "+nonce)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entries, err := s.hist.ByTask(r.Context(), t.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

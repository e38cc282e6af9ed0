package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/23F3003943/student-api-server/pkg/history"
	"github.com/23F3003943/student-api-server/pkg/queue"
	"github.com/23F3003943/student-api-server/pkg/task"
)

// Server is the HTTP API server: the synchronous intake gatekeeper plus a
// small read-only surface over task state.
type Server struct {
	tasks  task.Store
	hist   history.Store
	queue  queue.Queue
	secret string
	mux    *http.ServeMux
}

// New creates a new Server. secret is the shared intake secret submissions
// must present.
func New(tasks task.Store, hist history.Store, q queue.Queue, secret string) *Server {
	s := &Server{
		tasks:  tasks,
		hist:   hist,
		queue:  q,
		secret: secret,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Intake
	s.mux.HandleFunc("POST /api-endpoint", s.handleSubmit)

	// Tasks (read-only)
	s.mux.HandleFunc("GET /api/tasks/{nonce}", s.handleTaskGet)
	s.mux.HandleFunc("GET /api/tasks/{nonce}/history", s.handleTaskHistory)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, 200, map[string]string{"message": "Welcome to the Student API Server!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Package testserver is an in-memory stand-in for the todo backend used by
// the client, CLI and exporter tests. It speaks the backend's wire format:
// bearer JWT auth and {status, data|message} envelopes returned with HTTP 200
// even on failure.
package testserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/maumercado/todo-client-go/internal/logger"
)

// Todo is a stored task.
type Todo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Request is a recorded API request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type failure struct {
	status   int
	envelope bool
}

type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Server is a fake todo backend.
type Server struct {
	router *chi.Mux
	secret []byte
	log    zerolog.Logger

	mu       sync.Mutex
	nextID   int64
	todos    map[int64]map[int64]*Todo // user ID -> task ID -> task
	requests []Request
	fail     *failure
}

// New creates a fake backend that verifies tokens signed with secret.
func New(secret string) *Server {
	s := &Server{
		router: chi.NewRouter(),
		secret: []byte(secret),
		log:    logger.WithComponent("testserver"),
		todos:  make(map[int64]map[int64]*Todo),
	}
	s.setupRoutes()
	return s
}

// Start serves the fake backend on a loopback port until Close is called.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s)
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.record)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.auth)
		r.Use(s.injectFailure)

		r.Get("/todos", s.listTodos)
		r.Post("/todo", s.saveTodo)
		r.Put("/todo", s.saveTodo)
		r.Delete("/todo", s.deleteTodo)
		r.Post("/todo/complete", s.completeTodo)
		r.Put("/todo/change-status", s.completeTodo)
	})
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed stores a task for userID and returns it.
func (s *Server) Seed(userID int64, title, description string, completed bool) Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.insertLocked(userID, title, description)
	t.Completed = completed
	return *t
}

// Todos returns the tasks of userID ordered by ID.
func (s *Server) Todos(userID int64) []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(userID)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request. ok is false if none arrived.
func (s *Server) LastRequest() (req Request, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// FailWith makes every authenticated call fail with status. With envelope
// set the failure is reported like the real backend does, HTTP 200 plus an
// error status in the body; otherwise as a plain HTTP status.
func (s *Server) FailWith(status int, envelope bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = &failure{status: status, envelope: envelope}
}

// Recover undoes FailWith.
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f := s.fail
		s.mu.Unlock()

		if f == nil {
			next.ServeHTTP(w, r)
			return
		}
		if f.envelope {
			s.respondError(w, f.status, "injected failure")
			return
		}
		http.Error(w, http.StatusText(f.status), f.status)
	})
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	s.mu.Lock()
	todos := s.listLocked(user.ID)
	s.mu.Unlock()

	s.respondJSON(w, todos)
}

type saveRequest struct {
	ID          *int64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   *bool  `json:"completed"`
}

// saveTodo creates a task, or updates one when the body carries an ID.
func (s *Server) saveTodo(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == nil {
		if req.Title == "" {
			s.respondError(w, http.StatusBadRequest, "title is required")
			return
		}
		t := s.insertLocked(user.ID, req.Title, req.Description)
		s.log.Debug().Int64("user_id", user.ID).Int64("task_id", t.ID).Msg("task created")
		s.respondJSON(w, t)
		return
	}

	t, ok := s.todos[user.ID][*req.ID]
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("task %d not found", *req.ID))
		return
	}
	t.Title = req.Title
	t.Description = req.Description
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	s.respondMessage(w, "task updated")
}

type idRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[user.ID][req.ID]; !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("task %d not found", req.ID))
		return
	}
	delete(s.todos[user.ID], req.ID)
	s.respondMessage(w, "task deleted")
}

func (s *Server) completeTodo(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[user.ID][req.ID]
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("task %d not found", req.ID))
		return
	}
	t.Completed = !t.Completed
	s.respondMessage(w, "task status changed")
}

func (s *Server) insertLocked(userID int64, title, description string) *Todo {
	s.nextID++
	t := &Todo{ID: s.nextID, Title: title, Description: description}
	if s.todos[userID] == nil {
		s.todos[userID] = make(map[int64]*Todo)
	}
	s.todos[userID][t.ID] = t
	return t
}

func (s *Server) listLocked(userID int64) []Todo {
	out := make([]Todo, 0, len(s.todos[userID]))
	for _, t := range s.todos[userID] {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) respondJSON(w http.ResponseWriter, data any) {
	s.write(w, envelope{Status: "success", Data: data})
}

func (s *Server) respondMessage(w http.ResponseWriter, message string) {
	s.write(w, envelope{Status: "success", Message: message})
}

// respondError reports a failure inside a 200 envelope, e.g. "404 Not Found".
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.write(w, envelope{
		Status:  fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Message: message,
	})
}

func (s *Server) write(w http.ResponseWriter, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

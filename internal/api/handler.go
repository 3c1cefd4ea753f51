package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vidmint/internal/logging"
	"vidmint/internal/mint"
	"vidmint/internal/services"
)

const maxBodyBytes = 64 << 10

// Sessions is the registry of live workflow sessions.
type Sessions interface {
	Create(ctx context.Context) (*mint.Workflow, error)
	Get(id string) (*mint.Workflow, bool)
	Remove(id string) bool
	Len() int
}

// Options configures the HTTP handler.
type Options struct {
	Sessions Sessions
	History  HistoryReader
	Token    string
	Logger   *slog.Logger
	// Health fills static fields of the health payload.
	Health HealthResponse
}

type server struct {
	sessions Sessions
	history  *HistoryService
	health   HealthResponse
	logger   *slog.Logger
}

// NewHandler builds the /api router.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &server{
		sessions: opts.Sessions,
		history:  NewHistoryService(opts.History),
		health:   opts.Health,
		logger:   logging.NewComponentLogger(logger, "api"),
	}

	r := chi.NewRouter()
	r.Use(requestID, middleware.RealIP, middleware.Recoverer, accessLog(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(opts.Token))
			r.Post("/sessions", s.handleCreateSession)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleAbandon)
				r.Post("/identifier", s.handleIdentifier)
				r.Get("/ownership", s.handleOwnershipInstructions)
				r.Post("/ownership", s.handleAttest)
				r.Post("/metadata", s.handlePublish)
				r.Post("/mint", s.handleMint)
				r.Post("/restart", s.handleRestart)
				r.Get("/events", s.handleEvents)
			})
			r.Get("/history", s.handleHistory)
			r.Get("/history/{id}", s.handleHistoryItem)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, errors.New("route not found"), nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"), nil)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	payload := s.health
	payload.Status = "ok"
	if s.sessions != nil {
		payload.Sessions = s.sessions.Len()
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("sessions unavailable"), nil)
		return
	}
	wf, err := s.sessions.Create(r.Context())
	if err != nil {
		s.writeError(w, r, statusFor(err), err, nil)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+wf.ID())
	s.writeJSON(w, http.StatusCreated, wf.Snapshot())
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, wf.Snapshot())
}

func (s *server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.sessions == nil || !s.sessions.Remove(id) {
		s.writeError(w, r, http.StatusNotFound, sessionNotFound(id), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleIdentifier(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req IdentifierRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, r, wf, http.StatusOK, wf.SubmitIdentifier(r.Context(), req.VideoID, req.Title))
}

func (s *server) handleOwnershipInstructions(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	instructions, err := wf.OwnershipInstructions()
	if err != nil {
		snap := wf.Snapshot()
		s.writeError(w, r, statusFor(err), err, &snap)
		return
	}
	s.writeJSON(w, http.StatusOK, OwnershipResponse{Instructions: instructions})
}

func (s *server) handleAttest(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req OwnershipRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, r, wf, http.StatusOK, wf.AttestOwnership(req.Confirmed))
}

func (s *server) handlePublish(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respond(w, r, wf, http.StatusOK, wf.Publish(r.Context()))
}

func (s *server) handleMint(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respond(w, r, wf, http.StatusAccepted, wf.Mint(r.Context()))
}

func (s *server) handleRestart(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respond(w, r, wf, http.StatusOK, wf.Restart())
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw), nil)
			return
		}
		limit = parsed
	}
	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err, nil)
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	s.writeJSON(w, http.StatusOK, HistoryListResponse{Sessions: entries})
}

func (s *server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := s.history.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err, nil)
		return
	}
	if item == nil {
		s.writeError(w, r, http.StatusNotFound, sessionNotFound(id), nil)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *server) lookup(w http.ResponseWriter, r *http.Request) (*mint.Workflow, bool) {
	id := chi.URLParam(r, "id")
	if s.sessions == nil {
		s.writeError(w, r, http.StatusNotFound, sessionNotFound(id), nil)
		return nil, false
	}
	wf, ok := s.sessions.Get(id)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, sessionNotFound(id), nil)
		return nil, false
	}
	return wf, true
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), nil)
		return false
	}
	return true
}

// respond writes the session snapshot on success, or the mapped error with
// the snapshot attached.
func (s *server) respond(w http.ResponseWriter, r *http.Request, wf *mint.Workflow, status int, err error) {
	snap := wf.Snapshot()
	if err != nil {
		s.writeError(w, r, statusFor(err), err, &snap)
		return
	}
	s.writeJSON(w, status, snap)
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, err error, snap *mint.Snapshot) {
	resp := ErrorResponse{Error: err.Error(), Session: snap}
	if kind := services.Kind(err); kind != "unknown" {
		resp.Kind = kind
	}
	if id, ok := services.RequestIDFromContext(r.Context()); ok {
		resp.RequestID = id
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("api request failed",
			logging.String(logging.FieldEventType, "api_request_failed"),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, resp)
}

func sessionNotFound(id string) error {
	return services.Wrap(services.ErrNotFound, "", "", "session "+id, nil)
}

// statusFor maps workflow errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrStepInFlight),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrAbandoned):
		return http.StatusConflict
	case errors.Is(err, services.ErrDerivation),
		errors.Is(err, services.ErrStorage),
		errors.Is(err, services.ErrSubmission),
		errors.Is(err, services.ErrTransactionFailed):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

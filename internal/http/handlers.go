package http

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"prediagnosis/internal/core"
	"prediagnosis/internal/db"
	"prediagnosis/pkg"
)

// maxInputLength caps patient input; longer text is truncated, not rejected.
const maxInputLength = 3000

// emptyInputGuidance is returned when a running session posts an empty
// message instead of burning an interview turn on it.
const emptyInputGuidance = "Please describe your symptoms so we can continue - for example what feels wrong, when it started and how severe it is."

// Server bundles the dependencies of the HTTP handlers. Repo and Notifier
// may be nil, which disables persistence and update notifications.
type Server struct {
	Registry    *core.Registry
	Repo        *db.Repository
	Notifier    *db.Notifier
	Metrics     *Metrics
	Log         *zap.Logger
	TurnTimeout time.Duration
}

// NewServer constructs a Server. A zero turn timeout defaults to two minutes.
func NewServer(registry *core.Registry, repo *db.Repository, notifier *db.Notifier, metrics *Metrics, log *zap.Logger, turnTimeout time.Duration) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if turnTimeout <= 0 {
		turnTimeout = 2 * time.Minute
	}
	return &Server{
		Registry:    registry,
		Repo:        repo,
		Notifier:    notifier,
		Metrics:     metrics,
		Log:         log,
		TurnTimeout: turnTimeout,
	}
}

// Router builds the chi router with the service's middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(s.Log))
	r.Use(chimw.Recoverer)
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}
	r.Get("/healthz", s.handleHealth)
	r.Route("/dialogue", func(r chi.Router) {
		r.Post("/respond", s.handleRespond)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{sessionID}/summary", s.handleSummary)
		r.Get("/sessions/{sessionID}/transcript", s.handleTranscript)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateSession mints a session id. The workflow itself is created
// lazily on the first respond call.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.New().String()
	if s.Repo != nil {
		if err := s.Repo.CreateSession(r.Context(), sessionID, r.RemoteAddr, r.UserAgent()); err != nil {
			s.Log.Error("failed to create session row", zap.String("session_id", sessionID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "failed to create session"})
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

// handleRespond is the sole turn entry point: it validates and sanitizes the
// input, runs one interview turn under a bounded timeout, and persists the
// exchange after the response is decided.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req pkg.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "missing session_id"})
		return
	}
	if _, err := uuid.Parse(req.SessionID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid session_id format, must be a valid UUID"})
		return
	}

	content := sanitizeInput(req.PatientContent)

	// An empty message on a running session gets a nudge instead of an
	// interview turn; on a brand-new session it is the opening call that
	// elicits the first question, and on a terminated session it falls
	// through so the workflow replays its closing message.
	if content == "" {
		if wf, ok := s.Registry.Get(req.SessionID); ok {
			if st := wf.Status(); st.Step > 0 && !st.Terminated {
				writeJSON(w, http.StatusOK, pkg.RespondResponse{
					SessionID:     req.SessionID,
					DoctorContent: emptyInputGuidance,
				})
				return
			}
		}
	}

	wf := s.Registry.GetOrCreate(req.SessionID)

	ctx, cancel := context.WithTimeout(r.Context(), s.TurnTimeout)
	defer cancel()

	res, err := wf.ProcessTurn(ctx, content)
	if err != nil {
		if errors.Is(err, core.ErrSessionFault) {
			s.Log.Error("session fault", zap.String("session_id", req.SessionID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, pkg.RespondResponse{
				SessionID:     req.SessionID,
				DoctorContent: res.Response,
				IsEnd:         true,
			})
			return
		}
		s.Log.Error("turn processing failed", zap.String("session_id", req.SessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}

	// Metrics and persistence key off the turn that was just processed, not
	// off session state another request may have moved on. Timeout apologies
	// and terminal replays advance nothing and are not counted.
	if s.Metrics != nil && res.Advanced {
		s.Metrics.ObserveTurn(res.Terminal, res.Reason)
	}

	// Write-after-success side effect: persistence failures are logged and
	// never surface to the patient.
	if s.Repo != nil && res.Advanced {
		s.persistExchange(req.SessionID, res.Step, content, res.Response)
	}

	writeJSON(w, http.StatusOK, pkg.RespondResponse{
		SessionID:     req.SessionID,
		DoctorContent: res.Response,
		IsEnd:         res.Terminal,
	})
}

func (s *Server) persistExchange(sessionID string, turnID int, patientContent, doctorContent string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Repo.CreateSession(ctx, sessionID, "", ""); err != nil {
			s.Log.Warn("failed to ensure session row", zap.String("session_id", sessionID), zap.Error(err))
		}
		if err := s.Repo.SaveDialogueRecord(ctx, sessionID, turnID, patientContent, doctorContent); err != nil {
			s.Log.Warn("failed to persist dialogue record",
				zap.String("session_id", sessionID), zap.Int("turn_id", turnID), zap.Error(err))
			return
		}
		if s.Notifier != nil {
			if err := s.Notifier.Notify(ctx, sessionID); err != nil {
				s.Log.Warn("failed to notify session update", zap.String("session_id", sessionID), zap.Error(err))
			}
		}
	}()
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	wf, ok := s.Registry.Get(sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "unknown session"})
		return
	}
	writeJSON(w, http.StatusOK, wf.Status())
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if wf, ok := s.Registry.Get(sessionID); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": sessionID,
			"turns":      wf.TranscriptCopy(),
		})
		return
	}
	// Evicted or restarted sessions can still be read back from storage.
	if s.Repo != nil {
		records, err := s.Repo.GetDialogueRecords(r.Context(), sessionID)
		if err == nil && len(records) > 0 {
			writeJSON(w, http.StatusOK, map[string]any{
				"session_id": sessionID,
				"records":    records,
			})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "unknown session"})
}

// sanitizeInput trims, HTML-escapes and length-caps patient text. Truncation
// keeps the request usable rather than rejecting it.
func sanitizeInput(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = html.EscapeString(text)
	if runes := []rune(text); len(runes) > maxInputLength {
		text = string(runes[:maxInputLength]) + "..."
	}
	return text
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

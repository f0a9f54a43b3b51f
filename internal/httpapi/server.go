// ABOUTME: HTTP transport for gate-opener: routes, handlers, and JSON responses
// ABOUTME: Verification failures collapse to one opaque unauthorized response

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ChrisTracy/gate-opener/internal/auth"
	"github.com/ChrisTracy/gate-opener/internal/enroll"
	"github.com/ChrisTracy/gate-opener/internal/gate"
)

// Server exposes the enrollment workflow, token verification, and the
// actuation guard over HTTP.
type Server struct {
	router   *mux.Router
	verifier *auth.Verifier
	workflow *enroll.Workflow
	guard    *gate.Guard

	friendlyName string
	logger       *slog.Logger
}

// New creates the HTTP server and registers its routes.
func New(verifier *auth.Verifier, workflow *enroll.Workflow, guard *gate.Guard, friendlyName string) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		verifier:     verifier,
		workflow:     workflow,
		guard:        guard,
		friendlyName: friendlyName,
		logger:       slog.Default().With("component", "httpapi"),
	}
	s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	// Enrollment, gated by PSKs rather than tokens
	s.router.HandleFunc("/api/v1/register", s.handleRegister).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/enable", s.handleEnable).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/reject", s.handleReject).Methods(http.MethodPost)

	// Token-protected surface
	s.router.Handle("/welcome", s.requireToken(http.HandlerFunc(s.handleWelcome))).Methods(http.MethodGet)
	s.router.Handle("/gate/front", s.requireToken(http.HandlerFunc(s.handleTrigger))).Methods(http.MethodPost)
	s.router.Handle("/api/v1/refresh", s.requireToken(http.HandlerFunc(s.handleRefresh))).Methods(http.MethodPost)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	device := formValue(r, "device")
	psk := formValue(r, "psk")

	reg, err := s.workflow.Register(r.Context(), device, psk)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":   reg.Token,
		"message": "Device registered. An admin must approve the request before the token works.",
	})
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	invite := formValue(r, "invite")
	psk := formValue(r, "psk")

	if err := s.workflow.Enable(r.Context(), invite, psk); err != nil {
		s.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Device enabled."})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	invite := formValue(r, "invite")
	psk := formValue(r, "psk")

	if err := s.workflow.Reject(r.Context(), invite, psk); err != nil {
		s.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Device rejected."})
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	p := auth.MustFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Hello, " + p.DeviceName + "!",
	})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	p := auth.MustFromContext(r.Context())

	if err := s.guard.Trigger(r.Context(), p); err != nil {
		s.logger.Error("trigger failed", "device", p.DeviceName, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "actuation failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": s.friendlyName + " opened by " + p.DeviceName + "!",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	p := auth.MustFromContext(r.Context())

	if err := s.guard.RequestRefresh(r.Context(), p); err != nil {
		if errors.Is(err, gate.ErrForbidden) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin role required"})
			return
		}
		s.logger.Error("refresh failed", "device", p.DeviceName, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "refresh failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Token cache refreshed."})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeWorkflowError maps enrollment errors onto status codes. PSK holders
// are trusted, so the admin workflow reports specific reasons; only the
// credential check itself stays generic.
func (s *Server) writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, enroll.ErrInvalidCredential):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	case errors.Is(err, enroll.ErrMissingField):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, enroll.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown invite code"})
	default:
		s.logger.Error("workflow error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// formValue reads a parameter from either the form body or the query string.
func formValue(r *http.Request, key string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

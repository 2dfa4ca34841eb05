package sandbox

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/evcraddock/nb/internal/auth"
	"github.com/evcraddock/nb/internal/email"
	"github.com/evcraddock/nb/internal/logging"
	"github.com/evcraddock/nb/internal/visit"
)

// Server is the sandbox HTTP server.
type Server struct {
	repo     *Repository
	handler  http.Handler
	linkBase string
	notify   func(email.Message)
}

// Option configures a Server.
type Option func(*Server)

// WithFollowUp delivers the decision emails composed when a visit is
// completed to fn. Links in them point at linkBase.
func WithFollowUp(linkBase string, fn func(email.Message)) Option {
	return func(s *Server) {
		s.linkBase = linkBase
		s.notify = fn
	}
}

// NewServer creates a sandbox server over db. Requests must carry a
// bearer token signed with secret.
func NewServer(db *sql.DB, secret []byte, opts ...Option) *Server {
	s := &Server{repo: NewRepository(db)}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	}).Methods("GET")
	r.HandleFunc("/visits/user", s.handleListVisits).Methods("GET")
	r.HandleFunc("/visits", s.handleSchedule).Methods("POST")
	r.HandleFunc("/visits/{id}/status", s.handleUpdateStatus).Methods("PUT")
	r.HandleFunc("/visits/{id}/cancel", s.handleCancel).Methods("POST")
	r.HandleFunc("/visits/{id}/decision", s.handleDecision).Methods("POST")
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "not found", http.StatusNotFound)
	})

	s.handler = logging.RequestLogger(auth.RequireBearer(secret, r))
	return s
}

// Repository exposes the underlying storage for seeding.
func (s *Server) Repository() *Repository {
	return s.repo
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	slog.Info("sandbox listening", "addr", addr)
	return http.ListenAndServe(addr, s)
}

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// repoError maps repository errors onto HTTP statuses.
func repoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrConflict):
		apiError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrForbidden):
		apiError(w, err.Error(), http.StatusForbidden)
	default:
		slog.Error("sandbox request failed", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
	}
}

func callerFrom(r *http.Request) Caller {
	c := auth.ClaimsFromContext(r)
	if c == nil {
		return Caller{}
	}
	role := c.Role
	if role == "" {
		role = visit.Tenant
	}
	return Caller{ID: c.Subject, Role: role}
}

func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := s.repo.ListFor(callerFrom(r))
	if err != nil {
		repoError(w, err)
		return
	}
	apiJSON(w, map[string]interface{}{"visits": visits}, http.StatusOK)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListingID     string `json:"listing_id"`
		VisitDatetime string `json:"visit_datetime"`
		VisitNotes    string `json:"visit_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ListingID) == "" {
		apiError(w, "listing_id is required", http.StatusBadRequest)
		return
	}
	if _, err := visit.ParseDatetime(req.VisitDatetime); err != nil {
		apiError(w, "visit_datetime must be an ISO-8601 instant", http.StatusBadRequest)
		return
	}

	caller := callerFrom(r)
	if caller.Role != visit.Tenant {
		apiError(w, "only tenants can schedule visits", http.StatusForbidden)
		return
	}

	v, err := s.repo.Schedule(caller, req.ListingID, req.VisitDatetime, strings.TrimSpace(req.VisitNotes))
	if err != nil {
		repoError(w, err)
		return
	}
	apiJSON(w, map[string]interface{}{"visit": v}, http.StatusCreated)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   string `json:"status"`
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	status, err := visit.ParseStatus(req.Status)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := s.repo.UpdateStatus(callerFrom(r), mux.Vars(r)["id"], status, strings.TrimSpace(req.Feedback))
	if err != nil {
		repoError(w, err)
		return
	}
	if v.Status == visit.Completed {
		s.followUp(v)
	}
	apiJSON(w, map[string]interface{}{"visit": v}, http.StatusOK)
}

// followUp sends the tenant and the owner a decision email for v.
func (s *Server) followUp(v *visit.Visit) {
	if s.notify == nil {
		return
	}
	owner, err := s.repo.OwnerOf(v.ListingID)
	if err != nil {
		slog.Warn("follow-up skipped", "visit_id", v.ID, "error", err)
		return
	}
	for _, role := range []visit.Role{visit.Tenant, visit.Owner} {
		msg, err := email.FollowUp(v, role, owner, s.linkBase)
		if err != nil {
			slog.Warn("composing follow-up", "visit_id", v.ID, "role", role, "error", err)
			continue
		}
		s.notify(msg)
	}
}

// handleCancel replies 204 with no body; clients apply the status flip.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.UpdateStatus(callerFrom(r), mux.Vars(r)["id"], visit.Cancelled, ""); err != nil {
		repoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
		Notes    string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	decision, err := visit.ParseDecision(req.Decision)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := s.repo.SubmitDecision(callerFrom(r), mux.Vars(r)["id"], decision, strings.TrimSpace(req.Notes))
	if err != nil {
		repoError(w, err)
		return
	}
	apiJSON(w, map[string]interface{}{"visit": v}, http.StatusOK)
}

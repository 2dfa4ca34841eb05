// Package store holds the current user's visit list and mediates every
// read and write against the visit API.
package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/evcraddock/nb/internal/client"
	"github.com/evcraddock/nb/internal/visit"
)

// API is the subset of the visit REST client the store needs.
// *client.Client satisfies it.
type API interface {
	ListVisits(ctx context.Context) ([]*visit.Visit, error)
	ScheduleVisit(ctx context.Context, req client.ScheduleRequest) (*visit.Visit, error)
	UpdateStatus(ctx context.Context, id string, status visit.Status, feedback string) (*visit.Visit, error)
	CancelVisit(ctx context.Context, id string) (*visit.Visit, error)
	SubmitDecision(ctx context.Context, id string, decision visit.Decision, notes string) (*visit.Visit, error)
}

// Store is the single source of truth for the user's visits. Nothing is
// applied locally until the API confirms it.
type Store struct {
	api API
	now func() time.Time

	mu      sync.Mutex
	visits  []*visit.Visit
	loading bool
	loaded  bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for the future-datetime check.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store backed by api.
func New(api API, opts ...Option) *Store {
	s := &Store{api: api, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Visits returns a snapshot of the list, newest first.
func (s *Store) Visits() []*visit.Visit {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*visit.Visit, len(s.visits))
	for i, v := range s.visits {
		cp := *v
		out[i] = &cp
	}
	return out
}

// Get returns a copy of the visit with the given id.
func (s *Store) Get(id string) (*visit.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		cp := *s.visits[i]
		return &cp, nil
	}
	return nil, ErrNotFound
}

// Loading reports whether a Load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Loaded reports whether at least one Load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Load replaces the list with the server's. On failure the previous list
// is kept and a *FetchError is returned.
func (s *Store) Load(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	visits, err := s.api.ListVisits(ctx)
	if err != nil {
		slog.Warn("loading visits", "error", err)
		return &FetchError{Err: err}
	}

	s.mu.Lock()
	s.visits = make([]*visit.Visit, 0, len(visits))
	for _, v := range visits {
		cp := *v
		s.visits = append(s.visits, &cp)
	}
	s.loaded = true
	s.mu.Unlock()

	slog.Debug("visits loaded", "count", len(visits))
	return nil
}

// Create schedules a visit and prepends it on success.
func (s *Store) Create(ctx context.Context, listingID string, datetime time.Time, notes string) (*visit.Visit, error) {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return nil, &ValidationError{Field: "listing_id", Message: "is required"}
	}
	if datetime.IsZero() {
		return nil, &ValidationError{Field: "visit_datetime", Message: "is required"}
	}
	if !datetime.After(s.now()) {
		return nil, &ValidationError{Field: "visit_datetime", Message: "must be in the future"}
	}

	v, err := s.api.ScheduleVisit(ctx, client.ScheduleRequest{
		ListingID:     listingID,
		VisitDatetime: datetime.UTC().Format(time.RFC3339),
		VisitNotes:    strings.TrimSpace(notes),
	})
	if err != nil {
		return nil, err
	}

	stored := *v
	s.mu.Lock()
	s.visits = append([]*visit.Visit{&stored}, s.visits...)
	s.mu.Unlock()

	slog.Debug("visit scheduled", "visit_id", v.ID, "listing_id", v.ListingID)
	cp := *v
	return &cp, nil
}

// UpdateStatus requests a status transition and replaces the record on success.
func (s *Store) UpdateStatus(ctx context.Context, id string, status visit.Status, feedback string) (*visit.Visit, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Field: "status", Message: "must be scheduled, completed or cancelled"}
	}

	v, err := s.api.UpdateStatus(ctx, id, status, strings.TrimSpace(feedback))
	if err != nil {
		return nil, err
	}

	s.replace(v)
	slog.Debug("visit status updated", "visit_id", id, "status", v.Status)
	cp := *v
	return &cp, nil
}

// Cancel cancels a visit through the dedicated endpoint. An empty reply
// is applied as a status flip of the local record.
func (s *Store) Cancel(ctx context.Context, id string) (*visit.Visit, error) {
	v, err := s.api.CancelVisit(ctx, id)
	if err != nil {
		return nil, err
	}

	if v == nil {
		s.mu.Lock()
		i := s.indexOf(id)
		if i < 0 {
			s.mu.Unlock()
			return nil, nil
		}
		flipped := *s.visits[i]
		flipped.Status = visit.Cancelled
		s.visits[i] = &flipped
		v = &flipped
		s.mu.Unlock()
	} else {
		s.replace(v)
	}

	slog.Debug("visit cancelled", "visit_id", id)
	cp := *v
	return &cp, nil
}

// SubmitDecision records a decision and replaces the record on success.
// Resubmission is allowed; the last response wins.
func (s *Store) SubmitDecision(ctx context.Context, id string, decision visit.Decision, notes string) (*visit.Visit, error) {
	if !decision.IsValid() {
		return nil, &ValidationError{Field: "decision", Message: "must be interested, not_interested or undecided"}
	}

	v, err := s.api.SubmitDecision(ctx, id, decision, strings.TrimSpace(notes))
	if err != nil {
		return nil, err
	}

	s.replace(v)
	slog.Debug("visit decision submitted", "visit_id", id, "decision", decision)
	cp := *v
	return &cp, nil
}

// replace swaps the record with v's id in place. Unknown ids are ignored.
func (s *Store) replace(v *visit.Visit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(v.ID); i >= 0 {
		cp := *v
		s.visits[i] = &cp
	}
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	for i, v := range s.visits {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) setLoading(b bool) {
	s.mu.Lock()
	s.loading = b
	s.mu.Unlock()
}

// Package sandbox is a local stand-in for the visit API, backed by SQLite.
// It follows the same REST contract as production so the CLI and client
// can be exercised end to end.
package sandbox

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/nb/internal/visit"
)

var (
	// ErrNotFound is returned for unknown visit or listing ids.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for a transition the state machine forbids.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when the caller is not a party to the visit.
	ErrForbidden = errors.New("forbidden")
)

const visitColumns = `v.id, v.listing_id, v.tenant_id, v.rep_id, v.visit_datetime, v.status, v.visit_notes,
	v.tenant_feedback, v.rep_feedback, v.tenant_decision, v.owner_decision,
	v.tenant_decision_notes, v.owner_decision_notes, v.created_at, v.updated_at`

// Caller identifies who is making a request.
type Caller struct {
	ID   string
	Role visit.Role
}

// Repository provides visit storage for the sandbox.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a sandbox repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// AddListing registers a listing and its owner. Re-adding updates the owner.
func (r *Repository) AddListing(id, ownerID, title string) error {
	if _, err := r.db.Exec(
		`INSERT INTO listings (id, owner_id, title) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, title = excluded.title`,
		id, ownerID, title,
	); err != nil {
		return fmt.Errorf("inserting listing: %w", err)
	}
	return nil
}

// Schedule creates a scheduled visit for the caller.
func (r *Repository) Schedule(caller Caller, listingID, datetime, notes string) (*visit.Visit, error) {
	if _, err := visit.ParseDatetime(datetime); err != nil {
		return nil, err
	}

	var exists int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM listings WHERE id = ?", listingID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking listing: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}

	id := uuid.NewString()
	if _, err := r.db.Exec(
		"INSERT INTO visits (id, listing_id, tenant_id, visit_datetime, visit_notes) VALUES (?, ?, ?, ?, ?)",
		id, listingID, caller.ID, datetime, notes,
	); err != nil {
		return nil, fmt.Errorf("inserting visit: %w", err)
	}

	return r.get(id)
}

// ListFor returns the visits visible to the caller, newest first.
// Tenants see their own visits, owners see visits on their listings,
// staff see everything.
func (r *Repository) ListFor(caller Caller) ([]*visit.Visit, error) {
	query := "SELECT " + visitColumns + " FROM visits v JOIN listings l ON l.id = v.listing_id"
	var args []interface{}
	switch caller.Role {
	case visit.Tenant:
		query += " WHERE v.tenant_id = ?"
		args = append(args, caller.ID)
	case visit.Owner:
		query += " WHERE l.owner_id = ?"
		args = append(args, caller.ID)
	}
	query += " ORDER BY v.created_at DESC, v.rowid DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("closing rows", "error", closeErr)
		}
	}()

	visits := []*visit.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visits: %w", err)
	}

	return visits, nil
}

// UpdateStatus moves a visit to status if the state machine allows it.
// Feedback lands in the tenant or rep column depending on the caller.
func (r *Repository) UpdateStatus(caller Caller, id string, status visit.Status, feedback string) (*visit.Visit, error) {
	v, err := r.getFor(caller, id)
	if err != nil {
		return nil, err
	}
	if !visit.CanTransition(v.Status, status) {
		return nil, fmt.Errorf("cannot move visit from %s to %s: %w", v.Status, status, ErrConflict)
	}

	column := "tenant_feedback"
	if caller.Role == visit.Staff {
		column = "rep_feedback"
	}

	// The write only lands if nobody moved the visit since it was read.
	query := "UPDATE visits SET status = ?, updated_at = ? WHERE id = ? AND status = ?"
	args := []interface{}{status, now(), id, v.Status}
	if feedback != "" {
		query = fmt.Sprintf("UPDATE visits SET status = ?, %s = ?, updated_at = ? WHERE id = ? AND status = ?", column)
		args = []interface{}{status, feedback, now(), id, v.Status}
	}
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating status: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("visit %s changed status concurrently: %w", id, ErrConflict)
	}

	return r.get(id)
}

// SubmitDecision records the caller's decision on a completed visit.
func (r *Repository) SubmitDecision(caller Caller, id string, decision visit.Decision, notes string) (*visit.Visit, error) {
	v, err := r.getFor(caller, id)
	if err != nil {
		return nil, err
	}
	if v.Status != visit.Completed {
		return nil, fmt.Errorf("decisions can only be made on completed visits: %w", ErrConflict)
	}

	var query string
	switch caller.Role {
	case visit.Tenant:
		query = "UPDATE visits SET tenant_decision = ?, tenant_decision_notes = ?, updated_at = ? WHERE id = ?"
	case visit.Owner:
		query = "UPDATE visits SET owner_decision = ?, owner_decision_notes = ?, updated_at = ? WHERE id = ?"
	default:
		return nil, fmt.Errorf("%s cannot submit a decision: %w", caller.Role, ErrForbidden)
	}

	if _, err := r.db.Exec(query, decision, notes, now(), id); err != nil {
		return nil, fmt.Errorf("updating decision: %w", err)
	}

	return r.get(id)
}

// getFor loads a visit and checks the caller is a party to it.
func (r *Repository) getFor(caller Caller, id string) (*visit.Visit, error) {
	v, err := r.get(id)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case visit.Staff:
		return v, nil
	case visit.Tenant:
		if v.TenantID == caller.ID {
			return v, nil
		}
	case visit.Owner:
		owner, err := r.OwnerOf(v.ListingID)
		if err != nil {
			return nil, err
		}
		if owner == caller.ID {
			return v, nil
		}
	}
	return nil, fmt.Errorf("visit %s: %w", id, ErrForbidden)
}

// OwnerOf returns the owner id of a listing.
func (r *Repository) OwnerOf(listingID string) (string, error) {
	var owner string
	err := r.db.QueryRow("SELECT owner_id FROM listings WHERE id = ?", listingID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("loading listing owner: %w", err)
	}
	return owner, nil
}

func (r *Repository) get(id string) (*visit.Visit, error) {
	row := r.db.QueryRow("SELECT "+visitColumns+" FROM visits v WHERE v.id = ?", id)
	v, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("visit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVisit(s scanner) (*visit.Visit, error) {
	var v visit.Visit
	var createdAt, updatedAt time.Time
	err := s.Scan(&v.ID, &v.ListingID, &v.TenantID, &v.RepID, &v.VisitDatetime, &v.Status, &v.VisitNotes,
		&v.TenantFeedback, &v.RepFeedback, &v.TenantDecision, &v.OwnerDecision,
		&v.TenantDecisionNotes, &v.OwnerDecisionNotes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning visit: %w", err)
	}
	v.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	v.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return &v, nil
}

func now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

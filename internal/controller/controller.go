// Package controller turns user gestures into visit store operations.
// Every state change goes through a modal: a gesture opens it, drafts are
// edited, and only Confirm talks to the store.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/evcraddock/nb/internal/client"
	"github.com/evcraddock/nb/internal/store"
	"github.com/evcraddock/nb/internal/visit"
)

var (
	// ErrNotAllowed is returned when a gesture targets an action the
	// visit's state does not offer.
	ErrNotAllowed = errors.New("action not available for this visit")
	// ErrNoModal is returned by Confirm when nothing is open.
	ErrNoModal = errors.New("no action in progress")
)

// Modal identifies the input-collection step currently open.
type Modal int

const (
	ModalNone Modal = iota
	ModalSchedule
	ModalCancel
	ModalComplete
	ModalDecision
)

func (m Modal) String() string {
	switch m {
	case ModalSchedule:
		return "schedule"
	case ModalCancel:
		return "cancel"
	case ModalComplete:
		return "complete"
	case ModalDecision:
		return "decision"
	default:
		return "none"
	}
}

// Draft holds the form values of the open modal.
type Draft struct {
	ListingID     string
	Datetime      string // ISO-8601
	Notes         string
	Feedback      string
	Decision      visit.Decision
	DecisionNotes string
}

// Controller holds transient UI state for one user acting in one role.
type Controller struct {
	store *store.Store
	role  visit.Role

	mu       sync.Mutex
	modal    Modal
	target   string
	draft    Draft
	banner   string
	onModal  []func(Modal, string)
	linkDone bool
}

// New creates a controller for role over s.
func New(s *store.Store, role visit.Role) *Controller {
	return &Controller{store: s, role: role}
}

// Role returns the acting user's role.
func (c *Controller) Role() visit.Role {
	return c.role
}

// Store returns the underlying visit store.
func (c *Controller) Store() *store.Store {
	return c.store
}

// OnModal registers fn to run whenever a modal opens.
func (c *Controller) OnModal(fn func(m Modal, visitID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onModal = append(c.onModal, fn)
}

// Modal returns the open modal and the visit it targets.
func (c *Controller) Modal() (Modal, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modal, c.target
}

// Draft returns a copy of the open modal's form values.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// EditDraft applies fn to the open modal's form values.
func (c *Controller) EditDraft(fn func(d *Draft)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.draft)
}

// Banner returns the last error message shown to the user.
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// Controls returns the actions to render for v.
func (c *Controller) Controls(v *visit.Visit) []visit.Action {
	return visit.Actions(v, c.role)
}

// Load refreshes the visit list. A failure is shown as a banner and the
// previous list stays on screen.
func (c *Controller) Load(ctx context.Context) error {
	if err := c.store.Load(ctx); err != nil {
		c.setBanner(err)
		return err
	}
	c.clearBanner()
	return nil
}

// OpenSchedule opens the schedule form for a listing.
func (c *Controller) OpenSchedule(listingID string) {
	c.open(ModalSchedule, "", Draft{ListingID: listingID})
}

// OpenCancel opens the cancel confirmation for a visit.
func (c *Controller) OpenCancel(id string) error {
	v, err := c.store.Get(id)
	if err != nil {
		return err
	}
	if !visit.CanCancel(v) {
		return fmt.Errorf("cancel %s: %w", v.Status.Label(), ErrNotAllowed)
	}
	c.open(ModalCancel, id, Draft{})
	return nil
}

// OpenComplete opens the mark-complete form for a visit.
func (c *Controller) OpenComplete(id string) error {
	v, err := c.store.Get(id)
	if err != nil {
		return err
	}
	if !visit.CanMarkComplete(v) {
		return fmt.Errorf("complete %s: %w", v.Status.Label(), ErrNotAllowed)
	}
	c.open(ModalComplete, id, Draft{})
	return nil
}

// OpenDecision opens the decision form, prefilled with the role's
// current decision.
func (c *Controller) OpenDecision(id string) error {
	v, err := c.store.Get(id)
	if err != nil {
		return err
	}
	if !visit.CanDecide(v, c.role) {
		return fmt.Errorf("decide on %s visit as %s: %w", v.Status, c.role, ErrNotAllowed)
	}
	c.open(ModalDecision, id, decisionDraft(v, c.role))
	return nil
}

// Dismiss closes the open modal without touching the store.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modal, c.target, c.draft = ModalNone, "", Draft{}
}

// Confirm submits the open modal. On failure the modal stays open with
// its drafts and the error is set as the banner.
func (c *Controller) Confirm(ctx context.Context) (*visit.Visit, error) {
	c.mu.Lock()
	modal, target, draft := c.modal, c.target, c.draft
	c.mu.Unlock()

	var (
		v   *visit.Visit
		err error
	)
	switch modal {
	case ModalSchedule:
		v, err = c.confirmSchedule(ctx, draft)
	case ModalCancel:
		v, err = c.store.Cancel(ctx, target)
	case ModalComplete:
		v, err = c.store.UpdateStatus(ctx, target, visit.Completed, draft.Feedback)
	case ModalDecision:
		v, err = c.confirmDecision(ctx, target, draft)
	default:
		return nil, ErrNoModal
	}
	if err != nil {
		c.setBanner(err)
		return nil, err
	}

	c.clearBanner()
	c.Dismiss()
	slog.Debug("modal confirmed", "modal", modal.String(), "visit_id", target)

	if modal == ModalComplete && v != nil && visit.CanDecide(v, c.role) {
		c.open(ModalDecision, v.ID, decisionDraft(v, c.role))
	}
	return v, nil
}

func (c *Controller) confirmSchedule(ctx context.Context, d Draft) (*visit.Visit, error) {
	if strings.TrimSpace(d.Datetime) == "" {
		return nil, &store.ValidationError{Field: "visit_datetime", Message: "date and time are required"}
	}
	when, err := visit.ParseDatetime(strings.TrimSpace(d.Datetime))
	if err != nil {
		return nil, &store.ValidationError{Field: "visit_datetime", Message: err.Error()}
	}
	return c.store.Create(ctx, d.ListingID, when, d.Notes)
}

func (c *Controller) confirmDecision(ctx context.Context, id string, d Draft) (*visit.Visit, error) {
	if !d.Decision.IsValid() {
		return nil, &store.ValidationError{Field: "decision", Message: "choose interested, not_interested or undecided"}
	}
	return c.store.SubmitDecision(ctx, id, d.Decision, d.DecisionNotes)
}

func (c *Controller) open(m Modal, id string, d Draft) {
	c.mu.Lock()
	c.modal, c.target, c.draft = m, id, d
	hooks := append([]func(Modal, string){}, c.onModal...)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(m, id)
	}
}

func (c *Controller) setBanner(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = Message(err)
}

func (c *Controller) clearBanner() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = ""
}

func decisionDraft(v *visit.Visit, role visit.Role) Draft {
	d := Draft{Decision: v.DecisionFor(role)}
	switch role {
	case visit.Tenant:
		d.DecisionNotes = v.TenantDecisionNotes
	case visit.Owner:
		d.DecisionNotes = v.OwnerDecisionNotes
	}
	return d
}

// Message renders err for display: the server's message when it sent
// one, a generic line for transport failures.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ve *store.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if client.IsNetwork(err) {
		return "Could not reach the server. Check your connection and try again."
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "Something went wrong. Please try again."
	}
	return err.Error()
}

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/evcraddock/nb/internal/client"
	"github.com/evcraddock/nb/internal/visit"
)

// FakeAPI is an in-memory API for tests. It plays the given role when
// recording decisions and enforces the status state machine.
// This should only be used in tests.
type FakeAPI struct {
	mu     sync.Mutex
	Role   visit.Role
	visits []*visit.Visit
	nextID int

	// Err, when set, fails every call.
	Err error
	// EmptyCancel makes CancelVisit reply with no body.
	EmptyCancel bool
	// Calls records "<method> <id>" for each call received.
	Calls []string
}

// NewFakeAPI creates a fake holding the given visits.
func NewFakeAPI(role visit.Role, visits ...*visit.Visit) *FakeAPI {
	f := &FakeAPI{Role: role}
	for _, v := range visits {
		cp := *v
		f.visits = append(f.visits, &cp)
	}
	return f
}

func (f *FakeAPI) record(call string) error {
	f.Calls = append(f.Calls, call)
	return f.Err
}

func (f *FakeAPI) find(id string) (*visit.Visit, error) {
	for _, v := range f.visits {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, &client.APIError{StatusCode: 404, Message: "visit not found"}
}

// ListVisits implements API.
func (f *FakeAPI) ListVisits(ctx context.Context) ([]*visit.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list"); err != nil {
		return nil, err
	}
	out := make([]*visit.Visit, len(f.visits))
	for i, v := range f.visits {
		cp := *v
		out[i] = &cp
	}
	return out, nil
}

// ScheduleVisit implements API.
func (f *FakeAPI) ScheduleVisit(ctx context.Context, req client.ScheduleRequest) (*visit.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("schedule " + req.ListingID); err != nil {
		return nil, err
	}
	f.nextID++
	v := &visit.Visit{
		ID:            fmt.Sprintf("V%d", 100+f.nextID),
		ListingID:     req.ListingID,
		TenantID:      "T1",
		VisitDatetime: req.VisitDatetime,
		VisitNotes:    req.VisitNotes,
		Status:        visit.Scheduled,
	}
	f.visits = append([]*visit.Visit{v}, f.visits...)
	cp := *v
	return &cp, nil
}

// UpdateStatus implements API.
func (f *FakeAPI) UpdateStatus(ctx context.Context, id string, status visit.Status, feedback string) (*visit.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("status " + id); err != nil {
		return nil, err
	}
	v, err := f.find(id)
	if err != nil {
		return nil, err
	}
	if !visit.CanTransition(v.Status, status) {
		return nil, &client.APIError{StatusCode: 409, Message: fmt.Sprintf("cannot move visit from %s to %s", v.Status, status)}
	}
	v.Status = status
	if feedback != "" {
		if f.Role == visit.Staff {
			v.RepFeedback = feedback
		} else {
			v.TenantFeedback = feedback
		}
	}
	cp := *v
	return &cp, nil
}

// CancelVisit implements API.
func (f *FakeAPI) CancelVisit(ctx context.Context, id string) (*visit.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("cancel " + id); err != nil {
		return nil, err
	}
	v, err := f.find(id)
	if err != nil {
		return nil, err
	}
	if !visit.CanTransition(v.Status, visit.Cancelled) {
		return nil, &client.APIError{StatusCode: 409, Message: "visit cannot be cancelled"}
	}
	v.Status = visit.Cancelled
	if f.EmptyCancel {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

// SubmitDecision implements API.
func (f *FakeAPI) SubmitDecision(ctx context.Context, id string, decision visit.Decision, notes string) (*visit.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("decision " + id); err != nil {
		return nil, err
	}
	v, err := f.find(id)
	if err != nil {
		return nil, err
	}
	if v.Status != visit.Completed {
		return nil, &client.APIError{StatusCode: 409, Message: "visit is not completed"}
	}
	switch f.Role {
	case visit.Owner:
		v.OwnerDecision, v.OwnerDecisionNotes = decision, notes
	default:
		v.TenantDecision, v.TenantDecisionNotes = decision, notes
	}
	cp := *v
	return &cp, nil
}

// SetOwnerDecision changes the other party's decision server-side.
func (f *FakeAPI) SetOwnerDecision(id string, d visit.Decision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, err := f.find(id); err == nil {
		v.OwnerDecision = d
	}
}

// CallCount returns how many recorded calls equal call.
func (f *FakeAPI) CallCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == call {
			n++
		}
	}
	return n
}

package sandbox

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/evcraddock/nb/internal/db"
	"github.com/evcraddock/nb/internal/visit"
)

var (
	tenant = Caller{ID: "tenant-1", Role: visit.Tenant}
	owner  = Caller{ID: "owner-1", Role: visit.Owner}
	staff  = Caller{ID: "rep-1", Role: visit.Staff}
)

func TestScheduleAndList(t *testing.T) {
	repo := testRepo(t)

	v, err := repo.Schedule(tenant, "L1", "2030-01-01T10:00:00Z", "ground floor")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if v.ID == "" {
		t.Error("expected server-assigned ID")
	}
	if v.Status != visit.Scheduled {
		t.Errorf("status = %q, want scheduled", v.Status)
	}
	if v.TenantID != "tenant-1" {
		t.Errorf("tenant_id = %q", v.TenantID)
	}
	if v.VisitNotes != "ground floor" {
		t.Errorf("notes = %q", v.VisitNotes)
	}
	if v.CreatedAt == "" {
		t.Error("expected created_at")
	}

	for _, c := range []Caller{tenant, owner, staff} {
		visits, err := repo.ListFor(c)
		if err != nil {
			t.Fatalf("list as %s: %v", c.Role, err)
		}
		if len(visits) != 1 {
			t.Errorf("%s sees %d visits, want 1", c.Role, len(visits))
		}
	}

	other, err := repo.ListFor(Caller{ID: "tenant-2", Role: visit.Tenant})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other tenant sees %d visits, want 0", len(other))
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := testRepo(t)

	first, err := repo.Schedule(tenant, "L1", "2030-01-01T10:00:00Z", "")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	second, err := repo.Schedule(tenant, "L1", "2030-02-01T10:00:00Z", "")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	visits, err := repo.ListFor(tenant)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("got %d visits, want 2", len(visits))
	}
	if visits[0].ID != second.ID || visits[1].ID != first.ID {
		t.Errorf("order = %s, %s; want newest first", visits[0].ID, visits[1].ID)
	}
}

func TestScheduleUnknownListing(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.Schedule(tenant, "nope", "2030-01-01T10:00:00Z", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	repo := testRepo(t)
	v := mustSchedule(t, repo)

	done, err := repo.UpdateStatus(staff, v.ID, visit.Completed, "tenant liked it")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != visit.Completed {
		t.Errorf("status = %q", done.Status)
	}
	if done.RepFeedback != "tenant liked it" {
		t.Errorf("rep_feedback = %q", done.RepFeedback)
	}

	if _, err := repo.UpdateStatus(tenant, v.ID, visit.Cancelled, ""); !errors.Is(err, ErrConflict) {
		t.Errorf("cancel completed: err = %v, want ErrConflict", err)
	}
	if _, err := repo.UpdateStatus(tenant, v.ID, visit.Scheduled, ""); !errors.Is(err, ErrConflict) {
		t.Errorf("reopen: err = %v, want ErrConflict", err)
	}
}

func TestUpdateStatusRacingTransitionsOneWins(t *testing.T) {
	repo := testRepo(t)
	v := mustSchedule(t, repo)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < n; i++ {
		target := visit.Completed
		if i%2 == 1 {
			target = visit.Cancelled
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateStatus(staff, v.ID, target, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("update %s: %v", target, err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("successful transitions = %d, want 1", wins)
	}
	if conflicts != n-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, n-1)
	}
}

func TestUpdateStatusForbiddenForStranger(t *testing.T) {
	repo := testRepo(t)
	v := mustSchedule(t, repo)

	_, err := repo.UpdateStatus(Caller{ID: "owner-2", Role: visit.Owner}, v.ID, visit.Cancelled, "")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestSubmitDecision(t *testing.T) {
	repo := testRepo(t)
	v := mustSchedule(t, repo)

	if _, err := repo.SubmitDecision(tenant, v.ID, visit.Interested, ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("decide before completion: err = %v, want ErrConflict", err)
	}

	if _, err := repo.UpdateStatus(tenant, v.ID, visit.Completed, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := repo.SubmitDecision(tenant, v.ID, visit.Interested, "looks good")
	if err != nil {
		t.Fatalf("tenant decide: %v", err)
	}
	if got.TenantDecision != visit.Interested || got.TenantDecisionNotes != "looks good" {
		t.Errorf("tenant decision = %q %q", got.TenantDecision, got.TenantDecisionNotes)
	}
	if visit.IsMatch(got) {
		t.Error("expected no match before owner decides")
	}

	got, err = repo.SubmitDecision(owner, v.ID, visit.Interested, "")
	if err != nil {
		t.Fatalf("owner decide: %v", err)
	}
	if !visit.IsMatch(got) {
		t.Error("expected match after both interested")
	}

	if _, err := repo.SubmitDecision(staff, v.ID, visit.Interested, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("staff decide: err = %v, want ErrForbidden", err)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.UpdateStatus(staff, "missing", visit.Completed, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func mustSchedule(t *testing.T, repo *Repository) *visit.Visit {
	t.Helper()
	v, err := repo.Schedule(tenant, "L1", "2030-01-01T10:00:00Z", "")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return v
}

func testRepo(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	repo := NewRepository(d)
	if err := repo.AddListing("L1", "owner-1", "2BHK in Baneshwor"); err != nil {
		t.Fatalf("add listing: %v", err)
	}
	return repo
}

package email

import (
	"net/url"
	"strings"
	"testing"

	"github.com/evcraddock/nb/internal/visit"
)

func TestDecisionLink(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"default base", "", DefaultLinkBase + "?action=interested&visitId=V+1"},
		{"custom base", "http://localhost:3000/visits", "http://localhost:3000/visits?action=interested&visitId=V+1"},
		{"base with query", "http://app.test/open?src=mail", "http://app.test/open?src=mail&action=interested&visitId=V+1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecisionLink(tt.base, "V 1", visit.Interested); got != tt.want {
				t.Errorf("DecisionLink = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFollowUp(t *testing.T) {
	v := &visit.Visit{
		ID:            "V1",
		ListingID:     "L1",
		TenantID:      "tenant-1",
		VisitDatetime: "2030-01-01T10:00:00Z",
		Status:        visit.Completed,
	}

	msg, err := FollowUp(v, visit.Tenant, "owner-1", "")
	if err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if msg.To != "tenant-1" {
		t.Errorf("to = %q, want tenant-1", msg.To)
	}
	if !strings.Contains(msg.Subject, "L1") {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Tue 1 Jan 2030 10:00 UTC") {
		t.Errorf("expected visit time in body:\n%s", msg.Body)
	}
	if len(msg.Links) != 3 {
		t.Fatalf("got %d links, want 3", len(msg.Links))
	}
	for d, link := range msg.Links {
		if !strings.Contains(msg.Body, link) {
			t.Errorf("body missing %s link", d)
		}
		u, err := url.Parse(link)
		if err != nil {
			t.Fatalf("parse %q: %v", link, err)
		}
		if u.Query().Get("visitId") != "V1" || u.Query().Get("action") != string(d) {
			t.Errorf("link %q does not carry V1/%s", link, d)
		}
	}

	owner, err := FollowUp(v, visit.Owner, "owner-1", "")
	if err != nil {
		t.Fatalf("owner follow-up: %v", err)
	}
	if owner.To != "owner-1" || !strings.Contains(owner.Body, "rent to this tenant") {
		t.Errorf("owner message = %+v", owner)
	}
}

func TestFollowUpRejects(t *testing.T) {
	scheduled := &visit.Visit{ID: "V1", Status: visit.Scheduled}
	if _, err := FollowUp(scheduled, visit.Tenant, "", ""); err == nil {
		t.Error("expected error for scheduled visit")
	}

	completed := &visit.Visit{ID: "V1", Status: visit.Completed}
	if _, err := FollowUp(completed, visit.Staff, "", ""); err == nil {
		t.Error("expected error for staff")
	}
}

package cli

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/evcraddock/nb/internal/visit"
)

func TestVisitFlag(t *testing.T) {
	tests := []struct {
		name string
		v    visit.Visit
		role visit.Role
		want string
	}{
		{"scheduled", visit.Visit{Status: visit.Scheduled}, visit.Tenant, ""},
		{"needs tenant decision", visit.Visit{Status: visit.Completed}, visit.Tenant, "! decision needed"},
		{"undecided still needs", visit.Visit{Status: visit.Completed, OwnerDecision: visit.Undecided}, visit.Owner, "! decision needed"},
		{"decided", visit.Visit{Status: visit.Completed, TenantDecision: visit.NotInterested}, visit.Tenant, ""},
		{"staff never flagged", visit.Visit{Status: visit.Completed}, visit.Staff, ""},
		{"match", visit.Visit{Status: visit.Completed, TenantDecision: visit.Interested, OwnerDecision: visit.Interested}, visit.Staff, "★ match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := visitFlag(&tt.v, tt.role); got != tt.want {
				t.Errorf("visitFlag = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatWhen(t *testing.T) {
	if got := formatWhen("not a date"); got != "not a date" {
		t.Errorf("formatWhen passthrough = %q", got)
	}
	if got := formatWhen("2030-01-01T10:00:00Z"); len(got) != len("2030-01-01 10:00") {
		t.Errorf("formatWhen = %q, want YYYY-MM-DD HH:MM", got)
	}
}

func TestFormatActions(t *testing.T) {
	if got := formatActions(nil); got != "none" {
		t.Errorf("formatActions(nil) = %q", got)
	}
	got := formatActions([]visit.Action{visit.ActionComplete, visit.ActionCancel})
	if got != "complete, cancel" {
		t.Errorf("formatActions = %q", got)
	}
}

func TestPrintVisitTable(t *testing.T) {
	var buf bytes.Buffer
	visits := []*visit.Visit{
		{ID: "V2", ListingID: "L2", VisitDatetime: "2030-02-01T10:00:00Z", Status: visit.Scheduled},
		{ID: "V1", ListingID: "L1", VisitDatetime: "2030-01-01T10:00:00Z", Status: visit.Completed, TenantDecision: visit.Interested},
	}
	if err := printVisitTable(&buf, visits, visit.Owner); err != nil {
		t.Fatalf("print: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ID", "V2", "Scheduled", "Interested", "! decision needed", "Total: 2 visits"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "V2") > strings.Index(out, "V1") {
		t.Error("expected list order to be kept")
	}
}

func TestPrintVisitTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := printVisitTable(&buf, nil, visit.Tenant); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No visits yet.\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world!", 8, "hello..."},
		{"devanagari fits", "ललितपुर", 7, "ललितपुर"},
		{"devanagari long", "ललितपुर-फ्लैट", 8, "ललितप..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncate(tt.input, tt.max)
			if result != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, result, tt.expected)
			}
			if !utf8.ValidString(result) {
				t.Errorf("truncate(%q, %d) returned invalid UTF-8", tt.input, tt.max)
			}
		})
	}
}

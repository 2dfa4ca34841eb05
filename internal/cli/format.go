package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/nb/internal/visit"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVisit prints a single visit in text format.
func printVisit(w io.Writer, v *visit.Visit, role visit.Role) {
	fmt.Fprintf(w, "Visit %s\n", v.ID)
	fmt.Fprintf(w, "  Listing:  %s\n", v.ListingID)
	fmt.Fprintf(w, "  When:     %s\n", formatWhen(v.VisitDatetime))
	fmt.Fprintf(w, "  Status:   %s\n", v.Status.Label())
	if v.VisitNotes != "" {
		fmt.Fprintf(w, "  Notes:    %s\n", v.VisitNotes)
	}
	if v.TenantFeedback != "" {
		fmt.Fprintf(w, "  Feedback: %s\n", v.TenantFeedback)
	}
	if v.RepFeedback != "" {
		fmt.Fprintf(w, "  Rep:      %s\n", v.RepFeedback)
	}
	if v.Status == visit.Completed {
		fmt.Fprintf(w, "  Tenant:   %s\n", v.TenantDecision.Label())
		fmt.Fprintf(w, "  Owner:    %s\n", v.OwnerDecision.Label())
	}
	if flag := visitFlag(v, role); flag != "" {
		fmt.Fprintf(w, "  %s\n", flag)
	}
}

// printVisitTable prints visits as a formatted table.
func printVisitTable(out io.Writer, visits []*visit.Visit, role visit.Role) error {
	if len(visits) == 0 {
		fmt.Fprintln(out, "No visits yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tLISTING\tWHEN\tSTATUS\tTENANT\tOWNER\t"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t-------\t----\t------\t------\t-----\t"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, v := range visits {
		tenant, owner := "-", "-"
		if v.Status == visit.Completed {
			tenant, owner = v.TenantDecision.Label(), v.OwnerDecision.Label()
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(v.ID, 12), truncate(v.ListingID, 20), formatWhen(v.VisitDatetime),
			v.Status.Label(), tenant, owner, visitFlag(v, role)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(out, "\nTotal: %d visits\n", len(visits))
	return nil
}

// visitFlag returns the marker shown next to a visit, if any.
func visitFlag(v *visit.Visit, role visit.Role) string {
	switch {
	case visit.IsMatch(v):
		return "★ match"
	case visit.NeedsDecision(v, role):
		return "! decision needed"
	default:
		return ""
	}
}

// formatWhen renders an ISO-8601 instant in local time. Unparseable
// values are shown as sent.
func formatWhen(s string) string {
	t, err := visit.ParseDatetime(s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}

// formatActions lists the controls available for a visit.
func formatActions(actions []visit.Action) string {
	if len(actions) == 0 {
		return "none"
	}
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/controller"
)

// localLayout is the shorthand accepted alongside ISO-8601.
const localLayout = "2006-01-02 15:04"

func newScheduleCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "schedule <listing-id> <datetime>",
		Short: "Schedule a visit to a listing",
		Long: `Schedule a visit to a listing. The time must be in the future.

Datetime formats: ISO-8601 (2030-01-01T10:00:00Z) or local "YYYY-MM-DD HH:MM"

Examples:
  nb schedule L1 2030-01-01T10:00:00Z
  nb schedule L1 "2030-01-01 10:00" --notes "ground floor unit"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd, args, notes)
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "n", "", "optional notes for the visit")

	return cmd
}

func runSchedule(cmd *cobra.Command, args []string, notes string) error {
	when, err := normalizeDatetime(args[1])
	if err != nil {
		return err
	}

	ctl, err := newController(cmd)
	if err != nil {
		return err
	}

	ctl.OpenSchedule(args[0])
	ctl.EditDraft(func(d *controller.Draft) {
		d.Datetime = when
		d.Notes = notes
	})

	v, err := ctl.Confirm(cmd.Context())
	if err != nil {
		return userError(err)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, v)
	}
	fmt.Fprintf(out, "✓ Visit scheduled (%s)\n", v.ID)
	printVisit(out, v, ctl.Role())
	return nil
}

// normalizeDatetime turns user input into an ISO-8601 instant. Inputs
// without a zone are read in local time.
func normalizeDatetime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("date and time are required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(time.RFC3339), nil
	}
	t, err := time.ParseInLocation(localLayout, s, time.Local)
	if err != nil {
		return "", fmt.Errorf("invalid datetime: %q (use 2030-01-01T10:00:00Z or \"2030-01-01 10:00\")", s)
	}
	return t.Format(time.RFC3339), nil
}

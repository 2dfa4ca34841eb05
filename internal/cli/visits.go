package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/visit"
)

func newVisitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visits [visit-id]",
		Short: "List your visits",
		Long: `List the visits you take part in, newest first.

Completed visits show both decisions. Visits where both sides are
interested are marked as a match; completed visits still waiting on
your decision are flagged.

With a visit ID, show that visit and the actions available to you.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVisits,
	}
}

func runVisits(cmd *cobra.Command, args []string) error {
	ctl, err := newController(cmd)
	if err != nil {
		return err
	}
	if err := ctl.Load(cmd.Context()); err != nil {
		return userError(err)
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		v, err := ctl.Store().Get(args[0])
		if err != nil {
			return fmt.Errorf("visit %s: %w", args[0], err)
		}
		if isJSON() {
			return printJSON(out, v)
		}
		printVisit(out, v, ctl.Role())
		fmt.Fprintf(out, "  Actions:  %s\n", formatActions(ctl.Controls(v)))
		return nil
	}

	visits := ctl.Store().Visits()
	if isJSON() {
		return printJSON(out, visits)
	}
	if err := printVisitTable(out, visits, ctl.Role()); err != nil {
		return err
	}
	if n := len(pendingDecisions(visits, ctl.Role())); n > 0 {
		fmt.Fprintf(out, "%d completed visit(s) need your decision. Use 'nb decide <visit-id> <decision>'.\n", n)
	}
	return nil
}

// pendingDecisions returns the visits that still need role's decision.
func pendingDecisions(visits []*visit.Visit, role visit.Role) []*visit.Visit {
	var out []*visit.Visit
	for _, v := range visits {
		if visit.NeedsDecision(v, role) {
			out = append(out, v)
		}
	}
	return out
}

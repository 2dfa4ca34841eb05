package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/controller"
	"github.com/evcraddock/nb/internal/visit"
)

func newDecideCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "decide <visit-id> <decision>",
		Short: "Record your decision on a completed visit",
		Long: `Record whether you are interested after a completed visit.

Decisions: interested, not_interested, undecided
You can change your decision later; the last one counts.

Examples:
  nb decide 5f2c interested
  nb decide 5f2c not_interested --notes "too far from work"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecide(cmd, args, notes)
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "n", "", "optional notes for the decision")

	return cmd
}

func runDecide(cmd *cobra.Command, args []string, notes string) error {
	id := args[0]
	decision, err := visit.ParseDecision(args[1])
	if err != nil {
		return err
	}

	ctl, err := newController(cmd)
	if err != nil {
		return err
	}
	if err := ctl.Load(cmd.Context()); err != nil {
		return userError(err)
	}

	if err := ctl.OpenDecision(id); err != nil {
		return fmt.Errorf("visit %s: %w", id, err)
	}
	ctl.EditDraft(func(d *controller.Draft) {
		d.Decision = decision
		if notes != "" {
			d.DecisionNotes = notes
		}
	})

	v, err := ctl.Confirm(cmd.Context())
	if err != nil {
		return userError(err)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, v)
	}
	printDecision(out, v)
	return nil
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/controller"
	"github.com/evcraddock/nb/internal/visit"
)

func newCompleteCmd() *cobra.Command {
	var feedback, decision, decisionNotes string

	cmd := &cobra.Command{
		Use:   "complete <visit-id>",
		Short: "Mark a visit as completed",
		Long: `Mark a scheduled visit as completed, then record your decision.

Tenants and owners are asked whether they are interested right away.
Pass --decision to answer without a prompt, or leave the answer blank
to decide later with 'nb decide'.

Examples:
  nb complete 5f2c --feedback "bright rooms, noisy street"
  nb complete 5f2c --decision interested --decision-notes "can move in March"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, args[0], feedback, decision, decisionNotes)
		},
	}

	cmd.Flags().StringVarP(&feedback, "feedback", "f", "", "feedback about the visit")
	cmd.Flags().StringVarP(&decision, "decision", "d", "", "decision to record afterwards (interested|not_interested|undecided)")
	cmd.Flags().StringVar(&decisionNotes, "decision-notes", "", "notes for the decision")

	return cmd
}

func runComplete(cmd *cobra.Command, id, feedback, decision, decisionNotes string) error {
	ctl, err := newController(cmd)
	if err != nil {
		return err
	}
	if err := ctl.Load(cmd.Context()); err != nil {
		return userError(err)
	}

	if err := ctl.OpenComplete(id); err != nil {
		return fmt.Errorf("visit %s: %w", id, err)
	}
	ctl.EditDraft(func(d *controller.Draft) { d.Feedback = feedback })

	out := cmd.OutOrStdout()
	p := newPrompter(cmd)
	ok, err := p.confirm(fmt.Sprintf("Mark visit %s as completed?", id))
	if err != nil {
		return err
	}
	if !ok {
		ctl.Dismiss()
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	v, err := ctl.Confirm(cmd.Context())
	if err != nil {
		return userError(err)
	}
	if !isJSON() {
		fmt.Fprintf(out, "✓ Visit %s marked completed\n", id)
	}

	if m, _ := ctl.Modal(); m == controller.ModalDecision {
		decided, err := promptDecision(cmd, ctl, p, decision, decisionNotes)
		if err != nil {
			return err
		}
		if decided != nil {
			v = decided
		}
	}

	if isJSON() {
		return printJSON(out, v)
	}
	return nil
}

// promptDecision fills and confirms the open decision modal. A blank
// answer dismisses it and returns nil.
func promptDecision(cmd *cobra.Command, ctl *controller.Controller, p *prompter, answer, notes string) (*visit.Visit, error) {
	out := cmd.OutOrStdout()
	_, id := ctl.Modal()
	hint := fmt.Sprintf("Record your decision later with 'nb decide %s <decision>'.", id)

	if answer == "" && !flagYes {
		var err error
		answer, err = p.ask("Are you interested? (interested/not_interested/undecided, blank to skip): ")
		if err != nil {
			return nil, err
		}
	}
	if answer == "" {
		ctl.Dismiss()
		if !isJSON() {
			fmt.Fprintln(out, hint)
		}
		return nil, nil
	}

	d, err := visit.ParseDecision(answer)
	if err != nil {
		ctl.Dismiss()
		return nil, err
	}
	ctl.EditDraft(func(draft *controller.Draft) {
		draft.Decision = d
		if notes != "" {
			draft.DecisionNotes = notes
		}
	})

	v, err := ctl.Confirm(cmd.Context())
	if err != nil {
		ctl.Dismiss()
		return nil, fmt.Errorf("%s (%s)", controller.Message(err), hint)
	}
	if !isJSON() {
		printDecision(out, v)
	}
	return v, nil
}

// printDecision reports a recorded decision and whether it made a match.
func printDecision(w io.Writer, v *visit.Visit) {
	fmt.Fprintf(w, "✓ Decision recorded for visit %s\n", v.ID)
	if visit.IsMatch(v) {
		fmt.Fprintln(w, "★ It's a match! Both you and the other side are interested.")
	}
}

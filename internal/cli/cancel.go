package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <visit-id>",
		Short: "Cancel a scheduled visit",
		Long:  "Cancel a scheduled visit. Completed and cancelled visits cannot be cancelled.",
		Args:  cobra.ExactArgs(1),
		RunE:  runCancel,
	}
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctl, err := newController(cmd)
	if err != nil {
		return err
	}
	if err := ctl.Load(cmd.Context()); err != nil {
		return userError(err)
	}

	id := args[0]
	if err := ctl.OpenCancel(id); err != nil {
		return fmt.Errorf("visit %s: %w", id, err)
	}

	v, _ := ctl.Store().Get(id)
	out := cmd.OutOrStdout()
	ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Cancel the visit to %s on %s?", v.ListingID, formatWhen(v.VisitDatetime)))
	if err != nil {
		return err
	}
	if !ok {
		ctl.Dismiss()
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	v, err = ctl.Confirm(cmd.Context())
	if err != nil {
		return userError(err)
	}
	if isJSON() {
		return printJSON(out, v)
	}
	fmt.Fprintf(out, "✓ Visit %s cancelled\n", id)
	return nil
}

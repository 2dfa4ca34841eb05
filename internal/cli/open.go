package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/controller"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <link>",
		Short: "Act on a visit link from an email",
		Long: `Act on a link from a visit follow-up email.

The link carries the visit and your answer, for example
  https://nobroker.example/visits?visitId=5f2c&action=interested
The decision is submitted right away, without a prompt.
A bare query string such as "visitId=5f2c&action=interested" works too.`,
		Args: cobra.ExactArgs(1),
		RunE: runOpen,
	}
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctl, err := newController(cmd)
	if err != nil {
		return err
	}
	// The list is only for display; the link is handled even if it fails.
	if err := ctl.Load(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", controller.Message(err))
	}

	v, err := ctl.HandleDeepLink(cmd.Context(), args[0])
	if err != nil {
		return userError(err)
	}

	out := cmd.OutOrStdout()
	if v == nil {
		if isJSON() {
			return printJSON(out, ctl.Store().Visits())
		}
		return printVisitTable(out, ctl.Store().Visits(), ctl.Role())
	}
	if isJSON() {
		return printJSON(out, v)
	}
	printDecision(out, v)
	return nil
}

// Package cli defines the cobra command tree for nb.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/auth"
	"github.com/evcraddock/nb/internal/client"
	"github.com/evcraddock/nb/internal/controller"
	"github.com/evcraddock/nb/internal/logging"
	"github.com/evcraddock/nb/internal/store"
)

var (
	flagFormat string
	flagRole   string
	flagYes    bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nb",
		Short: "Schedule and follow up on rental visits",
		Long: "A client for No-Broker Kathmandu visits. Schedule viewings, cancel or complete them, " +
			"and record whether you are interested once a visit is done.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadDotEnv()
			logging.SetupWriter(cmd.ErrOrStderr(), devMode())
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagRole, "role", "", "acting role: tenant, owner or staff (default: from config or tenant)")
	root.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "skip confirmation prompts")

	root.AddCommand(
		newVisitsCmd(),
		newScheduleCmd(),
		newCancelCmd(),
		newCompleteCmd(),
		newDecideCmd(),
		newOpenCmd(),
		newWatchCmd(),
		newSandboxCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// newAPIClient creates an HTTP client for the visit API. A 401 from the
// server prints a re-login hint once.
func newAPIClient(cmd *cobra.Command) *client.Client {
	sess := auth.NewSession(getToken())
	sess.OnExpired(func() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Session expired. Run 'nb login' to sign in again.")
	})
	return client.New(getServerURL(), sess, getTimeout())
}

// newController wires client, store and controller for the acting role.
func newController(cmd *cobra.Command) (*controller.Controller, error) {
	role, err := getRole()
	if err != nil {
		return nil, err
	}
	return controller.New(store.New(newAPIClient(cmd)), role), nil
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// userError replaces err with the message a user should see.
func userError(err error) error {
	return errors.New(controller.Message(err))
}

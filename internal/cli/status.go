package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/auth"
	"github.com/evcraddock/nb/internal/client"
	"github.com/evcraddock/nb/internal/controller"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks if the stored access token is accepted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	serverURL := getServerURL()
	token := getToken()

	fmt.Fprintf(out, "Server:  %s\n", serverURL)

	role, err := getRole()
	if err != nil {
		fmt.Fprintf(out, "Role:    ✗ %v\n", err)
	} else {
		fmt.Fprintf(out, "Role:    %s\n", role)
	}

	if token == "" {
		fmt.Fprintln(out, "Token:   not configured")
		fmt.Fprintln(out, "\nRun 'nb login' to authenticate.")
		return nil
	}

	prefix := token
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fmt.Fprintf(out, "Token:   %s…\n", prefix)
	if exp, ok := auth.ExpiresAt(token); ok {
		fmt.Fprintf(out, "Expires: %s\n", exp.Local().Format(localLayout))
	}

	c := client.New(serverURL, auth.NewSession(token), 5*time.Second)
	visits, err := c.ListVisits(cmd.Context())
	switch {
	case err == nil:
		fmt.Fprintf(out, "Status:  ✓ connected and authenticated (%d visits)\n", len(visits))
	case errors.Is(err, auth.ErrSessionExpired), errors.Is(err, client.ErrUnauthorized):
		fmt.Fprintln(out, "Status:  ✗ token rejected or expired")
		fmt.Fprintln(out, "\nRun 'nb login' to re-authenticate.")
	case client.IsNetwork(err):
		fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
	default:
		fmt.Fprintf(out, "Status:  ✗ %s\n", controller.Message(err))
	}

	return nil
}

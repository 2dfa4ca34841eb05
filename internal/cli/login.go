package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/auth"
	"github.com/evcraddock/nb/internal/visit"
)

func newLoginCmd() *cobra.Command {
	var (
		server    string
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store an access token",
		Long: `Opens a browser to sign in, then stores the access token you paste.

'nb sandbox' has no sign-in page. It prints a token for each test identity
when it starts; paste one of those here (--no-browser skips the browser).

The role given with --role is saved too and used by later commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, server, noBrowser)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or "+defaultServerURL+")")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the sign-in URL without opening a browser")

	return cmd
}

func runLogin(cmd *cobra.Command, serverFlag string, noBrowser bool) error {
	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}

	out := cmd.OutOrStdout()
	authURL := strings.TrimRight(serverURL, "/") + "/cli/auth"

	if hasSignInPage(cmd.Context(), authURL) {
		if !noBrowser {
			fmt.Fprintln(out, "Opening browser for authentication...")
			if err := openBrowser(authURL); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\n", err)
			}
		}
		fmt.Fprintf(out, "Sign in at: %s\n\n", authURL)
	} else {
		fmt.Fprintf(out, "%s has no sign-in page.\n", serverURL)
		fmt.Fprintln(out, "For 'nb sandbox', use a token from its startup output.")
		fmt.Fprintln(out)
	}

	token, err := newPrompter(cmd).ask("Paste your access token: ")
	if err != nil {
		return err
	}
	if err := validateToken(token, time.Now()); err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.Token = token
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}
	if flagRole != "" {
		role, err := visit.ParseRole(flagRole)
		if err != nil {
			return err
		}
		cfg.Role = string(role)
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(out, "✓ Token saved. You're logged in!")
	return nil
}

// hasSignInPage reports whether url answers without a client error.
// An unreachable server is assumed to have one.
func hasSignInPage(ctx context.Context, url string) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return true
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return true
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

// validateToken checks that the token is present and, when it carries an
// expiry, not already expired.
func validateToken(token string, now time.Time) error {
	if token == "" {
		return fmt.Errorf("no access token provided")
	}
	if strings.ContainsAny(token, " \t") {
		return fmt.Errorf("invalid access token format (contains whitespace)")
	}
	if exp, ok := auth.ExpiresAt(token); ok && !exp.After(now) {
		return fmt.Errorf("access token expired at %s", exp.Local().Format(localLayout))
	}
	return nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

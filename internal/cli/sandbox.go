package cli

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/auth"
	"github.com/evcraddock/nb/internal/db"
	"github.com/evcraddock/nb/internal/email"
	"github.com/evcraddock/nb/internal/sandbox"
	"github.com/evcraddock/nb/internal/visit"
)

const devTokenTTL = 24 * time.Hour

func newSandboxCmd() *cobra.Command {
	var (
		port     int
		dbPath   string
		linkBase string
		listings []string
	)

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run a local visit API for development",
		Long: `Start a local HTTP server that speaks the visit API, backed by SQLite.

Listings are seeded from --listing ID:OWNER[:TITLE]. Development tokens
for a tenant, each listing owner, and a staff rep are printed on start.
Point the CLI at it with NB_SERVER_URL and NB_TOKEN.

When a visit is completed the follow-up emails for tenant and owner are
printed instead of sent. Their links work with 'nb open'.

The signing secret comes from NB_SANDBOX_SECRET; without it a random
secret is used and tokens stop working after a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSandbox(cmd, port, dbPath, linkBase, listings)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: ~/.config/nb/sandbox.db)")
	cmd.Flags().StringVar(&linkBase, "link-base", email.DefaultLinkBase, "base URL for decision links in follow-up emails")
	cmd.Flags().StringArrayVar(&listings, "listing", []string{"L1:owner-1:Sample flat"}, "listing to seed as ID:OWNER[:TITLE] (repeatable)")

	return cmd
}

func runSandbox(cmd *cobra.Command, port int, dbPath, linkBase string, listings []string) error {
	seeds, err := parseListings(listings)
	if err != nil {
		return err
	}

	database, err := openDB(dbPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	secret := []byte(os.Getenv("NB_SANDBOX_SECRET"))
	if len(secret) == 0 {
		secret = []byte(uuid.NewString())
	}

	out := cmd.OutOrStdout()
	srv := sandbox.NewServer(database, secret, sandbox.WithFollowUp(linkBase, printFollowUp(out)))
	for _, l := range seeds {
		if err := srv.Repository().AddListing(l.id, l.owner, l.title); err != nil {
			return fmt.Errorf("seeding listing %s: %w", l.id, err)
		}
	}

	fmt.Fprintf(out, "Sandbox API on http://localhost:%d\n\n", port)
	if err := printDevTokens(out, secret, seeds); err != nil {
		return err
	}

	return srv.ListenAndServe(port)
}

// printFollowUp returns a sink that writes follow-up emails to w.
func printFollowUp(w io.Writer) func(email.Message) {
	var mu sync.Mutex
	return func(m email.Message) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\n--- mail to %s (%s) ---\nSubject: %s\n\n%s", m.To, m.Role, m.Subject, m.Body)
	}
}

type listingSeed struct {
	id, owner, title string
}

// parseListings reads ID:OWNER[:TITLE] specs.
func parseListings(specs []string) ([]listingSeed, error) {
	seeds := make([]listingSeed, 0, len(specs))
	for _, s := range specs {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("invalid listing %q (use ID:OWNER[:TITLE])", s)
		}
		l := listingSeed{id: strings.TrimSpace(parts[0]), owner: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			l.title = strings.TrimSpace(parts[2])
		}
		seeds = append(seeds, l)
	}
	return seeds, nil
}

// printDevTokens issues a token per sandbox identity and prints them.
func printDevTokens(w io.Writer, secret []byte, seeds []listingSeed) error {
	type identity struct {
		subject string
		role    visit.Role
	}
	ids := []identity{{"tenant-1", visit.Tenant}}
	seen := map[string]bool{}
	for _, l := range seeds {
		if !seen[l.owner] {
			seen[l.owner] = true
			ids = append(ids, identity{l.owner, visit.Owner})
		}
	}
	ids = append(ids, identity{"rep-1", visit.Staff})

	fmt.Fprintf(w, "Development tokens (valid %s):\n", devTokenTTL)
	for _, id := range ids {
		tok, err := auth.IssueToken(secret, id.subject, id.role, devTokenTTL)
		if err != nil {
			return fmt.Errorf("issuing token for %s: %w", id.subject, err)
		}
		fmt.Fprintf(w, "  %-6s %-10s %s\n", id.role, id.subject, tok)
	}
	return nil
}

// openDB opens the sandbox database at path or the default location.
func openDB(path string) (*sql.DB, error) {
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/nb/internal/auth"
	"github.com/evcraddock/nb/internal/visit"
)

func TestValidateToken(t *testing.T) {
	secret := []byte("s")
	live, err := auth.IssueToken(secret, "tenant-1", visit.Tenant, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	stale, err := auth.IssueToken(secret, "tenant-1", visit.Tenant, -time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"opaque", "abc123def456", false},
		{"live jwt", live, false},
		{"empty", "", true},
		{"whitespace", "abc def", true},
		{"expired jwt", stale, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateToken(tt.token, time.Now())
			if (err != nil) != tt.wantErr {
				t.Errorf("validateToken err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoginSavesTokenAndRole(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NB_SERVER_URL", "")

	out, err := executeCommandWithInput("tok-abc\n", "login", "--no-browser", "--server", "http://api.test", "--role", "owner")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "http://api.test/cli/auth") {
		t.Errorf("expected sign-in URL in output, got:\n%s", out)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token != "tok-abc" || cfg.ServerURL != "http://api.test" || cfg.Role != "owner" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := executeCommandWithInput("\n", "login", "--no-browser"); err == nil {
		t.Fatal("expected error for empty token")
	}
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token != "" {
		t.Errorf("token = %q, want nothing saved", cfg.Token)
	}
}

func TestLoginAgainstSandboxSkipsSignInPage(t *testing.T) {
	startSandbox(t)
	tok, err := auth.IssueToken(testSecret, "owner-1", visit.Owner, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	// No --no-browser: the sandbox has no page to open.
	out, err := executeCommandWithInput(tok+"\n", "login", "--role", "owner")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if strings.Contains(out, "Opening browser") || strings.Contains(out, "Sign in at:") {
		t.Errorf("expected no browser step, got:\n%s", out)
	}
	if !strings.Contains(out, "use a token from its startup output") {
		t.Errorf("expected sandbox token hint, got:\n%s", out)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token != tok || cfg.Role != "owner" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestHasSignInPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cli/auth" {
			fmt.Fprint(w, "<html>sign in</html>")
			return
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	ctx := context.Background()
	if !hasSignInPage(ctx, ts.URL+"/cli/auth") {
		t.Error("expected sign-in page at /cli/auth")
	}
	if hasSignInPage(ctx, ts.URL+"/missing") {
		t.Error("expected no sign-in page at /missing")
	}
}

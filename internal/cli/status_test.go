package cli

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStatusNoToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NB_TOKEN", "")
	t.Setenv("NB_SERVER_URL", "http://localhost:9999")

	out, err := executeCommand("status")
	if err != nil {
		t.Fatalf("status with no token: %v", err)
	}
	if !strings.Contains(out, "Token:   not configured") {
		t.Errorf("output:\n%s", out)
	}
}

func TestStatusShortToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NB_TOKEN", "ab")
	t.Setenv("NB_SERVER_URL", "http://127.0.0.1:1")

	// Should not panic with a short token
	out, err := executeCommand("status")
	if err != nil {
		t.Fatalf("status with short token: %v", err)
	}
	if !strings.Contains(out, "cannot reach server") {
		t.Errorf("output:\n%s", out)
	}
}

func TestStatusWithSandbox(t *testing.T) {
	startSandbox(t)

	out, err := executeCommand("status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Role:    tenant", "Expires:", "connected and authenticated (0 visits)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusWithRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("NB_TOKEN", "badtoken1234567890")
	t.Setenv("NB_SERVER_URL", srv.URL)

	// Should not return error, just prints status
	out, err := executeCommand("status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "token rejected or expired") {
		t.Errorf("output:\n%s", out)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/finaidhub/hub/pkg/client"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(client.LoginResponse{
			AccessToken: "tok",
			ExpiresAt:   time.Now().Add(time.Hour),
			UserType:    "admin",
			UserDetails: client.User{ID: "u1", Username: "admin", Role: "admin"},
		})
	})
	mux.HandleFunc("GET /api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(client.User{ID: "u1", Username: "admin", Email: "admin@finaidhub.io", Role: "admin", Status: "active"})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"logged out"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writePassword(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pw")
	if err := os.WriteFile(path, []byte("admin123\n"), 0o600); err != nil {
		t.Fatalf("write password: %v", err)
	}
	return path
}

func TestRun_LoginWhoamiLogout(t *testing.T) {
	srv := fakeServer(t)
	session := filepath.Join(t.TempDir(), "session.json")
	common := []string{"--server", srv.URL, "--session", session}
	ctx := context.Background()

	var out, errOut bytes.Buffer
	args := append([]string{"login", "-u", "admin", "-r", "admin", "--password-file", writePassword(t)}, common...)
	if err := run(ctx, args, &out, &errOut); err != nil {
		t.Fatalf("login: %v (%s)", err, errOut.String())
	}
	if !strings.Contains(out.String(), "Dashboard: /admin/dashboard") {
		t.Fatalf("unexpected login output: %q", out.String())
	}

	out.Reset()
	if err := run(ctx, append([]string{"whoami"}, common...), &out, &errOut); err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out.String(), "admin <admin@finaidhub.io>") {
		t.Fatalf("unexpected whoami output: %q", out.String())
	}

	out.Reset()
	if err := run(ctx, append([]string{"logout"}, common...), &out, &errOut); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := os.Stat(session); !os.IsNotExist(err) {
		t.Fatalf("session file should be removed, stat err=%v", err)
	}
}

func TestRun_LoginRoleMismatch(t *testing.T) {
	srv := fakeServer(t)
	session := filepath.Join(t.TempDir(), "session.json")

	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{
		"login", "-u", "admin", "-r", "accountant",
		"--password-file", writePassword(t),
		"--server", srv.URL, "--session", session,
	}, &out, &errOut)
	if !errors.Is(err, client.ErrRoleMismatch) {
		t.Fatalf("expected ErrRoleMismatch, got %v", err)
	}
	if _, err := os.Stat(session); !os.IsNotExist(err) {
		t.Fatalf("no session may be written on mismatch")
	}
}

func TestRun_UsageErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), []string{"frobnicate"}, &out, &errOut); err == nil {
		t.Fatalf("expected error for unknown command")
	}
	if err := run(context.Background(), []string{"login", "-u", "admin"}, &out, &errOut); err == nil {
		t.Fatalf("expected error when --role is missing")
	}
	if err := run(context.Background(), nil, &out, &errOut); err != nil {
		t.Fatalf("bare invocation should print usage, got %v", err)
	}
}

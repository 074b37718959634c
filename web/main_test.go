package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/devilmonastery/bnetsso/internal/config"
)

func TestResolveSessionSecret(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	want := bytes.Repeat([]byte{7}, 32)
	encoded := base64.StdEncoding.EncodeToString(want)

	t.Setenv("SESSION_SECRET", "")
	got, err := resolveSessionSecret(encoded, log)
	if err != nil || !bytes.Equal(got, want) {
		t.Errorf("config secret = %x, %v; want %x", got, err, want)
	}

	t.Setenv("SESSION_SECRET", base64.StdEncoding.EncodeToString([]byte("from-the-environment-0123456789ab")))
	got, err = resolveSessionSecret(encoded, log)
	if err != nil || string(got) != "from-the-environment-0123456789ab" {
		t.Errorf("env secret = %q, %v", got, err)
	}

	t.Setenv("SESSION_SECRET", "")
	got, err = resolveSessionSecret("not base64!", log)
	if err != nil || len(got) != 32 {
		t.Errorf("random secret = %d bytes, %v; want 32", len(got), err)
	}
}

func TestAdminRouter(t *testing.T) {
	cfg := config.Defaults()
	cfg.Associations.Backend = config.BackendMemory

	store, err := openBackend(context.Background(), cfg, true)
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	defer store.Close()

	router := adminRouter(store)
	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/health", http.StatusOK, "OK"},
		{"/readiness", http.StatusOK, "READY"},
		{"/metrics", http.StatusOK, "go_goroutines"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.wantCode {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
		}
		if !strings.Contains(rec.Body.String(), tt.wantBody) {
			t.Errorf("GET %s body missing %q", tt.path, tt.wantBody)
		}
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "show", "--config", writeConfig(t, "battlenet:\n  key: abc\n  secret: hunter2\n")})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out.String(), "hunter2") {
		t.Errorf("config show leaked the secret:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "key: abc") {
		t.Errorf("config show missing key:\n%s", out.String())
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := t.TempDir() + "/config.yaml"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devilmonastery/bnetsso/internal/auth"
	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
)

// Tests run from <project>/web/internal/render; templates live in
// <project>/web/templates.
func getTestTemplatesPath() string {
	return filepath.Join("..", "..", "templates")
}

func TestLoadTemplates(t *testing.T) {
	ts, err := LoadTemplates(getTestTemplatesPath())
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	for _, required := range []string{"home.html", "register_battlenet.html", "admin_battlenet.html", "error.html"} {
		if !ts.Has(required) {
			t.Errorf("Expected template %q to be loaded, but it wasn't found", required)
		}
	}
}

func TestLoadTemplatesMissingDir(t *testing.T) {
	if _, err := LoadTemplates(t.TempDir()); err == nil {
		t.Error("LoadTemplates(empty dir) error = nil, want error")
	}
}

func TestTemplateSourceFileExists(t *testing.T) {
	templatesPath := getTestTemplatesPath()

	requiredFiles := map[string]string{
		"base layout":   filepath.Join(templatesPath, "layouts", "base.html"),
		"nav component": filepath.Join(templatesPath, "components", "nav.html"),
		"registration":  filepath.Join(templatesPath, "pages", "register_battlenet.html"),
	}

	for name, path := range requiredFiles {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Required template file %q not readable at %s: %v", name, path, err)
		}
	}
}

func TestPageName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"register_battlenet", "register_battlenet.html"},
		{"error.html", "error.html"},
	}
	for _, tt := range tests {
		if got := PageName(tt.in); got != tt.want {
			t.Errorf("PageName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRegistrationPageRendersOwnContent(t *testing.T) {
	ts, err := LoadTemplates(getTestTemplatesPath())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	err = ts.Execute(&buf, "register_battlenet.html", map[string]interface{}{
		"User": &auth.UserContext{UserID: "1", Username: "battlenet-42", Role: "user"},
		"Data": map[string]any{
			"battletag":         "Tank#1234",
			"characters":        []entities.CharacterSummary{{Name: "Grom", Realm: "Draenor", Level: 60}},
			"usernameMinLength": 2,
			"usernameMaxLength": 16,
		},
		"Errors":   []string{"username-taken"},
		"Username": "Healer",
		"Email":    "tank@example.com",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Complete your registration",
		"Welcome, Tank#1234",
		"Grom of Draenor (level 60)",
		"That username is already taken.",
		`value="Healer"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
	if strings.Contains(out, "Sign in</title>") {
		t.Error("registration page rendered the home page title")
	}
}

func TestAdminPageRendersGuide(t *testing.T) {
	ts, err := LoadTemplates(getTestTemplatesPath())
	if err != nil {
		t.Fatal(err)
	}

	settings := config.BattleNetConfig{Key: "client-id", Secret: "********", Region: "eu", Domain: "https://forum.example.com"}
	var buf bytes.Buffer
	err = ts.Execute(&buf, "admin_battlenet.html", map[string]interface{}{
		"Header":      entities.AdminHeaderEntry{Route: "/plugins/sso-battlenet", Icon: "fa-check-square", Name: "Battle.net"},
		"Settings":    settings,
		"CallbackURL": "https://forum.example.com/auth/battlenet/callback",
		"Guide":       fmt.Sprintf(SetupGuide, "https://forum.example.com/auth/battlenet/callback", "eu"),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<h2>Battle.net application setup</h2>") {
		t.Error("setup guide markdown not rendered")
	}
	if strings.Contains(out, "client-secret") {
		t.Error("admin page leaked the client secret")
	}
}

func TestReasonText(t *testing.T) {
	if got := ReasonText("email-taken"); !strings.Contains(got, "already registered") {
		t.Errorf("ReasonText(email-taken) = %q", got)
	}
	if got := ReasonText("bogus"); got == "" {
		t.Error("ReasonText(unknown) is empty")
	}
}

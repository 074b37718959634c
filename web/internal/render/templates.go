package render

import (
	"crypto/md5"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
)

// TemplateSet holds all parsed page templates. Each page is parsed into
// its own template.Template so {{define "content"}} blocks never collide.
type TemplateSet struct {
	pages map[string]*template.Template
	mu    sync.RWMutex
}

// Execute renders the "base" layout using the blocks of pageName
// ("register_battlenet.html").
func (ts *TemplateSet) Execute(w io.Writer, pageName string, data interface{}) error {
	ts.mu.RLock()
	tmpl, ok := ts.pages[pageName]
	ts.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template %q not found", pageName)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Has checks if a template exists
func (ts *TemplateSet) Has(pageName string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	_, ok := ts.pages[pageName]
	return ok
}

// Names returns all available template names
func (ts *TemplateSet) Names() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	names := make([]string, 0, len(ts.pages))
	for name := range ts.pages {
		names = append(names, name)
	}
	return names
}

// PageName maps an interstitial template id to its page file
func PageName(template string) string {
	if strings.HasSuffix(template, ".html") {
		return template
	}
	return template + ".html"
}

var funcMap = template.FuncMap{
	"renderMarkdown": Markdown,
	"dict": func(values ...interface{}) map[string]interface{} {
		if len(values)%2 != 0 {
			return nil
		}
		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				return nil
			}
			dict[key] = values[i+1]
		}
		return dict
	},
	"initials": func(name string) string {
		// battletags carry a #1234 discriminator
		name, _, _ = strings.Cut(name, "#")
		name = strings.TrimSpace(name)
		if name == "" {
			return "?"
		}
		return strings.ToUpper(string([]rune(name)[0]))
	},
	"avatarColors": func(name string) string {
		if name == "" {
			return "from-gray-400 to-gray-600"
		}
		hash := md5.Sum([]byte(strings.ToLower(name)))
		colors := []string{
			"from-blue-400 to-blue-600",
			"from-green-400 to-green-600",
			"from-purple-400 to-purple-600",
			"from-indigo-400 to-indigo-600",
			"from-red-400 to-red-600",
			"from-amber-400 to-amber-600",
			"from-teal-400 to-teal-600",
			"from-sky-400 to-sky-600",
		}
		return colors[int(hash[0])%len(colors)]
	},
	"reasonText": ReasonText,
	"characterLine": func(c entities.CharacterSummary) string {
		if c.Realm == "" {
			return fmt.Sprintf("%s (level %d)", c.Name, c.Level)
		}
		return fmt.Sprintf("%s of %s (level %d)", c.Name, c.Realm, c.Level)
	},
}

// ReasonText is the message shown for a registration validation reason
func ReasonText(reason string) string {
	switch reason {
	case "missing-field":
		return "Please fill in both your username and email."
	case "invalid-email":
		return "That email address does not look valid."
	case "username-too-short":
		return "That username is too short."
	case "username-too-long":
		return "That username is too long."
	case "invalid-username":
		return "That username contains characters that are not allowed."
	case "username-taken":
		return "That username is already taken."
	case "email-taken":
		return "That email address is already registered."
	default:
		return "Something about that submission was not accepted."
	}
}

// LoadTemplates parses layouts/base.html, components/*.html and each
// pages/*.html into an isolated template. An empty path means
// "web/templates".
func LoadTemplates(path string) (*TemplateSet, error) {
	if path == "" {
		path = "web/templates"
	}

	baseFile := filepath.Join(path, "layouts", "base.html")
	componentFiles, err := filepath.Glob(filepath.Join(path, "components", "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to list component templates: %w", err)
	}

	pageFiles, err := filepath.Glob(filepath.Join(path, "pages", "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to list page templates: %w", err)
	}
	if len(pageFiles) == 0 {
		return nil, fmt.Errorf("no page templates found in %s/pages", path)
	}

	ts := &TemplateSet{
		pages: make(map[string]*template.Template),
	}

	for _, pageFile := range pageFiles {
		pageName := filepath.Base(pageFile)

		filesToParse := []string{baseFile}
		filesToParse = append(filesToParse, componentFiles...)
		filesToParse = append(filesToParse, pageFile)

		pageTemplate, err := template.New("base").Funcs(funcMap).ParseFiles(filesToParse...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", pageName, err)
		}
		ts.pages[pageName] = pageTemplate
	}

	return ts, nil
}

// LogTemplateNames logs all available template names
func LogTemplateNames(ts *TemplateSet, log *slog.Logger) {
	log.Debug("loaded templates", slog.Any("names", ts.Names()))
}

package render

import (
	"fmt"
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:     "heading",
			input:    "## Setup",
			contains: []string{"<h2>", "Setup", "</h2>"},
		},
		{
			name:     "ordered list",
			input:    "1. First\n2. Second",
			contains: []string{"<ol>", "<li>First</li>", "</ol>"},
		},
		{
			name:     "inline code",
			input:    "Set `battlenet.key`",
			contains: []string{"<code>battlenet.key</code>"},
		},
		{
			name:     "link",
			input:    "[portal](https://develop.battle.net)",
			contains: []string{`href="https://develop.battle.net"`, "portal"},
		},
		{
			name:        "script stripped",
			input:       "hello <script>alert(1)</script>",
			contains:    []string{"hello"},
			notContains: []string{"<script>", "alert(1)"},
		},
		{
			name:        "javascript url stripped",
			input:       "[x](javascript:alert(1))",
			notContains: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(Markdown(tt.input))
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("Markdown(%q) = %q, want it to contain %q", tt.input, out, s)
				}
			}
			for _, s := range tt.notContains {
				if strings.Contains(out, s) {
					t.Errorf("Markdown(%q) = %q, want it not to contain %q", tt.input, out, s)
				}
			}
		})
	}
}

func TestSetupGuide(t *testing.T) {
	out := string(Markdown(fmt.Sprintf(SetupGuide, "https://forum.example.com/auth/battlenet/callback", "us")))
	for _, want := range []string{"https://forum.example.com/auth/battlenet/callback", "<strong>us</strong>", "<code>wow.profile</code>"} {
		if !strings.Contains(out, want) {
			t.Errorf("guide missing %q", want)
		}
	}
}

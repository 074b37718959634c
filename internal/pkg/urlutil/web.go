package urlutil

import (
	"net/url"
	"strings"
)

// BuildAbsoluteURL joins a public base URL and a path.
// Returns a URL like: {baseURL}{path}
func BuildAbsoluteURL(baseURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}

// SafeReturnPath returns p when it is a local absolute path, otherwise fallback.
// Rejects scheme-relative ("//host") and backslash tricks.
func SafeReturnPath(p, fallback string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return fallback
	}
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return p
}

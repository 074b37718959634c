package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
)

// usernamePattern is the set of characters accepted in a username
var usernamePattern = regexp.MustCompile(`^['" \-+.*\[\]0-9\x{00BF}-\x{1FFF}\x{2C00}-\x{D7FF}\w]+$`)

// placeholderSlugPattern matches slugs reserved for provisioned accounts
var placeholderSlugPattern = regexp.MustCompile(`^battlenet-\d+(-\d+)?$`)

// Slugify returns the userslug for a username
func Slugify(username string) string {
	return slug.Make(strings.TrimSpace(username))
}

// validUsernameChars reports whether username uses only allowed characters
func validUsernameChars(username string) bool {
	return usernamePattern.MatchString(username)
}

// isPlaceholderSlug reports whether userslug has the form given to
// freshly provisioned accounts
func isPlaceholderSlug(userslug string) bool {
	return placeholderSlugPattern.MatchString(userslug)
}

// placeholderUsername returns the provisioning username for an attempt.
// Later attempts get a numeric suffix.
func placeholderUsername(externalID string, attempt int) string {
	base := entities.PlaceholderUsername(externalID)
	if attempt == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(attempt+1)
}

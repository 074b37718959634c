package render

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var ugcPolicy = bluemonday.UGCPolicy()

// Markdown converts markdown text to sanitized HTML for use in templates
func Markdown(markdown string) template.HTML {
	unsafe := blackfriday.Run([]byte(markdown))
	return template.HTML(ugcPolicy.SanitizeBytes(unsafe))
}

// SetupGuide is shown on the admin settings page and by the guide command.
// %s placeholders are the callback URL and the configured region.
const SetupGuide = `## Battle.net application setup

1. Sign in to the [Battle.net developer portal](https://develop.battle.net/access/clients) and create a client.
2. Add **%s** as a redirect URL.
3. Copy the client id and secret into the ` + "`battlenet.key`" + ` and ` + "`battlenet.secret`" + ` settings.
4. Set ` + "`battlenet.region`" + ` (currently **%s**) to one of ` + "`us`, `eu`, `kr`, `tw` or `cn`" + `.

The login button only appears once key, secret, region and domain are all set.
Characters are requested with the ` + "`wow.profile`" + ` scope.
`

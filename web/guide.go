package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/devilmonastery/bnetsso/internal/auth/battlenet"
	"github.com/devilmonastery/bnetsso/internal/pkg/urlutil"
	"github.com/devilmonastery/bnetsso/web/internal/render"
)

func newGuideCommand(opts *rootOptions) *cobra.Command {
	var theme string

	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Print the Battle.net application setup guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := opts.cfg.BattleNet
			callbackURL, err := urlutil.BuildAbsoluteURL(settings.Domain, battlenet.CallbackPath)
			if err != nil {
				callbackURL = "<domain>" + battlenet.CallbackPath
			}
			guide := fmt.Sprintf(render.SetupGuide, callbackURL, battlenet.NormalizeRegion(settings.Region))
			fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(guide, theme))
			return nil
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "auto", "Rendering theme (auto, dark, light, notty)")

	return cmd
}

// renderMarkdown styles markdown with glamour on a terminal and returns it
// unchanged otherwise
func renderMarkdown(markdown, theme string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return markdown
	}
	rendered, err := glamour.Render(markdown, theme)
	if err != nil {
		return markdown
	}
	return rendered
}

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/devilmonastery/bnetsso/internal/auth/battlenet"
	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/pkg/urlutil"
	"github.com/devilmonastery/bnetsso/web/internal/render"
)

// adminSettings is the read-only settings view
type adminSettings struct {
	Enabled     bool                   `json:"enabled"`
	Settings    config.BattleNetConfig `json:"settings"`
	CallbackURL string                 `json:"callbackURL"`
}

func (h *Handler) adminSettings() adminSettings {
	settings := config.Config{BattleNet: h.settings}.Redacted().BattleNet
	return adminSettings{
		Enabled:     h.plugin.Enabled(),
		Settings:    settings,
		CallbackURL: h.callbackURL(),
	}
}

// callbackURL is the redirect URL to register with Battle.net, empty when
// the configured domain cannot produce one
func (h *Handler) callbackURL() string {
	if h.plugin.Enabled() {
		return h.plugin.Provider().CallbackURL()
	}
	if h.settings.Domain == "" {
		return ""
	}
	callbackURL, err := urlutil.BuildAbsoluteURL(h.settings.Domain, battlenet.CallbackPath)
	if err != nil {
		h.log.Warn("invalid battlenet domain",
			slog.String("domain", h.settings.Domain),
			slog.String("error", err.Error()))
		return ""
	}
	return callbackURL
}

// AdminPage renders the settings page with setup instructions
func (h *Handler) AdminPage(w http.ResponseWriter, r *http.Request) {
	view := h.adminSettings()

	data := h.newTemplateData(r)
	data["Header"] = h.plugin.AdminHeader()
	data["Settings"] = view.Settings
	data["CallbackURL"] = view.CallbackURL
	data["Guide"] = fmt.Sprintf(render.SetupGuide, view.CallbackURL, battlenet.NormalizeRegion(h.settings.Region))
	h.renderTemplate(w, http.StatusOK, "admin_battlenet.html", data)
}

// AdminSettings returns the settings view as JSON
func (h *Handler) AdminSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.adminSettings())
}

// AdminHeader returns the admin navigation entries
func (h *Handler) AdminHeader(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]entities.AdminHeaderEntry{
		"plugins": {h.plugin.AdminHeader()},
	})
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/devilmonastery/bnetsso/internal/auth"
	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/sso"
	"github.com/devilmonastery/bnetsso/web/internal/middleware"
	"github.com/devilmonastery/bnetsso/web/internal/render"
	"github.com/devilmonastery/bnetsso/web/internal/session"
)

// Handler holds dependencies for all web handlers
type Handler struct {
	plugin         *sso.Plugin
	state          *auth.StateManager
	sessionManager *session.Manager
	templates      *render.TemplateSet
	settings       config.BattleNetConfig
	log            *slog.Logger
}

// New creates a new handler with dependencies
func New(plugin *sso.Plugin, state *auth.StateManager, sessionManager *session.Manager, templates *render.TemplateSet, settings config.BattleNetConfig, logger *slog.Logger) *Handler {
	return &Handler{
		plugin:         plugin,
		state:          state,
		sessionManager: sessionManager,
		templates:      templates,
		settings:       settings,
		log:            logger.With(slog.String("component", "web_handler")),
	}
}

// Register adds all routes to router. Provider routes are only added when
// Battle.net is configured, so they answer 404 otherwise.
func (h *Handler) Register(router *mux.Router, authMw *middleware.AuthMiddleware) {
	router.HandleFunc("/", h.Home).Methods("GET")
	router.HandleFunc("/logout", h.Logout).Methods("POST")
	router.HandleFunc("/api/auth/strategies", h.Strategies).Methods("GET")

	router.Handle("/api/user/associations", authMw.RequireAuth(http.HandlerFunc(h.Associations))).Methods("GET")
	router.Handle("/api/user", authMw.RequireAuth(http.HandlerFunc(h.DeleteUser))).Methods("DELETE")

	router.Handle("/admin/plugins/sso-battlenet", authMw.RequireAdmin(http.HandlerFunc(h.AdminPage))).Methods("GET")
	router.Handle("/api/admin/plugins/sso-battlenet", authMw.RequireAdmin(http.HandlerFunc(h.AdminSettings))).Methods("GET")
	router.Handle("/api/admin/header", authMw.RequireAdmin(http.HandlerFunc(h.AdminHeader))).Methods("GET")

	if !h.plugin.Enabled() {
		h.log.Info("battle.net login disabled: key, secret, region and domain are required")
		return
	}

	router.HandleFunc("/auth/battlenet", h.BattleNetLogin).Methods("GET")
	router.HandleFunc("/auth/battlenet/callback", h.BattleNetCallback).Methods("GET")
	router.HandleFunc("/register/complete", h.RegisterForm).Methods("GET")
	router.HandleFunc("/register/complete", h.RegisterSubmit).Methods("POST")
}

// newTemplateData creates a template data map with the current user set
func (h *Handler) newTemplateData(r *http.Request) map[string]interface{} {
	data := map[string]interface{}{}
	if user, err := auth.GetUserFromContext(r.Context()); err == nil {
		data["User"] = user
	}
	return data
}

// renderTemplate renders a page with status
func (h *Handler) renderTemplate(w http.ResponseWriter, status int, name string, data interface{}) {
	if h.templates == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}
	h.log.Debug("rendering template", slog.String("template", name))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Execute(w, name, data); err != nil {
		h.log.Error("template rendering failed",
			slog.String("template", name),
			slog.String("error", err.Error()))
	}
}

// renderError shows the generic failure page
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	data := h.newTemplateData(r)
	data["Title"] = title
	data["Message"] = message
	h.renderTemplate(w, status, "error.html", data)
}

// writeJSON encodes v as the response body
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// Home shows the login strategies, or the account's link status
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	data := h.newTemplateData(r)

	if user, err := auth.GetUserFromContext(r.Context()); err == nil {
		if assoc, err := h.plugin.Association(r.Context(), user.UserID); err == nil {
			data["Association"] = assoc
		}
	} else {
		data["Strategies"] = h.plugin.RegisterStrategy(nil)
	}

	h.renderTemplate(w, http.StatusOK, "home.html", data)
}

// Logout clears the session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.Clear(r, w); err != nil {
		h.log.Error("error clearing session", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

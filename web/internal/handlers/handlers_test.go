package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/bnetsso/internal/auth"
	"github.com/devilmonastery/bnetsso/internal/auth/battlenet"
	"github.com/devilmonastery/bnetsso/internal/auth/battlenet/battlenettest"
	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/services"
	"github.com/devilmonastery/bnetsso/internal/infrastructure/memory"
	"github.com/devilmonastery/bnetsso/internal/sso"
	"github.com/devilmonastery/bnetsso/web/internal/middleware"
	"github.com/devilmonastery/bnetsso/web/internal/render"
	"github.com/devilmonastery/bnetsso/web/internal/session"
)

type testApp struct {
	*httptest.Server
	bnet   *battlenettest.Server
	users  *memory.UserRepository
	links  *memory.AssociationStore
	client *http.Client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, enabled bool) *testApp {
	t.Helper()

	var router http.Handler
	app := &testApp{
		Server: httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			router.ServeHTTP(w, r)
		})),
		bnet:  battlenettest.NewServer(42, "Tank#1234"),
		users: memory.NewUserRepository(),
		links: memory.NewAssociationStore(),
	}
	t.Cleanup(app.Close)
	t.Cleanup(app.bnet.Close)
	app.bnet.SetCharacters(map[string]any{"characters": []any{
		map[string]any{"name": "Grom", "realm": "Draenor", "level": 60},
	}})

	settings := config.BattleNetConfig{
		Key:          "client-id",
		Secret:       "client-secret",
		Region:       "us",
		Domain:       app.URL,
		FetchTimeout: time.Second,
	}
	if !enabled {
		settings.Key = ""
	}

	var provider *battlenet.Provider
	if enabled {
		var err error
		provider, err = battlenet.NewProvider(settings, battlenet.WithEndpoints(battlenet.EndpointsForBase(app.bnet.URL)))
		require.NoError(t, err)
	}

	accounts := services.NewAccountService(app.users, app.links)
	plugin := sso.NewPlugin(provider,
		services.NewIdentityService(app.users, app.links),
		services.NewRegistrationService(app.users, config.RegistrationConfig{UsernameMinLength: 3, UsernameMaxLength: 16}),
		accounts)

	templates, err := render.LoadTemplates("../../templates")
	require.NoError(t, err)

	sm := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), config.SessionConfig{Store: "cookie", MaxAge: 3600})
	authMw := middleware.NewAuthMiddleware(sm, accounts, discardLogger())

	h := New(plugin, auth.NewStateManager("state-key", time.Minute), sm, templates, settings, discardLogger())
	r := mux.NewRouter()
	r.Use(middleware.LogRequest(discardLogger()), authMw.LoadUser)
	h.Register(r, authMw)
	router = r

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	app.client = &http.Client{Jar: jar}

	return app
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (a *testApp) do(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, a.URL+path, nil)
	require.NoError(t, err)
	resp, err := a.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestLoginRegisterAndReturn(t *testing.T) {
	app := newTestApp(t, true)
	ctx := context.Background()

	// first login provisions an account and lands on the interstitial
	resp, body := app.get(t, "/auth/battlenet")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "/register/complete", resp.Request.URL.Path)
	assert.Contains(t, body, "Welcome, Tank#1234")
	assert.Contains(t, body, "Grom of Draenor")

	require.Equal(t, 1, app.users.Len())
	uid, found, _ := app.links.Get(ctx, "42")
	require.True(t, found)
	account, err := app.users.GetByID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "42", account.LinkedBattleNetID())

	// rejected submission keeps the context
	resp, body = app.postForm(t, "/register/complete", url.Values{"username": {"ab"}, "email": {"a@b.com"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "That username is too short.")

	resp, body = app.postForm(t, "/register/complete", url.Values{"username": {"Tank"}, "email": {"tank@example.com"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "/", resp.Request.URL.Path)
	assert.Contains(t, body, "Welcome, Tank")
	assert.Contains(t, body, "linked to Battle.net")

	// the interstitial is gone once completed
	resp, _ = app.get(t, "/register/complete")
	assert.Equal(t, "/", resp.Request.URL.Path)

	// logging in again returns the same account
	app.do(t, http.MethodPost, "/logout")
	resp, _ = app.get(t, "/auth/battlenet")
	assert.Equal(t, "/", resp.Request.URL.Path)
	assert.Equal(t, 1, app.users.Len())
	assert.Equal(t, 1, app.links.Len())
	again, _, _ := app.links.Get(ctx, "42")
	assert.Equal(t, uid, again)
}

func TestAssociationsAndDelete(t *testing.T) {
	app := newTestApp(t, true)

	resp := app.do(t, http.MethodGet, "/api/user/associations")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	app.get(t, "/auth/battlenet")

	resp, body := app.get(t, "/api/user/associations")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var assocs []entities.AccountAssociation
	require.NoError(t, json.Unmarshal([]byte(body), &assocs))
	require.Len(t, assocs, 1)
	assert.True(t, assocs[0].Associated)
	assert.Equal(t, "Battle.net", assocs[0].Name)

	resp = app.do(t, http.MethodDelete, "/api/user")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, app.users.Len())
	assert.Equal(t, 0, app.links.Len())
}

func TestCallbackRejectsForgedState(t *testing.T) {
	app := newTestApp(t, true)

	resp, _ := app.get(t, "/auth/battlenet/callback?code=test-code&state=forged")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, app.bnet.TokenCalls())
	assert.Equal(t, 0, app.users.Len())
}

func TestCallbackDeclined(t *testing.T) {
	app := newTestApp(t, true)

	resp, body := app.get(t, "/auth/battlenet/callback?error=access_denied")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Login cancelled")
}

func TestFetchFailureLeavesNoAccount(t *testing.T) {
	app := newTestApp(t, true)
	app.bnet.SetProfileStatus(http.StatusInternalServerError)

	resp, body := app.get(t, "/auth/battlenet")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "Login failed")
	assert.Equal(t, 0, app.users.Len())
	assert.Equal(t, 0, app.links.Len())
}

func TestDisabledProvider(t *testing.T) {
	app := newTestApp(t, false)

	resp := app.do(t, http.MethodGet, "/auth/battlenet")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := app.get(t, "/api/auth/strategies")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", body)
}

func TestStrategies(t *testing.T) {
	app := newTestApp(t, true)

	resp, body := app.get(t, "/api/auth/strategies")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var strategies []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &strategies))
	require.Len(t, strategies, 1)
	assert.Equal(t, "Battle.net", strategies[0]["name"])
	assert.Equal(t, "/auth/battlenet", strategies[0]["url"])
	assert.Equal(t, "/auth/battlenet/callback", strategies[0]["callbackURL"])
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t, true)
	ctx := context.Background()

	app.get(t, "/auth/battlenet")
	resp := app.do(t, http.MethodGet, "/api/admin/header")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	uid, _, _ := app.links.Get(ctx, "42")
	require.NoError(t, app.users.SetRole(ctx, uid, entities.RoleAdmin))

	resp, body := app.get(t, "/api/admin/header")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"plugins":[{"route":"/plugins/sso-battlenet","icon":"fa-check-square","name":"Battle.net"}]}`, body)

	resp, body = app.get(t, "/api/admin/plugins/sso-battlenet")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "client-secret")
	assert.Contains(t, body, `"enabled":true`)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.Equal(t, app.URL+battlenet.CallbackPath, view["callbackURL"])

	resp, body = app.get(t, "/admin/plugins/sso-battlenet")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Battle.net application setup")
	assert.NotContains(t, body, "client-secret")
}

func TestAdminCallbackURLWhenDisabled(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		want   string
	}{
		{"configured domain", "https://forum.example.com/", "https://forum.example.com/auth/battlenet/callback"},
		{"no domain", "", ""},
		{"unparseable domain", "http://[::1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := sso.NewPlugin(nil, nil, nil, nil)
			h := New(plugin, nil, nil, nil, config.BattleNetConfig{Domain: tt.domain}, discardLogger())

			view := h.adminSettings()
			assert.False(t, view.Enabled)
			assert.Equal(t, tt.want, view.CallbackURL)
		})
	}
}

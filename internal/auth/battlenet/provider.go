package battlenet

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/pkg/urlutil"
)

// Strategy presentation and routes
const (
	StrategyName = "Battle.net"
	LoginPath    = "/auth/battlenet"
	CallbackPath = "/auth/battlenet/callback"
	Icon         = "fa-check-square"
	AdminRoute   = "/plugins/sso-battlenet"
)

// DefaultScopes are requested when none are configured
var DefaultScopes = []string{"wow.profile"}

// Provider performs the Battle.net side of a login: authorization URL,
// code exchange and profile fetch.
type Provider struct {
	settings    config.BattleNetConfig
	endpoints   Endpoints
	callbackURL string
	oauth       *oauth2.Config
	httpClient  *http.Client
	fetcher     *Fetcher
}

// Option customizes a Provider
type Option func(*Provider)

// WithHTTPClient sets the client used for token exchange and API calls
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithEndpoints overrides the region-derived endpoints
func WithEndpoints(e Endpoints) Option {
	return func(p *Provider) { p.endpoints = e }
}

// NewProvider builds a provider from settings. It returns
// ErrMissingConfiguration when any required setting is empty.
func NewProvider(settings config.BattleNetConfig, opts ...Option) (*Provider, error) {
	if !settings.Enabled() {
		return nil, ErrMissingConfiguration
	}

	callbackURL, err := urlutil.BuildAbsoluteURL(settings.Domain, CallbackPath)
	if err != nil {
		return nil, fmt.Errorf("invalid battlenet domain %q: %w", settings.Domain, err)
	}

	p := &Provider{
		settings:    settings,
		endpoints:   ResolveEndpoints(settings.Region),
		callbackURL: callbackURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = NewHTTPClient(nil)
	}

	scopes := settings.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	p.oauth = &oauth2.Config{
		ClientID:     settings.Key,
		ClientSecret: settings.Secret,
		RedirectURL:  callbackURL,
		Endpoint:     p.endpoints.OAuth2(),
		Scopes:       scopes,
	}
	p.fetcher = NewFetcher(p.endpoints, p.httpClient, settings.FetchTimeout)

	slog.Default().Info("battle.net provider enabled",
		slog.String("region", NormalizeRegion(settings.Region)),
		slog.String("callback_url", callbackURL))

	return p, nil
}

// Strategy describes the provider for the host's login page
func (p *Provider) Strategy() entities.Strategy {
	return entities.Strategy{
		Name:        StrategyName,
		URL:         LoginPath,
		CallbackURL: CallbackPath,
		Icon:        Icon,
		Scopes:      append([]string(nil), p.oauth.Scopes...),
	}
}

// CallbackURL returns the absolute redirect URL registered with Battle.net
func (p *Provider) CallbackURL() string {
	return p.callbackURL
}

// Endpoints returns the endpoints in use
func (p *Provider) Endpoints() Endpoints {
	return p.endpoints
}

// Settings returns the provider configuration
func (p *Provider) Settings() config.BattleNetConfig {
	return p.settings
}

// AuthCodeURL returns the URL to send the browser to
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}
	return token, nil
}

// FetchProfile retrieves and merges the profile and character list
func (p *Provider) FetchProfile(ctx context.Context, token *oauth2.Token) (*entities.ExternalProfile, error) {
	return p.fetcher.Fetch(ctx, token)
}

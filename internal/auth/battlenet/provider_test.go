package battlenet

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/devilmonastery/bnetsso/internal/auth/battlenet/battlenettest"
	"github.com/devilmonastery/bnetsso/internal/config"
)

func testSettings() config.BattleNetConfig {
	return config.BattleNetConfig{
		Key:          "client-id",
		Secret:       "client-secret",
		Region:       "eu",
		Domain:       "https://forum.example.com",
		FetchTimeout: time.Second,
	}
}

func TestNewProviderSoftDisabled(t *testing.T) {
	for _, clear := range []func(*config.BattleNetConfig){
		func(c *config.BattleNetConfig) { c.Key = "" },
		func(c *config.BattleNetConfig) { c.Secret = "" },
		func(c *config.BattleNetConfig) { c.Region = "" },
		func(c *config.BattleNetConfig) { c.Domain = "" },
	} {
		s := testSettings()
		clear(&s)
		if _, err := NewProvider(s); !errors.Is(err, ErrMissingConfiguration) {
			t.Errorf("NewProvider(%+v) error = %v, want ErrMissingConfiguration", s, err)
		}
	}
}

func TestProviderStrategy(t *testing.T) {
	p, err := NewProvider(testSettings())
	if err != nil {
		t.Fatal(err)
	}

	s := p.Strategy()
	if s.Name != "Battle.net" || s.URL != "/auth/battlenet" || s.Icon != "fa-check-square" {
		t.Errorf("Strategy() = %+v", s)
	}
	if s.CallbackURL != "/auth/battlenet/callback" {
		t.Errorf("Strategy().CallbackURL = %q, want /auth/battlenet/callback", s.CallbackURL)
	}
	if got := p.CallbackURL(); got != "https://forum.example.com/auth/battlenet/callback" {
		t.Errorf("CallbackURL() = %q", got)
	}
	if len(s.Scopes) != 1 || s.Scopes[0] != "wow.profile" {
		t.Errorf("Scopes = %v, want [wow.profile]", s.Scopes)
	}
}

func TestProviderAuthCodeURL(t *testing.T) {
	p, err := NewProvider(testSettings())
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(p.AuthCodeURL("state-123"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "eu.battle.net" || u.Path != "/oauth/authorize" {
		t.Errorf("auth url = %s", u)
	}
	q := u.Query()
	if q.Get("client_id") != "client-id" || q.Get("state") != "state-123" || q.Get("scope") != "wow.profile" {
		t.Errorf("query = %v", q)
	}
	if q.Get("redirect_uri") != "https://forum.example.com/auth/battlenet/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
}

func TestProviderExchangeAndFetch(t *testing.T) {
	srv := battlenettest.NewServer(42, "Tank#1234")
	defer srv.Close()

	p, err := NewProvider(testSettings(),
		WithEndpoints(EndpointsForBase(srv.URL)),
		WithHTTPClient(NewHTTPClient(srv.Client().Transport)))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	token, err := p.Exchange(ctx, "test-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if token.AccessToken != battlenettest.AccessToken {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}

	profile, err := p.FetchProfile(ctx, token)
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.ExternalID != "42" {
		t.Errorf("ExternalID = %q", profile.ExternalID)
	}

	if _, err := p.Exchange(ctx, "bad-code"); !errors.Is(err, ErrTokenExchangeFailed) {
		t.Errorf("Exchange(bad-code) error = %v, want ErrTokenExchangeFailed", err)
	}
}

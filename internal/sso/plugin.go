// Package sso exposes the Battle.net login integration to the host
// application as a set of hooks.
package sso

import (
	"context"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/devilmonastery/bnetsso/internal/auth/battlenet"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/services"
)

// InterstitialTemplate is the template rendered for pending registrations
const InterstitialTemplate = "register_battlenet"

// Plugin composes the provider with the identity services. A nil provider
// means the integration is soft-disabled.
type Plugin struct {
	provider     *battlenet.Provider
	identity     *services.IdentityService
	registration *services.RegistrationService
	accounts     *services.AccountService
	log          *slog.Logger
}

// NewPlugin creates a new plugin. provider may be nil.
func NewPlugin(provider *battlenet.Provider, identity *services.IdentityService, registration *services.RegistrationService, accounts *services.AccountService) *Plugin {
	return &Plugin{
		provider:     provider,
		identity:     identity,
		registration: registration,
		accounts:     accounts,
		log:          slog.Default().With(slog.String("component", "sso")),
	}
}

// Enabled reports whether the provider is configured
func (p *Plugin) Enabled() bool {
	return p.provider != nil
}

// Provider returns the configured provider, or nil
func (p *Plugin) Provider() *battlenet.Provider {
	return p.provider
}

// RegisterStrategy appends the Battle.net strategy when configured
func (p *Plugin) RegisterStrategy(strategies []entities.Strategy) []entities.Strategy {
	if !p.Enabled() {
		return strategies
	}
	return append(strategies, p.provider.Strategy())
}

// LoginCallback fetches the profile for token and resolves it to an
// account. New accounts come back with a registration context for the
// interstitial.
func (p *Plugin) LoginCallback(ctx context.Context, token *oauth2.Token, currentUserID string) (*services.Resolution, *entities.RegistrationContext, error) {
	if !p.Enabled() {
		return nil, nil, battlenet.ErrMissingConfiguration
	}

	profile, err := p.provider.FetchProfile(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	res, err := p.identity.Resolve(ctx, profile, currentUserID)
	if err != nil {
		return nil, nil, err
	}

	if !res.IsNew() {
		return res, nil, nil
	}

	return res, &entities.RegistrationContext{
		UserID:      res.User.ID,
		ExternalID:  profile.ExternalID,
		DisplayName: profile.DisplayName,
		Characters:  profile.Characters,
	}, nil
}

// Association reports whether the account is linked to Battle.net
func (p *Plugin) Association(ctx context.Context, userID string) (*entities.AccountAssociation, error) {
	linked, err := p.accounts.IsLinked(ctx, userID)
	if err != nil {
		return nil, err
	}

	assoc := &entities.AccountAssociation{
		Associated: linked,
		Name:       battlenet.StrategyName,
		Icon:       battlenet.Icon,
	}
	if !linked && p.Enabled() {
		assoc.URL = battlenet.LoginPath
	}
	return assoc, nil
}

// AccountDeleted removes the account's association. Failures are logged
// and returned; the host still deletes the account.
func (p *Plugin) AccountDeleted(ctx context.Context, userID string) error {
	if err := p.accounts.CleanupAssociation(ctx, userID); err != nil {
		p.log.Error("failed to clean up battle.net association",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// DeleteAccount runs association cleanup and deletes the account
func (p *Plugin) DeleteAccount(ctx context.Context, userID string) error {
	return p.accounts.DeleteAccount(ctx, userID)
}

// Interstitial returns the registration page to show, or nil when no
// registration is pending.
func (p *Plugin) Interstitial(reg *entities.RegistrationContext) *entities.InterstitialSpec {
	if !reg.Pending() {
		return nil
	}
	minLen, maxLen := p.registration.UsernameBounds()
	return &entities.InterstitialSpec{
		Template: InterstitialTemplate,
		Data: map[string]any{
			"battletag":         reg.DisplayName,
			"characters":        entities.SummarizeCharacters(reg.Characters),
			"usernameMinLength": minLen,
			"usernameMaxLength": maxLen,
		},
	}
}

// InterstitialSubmit validates and applies the registration form
func (p *Plugin) InterstitialSubmit(ctx context.Context, reg *entities.RegistrationContext, in entities.RegistrationInput) (*entities.User, error) {
	return p.registration.Submit(ctx, reg, in)
}

// AdminHeader returns the admin navigation entry
func (p *Plugin) AdminHeader() entities.AdminHeaderEntry {
	return entities.AdminHeaderEntry{
		Route: battlenet.AdminRoute,
		Icon:  battlenet.Icon,
		Name:  battlenet.StrategyName,
	}
}

package entities

import (
	"encoding/json"
	"fmt"
)

// ProviderBattleNet is the provider key used in logs and metrics
const ProviderBattleNet = "battlenet"

// ExternalProfile is the Battle.net identity fetched after a token exchange.
// It is transient and lives only for the duration of one login.
type ExternalProfile struct {
	ExternalID  string            `json:"id"`
	DisplayName string            `json:"battletag"`
	Characters  []json.RawMessage `json:"characters"` // provider records, passed through unmodified
}

// CharactersJSON serializes the character list for storage on the account.
func (p *ExternalProfile) CharactersJSON() (json.RawMessage, error) {
	chars := p.Characters
	if chars == nil {
		chars = []json.RawMessage{}
	}
	data, err := json.Marshal(chars)
	if err != nil {
		return nil, fmt.Errorf("failed to encode characters: %w", err)
	}
	return data, nil
}

// ProviderFields returns the account fields derived from this profile.
func (p *ExternalProfile) ProviderFields() (ProviderFields, error) {
	chars, err := p.CharactersJSON()
	if err != nil {
		return ProviderFields{}, err
	}
	return ProviderFields{
		BattleNetID: p.ExternalID,
		BattleTag:   p.DisplayName,
		Characters:  chars,
	}, nil
}

// CharacterSummary is the subset of a character record shown on the
// registration page.
type CharacterSummary struct {
	Name      string `json:"name"`
	Realm     string `json:"realm"`
	Class     int    `json:"class"`
	Race      int    `json:"race"`
	Level     int    `json:"level"`
	Thumbnail string `json:"thumbnail"`
}

// SummarizeCharacters decodes the display view of each character. Records
// that do not decode are skipped.
func SummarizeCharacters(chars []json.RawMessage) []CharacterSummary {
	out := make([]CharacterSummary, 0, len(chars))
	for _, raw := range chars {
		var c CharacterSummary
		if err := json.Unmarshal(raw, &c); err != nil || c.Name == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Association is the persistent externalId -> local account mapping
type Association struct {
	ExternalID string `json:"external_id" db:"external_id"`
	UserID     string `json:"user_id" db:"user_id"`
}

// Strategy describes a login provider offered to the host's login page
type Strategy struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	CallbackURL string   `json:"callbackURL"`
	Icon        string   `json:"icon"`
	Scopes      []string `json:"scope"`
}

// AccountAssociation is what the account settings page shows for a provider
type AccountAssociation struct {
	Associated bool   `json:"associated"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	URL        string `json:"url,omitempty"` // link target when not yet associated
}

// AdminHeaderEntry is a navigation entry for the admin panel
type AdminHeaderEntry struct {
	Route string `json:"route"`
	Icon  string `json:"icon"`
	Name  string `json:"name"`
}

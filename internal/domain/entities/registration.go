package entities

import "encoding/json"

// RegistrationContext carries provider data between provisioning a new
// account and the interstitial submit. It is session scoped.
type RegistrationContext struct {
	UserID      string            `json:"uid"`
	ExternalID  string            `json:"bnetId"`
	DisplayName string            `json:"battletag"`
	Characters  []json.RawMessage `json:"characters"`
}

// Pending reports whether the context still requires the interstitial.
func (r *RegistrationContext) Pending() bool {
	return r != nil && r.UserID != "" && r.ExternalID != ""
}

// RegistrationInput is the data submitted on the interstitial
type RegistrationInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// InterstitialSpec tells the host which template to render and with what data
type InterstitialSpec struct {
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

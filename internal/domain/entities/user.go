package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// User represents a local forum account
type User struct {
	ID          string          `json:"id" db:"id"`
	Username    string          `json:"username" db:"username"`
	UserSlug    string          `json:"userslug" db:"userslug"`
	Email       string          `json:"email" db:"email"` // empty until the registration interstitial is completed
	Role        Role            `json:"role" db:"role"`
	BattleNetID *string         `json:"battlenet_id,omitempty" db:"battlenet_id"`
	BattleTag   *string         `json:"battletag,omitempty" db:"battletag"`
	Characters  json.RawMessage `json:"characters,omitempty" db:"characters"` // serialized []Character
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Role represents user roles in the system
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IsAdmin returns true if the user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LinkedBattleNetID returns the linked external id, or "" when not linked.
func (u *User) LinkedBattleNetID() string {
	if u.BattleNetID == nil {
		return ""
	}
	return *u.BattleNetID
}

// NeedsRegistration reports whether the account still carries the
// provisioning placeholders (no email collected yet).
func (u *User) NeedsRegistration() bool {
	return u.Email == ""
}

// ProviderFields is the provider-sourced data written onto an account
// on every login.
type ProviderFields struct {
	BattleNetID string
	BattleTag   string
	Characters  json.RawMessage
}

// PlaceholderUsername is the username given to freshly provisioned accounts.
func PlaceholderUsername(externalID string) string {
	return "battlenet-" + externalID
}

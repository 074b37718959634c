package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidState = errors.New("invalid oauth state")
	ErrExpiredState = errors.New("oauth state expired")
)

const stateIssuer = "bnetsso"

// StateClaims is the payload of the OAuth2 state parameter. The nonce is
// also kept in the browser session and must match on callback.
type StateClaims struct {
	Nonce      string `json:"nonce"`
	LinkUserID string `json:"link_uid,omitempty"` // set when an authenticated account starts a link
	ReturnTo   string `json:"return_to,omitempty"`
	jwt.RegisteredClaims
}

// StateManager signs and verifies OAuth2 state values
type StateManager struct {
	secretKey []byte
	lifetime  time.Duration
	now       func() time.Time
}

// NewStateManager creates a new state manager
func NewStateManager(secretKey string, lifetime time.Duration) *StateManager {
	return &StateManager{
		secretKey: []byte(secretKey),
		lifetime:  lifetime,
		now:       time.Now,
	}
}

// Issue creates a signed state and returns it with its nonce
func (m *StateManager) Issue(linkUserID, returnTo string) (state, nonce string, err error) {
	now := m.now()
	nonce = uuid.NewString()

	claims := StateClaims{
		Nonce:      nonce,
		LinkUserID: linkUserID,
		ReturnTo:   returnTo,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    stateIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	state, err = token.SignedString(m.secretKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign state: %w", err)
	}
	return state, nonce, nil
}

// Verify validates a state value against the nonce stored in the session
func (m *StateManager) Verify(state, expectedNonce string) (*StateClaims, error) {
	token, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithIssuer(stateIssuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredState
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidState
	}
	if expectedNonce == "" || claims.Nonce != expectedNonce {
		return nil, fmt.Errorf("%w: nonce mismatch", ErrInvalidState)
	}

	return claims, nil
}

// GenerateSecret creates a random base64 secret
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

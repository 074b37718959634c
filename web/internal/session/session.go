package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
)

const (
	// SessionName is the name of the session cookie
	SessionName = "bnetsso_session"

	// UserIDKey is the session key for the logged-in account
	UserIDKey = "uid"

	// NonceKey is the session key for the pending OAuth2 state nonce
	NonceKey = "oauth_nonce"

	// RegistrationKey is the session key for the pending registration context
	RegistrationKey = "sso:battlenet"
)

// ErrNoSession is returned when the request carries no logged-in account
var ErrNoSession = errors.New("no session")

// Manager wraps gorilla/sessions for our use case
type Manager struct {
	store sessions.Store
}

// NewManager creates a session manager backed by the configured store.
// secretKey should be 32 bytes.
func NewManager(secretKey []byte, cfg config.SessionConfig) *Manager {
	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   false, // set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
	}

	var store sessions.Store
	switch cfg.Store {
	case "cookie":
		cs := sessions.NewCookieStore(secretKey)
		cs.Options = opts
		store = cs
	default:
		fs := sessions.NewFilesystemStore(cfg.Path, secretKey)
		// registration contexts carry character lists that outgrow the 4096 default
		fs.MaxLength(0)
		fs.Options = opts
		store = fs
	}

	return &Manager{store: store}
}

// get returns the request's session, starting a new one when the cookie
// is missing or no longer decodes.
func (m *Manager) get(r *http.Request) *sessions.Session {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		session, _ = m.store.New(r, SessionName)
	}
	return session
}

// SetUserID stores the logged-in account
func (m *Manager) SetUserID(r *http.Request, w http.ResponseWriter, userID string) error {
	session := m.get(r)
	session.Values[UserIDKey] = userID
	return session.Save(r, w)
}

// UserID returns the logged-in account
func (m *Manager) UserID(r *http.Request) (string, error) {
	uid, ok := m.get(r).Values[UserIDKey].(string)
	if !ok || uid == "" {
		return "", ErrNoSession
	}
	return uid, nil
}

// SetNonce stores the nonce of an OAuth2 state issued for this browser
func (m *Manager) SetNonce(r *http.Request, w http.ResponseWriter, nonce string) error {
	session := m.get(r)
	session.Values[NonceKey] = nonce
	return session.Save(r, w)
}

// TakeNonce returns the stored nonce and removes it, so a state verifies
// at most once.
func (m *Manager) TakeNonce(r *http.Request, w http.ResponseWriter) (string, error) {
	session := m.get(r)
	nonce, _ := session.Values[NonceKey].(string)
	delete(session.Values, NonceKey)
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return nonce, nil
}

// SetRegistration stores a pending registration context
func (m *Manager) SetRegistration(r *http.Request, w http.ResponseWriter, reg *entities.RegistrationContext) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to encode registration context: %w", err)
	}
	session := m.get(r)
	session.Values[RegistrationKey] = string(data)
	return session.Save(r, w)
}

// Registration returns the pending registration context, or nil
func (m *Manager) Registration(r *http.Request) (*entities.RegistrationContext, error) {
	raw, ok := m.get(r).Values[RegistrationKey].(string)
	if !ok || raw == "" {
		return nil, nil
	}
	var reg entities.RegistrationContext
	if err := json.Unmarshal([]byte(raw), &reg); err != nil {
		return nil, fmt.Errorf("failed to decode registration context: %w", err)
	}
	return &reg, nil
}

// ClearRegistration discards the pending registration context
func (m *Manager) ClearRegistration(r *http.Request, w http.ResponseWriter) error {
	session := m.get(r)
	delete(session.Values, RegistrationKey)
	return session.Save(r, w)
}

// Clear removes the session (logout)
func (m *Manager) Clear(r *http.Request, w http.ResponseWriter) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return nil // session doesn't exist, nothing to clear
	}

	for k := range session.Values {
		delete(session.Values, k)
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

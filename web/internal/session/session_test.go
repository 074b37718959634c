package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// roundTrip runs fn against a request carrying the cookies from prev and
// returns the response cookies.
func roundTrip(prev []*http.Cookie, fn func(w http.ResponseWriter, r *http.Request)) []*http.Cookie {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range prev {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	fn(w, r)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		return cookies
	}
	return prev
}

func TestManagerStores(t *testing.T) {
	for _, store := range []string{"cookie", "filesystem"} {
		t.Run(store, func(t *testing.T) {
			m := NewManager(testKey, config.SessionConfig{Store: store, Path: t.TempDir(), MaxAge: 3600})

			cookies := roundTrip(nil, func(w http.ResponseWriter, r *http.Request) {
				if _, err := m.UserID(r); err != ErrNoSession {
					t.Errorf("UserID() error = %v, want ErrNoSession", err)
				}
				if err := m.SetUserID(r, w, "1001"); err != nil {
					t.Fatal(err)
				}
			})

			roundTrip(cookies, func(w http.ResponseWriter, r *http.Request) {
				uid, err := m.UserID(r)
				if err != nil || uid != "1001" {
					t.Errorf("UserID() = %q, %v; want 1001", uid, err)
				}
			})
		})
	}
}

func TestNonceIsSingleUse(t *testing.T) {
	m := NewManager(testKey, config.SessionConfig{Store: "cookie", MaxAge: 3600})

	cookies := roundTrip(nil, func(w http.ResponseWriter, r *http.Request) {
		if err := m.SetNonce(r, w, "n-1"); err != nil {
			t.Fatal(err)
		}
	})

	cookies = roundTrip(cookies, func(w http.ResponseWriter, r *http.Request) {
		if nonce, _ := m.TakeNonce(r, w); nonce != "n-1" {
			t.Errorf("TakeNonce() = %q, want n-1", nonce)
		}
	})

	roundTrip(cookies, func(w http.ResponseWriter, r *http.Request) {
		if nonce, _ := m.TakeNonce(r, w); nonce != "" {
			t.Errorf("second TakeNonce() = %q, want empty", nonce)
		}
	})
}

func TestRegistrationContext(t *testing.T) {
	m := NewManager(testKey, config.SessionConfig{Store: "filesystem", Path: t.TempDir(), MaxAge: 3600})
	reg := &entities.RegistrationContext{
		UserID:      "1001",
		ExternalID:  "42",
		DisplayName: "Tank#1234",
		Characters:  []json.RawMessage{json.RawMessage(`{"name":"Grom"}`)},
	}

	cookies := roundTrip(nil, func(w http.ResponseWriter, r *http.Request) {
		if err := m.SetRegistration(r, w, reg); err != nil {
			t.Fatal(err)
		}
	})

	cookies = roundTrip(cookies, func(w http.ResponseWriter, r *http.Request) {
		got, err := m.Registration(r)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Pending() || got.DisplayName != "Tank#1234" || len(got.Characters) != 1 {
			t.Errorf("Registration() = %+v", got)
		}
		if err := m.ClearRegistration(r, w); err != nil {
			t.Fatal(err)
		}
	})

	roundTrip(cookies, func(w http.ResponseWriter, r *http.Request) {
		if got, _ := m.Registration(r); got != nil {
			t.Errorf("Registration() after clear = %+v, want nil", got)
		}
	})
}

func TestClear(t *testing.T) {
	m := NewManager(testKey, config.SessionConfig{Store: "cookie", MaxAge: 3600})

	cookies := roundTrip(nil, func(w http.ResponseWriter, r *http.Request) {
		_ = m.SetUserID(r, w, "1001")
	})

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	if err := m.Clear(r, w); err != nil {
		t.Fatal(err)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionName && c.MaxAge >= 0 {
			t.Errorf("cookie MaxAge = %d, want expired", c.MaxAge)
		}
	}
}

// Package battlenettest provides an in-process stand-in for the Battle.net
// OAuth and profile APIs.
package battlenettest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// AccessToken is the bearer token handed out by the token endpoint
const AccessToken = "test-access-token"

// Server is a fake Battle.net
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	profile        any
	characters     any
	profileStatus  int
	charStatus     int
	profileDelay   time.Duration
	charDelay      time.Duration
	tokenCalls     atomic.Int32
	profileCalls   atomic.Int32
	characterCalls atomic.Int32
}

// NewServer starts a fake serving profile {id, battletag} and no characters
func NewServer(id int64, battletag string) *Server {
	s := &Server{
		profile:       map[string]any{"id": id, "battletag": battletag},
		characters:    map[string]any{"characters": []any{}},
		profileStatus: http.StatusOK,
		charStatus:    http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", s.handleToken)
	mux.HandleFunc("/oauth/authorize", s.handleAuthorize)
	mux.HandleFunc("/account/user", s.handleProfile)
	mux.HandleFunc("/wow/user/characters", s.handleCharacters)
	s.Server = httptest.NewServer(mux)
	return s
}

// SetProfile replaces the profile body. A string is written verbatim.
func (s *Server) SetProfile(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = v
}

// SetCharacters replaces the characters body. A string is written verbatim.
func (s *Server) SetCharacters(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = v
}

// SetProfileStatus sets the status code of the profile endpoint
func (s *Server) SetProfileStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileStatus = code
}

// SetCharactersStatus sets the status code of the characters endpoint
func (s *Server) SetCharactersStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charStatus = code
}

// SetDelays makes the profile and characters endpoints wait before answering
func (s *Server) SetDelays(profile, characters time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileDelay = profile
	s.charDelay = characters
}

// TokenCalls returns how many code exchanges were served
func (s *Server) TokenCalls() int { return int(s.tokenCalls.Load()) }

// ProfileCalls returns how many profile requests were served
func (s *Server) ProfileCalls() int { return int(s.profileCalls.Load()) }

// CharacterCalls returns how many character requests were served
func (s *Server) CharacterCalls() int { return int(s.characterCalls.Load()) }

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	http.Redirect(w, r, q.Get("redirect_uri")+"?code=test-code&state="+q.Get("state"), http.StatusFound)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.tokenCalls.Add(1)
	if err := r.ParseForm(); err != nil || r.PostForm.Get("code") == "" {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("code") == "bad-code" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": AccessToken,
		"token_type":   "bearer",
		"expires_in":   86399,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") == AccessToken
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.profileCalls.Add(1)
	s.mu.Lock()
	body, status, delay := s.profile, s.profileStatus, s.profileDelay
	s.mu.Unlock()
	s.respond(w, r, body, status, delay)
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	s.characterCalls.Add(1)
	s.mu.Lock()
	body, status, delay := s.characters, s.charStatus, s.charDelay
	s.mu.Unlock()
	s.respond(w, r, body, status, delay)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, body any, status int, delay time.Duration) {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if !s.authorized(r) {
		http.Error(w, `{"code":401}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if raw, ok := body.(string); ok {
		_, _ = w.Write([]byte(raw))
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

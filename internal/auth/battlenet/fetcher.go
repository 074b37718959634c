package battlenet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
)

// DefaultFetchTimeout bounds each sub-fetch when no timeout is configured
const DefaultFetchTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response is read
const maxBodyBytes = 4 << 20

// Fetcher retrieves the profile and character list for an access token
type Fetcher struct {
	endpoints  Endpoints
	httpClient *http.Client
	timeout    time.Duration
	policy     *bluemonday.Policy
	log        *slog.Logger
}

// NewFetcher creates a fetcher. httpClient may be nil.
func NewFetcher(endpoints Endpoints, httpClient *http.Client, timeout time.Duration) *Fetcher {
	if httpClient == nil {
		httpClient = NewHTTPClient(nil)
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		endpoints:  endpoints,
		httpClient: httpClient,
		timeout:    timeout,
		policy:     bluemonday.StrictPolicy(),
		log:        slog.Default().With(slog.String("component", "battlenet_fetcher")),
	}
}

type profileResponse struct {
	ID        json.RawMessage `json:"id"`
	BattleTag string          `json:"battletag"`
}

type charactersResponse struct {
	Characters []json.RawMessage `json:"characters"`
}

// Fetch runs the profile and character requests concurrently and merges
// them. Both must succeed. The first failure cancels the other request.
func (f *Fetcher) Fetch(ctx context.Context, token *oauth2.Token) (*entities.ExternalProfile, error) {
	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, f.httpClient),
		oauth2.StaticTokenSource(token),
	)

	var (
		profile profileResponse
		chars   charactersResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.getJSON(gctx, client, f.endpoints.UserInfoURL, ErrProfileFetchFailed, &profile)
	})
	g.Go(func() error {
		return f.getJSON(gctx, client, f.endpoints.CharactersURL, ErrCharacterFetchFailed, &chars)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	externalID, err := parseExternalID(profile.ID)
	if err != nil {
		return nil, &FetchError{Stage: ErrProfileFetchFailed, Cause: ErrMalformedResponse, Err: err}
	}

	if chars.Characters == nil {
		chars.Characters = []json.RawMessage{}
	}

	return &entities.ExternalProfile{
		ExternalID:  externalID,
		DisplayName: f.sanitize(profile.BattleTag),
		Characters:  chars.Characters,
	}, nil
}

// getJSON performs one bounded GET and decodes the body into out
func (f *Fetcher) getJSON(ctx context.Context, client *http.Client, url string, stage error, out any) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FetchError{Stage: stage, Cause: ErrNetworkFailure, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &FetchError{Stage: stage, Cause: ErrNetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &FetchError{Stage: stage, Cause: ErrNetworkFailure, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.Warn("battle.net request failed",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode))
		return &FetchError{Stage: stage, Cause: ErrNetworkFailure, Err: &StatusError{StatusCode: resp.StatusCode}}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Stage: stage, Cause: ErrMalformedResponse, Err: err}
	}
	return nil
}

// parseExternalID accepts the numeric id as a JSON number or string and
// returns its decimal form.
func parseExternalID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("profile has no id")
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid id: %w", err)
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("invalid id: %w", err)
		}
		s = n.String()
	}

	s = strings.TrimSpace(s)
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return "", fmt.Errorf("invalid id %q", s)
	}
	return s, nil
}

// sanitize strips markup from provider-supplied text
func (f *Fetcher) sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(f.policy.Sanitize(s)))
}

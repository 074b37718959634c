package battlenet

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devilmonastery/bnetsso/internal/pkg/metrics"
)

// metricsTransport wraps an http.RoundTripper to collect metrics on Battle.net API calls
type metricsTransport struct {
	base http.RoundTripper
}

// NewMetricsTransport creates a transport wrapper that records every call
// made through it. Install it on the client dedicated to Battle.net.
func NewMetricsTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &metricsTransport{base: base}
}

// NewHTTPClient returns an instrumented client for Battle.net calls
func NewHTTPClient(base http.RoundTripper) *http.Client {
	return &http.Client{Transport: NewMetricsTransport(base)}
}

// RoundTrip implements http.RoundTripper
func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	endpoint := normalizeEndpoint(req.URL.Path)
	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}

	metrics.BattleNetAPICalls.WithLabelValues(req.Method, endpoint, strconv.Itoa(statusCode)).Inc()
	metrics.BattleNetAPIDuration.WithLabelValues(req.Method, endpoint).Observe(float64(duration.Milliseconds()))

	if err != nil || statusCode >= 400 {
		metrics.BattleNetAPIErrors.WithLabelValues(endpoint, classifyError(statusCode, err)).Inc()
	}

	return resp, err
}

// normalizeEndpoint maps a request path to a low-cardinality endpoint name
func normalizeEndpoint(path string) string {
	switch {
	case strings.HasSuffix(path, tokenPath):
		return "token"
	case strings.HasSuffix(path, authPath):
		return "authorize"
	case strings.HasSuffix(path, userInfoPath):
		return "profile"
	case strings.HasSuffix(path, charactersPath):
		return "characters"
	default:
		return "other"
	}
}

// classifyError categorizes Battle.net API errors for metrics
func classifyError(statusCode int, err error) string {
	if err != nil {
		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
			return "timeout"
		case strings.Contains(err.Error(), "deadline") || strings.Contains(err.Error(), "timeout"):
			return "timeout"
		case strings.Contains(err.Error(), "canceled"):
			return "canceled"
		case strings.Contains(err.Error(), "connection"):
			return "connection"
		case strings.Contains(err.Error(), "tls"):
			return "tls"
		default:
			return "network"
		}
	}

	switch {
	case statusCode == 400:
		return "bad_request"
	case statusCode == 401:
		return "unauthorized"
	case statusCode == 403:
		return "forbidden"
	case statusCode == 404:
		return "not_found"
	case statusCode == 429:
		return "rate_limited"
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}

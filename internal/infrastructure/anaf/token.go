package anaf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenSource supplies bearer tokens for the gateway. Invalidate drops the
// cached token so the next call re-acquires; the client uses it once after a
// 401 before giving up.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// StaticTokenSource returns a fixed token. Used in tests and with manually
// issued SPV tokens.
type StaticTokenSource string

func (s StaticTokenSource) Token(ctx context.Context) (string, error) { return string(s), nil }
func (s StaticTokenSource) Invalidate()                               {}

// OAuthTokenSource exchanges the long-lived SPV refresh token for short-lived
// access tokens and caches them until shortly before expiry.
type OAuthTokenSource struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewOAuthTokenSource builds the source. The HTTP client carries its own
// timeout so token acquisition cannot hang a gateway call indefinitely.
func NewOAuthTokenSource(tokenURL, clientID, clientSecret, refreshToken string) *OAuthTokenSource {
	return &OAuthTokenSource{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
	}
}

// Token returns the cached access token, refreshing it when it is missing or
// within a minute of expiry.
func (s *OAuthTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Until(s.expiry) > time.Minute {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.refreshToken)
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("token: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("token: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token: HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var reply struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("token: parse response: %w", err)
	}
	if reply.AccessToken == "" {
		return "", fmt.Errorf("token: empty access_token in response")
	}

	s.token = reply.AccessToken
	s.expiry = time.Now().Add(time.Duration(reply.ExpiresIn) * time.Second)
	return s.token, nil
}

// Invalidate drops the cached token.
func (s *OAuthTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiry = time.Time{}
	s.mu.Unlock()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

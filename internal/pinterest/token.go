package pinterest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/pinagent/internal/logger"
)

// ErrNoCredentials is returned when neither a static token nor a refresh
// grant is configured.
var ErrNoCredentials = errors.New("no pinterest credentials configured")

// refreshMargin is how long before expiry a cached token is renewed.
const refreshMargin = 5 * time.Minute

// minTokenReuse is how long a token without a usable expiry is cached.
const minTokenReuse = time.Minute

// Credentials configure a TokenProvider. A static AccessToken takes
// precedence over the refresh grant.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	AppID        string
	AppSecret    string
}

func (c Credentials) canRefresh() bool {
	return c.RefreshToken != "" && c.AppID != "" && c.AppSecret != ""
}

// TokenProvider hands out a valid access token, refreshing it when needed.
// It is safe for concurrent use.
type TokenProvider struct {
	creds   Credentials
	http    *http.Client
	baseURL string
	log     logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	token   string
	renewAt time.Time
}

// NewTokenProvider creates a provider. An empty baseURL uses DefaultBaseURL.
func NewTokenProvider(creds Credentials, httpClient *http.Client, baseURL string, log logger.Logger) *TokenProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &TokenProvider{
		creds:   creds,
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		now:     time.Now,
	}
}

// EnsureValid returns a token that is valid for at least the refresh margin.
func (p *TokenProvider) EnsureValid(ctx context.Context) (string, error) {
	if p.creds.AccessToken != "" {
		return p.creds.AccessToken, nil
	}
	if !p.creds.canRefresh() {
		return "", ErrNoCredentials
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.renewAt) {
		return p.token, nil
	}
	token, ttl, err := p.refresh(ctx)
	if err != nil {
		return "", err
	}
	p.token = token
	p.renewAt = p.now().Add(cacheFor(ttl))
	p.log.Info("pinterest token refreshed", logger.Duration("expires_in", ttl))
	return p.token, nil
}

// cacheFor returns how long a token with the given lifetime is reused. Short
// lifetimes are halved instead of reduced by the refresh margin.
func cacheFor(ttl time.Duration) time.Duration {
	switch {
	case ttl > refreshMargin:
		return ttl - refreshMargin
	case ttl/2 >= minTokenReuse:
		return ttl / 2
	default:
		return minTokenReuse
	}
}

func (p *TokenProvider) refresh(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {p.creds.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(p.creds.AppID, p.creds.AppSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", 0, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", 0, errors.New("token response has no access_token")
	}
	return out.AccessToken, time.Duration(out.ExpiresIn) * time.Second, nil
}

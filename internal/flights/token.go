package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultTokenURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"

	// Refresh a little before the token actually expires
	tokenRefreshBuffer = 30 * time.Second
	// Used when the endpoint omits expires_in or reports a very short one
	defaultTokenLifetime = 29 * time.Minute
)

// Credentials is the OpenSky credentials file. Either an access token or a
// client id/secret pair must be present.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURL     string `json:"token_url,omitempty"`
}

// LoadCredentials reads and validates an OpenSky credentials file
func LoadCredentials(path string) (*Credentials, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read opensky credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(b, &creds); err != nil {
		return nil, fmt.Errorf("invalid opensky credentials JSON: %w", err)
	}

	if creds.AccessToken == "" && (creds.ClientID == "" || creds.ClientSecret == "") {
		return nil, fmt.Errorf("opensky credentials must contain access_token or client_id+client_secret")
	}
	return &creds, nil
}

// TokenManager caches an OAuth2 client-credentials token
type TokenManager struct {
	static     string
	oauth      *clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewTokenManager creates a token manager. tokenURL is used unless the
// credentials carry their own.
func NewTokenManager(creds Credentials, tokenURL string, httpClient *http.Client) *TokenManager {
	if creds.TokenURL != "" {
		tokenURL = creds.TokenURL
	}
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	tm := &TokenManager{
		static:     creds.AccessToken,
		httpClient: httpClient,
		now:        time.Now,
	}
	if tm.static == "" {
		tm.oauth = &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
	}
	return tm
}

// Token returns a valid access token, refreshing if needed
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	if tm.static != "" {
		return tm.static, nil
	}

	tm.mu.RLock()
	if tm.token != "" && tm.now().Before(tm.expiresAt) {
		tok := tm.token
		tm.mu.RUnlock()
		return tok, nil
	}
	tm.mu.RUnlock()

	return tm.refresh(ctx)
}

func (tm *TokenManager) refresh(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token != "" && tm.now().Before(tm.expiresAt) {
		return tm.token, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, tm.httpClient)
	tok, err := tm.oauth.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("requesting opensky token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response did not contain access_token")
	}

	lifetime := defaultTokenLifetime
	if !tok.Expiry.IsZero() {
		if remaining := time.Until(tok.Expiry); remaining > 2*tokenRefreshBuffer {
			lifetime = remaining - tokenRefreshBuffer
		}
	}

	tm.token = tok.AccessToken
	tm.expiresAt = tm.now().Add(lifetime)
	return tm.token, nil
}

// Package token manages the ShipBob OAuth2 credential lifecycle: the one-time
// authorization-code exchange, durable persistence of the credential record,
// and expiry-aware refresh on acquisition.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/httpx"
	"shipment-enricher/internal/common/logging"
)

// Scopes requested during the authorization-code flow. offline_access is what
// yields the refresh token.
var Scopes = []string{"orders_read", "webhooks_read", "webhooks_write", "offline_access"}

// Config holds the identity-provider settings for the token endpoints
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURI  string
}

// tokenResponse maps the provider's token endpoint response (RFC 6749)
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Manager guarantees callers a currently-valid access token. Callers never
// need to know whether the stored token is stale.
//
// Concurrent Acquire calls during expiry may each perform a refresh; the last
// persisted record wins and is authoritative for subsequent calls. This is a
// known, accepted race: refresh is rare and idempotent from the provider's
// perspective, so the manager takes no lock.
type Manager struct {
	config     Config
	store      Store
	httpClient *http.Client
	logger     logging.Logger
	now        func() time.Time
}

// NewManager creates a token lifecycle manager backed by store
func NewManager(config Config, store Store, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Manager{
		config:     config,
		store:      store,
		httpClient: httpx.NewClientWithTimeout(30 * time.Second),
		logger:     logger,
		now:        time.Now,
	}
}

// AuthorizeURL builds the identity provider's consent URL for the
// authorization-code flow
func (m *Manager) AuthorizeURL() string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", m.config.ClientID)
	params.Set("redirect_uri", m.config.RedirectURI)
	params.Set("scope", strings.Join(Scopes, " "))
	params.Set("response_mode", "query")

	return m.config.AuthURL + "?" + params.Encode()
}

// Acquire returns a currently-valid access token.
//
// Fast path: an unexpired stored record is returned with no network call.
// Expired records trigger a refresh-token grant; the new record fully
// replaces the old one and is persisted before the token is returned.
// With no stored record at all the caller must complete the interactive
// authorization flow first.
func (m *Manager) Acquire(ctx context.Context) (string, error) {
	creds, err := m.store.Load(ctx)
	if err != nil {
		return "", errors.InternalError("failed to load stored credentials", err)
	}
	if creds == nil {
		return "", errors.AuthError("no stored credentials; complete the authorization flow first")
	}

	if !creds.Expired(m.now()) {
		return creds.AccessToken, nil
	}

	m.logger.Info("Access token expired, refreshing",
		logging.Field{Key: "expires_at", Value: creds.ExpiresAt},
	)

	refreshed, err := m.refresh(ctx, creds.RefreshToken)
	if err != nil {
		return "", err
	}

	m.logger.Info("Access token refreshed",
		logging.Field{Key: "expires_at", Value: refreshed.ExpiresAt},
	)

	return refreshed.AccessToken, nil
}

// Exchange completes the authorization-code grant and persists the initial
// credential record
func (m *Manager) Exchange(ctx context.Context, code string) (*Credentials, error) {
	if code == "" {
		return nil, errors.ValidationError("authorization code is required")
	}

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", m.config.ClientID)
	data.Set("client_secret", m.config.ClientSecret)
	data.Set("redirect_uri", m.config.RedirectURI)

	creds, err := m.requestToken(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, creds); err != nil {
		return nil, errors.InternalError("failed to persist credentials", err)
	}

	m.logger.Info("Authorization code exchanged, credentials stored",
		logging.Field{Key: "expires_at", Value: creds.ExpiresAt},
	)

	return creds, nil
}

// refresh performs the refresh-token grant and persists the replacement record
func (m *Manager) refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", m.config.ClientID)
	data.Set("client_secret", m.config.ClientSecret)

	creds, err := m.requestToken(ctx, data)
	if err != nil {
		return nil, errors.TokenRefreshError("refresh token grant failed", err)
	}

	if err := m.store.Save(ctx, creds); err != nil {
		// The prior record on disk remains authoritative
		return nil, errors.TokenRefreshError("failed to persist refreshed credentials", err)
	}

	return creds, nil
}

// requestToken posts a form-encoded grant to the token endpoint. The
// provider requires application/x-www-form-urlencoded; a JSON body is
// rejected.
func (m *Manager) requestToken(ctx context.Context, data url.Values) (*Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.InternalError("failed to create token request", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, errors.ConnectionError("token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.InternalError("failed to read token response", err)
	}

	if resp.StatusCode != http.StatusOK {
		providerErr := errors.ProviderError(fmt.Sprintf("token endpoint returned status %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode)

		var errResp struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			providerErr = providerErr.
				WithContext("error", errResp.Error).
				WithContext("error_description", errResp.Description)
		} else {
			providerErr = providerErr.WithContext("body", string(body))
		}

		return nil, providerErr
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, errors.ProviderError("malformed token response body").WithContext("body", string(body))
	}
	if tokenResp.AccessToken == "" {
		return nil, errors.ProviderError("token response carried no access token")
	}

	expiresAt := m.now()
	if tokenResp.ExpiresIn > 0 {
		expiresAt = expiresAt.Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &Credentials{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// SetHTTPClient overrides the HTTP client, used by tests
func (m *Manager) SetHTTPClient(client *http.Client) {
	m.httpClient = client
}

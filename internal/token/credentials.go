package token

import (
	"time"
)

// Credentials is the single durable credential record for the ShipBob API.
// It is created by the one-time authorization-code exchange, fully replaced on
// every refresh, and persisted synchronously after every change.
type Credentials struct {
	// AccessToken is the bearer token presented to the ShipBob API
	AccessToken string `json:"access_token"`
	// RefreshToken is exchanged for a new access token after expiry
	RefreshToken string `json:"refresh_token"`
	// ExpiresAt is the wall-clock time after which AccessToken must not be
	// used for new requests
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the access token is no longer usable at now.
// The comparison is exact: a token is expired once expires_at <= now.
func (c *Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

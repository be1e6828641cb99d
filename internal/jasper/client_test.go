package jasper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/ratelimit"
)

func testLimiter(t *testing.T, maxRequests int) ratelimit.Limiter {
	t.Helper()
	limiter, err := ratelimit.New(ratelimit.Config{
		MaxRequests: maxRequests,
		Window:      time.Minute,
		Enabled:     true,
		Type:        ratelimit.BackendLocal,
	})
	require.NoError(t, err)
	return limiter
}

func newTestClient(t *testing.T, serverURL string) *Client {
	return NewClient(Config{
		BaseURL:  serverURL,
		Username: "jasper-user",
		APIKey:   "jasper-key",
	}, testLimiter(t, 50), nil)
}

func TestClient_LookupByICCID(t *testing.T) {
	var gotPath string
	var gotUser, gotPass string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"iccid":"8901000000000000000","msisdn":"15551234567","status":"ACTIVATED"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	msisdn, err := client.LookupByICCID(context.Background(), "8901000000000000000")
	require.NoError(t, err)

	assert.Equal(t, "+15551234567", msisdn)
	assert.Equal(t, "/rws/api/v1/devices/8901000000000000000", gotPath)
	assert.Equal(t, "jasper-user", gotUser)
	assert.Equal(t, "jasper-key", gotPass)
}

func TestClient_LookupByICCID_AlreadyPrefixed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"msisdn":"+15551234567"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	msisdn, err := client.LookupByICCID(context.Background(), "8901")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", msisdn)
}

func TestClient_LookupByICCID_EmptyICCID(t *testing.T) {
	client := newTestClient(t, "http://unreachable.invalid")

	_, err := client.LookupByICCID(context.Background(), "")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestClient_LookupByICCID_NoMSISDN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"iccid":"8901","status":"INVENTORY"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.LookupByICCID(context.Background(), "8901")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestClient_LookupByICCID_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream unavailable`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.LookupByICCID(context.Background(), "8901")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeProvider))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Context["status"])
}

func TestClient_LookupByICCID_RateCeiling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"msisdn":"15551234567"}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:  server.URL,
		Username: "u",
		APIKey:   "k",
	}, testLimiter(t, 2), nil)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.LookupByICCID(ctx, "8901")
		require.NoError(t, err)
	}

	// The third lookup inside the window must queue; with an expired context
	// it surfaces the wait failure instead of violating the ceiling.
	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := client.LookupByICCID(shortCtx, "8901")
	assert.Error(t, err)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.LookupByICCID(ctx, "8901")
		require.Error(t, err)
	}

	assert.Equal(t, "open", client.BreakerStats().State)

	// With the breaker open the call fails fast as a connection error
	_, err := client.LookupByICCID(ctx, "8901")
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}

// Package jasper queries the Jasper carrier API for the MSISDN assigned to
// a SIM. The upstream enforces a request ceiling, so every lookup passes
// through a rate limiter and a circuit breaker.
package jasper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shipment-enricher/internal/circuitbreaker"
	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/httpx"
	"shipment-enricher/internal/common/logging"
	"shipment-enricher/internal/common/ratelimit"
)

// lookupTimeout bounds a single carrier API call
const lookupTimeout = 5 * time.Second

// Config holds the carrier API settings
type Config struct {
	BaseURL  string
	Username string
	APIKey   string
}

// deviceResponse is the subset of the Jasper device document the client reads
type deviceResponse struct {
	ICCID  string `json:"iccid"`
	MSISDN string `json:"msisdn"`
	Status string `json:"status"`
}

// Client looks up SIM phone numbers against the Jasper carrier API
type Client struct {
	config     Config
	limiter    ratelimit.Limiter
	breaker    *circuitbreaker.GoBreakerAdapter
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a carrier lookup client. The limiter enforces the
// upstream request ceiling; excess lookups queue on Wait rather than burst.
func NewClient(config Config, limiter ratelimit.Limiter, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Client{
		config:     config,
		limiter:    limiter,
		breaker:    circuitbreaker.NewGoBreaker("jasper", circuitbreaker.HTTPConfig, logger),
		httpClient: httpx.NewClientWithTimeout(lookupTimeout),
		logger:     logger,
	}
}

// LookupByICCID returns the phone number assigned to the SIM identified by
// iccid, normalized with a leading "+". A SIM with no number assigned yields
// a not_found error, which callers treat as data absence.
func (c *Client) LookupByICCID(ctx context.Context, iccid string) (string, error) {
	if iccid == "" {
		return "", errors.ValidationError("iccid is required for carrier lookup")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var msisdn string
	err := c.breaker.Execute(ctx, func() error {
		var lookupErr error
		msisdn, lookupErr = c.fetchMSISDN(ctx, iccid)
		return lookupErr
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Carrier lookup succeeded",
		logging.Field{Key: "iccid", Value: iccid},
	)

	return msisdn, nil
}

func (c *Client) fetchMSISDN(ctx context.Context, iccid string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/rws/api/v1/devices/" + url.PathEscape(iccid)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.InternalError("failed to create carrier request", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", errors.TimeoutError("carrier lookup")
		}
		return "", errors.ConnectionError("carrier request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.InternalError("failed to read carrier response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.ProviderError(fmt.Sprintf("carrier API returned status %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode).
			WithContext("body", string(body)).
			WithContext("iccid", iccid)
	}

	var device deviceResponse
	if err := json.Unmarshal(body, &device); err != nil {
		return "", errors.ProviderError("malformed carrier response body").WithContext("body", string(body))
	}

	if device.MSISDN == "" {
		return "", errors.NotFoundError(fmt.Sprintf("phone number for SIM %s", iccid))
	}

	return normalizeMSISDN(device.MSISDN), nil
}

// normalizeMSISDN ensures the E.164 "+" prefix the order attributes expect
func normalizeMSISDN(msisdn string) string {
	if strings.HasPrefix(msisdn, "+") {
		return msisdn
	}
	return "+" + msisdn
}

// BreakerStats exposes circuit breaker statistics for the health endpoint
func (c *Client) BreakerStats() circuitbreaker.Stats {
	return c.breaker.Stats()
}

// SetHTTPClient overrides the HTTP client, used by tests
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

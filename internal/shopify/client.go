// Package shopify writes enrichment attributes onto Shopify orders as
// metafields.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/httpx"
	"shipment-enricher/internal/common/logging"
)

const (
	// metafieldNamespace groups all enrichment attributes on the order
	metafieldNamespace = "custom"
	// metafieldType is the Shopify value type for every attribute this
	// service writes
	metafieldType = "single_line_text_field"

	writeTimeout = 10 * time.Second
)

// Config holds the Shopify Admin API settings
type Config struct {
	// Store is the shop subdomain, e.g. "example" for example.myshopify.com
	Store       string
	AccessToken string
	APIVersion  string

	// BaseURL overrides the store-derived Admin API root, used by tests
	BaseURL string
}

// metafieldRequest is the Admin API create-metafield body
type metafieldRequest struct {
	Metafield metafield `json:"metafield"`
}

type metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// Client writes order attributes through the Shopify Admin API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates an order attribute writer
func NewClient(config Config, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Client{
		config:     config,
		httpClient: httpx.NewClientWithTimeout(writeTimeout),
		logger:     logger,
	}
}

// WriteAttribute sets one metafield on the order identified by orderRef.
// Each call maps to exactly one Admin API request; there are no retries.
func (c *Client) WriteAttribute(ctx context.Context, orderRef, key, value string) error {
	if orderRef == "" {
		return errors.ValidationError("order reference is required for attribute write")
	}
	if key == "" {
		return errors.ValidationError("attribute key is required")
	}

	payload, err := json.Marshal(metafieldRequest{
		Metafield: metafield{
			Namespace: metafieldNamespace,
			Key:       key,
			Value:     value,
			Type:      metafieldType,
		},
	})
	if err != nil {
		return errors.InternalError("failed to serialize metafield", err)
	}

	endpoint := fmt.Sprintf("%s/orders/%s/metafields.json", c.baseURL(), url.PathEscape(orderRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.InternalError("failed to create metafield request", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.TimeoutError("order attribute write")
		}
		return errors.ConnectionError("metafield request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errors.ProviderError(fmt.Sprintf("metafield write returned status %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode).
			WithContext("body", string(body)).
			WithContext("order", orderRef).
			WithContext("key", key)
	}

	c.logger.Info("Order attribute written",
		logging.Field{Key: "order", Value: orderRef},
		logging.Field{Key: "key", Value: key},
	)

	return nil
}

func (c *Client) baseURL() string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", c.config.Store, c.config.APIVersion)
}

// SetHTTPClient overrides the HTTP client, used by tests
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

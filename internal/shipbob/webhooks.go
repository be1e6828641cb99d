package shipbob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/httpx"
	"shipment-enricher/internal/common/logging"
)

// DefaultAPIBaseURL is the production ShipBob API root
const DefaultAPIBaseURL = "https://api.shipbob.com/1.0"

// TokenSource supplies a currently-valid access token. Implemented by
// token.Manager.
type TokenSource interface {
	Acquire(ctx context.Context) (string, error)
}

// Subscription is a registered webhook subscription as returned by the
// ShipBob API
type Subscription struct {
	ID              int    `json:"id"`
	Topic           string `json:"topic"`
	SubscriptionURL string `json:"subscription_url"`
}

// subscriptionRequest is the create-webhook request body. The ShipBob API
// expects these exact capitalized field names.
type subscriptionRequest struct {
	Topic           string `json:"Topic"`
	SubscriptionURL string `json:"SubscriptionUrl"`
	Description     string `json:"Description"`
}

// WebhookClient manages webhook subscriptions against the ShipBob API
type WebhookClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     logging.Logger
}

// NewWebhookClient creates a webhook subscription client. An empty baseURL
// selects the production API.
func NewWebhookClient(baseURL string, tokens TokenSource, logger logging.Logger) *WebhookClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &WebhookClient{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: httpx.NewClientWithTimeout(10 * time.Second),
		logger:     logger,
	}
}

// Register creates a webhook subscription for topic pointing at
// subscriptionURL
func (c *WebhookClient) Register(ctx context.Context, topic, subscriptionURL, description string) (*Subscription, error) {
	if topic == "" {
		return nil, errors.ValidationError("webhook topic is required")
	}
	if subscriptionURL == "" {
		return nil, errors.ValidationError("webhook subscription URL is required")
	}

	accessToken, err := c.tokens.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(subscriptionRequest{
		Topic:           topic,
		SubscriptionURL: subscriptionURL,
		Description:     description,
	})
	if err != nil {
		return nil, errors.InternalError("failed to serialize webhook subscription", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.InternalError("failed to create webhook request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ConnectionError("webhook registration request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.InternalError("failed to read webhook response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.ProviderError(fmt.Sprintf("webhook registration returned status %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode).
			WithContext("body", string(body))
	}

	var sub Subscription
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, errors.ProviderError("malformed webhook registration response").WithContext("body", string(body))
	}

	c.logger.Info("Webhook subscription registered",
		logging.Field{Key: "topic", Value: topic},
		logging.Field{Key: "subscription_url", Value: subscriptionURL},
		logging.Field{Key: "subscription_id", Value: sub.ID},
	)

	return &sub, nil
}

// SetHTTPClient overrides the HTTP client, used by tests
func (c *WebhookClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

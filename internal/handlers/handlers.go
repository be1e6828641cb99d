// Package handlers wires the HTTP surface: the inbound webhook, the OAuth
// flow, webhook subscription management, and operational endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/logging"
	"shipment-enricher/internal/config"
	"shipment-enricher/internal/pipeline"
	"shipment-enricher/internal/shipbob"
	"shipment-enricher/internal/token"
)

// Enricher runs the enrichment flow for one webhook event. Implemented by
// pipeline.Pipeline.
type Enricher interface {
	Handle(ctx context.Context, event *shipbob.Event) (*pipeline.Result, error)
}

// WebhookRegistrar creates webhook subscriptions. Implemented by
// shipbob.WebhookClient.
type WebhookRegistrar interface {
	Register(ctx context.Context, topic, subscriptionURL, description string) (*shipbob.Subscription, error)
}

// Handlers holds the dependencies shared by all HTTP handlers
type Handlers struct {
	enricher Enricher
	tokens   *token.Manager
	webhooks WebhookRegistrar
	config   *config.Config
	logger   logging.Logger
}

// New creates the handler set
func New(enricher Enricher, tokens *token.Manager, webhooks WebhookRegistrar, cfg *config.Config, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		enricher: enricher,
		tokens:   tokens,
		webhooks: webhooks,
		config:   cfg,
		logger:   logger,
	}
}

// respondJSON writes v as a JSON response with the given status
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps an error to an HTTP status and writes a structured
// error body. Client faults map to 400, credential faults to 401,
// everything else to 500.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch errors.GetType(err) {
	case errors.ErrTypeValidation:
		status = http.StatusBadRequest
	case errors.ErrTypeAuth:
		status = http.StatusUnauthorized
	case errors.ErrTypeNotFound:
		status = http.StatusNotFound
	case errors.ErrTypeRateLimit:
		status = http.StatusTooManyRequests
	}

	body := map[string]interface{}{
		"error": err.Error(),
	}
	if appErr, ok := err.(*errors.AppError); ok {
		body["error"] = appErr.Message
		body["type"] = appErr.Type
		if appErr.Code != "" {
			body["code"] = appErr.Code
		}
	}

	respondJSON(w, status, body)
}

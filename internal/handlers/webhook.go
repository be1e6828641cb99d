package handlers

import (
	"encoding/json"
	"net/http"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/logging"
	"shipment-enricher/internal/shipbob"
)

// HandleOrderShipped receives an order_shipped delivery and runs the
// enrichment pipeline. A 200 tells ShipBob the delivery is consumed; 400
// marks a payload it should not redeliver; 500 invites a redelivery after
// an essential write failure.
func (h *Handlers) HandleOrderShipped(w http.ResponseWriter, r *http.Request) {
	var event shipbob.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, errors.ValidationError("malformed webhook payload"))
		return
	}

	result, err := h.enricher.Handle(r.Context(), &event)
	if err != nil {
		h.logger.Error("Webhook processing failed", err,
			logging.Field{Key: "order", Value: event.ReferenceID},
		)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"order":   result.OrderRef,
		"written": result.Written,
	})
}

// registerRequest is the optional body for RegisterWebhook; every field
// falls back to the configured default
type registerRequest struct {
	Topic           string `json:"topic"`
	SubscriptionURL string `json:"subscription_url"`
	Description     string `json:"description"`
}

// RegisterWebhook creates the order_shipped subscription pointing at this
// service
func (h *Handlers) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	req := registerRequest{
		Topic:           "order_shipped",
		SubscriptionURL: h.config.ShipBobWebhookURL,
		Description:     "Shipment enrichment for order_shipped",
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, errors.ValidationError("malformed registration request"))
			return
		}
	}

	sub, err := h.webhooks.Register(r.Context(), req.Topic, req.SubscriptionURL, req.Description)
	if err != nil {
		h.logger.Error("Webhook registration failed", err,
			logging.Field{Key: "topic", Value: req.Topic},
		)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"subscription": sub,
	})
}

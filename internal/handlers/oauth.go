package handlers

import (
	"net/http"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/logging"
)

// ShipBobAuth redirects the user agent to the identity provider's consent
// page, starting the one-time authorization-code flow
func (h *Handlers) ShipBobAuth(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.tokens.AuthorizeURL(), http.StatusFound)
}

// OAuthCallback receives the provider's redirect, exchanges the
// authorization code and persists the credential record
func (h *Handlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		respondError(w, errors.AuthError("authorization was denied: "+errParam))
		return
	}

	code := query.Get("code")
	if code == "" {
		respondError(w, errors.ValidationError("callback carries no authorization code"))
		return
	}

	creds, err := h.tokens.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("Authorization code exchange failed", err)
		respondError(w, err)
		return
	}

	h.logger.Info("ShipBob authorization complete",
		logging.Field{Key: "expires_at", Value: creds.ExpiresAt},
	)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "ShipBob authorization complete, credentials stored",
		"expires_at": creds.ExpiresAt,
	})
}

package handlers

import (
	"net/http"
)

// Health reports service liveness
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Root serves a plain status banner
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "shipment-enricher",
		"status":  "running",
	})
}

package handlers

import (
	"bytes"
	"net/http"
	"os"
	"strconv"

	"shipment-enricher/internal/common/errors"
)

const (
	defaultLogLines = 100
	maxLogLines     = 1000
)

// GetLogs serves the tail of the log file so a missing attribute can be
// diagnosed without shell access to the host. The lines query parameter
// bounds the tail length.
func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	lines := defaultLogLines
	if l := r.URL.Query().Get("lines"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			respondError(w, errors.ValidationError("lines must be a positive number"))
			return
		}
		if parsed > maxLogLines {
			parsed = maxLogLines
		}
		lines = parsed
	}

	data, err := os.ReadFile(h.config.LogFile)
	if os.IsNotExist(err) {
		respondJSON(w, http.StatusOK, map[string]interface{}{"lines": []string{}})
		return
	}
	if err != nil {
		respondError(w, errors.InternalError("failed to read log file", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lines": tailLines(data, lines),
	})
}

// tailLines returns the last n non-empty-terminated lines of data
func tailLines(data []byte, n int) []string {
	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return []string{}
	}

	split := bytes.Split(data, []byte("\n"))
	if len(split) > n {
		split = split[len(split)-n:]
	}

	lines := make([]string, len(split))
	for i, line := range split {
		lines[i] = string(line)
	}
	return lines
}

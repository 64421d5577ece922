package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mwhitford/skylog/internal/apperr"
)

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps the error taxonomy onto status codes. Store failures are
// logged in full and surfaced as an opaque 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Str("method", r.Method).
			Msg("request failed")
		msg = "internal server error"
	}
	h.writeJSON(w, status, map[string]any{"error": msg})
}

// mediaURL renders the public URL for an object key, percent-escaping
// anything the key carries.
func (h *Handler) mediaURL(key string) string {
	if key == "" || h.publicURL == "" {
		return ""
	}
	raw := strings.ReplaceAll(fmt.Sprintf(h.publicURL, key), " ", "%20")
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return parsed.String()
}

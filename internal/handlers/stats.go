package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/internal/auth"
	"github.com/mwhitford/skylog/internal/store"
)

const defaultStatsLimit = 10

func statsLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = defaultStatsLimit
	}
	return limit
}

// statsHandler adapts one ranked-count aggregate into an endpoint.
func (h *Handler) statsHandler(agg func(context.Context, uint, int) ([]store.NameCount, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserID(r.Context())
		if !ok {
			h.writeError(w, r, apperr.Unauthorized("not authenticated"))
			return
		}
		rows, err := agg(r.Context(), userID, statsLimit(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"results": rows})
	}
}

func (h *Handler) PhotoYears(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	rows, err := h.store.PhotoCountsByUserByYear(r.Context(), userID, statsLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": rows})
}

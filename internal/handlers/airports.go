package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/internal/lifecycle"
	"github.com/mwhitford/skylog/models"
)

type airportRequest struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (a *airportRequest) toLifecycle() *lifecycle.NewAirport {
	return &lifecycle.NewAirport{
		Code:      a.Code,
		Name:      a.Name,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
	}
}

func (h *Handler) ListAirports(w http.ResponseWriter, r *http.Request) {
	airports, err := h.store.ListAirports(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"airports": airports})
}

func (h *Handler) GetAirport(w http.ResponseWriter, r *http.Request) {
	airport, err := h.store.GetAirport(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, airport)
}

// CreateAirport is the admin path for seeding reference airports. Users add
// airports through photo upload with airport_code=other.
func (h *Handler) CreateAirport(w http.ResponseWriter, r *http.Request) {
	var req airportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	if req.Code == "" || req.Name == "" || req.Latitude == nil || req.Longitude == nil {
		h.writeError(w, r, apperr.Validation("code, name, latitude and longitude are required"))
		return
	}
	airport := &models.Airport{
		Code:      strings.ToUpper(req.Code),
		Name:      req.Name,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
	if err := h.store.CreateAirport(r.Context(), airport); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, airport)
}

func (h *Handler) ListAirlines(w http.ResponseWriter, r *http.Request) {
	airlines, err := h.store.ListAirlines(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"airlines": airlines})
}

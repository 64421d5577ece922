package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/internal/store"
	"github.com/mwhitford/skylog/models"
)

type aircraftTypeRequest struct {
	ICAOCode     string `json:"icao_code"`
	Manufacturer string `json:"manufacturer"`
	Family       string `json:"family"`
	Variant      string `json:"variant"`
}

func (h *Handler) ListAircraftTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.store.ListAircraftTypes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"aircraft_types": types})
}

// CreateAircraftType is admin-only; types are immutable once referenced.
func (h *Handler) CreateAircraftType(w http.ResponseWriter, r *http.Request) {
	var req aircraftTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	if req.ICAOCode == "" || req.Manufacturer == "" {
		h.writeError(w, r, apperr.Validation("icao_code and manufacturer are required"))
		return
	}
	t := &models.AircraftType{
		ICAOCode:     strings.ToUpper(req.ICAOCode),
		Manufacturer: req.Manufacturer,
		Family:       req.Family,
		Variant:      req.Variant,
	}
	if err := h.store.CreateAircraftType(r.Context(), t); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, t)
}

// SearchAircraft filters registrations by substring and by JSON-array
// set filters on type code or manufacturer, with page/limit pagination.
func (h *Handler) SearchAircraft(w http.ResponseWriter, r *http.Request) {
	q := store.AircraftSearch{
		Registration: r.URL.Query().Get("registration"),
	}
	var err error
	if q.TypeCodes, err = jsonArrayParam(r, "types"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if q.Manufacturers, err = jsonArrayParam(r, "manufacturers"); err != nil {
		h.writeError(w, r, err)
		return
	}
	q.Page, q.Limit = pagination(r)

	results, total, err := h.store.SearchAircraft(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"aircraft": results,
		"total":    total,
		"page":     q.Page,
		"limit":    q.Limit,
	})
}

const maxSampleSize = 25

// RandomAircraft returns an approximately-uniform sample: a random starting
// offset into the ordered rows, then one page.
func (h *Handler) RandomAircraft(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > maxSampleSize {
		limit = maxSampleSize
	}
	results, err := h.store.SampleAircraft(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"aircraft": results})
}

func jsonArrayParam(r *http.Request, name string) ([]string, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, apperr.Validation("%s must be a JSON array of strings", name)
	}
	return out, nil
}

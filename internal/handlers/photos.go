package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/internal/auth"
	"github.com/mwhitford/skylog/internal/lifecycle"
	"github.com/mwhitford/skylog/internal/media"
	"github.com/mwhitford/skylog/models"
)

const maxUploadBytes = 32 << 20

func (h *Handler) photoResponse(p *models.Photo) map[string]any {
	return map[string]any{
		"photo":     p,
		"url":       h.mediaURL(p.MediaKey),
		"thumb_url": h.mediaURL(p.ThumbKey),
	}
}

// CreatePhoto accepts a multipart form: the image under "image" plus the
// sighting fields. The image is resized into the display and thumbnail
// renditions and pushed to object storage before the row is written.
func (h *Handler) CreatePhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthorized("not authenticated"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, r, apperr.Validation("invalid multipart form"))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, r, apperr.Validation("image file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, apperr.Validation("could not read image"))
		return
	}
	display, thumb, err := media.Renditions(data)
	if err != nil {
		h.writeError(w, r, apperr.Validation("unsupported or corrupt image"))
		return
	}

	mediaKey, err := h.media.Put(r.Context(), display, "image/jpeg")
	if err != nil {
		h.writeError(w, r, apperr.Store("uploading image", err))
		return
	}
	thumbKey, err := h.media.Put(r.Context(), thumb, "image/jpeg")
	if err != nil {
		h.writeError(w, r, apperr.Store("uploading thumbnail", err))
		return
	}

	reg, err := registrationFromForm(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	md, err := metadataFromForm(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	in := lifecycle.CreatePhotoInput{
		Registration: reg,
		AirportCode:  r.FormValue("airport_code"),
		NewAirport:   newAirportFromForm(r),
		MediaKey:     mediaKey,
		ThumbKey:     thumbKey,
		Metadata:     md,
	}
	photo, err := h.life.CreatePhoto(r.Context(), userID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := h.photoResponse(photo)
	resp["message"] = "Photo uploaded successfully"
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	page, limit := pagination(r)

	photos, total, err := h.store.ListPhotosByUser(r.Context(), userID, page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]map[string]any, len(photos))
	for i := range photos {
		items[i] = h.photoResponse(&photos[i])
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"photos": items,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	photo, err := h.store.GetPhotoForUser(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.photoResponse(photo))
}

type updatePhotoRequest struct {
	RegistrationHistoryID *uint           `json:"registration_history_id"`
	Registration          *string         `json:"registration"`
	AircraftTypeID        *uint           `json:"aircraft_type_id"`
	Manufactured          *string         `json:"manufactured"`
	AirlineCode           *string         `json:"airline_code"`
	AirportCode           *string         `json:"airport_code"`
	NewAirport            *airportRequest `json:"new_airport"`
	TakenAt               *time.Time      `json:"taken_at"`
	Camera                *string         `json:"camera"`
	Lens                  *string         `json:"lens"`
	FocalLength           *float64        `json:"focal_length"`
	Aperture              *float64        `json:"aperture"`
	ShutterSpeed          *string         `json:"shutter_speed"`
	ISO                   *int            `json:"iso"`
	Description           *string         `json:"description"`
}

func (h *Handler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updatePhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperr.Validation("invalid request body"))
		return
	}

	in := lifecycle.UpdatePhotoInput{
		AirportCode: req.AirportCode,
	}
	if req.NewAirport != nil {
		in.NewAirport = req.NewAirport.toLifecycle()
	}
	if req.RegistrationHistoryID != nil || req.Registration != nil || req.AircraftTypeID != nil {
		reg := lifecycle.RegistrationInput{
			RegistrationHistoryID: req.RegistrationHistoryID,
			AircraftTypeID:        req.AircraftTypeID,
		}
		if req.Registration != nil {
			reg.Registration = *req.Registration
		}
		if req.AirlineCode != nil {
			reg.AirlineCode = *req.AirlineCode
		}
		if req.Manufactured != nil {
			t, err := time.Parse("2006-01-02", *req.Manufactured)
			if err != nil {
				h.writeError(w, r, apperr.Validation("manufactured must be YYYY-MM-DD"))
				return
			}
			reg.Manufactured = &t
		}
		in.Registration = &reg
	}
	in.Metadata = &lifecycle.PhotoMetadata{
		TakenAt:      req.TakenAt,
		Camera:       req.Camera,
		Lens:         req.Lens,
		FocalLength:  req.FocalLength,
		Aperture:     req.Aperture,
		ShutterSpeed: req.ShutterSpeed,
		ISO:          req.ISO,
	}
	if req.Description != nil {
		in.Metadata.Description = *req.Description
	}

	photo, err := h.life.UpdatePhoto(r.Context(), userID, id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := h.photoResponse(photo)
	resp["message"] = "Photo updated successfully"
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.life.DeletePhoto(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"message": "Photo deleted successfully"})
}

// Form and query parsing helpers.

func idParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid id")
	}
	return uint(id), nil
}

func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func registrationFromForm(r *http.Request) (lifecycle.RegistrationInput, error) {
	var in lifecycle.RegistrationInput
	in.Registration = r.FormValue("registration")
	in.AirlineCode = r.FormValue("airline_code")
	if v := r.FormValue("registration_history_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return in, apperr.Validation("invalid registration_history_id")
		}
		ref := uint(id)
		in.RegistrationHistoryID = &ref
	}
	if v := r.FormValue("aircraft_type_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return in, apperr.Validation("invalid aircraft_type_id")
		}
		ref := uint(id)
		in.AircraftTypeID = &ref
	}
	if v := r.FormValue("manufactured"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return in, apperr.Validation("manufactured must be YYYY-MM-DD")
		}
		in.Manufactured = &t
	}
	return in, nil
}

func metadataFromForm(r *http.Request) (lifecycle.PhotoMetadata, error) {
	var md lifecycle.PhotoMetadata
	md.Description = r.FormValue("description")
	if v := r.FormValue("taken_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return md, apperr.Validation("taken_at must be RFC 3339")
		}
		md.TakenAt = &t
	}
	if v := r.FormValue("camera"); v != "" {
		md.Camera = &v
	}
	if v := r.FormValue("lens"); v != "" {
		md.Lens = &v
	}
	if v := r.FormValue("focal_length"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return md, apperr.Validation("invalid focal_length")
		}
		md.FocalLength = &f
	}
	if v := r.FormValue("aperture"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return md, apperr.Validation("invalid aperture")
		}
		md.Aperture = &f
	}
	if v := r.FormValue("shutter_speed"); v != "" {
		md.ShutterSpeed = &v
	}
	if v := r.FormValue("iso"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return md, apperr.Validation("invalid iso")
		}
		md.ISO = &n
	}
	return md, nil
}

func newAirportFromForm(r *http.Request) *lifecycle.NewAirport {
	code := r.FormValue("new_airport_code")
	name := r.FormValue("new_airport_name")
	latStr := r.FormValue("new_airport_latitude")
	lonStr := r.FormValue("new_airport_longitude")
	if code == "" && name == "" && latStr == "" && lonStr == "" {
		return nil
	}
	na := &lifecycle.NewAirport{Code: code, Name: name}
	if lat, err := strconv.ParseFloat(latStr, 64); err == nil {
		na.Latitude = &lat
	}
	if lon, err := strconv.ParseFloat(lonStr, 64); err == nil {
		na.Longitude = &lon
	}
	return na
}

// Package lifecycle orchestrates the rows behind a photo: the
// RegistrationHistory naming the aircraft and the SpecificAircraft airframe
// it points at. Photos reference a RegistrationHistory, registrations
// reference an airframe, and both are reference-counted: when the last photo
// under a registration goes away the registration row is deleted, and when
// the last registration of an airframe goes away the airframe row is deleted.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/internal/store"
	"github.com/mwhitford/skylog/models"
)

// MediaStore is the slice of object storage the manager needs: best-effort
// deletion of a photo's stored renditions.
type MediaStore interface {
	Delete(ctx context.Context, key string) error
}

type Manager struct {
	store store.Store
	media MediaStore
	log   zerolog.Logger
}

func NewManager(s store.Store, media MediaStore, log zerolog.Logger) *Manager {
	return &Manager{store: s, media: media, log: log}
}

// RegistrationInput describes how a photo names its aircraft. Exactly one
// path applies: an explicit RegistrationHistoryID is used as-is; an
// AircraftTypeID declares a brand-new airframe/registration pairing; a bare
// Registration looks up the latest row with that mark.
type RegistrationInput struct {
	RegistrationHistoryID *uint
	Registration          string
	AircraftTypeID        *uint
	Manufactured          *time.Time
	AirlineCode           string
}

func (in RegistrationInput) empty() bool {
	return in.RegistrationHistoryID == nil && in.AircraftTypeID == nil && in.Registration == ""
}

// NewAirport carries the details required when a photo's airport code is
// "other".
type NewAirport struct {
	Code      string
	Name      string
	Latitude  *float64
	Longitude *float64
}

type PhotoMetadata struct {
	TakenAt      *time.Time
	Camera       *string
	Lens         *string
	FocalLength  *float64
	Aperture     *float64
	ShutterSpeed *string
	ISO          *int
	Description  string
}

type CreatePhotoInput struct {
	Registration RegistrationInput
	AirportCode  string
	NewAirport   *NewAirport
	MediaKey     string
	ThumbKey     string
	Metadata     PhotoMetadata
}

// UpdatePhotoInput applies a partial update. Nil fields are left alone.
type UpdatePhotoInput struct {
	Registration *RegistrationInput
	AirportCode  *string
	NewAirport   *NewAirport
	Metadata     *PhotoMetadata
}

// ResolveRegistration turns a RegistrationInput into a RegistrationHistory
// id. With an explicit id it skips resolution entirely. With an
// AircraftTypeID it creates a fresh SpecificAircraft and RegistrationHistory
// pair inside one transaction, never merging with an existing registration of
// the same mark. Otherwise it looks up the most recent row matching the mark,
// case-insensitively, and fails with RegistrationNotFound when there is none.
func (m *Manager) ResolveRegistration(ctx context.Context, in RegistrationInput) (uint, error) {
	if in.RegistrationHistoryID != nil {
		return *in.RegistrationHistoryID, nil
	}
	if in.Registration == "" {
		return 0, apperr.Validation("registration is required")
	}
	if in.AircraftTypeID == nil {
		rh, err := m.store.LatestRegistrationHistoryByMark(ctx, in.Registration)
		if err != nil {
			return 0, err
		}
		return rh.ID, nil
	}

	var rhID uint
	err := m.store.Transact(ctx, func(s store.Store) error {
		sa := &models.SpecificAircraft{
			AircraftTypeID: *in.AircraftTypeID,
			Manufactured:   in.Manufactured,
		}
		if err := s.CreateSpecificAircraft(ctx, sa); err != nil {
			return err
		}
		rh := &models.RegistrationHistory{
			Registration:       strings.ToUpper(in.Registration),
			SpecificAircraftID: sa.ID,
			AirlineCode:        in.AirlineCode,
			IsCurrent:          true,
		}
		if err := s.CreateRegistrationHistory(ctx, rh); err != nil {
			return err
		}
		rhID = rh.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rhID, nil
}

// resolveAirport substitutes a real airport code for the "other" sentinel,
// creating the airport row from the supplied details first.
func (m *Manager) resolveAirport(ctx context.Context, code string, na *NewAirport) (string, error) {
	if !strings.EqualFold(code, "other") {
		return strings.ToUpper(code), nil
	}
	if na == nil || na.Code == "" || na.Name == "" || na.Latitude == nil || na.Longitude == nil {
		return "", apperr.Validation("new airport requires code, name, latitude and longitude")
	}
	airport := &models.Airport{
		Code:      strings.ToUpper(na.Code),
		Name:      na.Name,
		Latitude:  *na.Latitude,
		Longitude: *na.Longitude,
	}
	if err := m.store.CreateAirport(ctx, airport); err != nil {
		return "", err
	}
	return airport.Code, nil
}

// CreatePhoto logs a new sighting. No cleanup is needed on this path.
func (m *Manager) CreatePhoto(ctx context.Context, userID uint, in CreatePhotoInput) (*models.Photo, error) {
	if in.AirportCode == "" {
		return nil, apperr.Validation("airport code is required")
	}
	airport, err := m.resolveAirport(ctx, in.AirportCode, in.NewAirport)
	if err != nil {
		return nil, err
	}

	var rhRef *uint
	if !in.Registration.empty() {
		rhID, err := m.ResolveRegistration(ctx, in.Registration)
		if err != nil {
			return nil, err
		}
		rhRef = &rhID
	}

	photo := &models.Photo{
		UUID:                  uuid.New().String(),
		UserID:                userID,
		RegistrationHistoryID: rhRef,
		AirportCode:           airport,
		MediaKey:              in.MediaKey,
		ThumbKey:              in.ThumbKey,
		TakenAt:               in.Metadata.TakenAt,
		Camera:                in.Metadata.Camera,
		Lens:                  in.Metadata.Lens,
		FocalLength:           in.Metadata.FocalLength,
		Aperture:              in.Metadata.Aperture,
		ShutterSpeed:          in.Metadata.ShutterSpeed,
		ISO:                   in.Metadata.ISO,
		Description:           in.Metadata.Description,
	}
	if err := m.store.CreatePhoto(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

// UpdatePhoto edits a sighting the user owns. When the registration
// reference moves to a different row, the old row is garbage collected.
func (m *Manager) UpdatePhoto(ctx context.Context, userID, photoID uint, in UpdatePhotoInput) (*models.Photo, error) {
	photo, err := m.store.GetPhotoForUser(ctx, photoID, userID)
	if err != nil {
		return nil, err
	}
	oldRef := photo.RegistrationHistoryID

	if in.AirportCode != nil {
		airport, err := m.resolveAirport(ctx, *in.AirportCode, in.NewAirport)
		if err != nil {
			return nil, err
		}
		photo.AirportCode = airport
	}
	if in.Metadata != nil {
		applyMetadata(photo, *in.Metadata)
	}

	changed := false
	if in.Registration != nil && !in.Registration.empty() {
		newRef, err := m.ResolveRegistration(ctx, *in.Registration)
		if err != nil {
			return nil, err
		}
		if oldRef == nil || *oldRef != newRef {
			photo.RegistrationHistoryID = &newRef
			changed = true
		}
	}

	if err := m.store.UpdatePhoto(ctx, photo); err != nil {
		return nil, err
	}
	if changed && oldRef != nil {
		if err := m.Cleanup(ctx, *oldRef); err != nil {
			return nil, err
		}
	}
	return photo, nil
}

// DeletePhoto removes a sighting the user owns. The stored renditions are
// deleted best-effort: losing the object matters less than losing the row,
// so a media failure is logged and the delete proceeds.
func (m *Manager) DeletePhoto(ctx context.Context, userID, photoID uint) error {
	photo, err := m.store.GetPhotoForUser(ctx, photoID, userID)
	if err != nil {
		return err
	}
	if err := m.store.DeletePhoto(ctx, photo.ID); err != nil {
		return err
	}

	for _, key := range []string{photo.MediaKey, photo.ThumbKey} {
		if key == "" {
			continue
		}
		if err := m.media.Delete(ctx, key); err != nil {
			m.log.Warn().Err(err).Str("key", key).Uint("photo_id", photo.ID).
				Msg("failed to delete media object")
		}
	}

	if photo.RegistrationHistoryID != nil {
		return m.Cleanup(ctx, *photo.RegistrationHistoryID)
	}
	return nil
}

// Cleanup garbage-collects a RegistrationHistory that may have lost its last
// referencing photo, and then the SpecificAircraft that may have lost its
// last registration. The count checks and deletes run in one transaction so
// concurrent edits of the same registration cannot double-delete or strand a
// row. Re-running against an already-collected id is a no-op.
func (m *Manager) Cleanup(ctx context.Context, rhID uint) error {
	return m.store.Transact(ctx, func(s store.Store) error {
		n, err := s.CountPhotosByRegistration(ctx, rhID)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		rh, err := s.GetRegistrationHistory(ctx, rhID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return nil
			}
			return err
		}
		if err := s.DeleteRegistrationHistory(ctx, rhID); err != nil {
			return err
		}
		remaining, err := s.CountRegistrationHistoriesByAircraft(ctx, rh.SpecificAircraftID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return s.DeleteSpecificAircraft(ctx, rh.SpecificAircraftID)
		}
		return nil
	})
}

func applyMetadata(p *models.Photo, md PhotoMetadata) {
	if md.TakenAt != nil {
		p.TakenAt = md.TakenAt
	}
	if md.Camera != nil {
		p.Camera = md.Camera
	}
	if md.Lens != nil {
		p.Lens = md.Lens
	}
	if md.FocalLength != nil {
		p.FocalLength = md.FocalLength
	}
	if md.Aperture != nil {
		p.Aperture = md.Aperture
	}
	if md.ShutterSpeed != nil {
		p.ShutterSpeed = md.ShutterSpeed
	}
	if md.ISO != nil {
		p.ISO = md.ISO
	}
	if md.Description != "" {
		p.Description = md.Description
	}
}

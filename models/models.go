package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"-"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Username     string         `gorm:"size:64;not null;unique" json:"username"`
	Email        string         `gorm:"size:255;not null;unique" json:"email"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	Role         string         `gorm:"size:16;not null;default:user" json:"role"`
	Photos       []Photo        `json:"photos,omitempty"`
}

// Airport is a reference row keyed by its ICAO code. Admins seed the common
// ones; users may add an airport inline when logging a photo at a field we
// don't know yet.
type Airport struct {
	Code      string  `gorm:"primaryKey;size:4" json:"code"`
	Name      string  `gorm:"size:255;not null" json:"name"`
	Latitude  float64 `gorm:"type:numeric(10,6);not null" json:"latitude"`
	Longitude float64 `gorm:"type:numeric(10,6);not null" json:"longitude"`
}

// Airline is read-only reference data.
type Airline struct {
	Code string `gorm:"primaryKey;size:3" json:"code"`
	Name string `gorm:"size:255;not null" json:"name"`
}

// AircraftType is an airframe model (e.g. C172, B738). Created by admins and
// immutable once a SpecificAircraft references it.
type AircraftType struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	ICAOCode     string `gorm:"size:8;not null;uniqueIndex" json:"icao_code"`
	Manufacturer string `gorm:"size:128;not null" json:"manufacturer"`
	Family       string `gorm:"size:128" json:"family"`
	Variant      string `gorm:"size:128" json:"variant"`
}

// SpecificAircraft is one physical airframe. It has no lifecycle of its own:
// it is created together with the first RegistrationHistory naming it and
// removed when the last one goes.
type SpecificAircraft struct {
	ID             uint          `gorm:"primarykey" json:"id"`
	AircraftTypeID uint          `gorm:"not null;index" json:"aircraft_type_id"`
	AircraftType   *AircraftType `json:"aircraft_type,omitempty"`
	Manufactured   *time.Time    `json:"manufactured,omitempty"`
}

// RegistrationHistory binds a registration mark to an airframe and airline
// for some period. Registration is stored uppercased.
type RegistrationHistory struct {
	ID                 uint              `gorm:"primarykey" json:"id"`
	CreatedAt          time.Time         `json:"created_at"`
	Registration       string            `gorm:"size:16;not null;index" json:"registration"`
	SpecificAircraftID uint              `gorm:"not null;index" json:"specific_aircraft_id"`
	SpecificAircraft   *SpecificAircraft `json:"specific_aircraft,omitempty"`
	AirlineCode        string            `gorm:"size:3" json:"airline_code"`
	IsCurrent          bool              `gorm:"not null;default:true" json:"is_current"`
}

// Photo is a user's logged sighting.
type Photo struct {
	ID                    uint                 `gorm:"primarykey" json:"id"`
	UUID                  string               `gorm:"type:uuid;uniqueIndex" json:"uuid"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"-"`
	UserID                uint                 `gorm:"not null;index" json:"user_id"`
	User                  *User                `json:"-"`
	RegistrationHistoryID *uint                `gorm:"index" json:"registration_history_id,omitempty"`
	RegistrationHistory   *RegistrationHistory `json:"registration_history,omitempty"`
	AirportCode           string               `gorm:"size:4;not null;index" json:"airport_code"`
	MediaKey              string               `gorm:"size:255;not null" json:"media_key"`
	ThumbKey              string               `gorm:"size:255" json:"thumb_key"`
	TakenAt               *time.Time           `gorm:"index" json:"taken_at,omitempty"`
	Camera                *string              `json:"camera,omitempty"`
	Lens                  *string              `json:"lens,omitempty"`
	FocalLength           *float64             `json:"focal_length,omitempty"`
	Aperture              *float64             `json:"aperture,omitempty"`
	ShutterSpeed          *string              `json:"shutter_speed,omitempty"`
	ISO                   *int                 `json:"iso,omitempty"`
	Description           string               `json:"description,omitempty"`
}

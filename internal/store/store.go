// Package store provides data access for the skylog service.
package store

import (
	"context"

	"github.com/mwhitford/skylog/models"
)

// AircraftSearch filters the registration search. Registration is a
// case-insensitive substring match; TypeCodes and Manufacturers are
// set-membership filters. Page is 1-based.
type AircraftSearch struct {
	Registration  string
	TypeCodes     []string
	Manufacturers []string
	Page          int
	Limit         int
}

// NameCount is one row of a ranked aggregate.
type NameCount struct {
	Name  string `gorm:"column:name" json:"name"`
	Count int64  `gorm:"column:count" json:"count"`
}

// YearCount is one row of the per-year photo aggregate.
type YearCount struct {
	Year  int   `gorm:"column:year" json:"year"`
	Count int64 `gorm:"column:count" json:"count"`
}

// Store is the persistence contract. Both the gorm/Postgres implementation
// and the in-memory test store satisfy it. Implementations return apperr
// values: NotFoundOrForbidden for missing rows, Duplicate for unique-key
// conflicts, Store for anything else.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Reference data
	CreateAirport(ctx context.Context, a *models.Airport) error
	GetAirport(ctx context.Context, code string) (*models.Airport, error)
	ListAirports(ctx context.Context) ([]models.Airport, error)
	ListAirlines(ctx context.Context) ([]models.Airline, error)
	CreateAircraftType(ctx context.Context, t *models.AircraftType) error
	ListAircraftTypes(ctx context.Context) ([]models.AircraftType, error)

	// Photos
	CreatePhoto(ctx context.Context, p *models.Photo) error
	GetPhotoForUser(ctx context.Context, id, userID uint) (*models.Photo, error)
	ListPhotosByUser(ctx context.Context, userID uint, page, limit int) ([]models.Photo, int64, error)
	UpdatePhoto(ctx context.Context, p *models.Photo) error
	DeletePhoto(ctx context.Context, id uint) error
	CountPhotosByRegistration(ctx context.Context, rhID uint) (int64, error)

	// Airframes and registrations
	CreateSpecificAircraft(ctx context.Context, sa *models.SpecificAircraft) error
	DeleteSpecificAircraft(ctx context.Context, id uint) error
	CreateRegistrationHistory(ctx context.Context, rh *models.RegistrationHistory) error
	GetRegistrationHistory(ctx context.Context, id uint) (*models.RegistrationHistory, error)
	LatestRegistrationHistoryByMark(ctx context.Context, registration string) (*models.RegistrationHistory, error)
	DeleteRegistrationHistory(ctx context.Context, id uint) error
	CountRegistrationHistoriesByAircraft(ctx context.Context, saID uint) (int64, error)

	// Search
	SearchAircraft(ctx context.Context, q AircraftSearch) ([]models.RegistrationHistory, int64, error)
	SampleAircraft(ctx context.Context, limit int) ([]models.RegistrationHistory, error)

	// Dashboard aggregates, one per stored procedure.
	RecentAirportsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error)
	AirlineCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error)
	AirportCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error)
	AirplaneCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error)
	ManufacturerCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error)
	MostSeenAircraftByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error)
	PhotoCountsByUserByYear(ctx context.Context, userID uint, limit int) ([]YearCount, error)

	// Transact runs fn against a store bound to a single transaction,
	// committing on nil and rolling back on error.
	Transact(ctx context.Context, fn func(Store) error) error
}

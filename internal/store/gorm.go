package store

import (
	"context"
	"errors"
	"math/rand"
	"strings"

	"gorm.io/gorm"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/models"
)

// Gorm is the Postgres-backed Store. Open the underlying connection with
// TranslateError enabled so unique-key conflicts surface as
// gorm.ErrDuplicatedKey.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

var _ Store = (*Gorm)(nil)

// Migrate creates or updates the schema for all entities.
func (s *Gorm) Migrate() error {
	return s.db.AutoMigrate(
		models.User{},
		models.Airport{},
		models.Airline{},
		models.AircraftType{},
		models.SpecificAircraft{},
		models.RegistrationHistory{},
		models.Photo{},
	)
}

func (s *Gorm) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

func create(ctx context.Context, db *gorm.DB, what string, v any) error {
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Duplicate("%s already exists", what)
		}
		return apperr.Store("creating "+what, err)
	}
	return nil
}

// Users

func (s *Gorm) CreateUser(ctx context.Context, u *models.User) error {
	return create(ctx, s.db, "user", u)
}

func (s *Gorm) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundOrForbidden("user")
		}
		return nil, apperr.Store("loading user", err)
	}
	return &u, nil
}

// Reference data

func (s *Gorm) CreateAirport(ctx context.Context, a *models.Airport) error {
	return create(ctx, s.db, "airport", a)
}

func (s *Gorm) GetAirport(ctx context.Context, code string) (*models.Airport, error) {
	var a models.Airport
	err := s.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundOrForbidden("airport")
		}
		return nil, apperr.Store("loading airport", err)
	}
	return &a, nil
}

func (s *Gorm) ListAirports(ctx context.Context) ([]models.Airport, error) {
	var out []models.Airport
	if err := s.db.WithContext(ctx).Order("code").Find(&out).Error; err != nil {
		return nil, apperr.Store("listing airports", err)
	}
	return out, nil
}

func (s *Gorm) ListAirlines(ctx context.Context) ([]models.Airline, error) {
	var out []models.Airline
	if err := s.db.WithContext(ctx).Order("code").Find(&out).Error; err != nil {
		return nil, apperr.Store("listing airlines", err)
	}
	return out, nil
}

func (s *Gorm) CreateAircraftType(ctx context.Context, t *models.AircraftType) error {
	return create(ctx, s.db, "aircraft type", t)
}

func (s *Gorm) ListAircraftTypes(ctx context.Context) ([]models.AircraftType, error) {
	var out []models.AircraftType
	if err := s.db.WithContext(ctx).Order("icao_code").Find(&out).Error; err != nil {
		return nil, apperr.Store("listing aircraft types", err)
	}
	return out, nil
}

// Photos

func (s *Gorm) CreatePhoto(ctx context.Context, p *models.Photo) error {
	return create(ctx, s.db, "photo", p)
}

func (s *Gorm) GetPhotoForUser(ctx context.Context, id, userID uint) (*models.Photo, error) {
	var p models.Photo
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundOrForbidden("photo")
		}
		return nil, apperr.Store("loading photo", err)
	}
	return &p, nil
}

func (s *Gorm) ListPhotosByUser(ctx context.Context, userID uint, page, limit int) ([]models.Photo, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&models.Photo{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Store("counting photos", err)
	}
	var out []models.Photo
	err := q.Preload("RegistrationHistory.SpecificAircraft.AircraftType").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, apperr.Store("listing photos", err)
	}
	return out, total, nil
}

func (s *Gorm) UpdatePhoto(ctx context.Context, p *models.Photo) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return apperr.Store("updating photo", err)
	}
	return nil
}

func (s *Gorm) DeletePhoto(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Photo{}, id).Error; err != nil {
		return apperr.Store("deleting photo", err)
	}
	return nil
}

func (s *Gorm) CountPhotosByRegistration(ctx context.Context, rhID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Photo{}).
		Where("registration_history_id = ?", rhID).
		Count(&n).Error
	if err != nil {
		return 0, apperr.Store("counting photos by registration", err)
	}
	return n, nil
}

// Airframes and registrations

func (s *Gorm) CreateSpecificAircraft(ctx context.Context, sa *models.SpecificAircraft) error {
	return create(ctx, s.db, "specific aircraft", sa)
}

func (s *Gorm) DeleteSpecificAircraft(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.SpecificAircraft{}, id).Error; err != nil {
		return apperr.Store("deleting specific aircraft", err)
	}
	return nil
}

func (s *Gorm) CreateRegistrationHistory(ctx context.Context, rh *models.RegistrationHistory) error {
	return create(ctx, s.db, "registration history", rh)
}

func (s *Gorm) GetRegistrationHistory(ctx context.Context, id uint) (*models.RegistrationHistory, error) {
	var rh models.RegistrationHistory
	err := s.db.WithContext(ctx).First(&rh, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundOrForbidden("registration history")
		}
		return nil, apperr.Store("loading registration history", err)
	}
	return &rh, nil
}

func (s *Gorm) LatestRegistrationHistoryByMark(ctx context.Context, registration string) (*models.RegistrationHistory, error) {
	var rh models.RegistrationHistory
	err := s.db.WithContext(ctx).
		Where("registration = ?", strings.ToUpper(registration)).
		Order("id DESC").
		First(&rh).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.RegistrationNotFound(registration)
		}
		return nil, apperr.Store("looking up registration", err)
	}
	return &rh, nil
}

func (s *Gorm) DeleteRegistrationHistory(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.RegistrationHistory{}, id).Error; err != nil {
		return apperr.Store("deleting registration history", err)
	}
	return nil
}

func (s *Gorm) CountRegistrationHistoriesByAircraft(ctx context.Context, saID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.RegistrationHistory{}).
		Where("specific_aircraft_id = ?", saID).
		Count(&n).Error
	if err != nil {
		return 0, apperr.Store("counting registration histories", err)
	}
	return n, nil
}

// Search

func (s *Gorm) searchQuery(ctx context.Context, q AircraftSearch) *gorm.DB {
	db := s.db.WithContext(ctx).Model(&models.RegistrationHistory{}).
		Joins("JOIN specific_aircrafts ON specific_aircrafts.id = registration_histories.specific_aircraft_id").
		Joins("JOIN aircraft_types ON aircraft_types.id = specific_aircrafts.aircraft_type_id")
	if q.Registration != "" {
		db = db.Where("registration_histories.registration LIKE ?", "%"+strings.ToUpper(q.Registration)+"%")
	}
	if len(q.TypeCodes) > 0 {
		db = db.Where("aircraft_types.icao_code IN ?", q.TypeCodes)
	}
	if len(q.Manufacturers) > 0 {
		db = db.Where("aircraft_types.manufacturer IN ?", q.Manufacturers)
	}
	return db
}

func (s *Gorm) SearchAircraft(ctx context.Context, q AircraftSearch) ([]models.RegistrationHistory, int64, error) {
	var total int64
	if err := s.searchQuery(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, apperr.Store("counting aircraft", err)
	}
	var out []models.RegistrationHistory
	err := s.searchQuery(ctx, q).
		Preload("SpecificAircraft.AircraftType").
		Order("registration_histories.registration").
		Offset((q.Page - 1) * q.Limit).Limit(q.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, apperr.Store("searching aircraft", err)
	}
	return out, total, nil
}

// SampleAircraft picks a uniformly random starting offset and returns one
// page from it. Approximately uniform, not a true random sample.
func (s *Gorm) SampleAircraft(ctx context.Context, limit int) ([]models.RegistrationHistory, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.RegistrationHistory{}).Count(&total).Error; err != nil {
		return nil, apperr.Store("counting aircraft", err)
	}
	offset := 0
	if total > int64(limit) {
		offset = rand.Intn(int(total) - limit + 1)
	}
	var out []models.RegistrationHistory
	err := s.db.WithContext(ctx).
		Preload("SpecificAircraft.AircraftType").
		Order("id").
		Offset(offset).Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, apperr.Store("sampling aircraft", err)
	}
	return out, nil
}

// Aggregates. Each wraps a Postgres function of the same name.

func (s *Gorm) nameCounts(ctx context.Context, fn string, userID uint, limit int) ([]NameCount, error) {
	var out []NameCount
	err := s.db.WithContext(ctx).
		Raw("SELECT * FROM "+fn+"(?, ?)", userID, limit).
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Store("running "+fn, err)
	}
	return out, nil
}

func (s *Gorm) RecentAirportsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	return s.nameCounts(ctx, "recent_airports_by_user", userID, limit)
}

func (s *Gorm) AirlineCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	return s.nameCounts(ctx, "airline_counts_by_user", userID, limit)
}

func (s *Gorm) AirportCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	return s.nameCounts(ctx, "airport_counts_by_user", userID, limit)
}

func (s *Gorm) AirplaneCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	return s.nameCounts(ctx, "airplane_counts_by_user", userID, limit)
}

func (s *Gorm) ManufacturerCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	return s.nameCounts(ctx, "manufacturer_counts_by_user", userID, limit)
}

func (s *Gorm) MostSeenAircraftByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	return s.nameCounts(ctx, "most_seen_aircraft_by_user", userID, limit)
}

func (s *Gorm) PhotoCountsByUserByYear(ctx context.Context, userID uint, limit int) ([]YearCount, error) {
	var out []YearCount
	err := s.db.WithContext(ctx).
		Raw("SELECT * FROM photo_counts_by_user_by_year(?, ?)", userID, limit).
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Store("running photo_counts_by_user_by_year", err)
	}
	return out, nil
}

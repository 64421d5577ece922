package store

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/models"
)

// Mem is an in-memory Store used by tests.
type Mem struct {
	mu sync.RWMutex

	users         map[uint]*models.User
	airports      map[string]*models.Airport
	airlines      map[string]*models.Airline
	aircraftTypes map[uint]*models.AircraftType
	aircraft      map[uint]*models.SpecificAircraft
	registrations map[uint]*models.RegistrationHistory
	photos        map[uint]*models.Photo

	nextUser         uint
	nextType         uint
	nextAircraft     uint
	nextRegistration uint
	nextPhoto        uint

	// ErrorOnNextCall is returned, once, by the next store call. Lets tests
	// exercise StoreFailure paths.
	ErrorOnNextCall error
}

func NewMem() *Mem {
	return &Mem{
		users:         make(map[uint]*models.User),
		airports:      make(map[string]*models.Airport),
		airlines:      make(map[string]*models.Airline),
		aircraftTypes: make(map[uint]*models.AircraftType),
		aircraft:      make(map[uint]*models.SpecificAircraft),
		registrations: make(map[uint]*models.RegistrationHistory),
		photos:        make(map[uint]*models.Photo),
	}
}

var _ Store = (*Mem)(nil)

func (m *Mem) checkError() error {
	if m.ErrorOnNextCall != nil {
		err := m.ErrorOnNextCall
		m.ErrorOnNextCall = nil
		return err
	}
	return nil
}

// Transact runs fn against the same store. The memory store has no real
// transactions; tests that need rollback semantics use the Postgres store.
func (m *Mem) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

// Users

func (m *Mem) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return apperr.Duplicate("user already exists")
		}
	}
	m.nextUser++
	u.ID = m.nextUser
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Mem) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFoundOrForbidden("user")
}

// Reference data

func (m *Mem) CreateAirport(ctx context.Context, a *models.Airport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	if _, ok := m.airports[a.Code]; ok {
		return apperr.Duplicate("airport already exists")
	}
	cp := *a
	m.airports[a.Code] = &cp
	return nil
}

func (m *Mem) GetAirport(ctx context.Context, code string) (*models.Airport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}
	a, ok := m.airports[strings.ToUpper(code)]
	if !ok {
		return nil, apperr.NotFoundOrForbidden("airport")
	}
	cp := *a
	return &cp, nil
}

func (m *Mem) ListAirports(ctx context.Context) ([]models.Airport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Airport, 0, len(m.airports))
	for _, a := range m.airports {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Mem) ListAirlines(ctx context.Context) ([]models.Airline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Airline, 0, len(m.airlines))
	for _, a := range m.airlines {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// AddAirline seeds read-only airline reference data for tests.
func (m *Mem) AddAirline(a models.Airline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.airlines[a.Code] = &a
}

func (m *Mem) CreateAircraftType(ctx context.Context, t *models.AircraftType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	for _, existing := range m.aircraftTypes {
		if existing.ICAOCode == t.ICAOCode {
			return apperr.Duplicate("aircraft type already exists")
		}
	}
	m.nextType++
	t.ID = m.nextType
	cp := *t
	m.aircraftTypes[t.ID] = &cp
	return nil
}

func (m *Mem) ListAircraftTypes(ctx context.Context) ([]models.AircraftType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AircraftType, 0, len(m.aircraftTypes))
	for _, t := range m.aircraftTypes {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ICAOCode < out[j].ICAOCode })
	return out, nil
}

// Photos

func (m *Mem) CreatePhoto(ctx context.Context, p *models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	m.nextPhoto++
	p.ID = m.nextPhoto
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	m.photos[p.ID] = &cp
	return nil
}

func (m *Mem) GetPhotoForUser(ctx context.Context, id, userID uint) (*models.Photo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}
	p, ok := m.photos[id]
	if !ok || p.UserID != userID {
		return nil, apperr.NotFoundOrForbidden("photo")
	}
	cp := *p
	return &cp, nil
}

func (m *Mem) ListPhotosByUser(ctx context.Context, userID uint, page, limit int) ([]models.Photo, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []models.Photo
	for _, p := range m.photos {
		if p.UserID == userID {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *Mem) UpdatePhoto(ctx context.Context, p *models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	if _, ok := m.photos[p.ID]; !ok {
		return apperr.NotFoundOrForbidden("photo")
	}
	cp := *p
	m.photos[p.ID] = &cp
	return nil
}

func (m *Mem) DeletePhoto(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	delete(m.photos, id)
	return nil
}

func (m *Mem) CountPhotosByRegistration(ctx context.Context, rhID uint) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range m.photos {
		if p.RegistrationHistoryID != nil && *p.RegistrationHistoryID == rhID {
			n++
		}
	}
	return n, nil
}

// Airframes and registrations

func (m *Mem) CreateSpecificAircraft(ctx context.Context, sa *models.SpecificAircraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	m.nextAircraft++
	sa.ID = m.nextAircraft
	cp := *sa
	m.aircraft[sa.ID] = &cp
	return nil
}

func (m *Mem) DeleteSpecificAircraft(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	delete(m.aircraft, id)
	return nil
}

func (m *Mem) CreateRegistrationHistory(ctx context.Context, rh *models.RegistrationHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	m.nextRegistration++
	rh.ID = m.nextRegistration
	if rh.CreatedAt.IsZero() {
		rh.CreatedAt = time.Now()
	}
	cp := *rh
	m.registrations[rh.ID] = &cp
	return nil
}

func (m *Mem) GetRegistrationHistory(ctx context.Context, id uint) (*models.RegistrationHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}
	rh, ok := m.registrations[id]
	if !ok {
		return nil, apperr.NotFoundOrForbidden("registration history")
	}
	cp := *rh
	return &cp, nil
}

func (m *Mem) LatestRegistrationHistoryByMark(ctx context.Context, registration string) (*models.RegistrationHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}
	mark := strings.ToUpper(registration)
	var latest *models.RegistrationHistory
	for _, rh := range m.registrations {
		if rh.Registration != mark {
			continue
		}
		if latest == nil || rh.ID > latest.ID {
			latest = rh
		}
	}
	if latest == nil {
		return nil, apperr.RegistrationNotFound(registration)
	}
	cp := *latest
	return &cp, nil
}

func (m *Mem) DeleteRegistrationHistory(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	delete(m.registrations, id)
	return nil
}

func (m *Mem) CountRegistrationHistoriesByAircraft(ctx context.Context, saID uint) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(); err != nil {
		return 0, err
	}
	var n int64
	for _, rh := range m.registrations {
		if rh.SpecificAircraftID == saID {
			n++
		}
	}
	return n, nil
}

// Counts used by tests to assert on garbage collection.

func (m *Mem) NumRegistrationHistories() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.registrations)
}

func (m *Mem) NumSpecificAircraft() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.aircraft)
}

func (m *Mem) NumPhotos() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.photos)
}

// Search

func (m *Mem) matches(rh *models.RegistrationHistory, q AircraftSearch) bool {
	if q.Registration != "" && !strings.Contains(rh.Registration, strings.ToUpper(q.Registration)) {
		return false
	}
	sa := m.aircraft[rh.SpecificAircraftID]
	if sa == nil {
		return len(q.TypeCodes) == 0 && len(q.Manufacturers) == 0
	}
	t := m.aircraftTypes[sa.AircraftTypeID]
	if len(q.TypeCodes) > 0 {
		if t == nil || !contains(q.TypeCodes, t.ICAOCode) {
			return false
		}
	}
	if len(q.Manufacturers) > 0 {
		if t == nil || !contains(q.Manufacturers, t.Manufacturer) {
			return false
		}
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (m *Mem) SearchAircraft(ctx context.Context, q AircraftSearch) ([]models.RegistrationHistory, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(); err != nil {
		return nil, 0, err
	}
	var all []models.RegistrationHistory
	for _, rh := range m.registrations {
		if m.matches(rh, q) {
			all = append(all, *rh)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Registration < all[j].Registration })
	total := int64(len(all))
	start := (q.Page - 1) * q.Limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *Mem) SampleAircraft(ctx context.Context, limit int) ([]models.RegistrationHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}
	var all []models.RegistrationHistory
	for _, rh := range m.registrations {
		all = append(all, *rh)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	offset := 0
	if len(all) > limit {
		offset = rand.Intn(len(all) - limit + 1)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Aggregates, computed from the in-memory rows. The Postgres store delegates
// these to stored procedures; here they serve handler tests.

func (m *Mem) userPhotos(userID uint) []*models.Photo {
	var out []*models.Photo
	for _, p := range m.photos {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

func rankCounts(counts map[string]int64, limit int) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Mem) countBy(userID uint, limit int, key func(*models.Photo) (string, bool)) []NameCount {
	counts := make(map[string]int64)
	for _, p := range m.userPhotos(userID) {
		if k, ok := key(p); ok {
			counts[k]++
		}
	}
	return rankCounts(counts, limit)
}

func (m *Mem) photoType(p *models.Photo) *models.AircraftType {
	if p.RegistrationHistoryID == nil {
		return nil
	}
	rh := m.registrations[*p.RegistrationHistoryID]
	if rh == nil {
		return nil
	}
	sa := m.aircraft[rh.SpecificAircraftID]
	if sa == nil {
		return nil
	}
	return m.aircraftTypes[sa.AircraftTypeID]
}

func (m *Mem) RecentAirportsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type seen struct {
		lastID uint
		count  int64
	}
	byAirport := make(map[string]*seen)
	for _, p := range m.userPhotos(userID) {
		s := byAirport[p.AirportCode]
		if s == nil {
			s = &seen{}
			byAirport[p.AirportCode] = s
		}
		s.count++
		if p.ID > s.lastID {
			s.lastID = p.ID
		}
	}
	type entry struct {
		NameCount
		lastID uint
	}
	var entries []entry
	for code, s := range byAirport {
		entries = append(entries, entry{NameCount{Name: code, Count: s.count}, s.lastID})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].lastID > entries[j].lastID })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]NameCount, len(entries))
	for i, e := range entries {
		out[i] = e.NameCount
	}
	return out, nil
}

func (m *Mem) AirlineCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countBy(userID, limit, func(p *models.Photo) (string, bool) {
		if p.RegistrationHistoryID == nil {
			return "", false
		}
		rh := m.registrations[*p.RegistrationHistoryID]
		if rh == nil || rh.AirlineCode == "" {
			return "", false
		}
		return rh.AirlineCode, true
	}), nil
}

func (m *Mem) AirportCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countBy(userID, limit, func(p *models.Photo) (string, bool) {
		return p.AirportCode, p.AirportCode != ""
	}), nil
}

func (m *Mem) AirplaneCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countBy(userID, limit, func(p *models.Photo) (string, bool) {
		t := m.photoType(p)
		if t == nil {
			return "", false
		}
		return t.ICAOCode, true
	}), nil
}

func (m *Mem) ManufacturerCountsByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countBy(userID, limit, func(p *models.Photo) (string, bool) {
		t := m.photoType(p)
		if t == nil {
			return "", false
		}
		return t.Manufacturer, true
	}), nil
}

func (m *Mem) MostSeenAircraftByUser(ctx context.Context, userID uint, limit int) ([]NameCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countBy(userID, limit, func(p *models.Photo) (string, bool) {
		if p.RegistrationHistoryID == nil {
			return "", false
		}
		rh := m.registrations[*p.RegistrationHistoryID]
		if rh == nil {
			return "", false
		}
		return rh.Registration, true
	}), nil
}

func (m *Mem) PhotoCountsByUserByYear(ctx context.Context, userID uint, limit int) ([]YearCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[int]int64)
	for _, p := range m.userPhotos(userID) {
		when := p.CreatedAt
		if p.TakenAt != nil {
			when = *p.TakenAt
		}
		counts[when.Year()]++
	}
	out := make([]YearCount, 0, len(counts))
	for year, n := range counts {
		out = append(out, YearCount{Year: year, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

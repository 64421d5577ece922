package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/internal/store"
	"github.com/mwhitford/skylog/models"
)

func seedFleet(t *testing.T, st *store.Mem) {
	t.Helper()
	ctx := context.Background()

	cessna := &models.AircraftType{ICAOCode: "C172", Manufacturer: "Cessna"}
	boeing := &models.AircraftType{ICAOCode: "B738", Manufacturer: "Boeing"}
	require.NoError(t, st.CreateAircraftType(ctx, cessna))
	require.NoError(t, st.CreateAircraftType(ctx, boeing))

	for i, spec := range []struct {
		typeID uint
		mark   string
	}{
		{cessna.ID, "N12345"},
		{cessna.ID, "N67890"},
		{boeing.ID, "G-ABCD"},
		{boeing.ID, "G-EFGH"},
		{boeing.ID, "D-AIMA"},
	} {
		sa := &models.SpecificAircraft{AircraftTypeID: spec.typeID}
		require.NoError(t, st.CreateSpecificAircraft(ctx, sa))
		rh := &models.RegistrationHistory{
			Registration:       spec.mark,
			SpecificAircraftID: sa.ID,
			IsCurrent:          true,
		}
		require.NoError(t, st.CreateRegistrationHistory(ctx, rh), "row %d", i)
	}
}

func TestSearchAircraftByRegistration(t *testing.T) {
	st := store.NewMem()
	seedFleet(t, st)

	results, total, err := st.SearchAircraft(context.Background(), store.AircraftSearch{
		Registration: "n1", Page: 1, Limit: 10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, "N12345", results[0].Registration)
}

func TestSearchAircraftByTypeAndManufacturer(t *testing.T) {
	st := store.NewMem()
	seedFleet(t, st)
	ctx := context.Background()

	_, total, err := st.SearchAircraft(ctx, store.AircraftSearch{
		TypeCodes: []string{"B738"}, Page: 1, Limit: 10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, total, err = st.SearchAircraft(ctx, store.AircraftSearch{
		Manufacturers: []string{"Cessna"}, Page: 1, Limit: 10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = st.SearchAircraft(ctx, store.AircraftSearch{
		Manufacturers: []string{"Airbus"}, Page: 1, Limit: 10,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSearchAircraftPagination(t *testing.T) {
	st := store.NewMem()
	seedFleet(t, st)

	page1, total, err := st.SearchAircraft(context.Background(), store.AircraftSearch{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page1, 2)

	page3, _, err := st.SearchAircraft(context.Background(), store.AircraftSearch{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestSampleAircraftBounds(t *testing.T) {
	st := store.NewMem()
	seedFleet(t, st)
	ctx := context.Background()

	sample, err := st.SampleAircraft(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, sample, 3, "limit below total returns a full page")

	all, err := st.SampleAircraft(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 5, "limit above total returns everything")
}

func TestAggregates(t *testing.T) {
	st := store.NewMem()
	seedFleet(t, st)
	ctx := context.Background()

	rhCessna, err := st.LatestRegistrationHistoryByMark(ctx, "N12345")
	require.NoError(t, err)
	rhBoeing, err := st.LatestRegistrationHistoryByMark(ctx, "G-ABCD")
	require.NoError(t, err)

	y2024 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	y2025 := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	photos := []models.Photo{
		{UserID: 1, AirportCode: "KSFO", RegistrationHistoryID: &rhCessna.ID, TakenAt: &y2024},
		{UserID: 1, AirportCode: "KSFO", RegistrationHistoryID: &rhCessna.ID, TakenAt: &y2025},
		{UserID: 1, AirportCode: "KLAX", RegistrationHistoryID: &rhBoeing.ID, TakenAt: &y2025},
		{UserID: 2, AirportCode: "EGLL", RegistrationHistoryID: &rhBoeing.ID, TakenAt: &y2025},
	}
	for i := range photos {
		require.NoError(t, st.CreatePhoto(ctx, &photos[i]))
	}

	airports, err := st.AirportCountsByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, airports, 2, "only user 1's photos count")
	assert.Equal(t, store.NameCount{Name: "KSFO", Count: 2}, airports[0])
	assert.Equal(t, store.NameCount{Name: "KLAX", Count: 1}, airports[1])

	manufacturers, err := st.ManufacturerCountsByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, manufacturers, 2)
	assert.Equal(t, store.NameCount{Name: "Cessna", Count: 2}, manufacturers[0])

	mostSeen, err := st.MostSeenAircraftByUser(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, mostSeen, 1)
	assert.Equal(t, store.NameCount{Name: "N12345", Count: 2}, mostSeen[0])

	years, err := st.PhotoCountsByUserByYear(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, store.YearCount{Year: 2025, Count: 2}, years[0])
	assert.Equal(t, store.YearCount{Year: 2024, Count: 1}, years[1])

	recent, err := st.RecentAirportsByUser(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "KLAX", recent[0].Name, "most recently visited first")
}

func TestErrorInjection(t *testing.T) {
	st := store.NewMem()
	st.ErrorOnNextCall = apperr.Store("boom", nil)

	_, err := st.GetUserByUsername(context.Background(), "nobody")
	assert.True(t, apperr.IsKind(err, apperr.KindStore))

	// The injected error is consumed.
	_, err = st.GetUserByUsername(context.Background(), "nobody")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

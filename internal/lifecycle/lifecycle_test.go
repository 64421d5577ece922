package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/internal/lifecycle"
	"github.com/mwhitford/skylog/internal/media"
	"github.com/mwhitford/skylog/internal/store"
	"github.com/mwhitford/skylog/models"
)

func newManager(t *testing.T) (*lifecycle.Manager, *store.Mem, *media.Mem) {
	t.Helper()
	st := store.NewMem()
	md := media.NewMem()
	return lifecycle.NewManager(st, md, zerolog.Nop()), st, md
}

func seedType(t *testing.T, st *store.Mem) uint {
	t.Helper()
	typ := &models.AircraftType{ICAOCode: "C172", Manufacturer: "Cessna", Family: "172"}
	require.NoError(t, st.CreateAircraftType(context.Background(), typ))
	return typ.ID
}

func newPairInput(typeID uint, registration string) lifecycle.RegistrationInput {
	return lifecycle.RegistrationInput{
		Registration:   registration,
		AircraftTypeID: &typeID,
		AirlineCode:    "UAL",
	}
}

func TestResolveRegistrationCreatesPair(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	rhID, err := mgr.ResolveRegistration(ctx, newPairInput(typeID, "n12345"))
	require.NoError(t, err)

	rh, err := st.GetRegistrationHistory(ctx, rhID)
	require.NoError(t, err)
	assert.Equal(t, "N12345", rh.Registration, "registration is stored uppercased")
	assert.True(t, rh.IsCurrent)
	assert.Equal(t, "UAL", rh.AirlineCode)
	assert.Equal(t, 1, st.NumRegistrationHistories())
	assert.Equal(t, 1, st.NumSpecificAircraft())
}

func TestResolveRegistrationNeverMerges(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	first, err := mgr.ResolveRegistration(ctx, newPairInput(typeID, "N12345"))
	require.NoError(t, err)

	// Declaring a new airframe with the same mark yields a fresh pair.
	second, err := mgr.ResolveRegistration(ctx, newPairInput(typeID, "N12345"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, st.NumRegistrationHistories())
	assert.Equal(t, 2, st.NumSpecificAircraft())
}

func TestResolveRegistrationLookup(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	created, err := mgr.ResolveRegistration(ctx, newPairInput(typeID, "N12345"))
	require.NoError(t, err)

	// Lookup by mark is case-insensitive and creates nothing.
	found, err := mgr.ResolveRegistration(ctx, lifecycle.RegistrationInput{Registration: "n12345"})
	require.NoError(t, err)
	assert.Equal(t, created, found)
	assert.Equal(t, 1, st.NumRegistrationHistories())

	_, err = mgr.ResolveRegistration(ctx, lifecycle.RegistrationInput{Registration: "G-ZZZZ"})
	assert.True(t, apperr.IsKind(err, apperr.KindRegistrationNotFound))
	assert.Equal(t, 1, st.NumRegistrationHistories())
	assert.Equal(t, 1, st.NumSpecificAircraft())
}

func TestResolveRegistrationExplicitRef(t *testing.T) {
	mgr, _, _ := newManager(t)

	ref := uint(42)
	got, err := mgr.ResolveRegistration(context.Background(), lifecycle.RegistrationInput{
		RegistrationHistoryID: &ref,
		Registration:          "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(42), got, "an explicit reference skips resolution")
}

func TestResolveRegistrationRequiresMark(t *testing.T) {
	mgr, _, _ := newManager(t)

	_, err := mgr.ResolveRegistration(context.Background(), lifecycle.RegistrationInput{
		AirlineCode: "UAL",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func createPhoto(t *testing.T, mgr *lifecycle.Manager, st *store.Mem, userID uint, reg lifecycle.RegistrationInput) *models.Photo {
	t.Helper()
	require.NoError(t, st.CreateAirport(context.Background(), &models.Airport{
		Code: "KSFO", Name: "San Francisco Intl", Latitude: 37.6189, Longitude: -122.375,
	}))
	photo, err := mgr.CreatePhoto(context.Background(), userID, lifecycle.CreatePhotoInput{
		Registration: reg,
		AirportCode:  "KSFO",
		MediaKey:     "photos/full.jpg",
		ThumbKey:     "photos/thumb.jpg",
	})
	require.NoError(t, err)
	return photo
}

func TestPhotoDeleteCollectsPair(t *testing.T) {
	mgr, st, md := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	photo := createPhoto(t, mgr, st, 1, newPairInput(typeID, "N12345"))
	require.Equal(t, 1, st.NumPhotos())

	require.NoError(t, mgr.DeletePhoto(ctx, 1, photo.ID))

	assert.Equal(t, 0, st.NumPhotos())
	assert.Equal(t, 0, st.NumRegistrationHistories(), "last photo gone, registration collected")
	assert.Equal(t, 0, st.NumSpecificAircraft(), "last registration gone, airframe collected")
	assert.ElementsMatch(t, []string{"photos/full.jpg", "photos/thumb.jpg"}, md.Deleted())
}

func TestPhotoDeleteKeepsSharedRegistration(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	first := createPhoto(t, mgr, st, 1, newPairInput(typeID, "N12345"))
	second, err := mgr.CreatePhoto(ctx, 1, lifecycle.CreatePhotoInput{
		Registration: lifecycle.RegistrationInput{Registration: "N12345"},
		AirportCode:  "KSFO",
		MediaKey:     "photos/second.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, *first.RegistrationHistoryID, *second.RegistrationHistoryID)

	require.NoError(t, mgr.DeletePhoto(ctx, 1, first.ID))

	assert.Equal(t, 1, st.NumRegistrationHistories(), "still referenced by the second photo")
	assert.Equal(t, 1, st.NumSpecificAircraft())
}

func TestUpdatePhotoRepointsAndCollectsOldRef(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	photo := createPhoto(t, mgr, st, 1, newPairInput(typeID, "N12345"))
	oldRef := *photo.RegistrationHistoryID

	otherID, err := mgr.ResolveRegistration(ctx, newPairInput(typeID, "G-ABCD"))
	require.NoError(t, err)
	other, err := st.GetRegistrationHistory(ctx, otherID)
	require.NoError(t, err)

	updated, err := mgr.UpdatePhoto(ctx, 1, photo.ID, lifecycle.UpdatePhotoInput{
		Registration: &lifecycle.RegistrationInput{Registration: "G-ABCD"},
	})
	require.NoError(t, err)
	assert.Equal(t, otherID, *updated.RegistrationHistoryID)

	// Old pair had one reference and is collected; the new one is untouched.
	_, err = st.GetRegistrationHistory(ctx, oldRef)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, 1, st.NumRegistrationHistories())
	assert.Equal(t, 1, st.NumSpecificAircraft())

	kept, err := st.GetRegistrationHistory(ctx, otherID)
	require.NoError(t, err)
	assert.Equal(t, other.Registration, kept.Registration)
}

func TestUpdatePhotoSameRefSkipsCleanup(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	photo := createPhoto(t, mgr, st, 1, newPairInput(typeID, "N12345"))

	updated, err := mgr.UpdatePhoto(ctx, 1, photo.ID, lifecycle.UpdatePhotoInput{
		Registration: &lifecycle.RegistrationInput{Registration: "n12345"},
	})
	require.NoError(t, err)
	assert.Equal(t, *photo.RegistrationHistoryID, *updated.RegistrationHistoryID)
	assert.Equal(t, 1, st.NumRegistrationHistories())
	assert.Equal(t, 1, st.NumSpecificAircraft())
}

func TestUpdatePhotoMetadataOnly(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	photo := createPhoto(t, mgr, st, 1, newPairInput(typeID, "N12345"))

	camera := "Nikon D850"
	iso := 400
	taken := time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)
	updated, err := mgr.UpdatePhoto(ctx, 1, photo.ID, lifecycle.UpdatePhotoInput{
		Metadata: &lifecycle.PhotoMetadata{Camera: &camera, ISO: &iso, TakenAt: &taken},
	})
	require.NoError(t, err)
	assert.Equal(t, "Nikon D850", *updated.Camera)
	assert.Equal(t, 400, *updated.ISO)
	assert.Equal(t, *photo.RegistrationHistoryID, *updated.RegistrationHistoryID)
	assert.Equal(t, 1, st.NumRegistrationHistories())
}

func TestOwnershipCollapsesToNotFound(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	photo := createPhoto(t, mgr, st, 1, newPairInput(typeID, "N12345"))

	// Another user gets the same answer as for a photo that does not exist.
	err := mgr.DeletePhoto(ctx, 2, photo.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = mgr.UpdatePhoto(ctx, 2, photo.ID, lifecycle.UpdatePhotoInput{})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	assert.Equal(t, 1, st.NumPhotos(), "no mutation happened")
	assert.Equal(t, 1, st.NumRegistrationHistories())
}

func TestDeletePhotoMediaFailureIsNonFatal(t *testing.T) {
	mgr, st, md := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	photo := createPhoto(t, mgr, st, 1, newPairInput(typeID, "N12345"))
	md.FailDelete = true

	require.NoError(t, mgr.DeletePhoto(ctx, 1, photo.ID))
	assert.Equal(t, 0, st.NumPhotos())
	assert.Equal(t, 0, st.NumRegistrationHistories(), "cleanup still ran")
}

func TestCreatePhotoWithNewAirport(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()

	lat, lon := 47.4647, 8.5492
	photo, err := mgr.CreatePhoto(ctx, 1, lifecycle.CreatePhotoInput{
		AirportCode: "other",
		NewAirport: &lifecycle.NewAirport{
			Code: "lszh", Name: "Zurich", Latitude: &lat, Longitude: &lon,
		},
		MediaKey: "photos/full.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "LSZH", photo.AirportCode, "the new airport's code is substituted")

	airport, err := st.GetAirport(ctx, "LSZH")
	require.NoError(t, err)
	assert.Equal(t, "Zurich", airport.Name)
}

func TestCreatePhotoNewAirportValidation(t *testing.T) {
	mgr, _, _ := newManager(t)
	ctx := context.Background()

	lat := 47.4647
	_, err := mgr.CreatePhoto(ctx, 1, lifecycle.CreatePhotoInput{
		AirportCode: "other",
		NewAirport:  &lifecycle.NewAirport{Code: "LSZH", Name: "Zurich", Latitude: &lat},
		MediaKey:    "photos/full.jpg",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "longitude is missing")

	_, err = mgr.CreatePhoto(ctx, 1, lifecycle.CreatePhotoInput{
		AirportCode: "other",
		MediaKey:    "photos/full.jpg",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "details are missing entirely")
}

func TestCreatePhotoDuplicateAirport(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	require.NoError(t, st.CreateAirport(ctx, &models.Airport{
		Code: "LSZH", Name: "Zurich", Latitude: 47.4647, Longitude: 8.5492,
	}))

	lat, lon := 47.4647, 8.5492
	_, err := mgr.CreatePhoto(ctx, 1, lifecycle.CreatePhotoInput{
		AirportCode: "other",
		NewAirport:  &lifecycle.NewAirport{Code: "LSZH", Name: "Zurich", Latitude: &lat, Longitude: &lon},
		MediaKey:    "photos/full.jpg",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindDuplicate))
}

func TestCreatePhotoWithoutRegistration(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()

	photo := createPhoto(t, mgr, st, 1, lifecycle.RegistrationInput{})
	assert.Nil(t, photo.RegistrationHistoryID)

	require.NoError(t, mgr.DeletePhoto(ctx, 1, photo.ID))
	assert.Equal(t, 0, st.NumPhotos())
}

// Full create, update, delete sequence: nothing unreferenced survives.
func TestLifecycleSequenceLeavesNoOrphans(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	photo := createPhoto(t, mgr, st, 1, newPairInput(typeID, "N12345"))

	_, err := mgr.UpdatePhoto(ctx, 1, photo.ID, lifecycle.UpdatePhotoInput{
		Registration: &lifecycle.RegistrationInput{
			Registration:   "G-ABCD",
			AircraftTypeID: &typeID,
		},
	})
	require.NoError(t, err)

	require.NoError(t, mgr.DeletePhoto(ctx, 1, photo.ID))

	assert.Equal(t, 0, st.NumPhotos())
	assert.Equal(t, 0, st.NumRegistrationHistories())
	assert.Equal(t, 0, st.NumSpecificAircraft())
}

func TestCleanupIdempotent(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	rhID, err := mgr.ResolveRegistration(ctx, newPairInput(typeID, "N12345"))
	require.NoError(t, err)

	require.NoError(t, mgr.Cleanup(ctx, rhID))
	assert.Equal(t, 0, st.NumRegistrationHistories())
	assert.Equal(t, 0, st.NumSpecificAircraft())

	// A second pass over a collected id is a no-op.
	require.NoError(t, mgr.Cleanup(ctx, rhID))
}

func TestCleanupKeepsSharedAirframe(t *testing.T) {
	mgr, st, _ := newManager(t)
	ctx := context.Background()
	typeID := seedType(t, st)

	rhID, err := mgr.ResolveRegistration(ctx, newPairInput(typeID, "N12345"))
	require.NoError(t, err)
	rh, err := st.GetRegistrationHistory(ctx, rhID)
	require.NoError(t, err)

	// A re-registration of the same airframe.
	second := &models.RegistrationHistory{
		Registration:       "N54321",
		SpecificAircraftID: rh.SpecificAircraftID,
		IsCurrent:          true,
	}
	require.NoError(t, st.CreateRegistrationHistory(ctx, second))

	require.NoError(t, mgr.Cleanup(ctx, rhID))
	assert.Equal(t, 1, st.NumRegistrationHistories())
	assert.Equal(t, 1, st.NumSpecificAircraft(), "airframe still has a registration")
}

package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/geo"
)

type stubGeoResolver struct {
	geocoded geo.Point
}

func (s stubGeoResolver) Geocode(ctx context.Context, address string) (geo.Point, error) {
	return s.geocoded, nil
}

func (s stubGeoResolver) WalkingRoute(ctx context.Context, from, to geo.Point) geo.Route {
	km := geo.HaversineKM(from, to)
	return geo.Route{DistanceKM: km, DurationMin: km / 4.5 * 60, Profile: "foot"}
}

func (s stubGeoResolver) TransitEstimate(from, to geo.Point) geo.Route {
	km := geo.HaversineKM(from, to)
	return geo.Route{DistanceKM: km, DurationMin: km / 20 * 60, Profile: "transit"}
}

type propertyFixture struct {
	svc   PropertyService
	db    *gorm.DB
	owner models.User
}

func newPropertyFixture(t *testing.T, name string) propertyFixture {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Property{}, &models.Room{}))

	owner := models.User{FullName: "Owner", Email: name + "@example.com", Role: models.RoleOwner}
	require.NoError(t, db.Create(&owner).Error)

	svc := NewPropertyService(
		repository.NewPropertyRepository(db),
		repository.NewRoomRepository(db),
		redisClient,
		stubGeoResolver{},
		time.Minute,
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)

	return propertyFixture{svc: svc, db: db, owner: owner}
}

func seedApproved(t *testing.T, fx propertyFixture, name string, lat, lng float64, price int64, rating float64, amenities string) models.Property {
	t.Helper()
	property := models.Property{
		OwnerID:           fx.owner.ID,
		Name:              name,
		City:              "Delhi",
		Lat:               lat,
		Lng:               lng,
		BasePrice:         price,
		CurrentPrice:      price,
		AvgRating:         rating,
		GenderRestriction: models.GenderAny,
		Amenities:         datatypes.JSON(amenities),
		Status:            models.PropertyStatusApproved,
	}
	require.NoError(t, fx.db.Create(&property).Error)
	return property
}

func TestSearchRanksByWeightedScore(t *testing.T) {
	fx := newPropertyFixture(t, "prop_rank")
	student := models.User{ID: 500, Role: models.RoleStudent, CollegeLat: 28.6139, CollegeLng: 77.2090}

	// Near, mid-priced, well rated: should win overall.
	near := seedApproved(t, fx, "Near PG", 28.6200, 77.2100, 900000, 4.5, `["wifi","laundry"]`)
	// Far but cheapest.
	cheap := seedApproved(t, fx, "Cheap PG", 28.7000, 77.3000, 600000, 3.0, `[]`)
	// Far and most expensive.
	_ = seedApproved(t, fx, "Pricey PG", 28.7100, 77.3100, 1200000, 4.0, `["wifi"]`)

	resp, err := fx.svc.Search(context.Background(), student, dto.PropertySearchQuery{City: "Delhi"})
	require.NoError(t, err)
	require.Len(t, resp.Properties, 3)
	require.False(t, resp.CacheHit)

	require.Equal(t, near.ID, resp.Properties[0].ID)
	// Scores are monotonically non-increasing.
	require.GreaterOrEqual(t, resp.Properties[0].Score, resp.Properties[1].Score)
	require.GreaterOrEqual(t, resp.Properties[1].Score, resp.Properties[2].Score)

	require.NotNil(t, resp.Winners.Closest)
	require.Equal(t, near.ID, resp.Winners.Closest.ID)
	require.NotNil(t, resp.Winners.Cheapest)
	require.Equal(t, cheap.ID, resp.Winners.Cheapest.ID)
	require.NotNil(t, resp.Winners.BestRated)
	require.Equal(t, near.ID, resp.Winners.BestRated.ID)
	require.NotNil(t, resp.Winners.BestValue)
	require.Equal(t, resp.Properties[0].ID, resp.Winners.BestValue.ID)

	// Travel estimates were filled from the student's college.
	require.Greater(t, resp.Properties[0].DistanceKM, 0.0)
	require.Greater(t, resp.Properties[0].TravelTimeWalk, 0)
	require.Greater(t, resp.Properties[0].TravelTimeTransit, 0)
}

func TestSearchAmenityBonusBreaksTies(t *testing.T) {
	fx := newPropertyFixture(t, "prop_amenity")
	student := models.User{ID: 501, Role: models.RoleStudent, CollegeLat: 28.6139, CollegeLng: 77.2090}

	plain := seedApproved(t, fx, "Plain PG", 28.6200, 77.2100, 800000, 4.0, `[]`)
	equipped := seedApproved(t, fx, "Equipped PG", 28.6200, 77.2100, 800000, 4.0, `["wifi","laundry","mess"]`)

	resp, err := fx.svc.Search(context.Background(), student, dto.PropertySearchQuery{
		City:      "Delhi",
		Amenities: []string{"WiFi", "mess"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Properties, 2)
	require.Equal(t, equipped.ID, resp.Properties[0].ID)
	require.InDelta(t, 2*0.02, resp.Properties[0].Score-resp.Properties[1].Score, 0.0001)
	_ = plain
}

func TestSearchFilters(t *testing.T) {
	fx := newPropertyFixture(t, "prop_filter")
	student := models.User{ID: 502, Role: models.RoleStudent, CollegeLat: 28.6139, CollegeLng: 77.2090}

	near := seedApproved(t, fx, "Near PG", 28.6200, 77.2100, 700000, 4.0, `[]`)
	_ = seedApproved(t, fx, "Far PG", 29.0000, 77.8000, 650000, 4.0, `[]`)
	_ = seedApproved(t, fx, "Over Budget PG", 28.6210, 77.2110, 1500000, 4.8, `[]`)

	// Pending listings never show up.
	pending := seedApproved(t, fx, "Pending PG", 28.6150, 77.2095, 500000, 5.0, `[]`)
	require.NoError(t, fx.db.Model(&models.Property{}).Where("id = ?", pending.ID).
		Update("status", models.PropertyStatusPending).Error)

	resp, err := fx.svc.Search(context.Background(), student, dto.PropertySearchQuery{
		City:        "Delhi",
		MaxBudget:   1000000,
		MaxDistance: 10,
	})
	require.NoError(t, err)
	require.Len(t, resp.Properties, 1)
	require.Equal(t, near.ID, resp.Properties[0].ID)
}

func TestSearchCachesAndInvalidates(t *testing.T) {
	fx := newPropertyFixture(t, "prop_cache")
	student := models.User{ID: 503, Role: models.RoleStudent, CollegeLat: 28.6139, CollegeLng: 77.2090}
	query := dto.PropertySearchQuery{City: "Delhi"}

	seedApproved(t, fx, "First PG", 28.6200, 77.2100, 800000, 4.0, `[]`)

	ctx := context.Background()
	first, err := fx.svc.Search(ctx, student, query)
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Len(t, first.Properties, 1)

	second, err := fx.svc.Search(ctx, student, query)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Len(t, second.Properties, 1)

	// A mutation through the service bumps the cache version.
	_, err = fx.svc.Create(ctx, fx.owner, dto.PropertyCreateRequest{
		Name:      "Second PG",
		Address:   "12 Ring Road",
		City:      "Delhi",
		Lat:       28.6300,
		Lng:       77.2200,
		BasePrice: 900000,
	})
	require.NoError(t, err)
	require.NoError(t, fx.svc.SetStatus(ctx, 2, models.PropertyStatusApproved))

	third, err := fx.svc.Search(ctx, student, query)
	require.NoError(t, err)
	require.False(t, third.CacheHit)
	require.Len(t, third.Properties, 2)
}

func TestAddRoomAndModeration(t *testing.T) {
	fx := newPropertyFixture(t, "prop_rooms")
	ctx := context.Background()

	property := seedApproved(t, fx, "Room PG", 28.62, 77.21, 800000, 4.0, `[]`)

	room, err := fx.svc.AddRoom(ctx, fx.owner, property.ID, models.Room{RoomNumber: "2B", Type: "double", Capacity: 2})
	require.NoError(t, err)
	require.Equal(t, property.ID, room.PropertyID)
	require.Equal(t, models.RoomStatusAvailable, room.Status)

	other := models.User{FullName: "Other", Email: "prop-rooms-other@example.com", Role: models.RoleOwner}
	require.NoError(t, fx.db.Create(&other).Error)
	_, err = fx.svc.AddRoom(ctx, other, property.ID, models.Room{RoomNumber: "3C"})
	require.ErrorIs(t, err, ErrNotPropertyOwner)

	require.ErrorIs(t, fx.svc.SetStatus(ctx, property.ID, "bogus"), ErrInvalidPayload)
	require.NoError(t, fx.svc.SetStatus(ctx, property.ID, models.PropertyStatusSuspended))

	var updated models.Property
	require.NoError(t, fx.db.First(&updated, property.ID).Error)
	require.Equal(t, models.PropertyStatusSuspended, updated.Status)
}

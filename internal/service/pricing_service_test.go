package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
)

func newPricingFixture(t *testing.T, name string) (PricingService, *gorm.DB, models.Property) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Property{}, &models.Room{}, &models.PricingChange{}))

	owner := models.User{FullName: "Owner", Email: name + "@example.com", Role: models.RoleOwner}
	require.NoError(t, db.Create(&owner).Error)

	property := models.Property{
		OwnerID:               owner.ID,
		Name:                  "Lakeview PG",
		BasePrice:             1000000,
		CurrentPrice:          1000000,
		Status:                models.PropertyStatusApproved,
		DynamicPricingEnabled: true,
	}
	require.NoError(t, db.Create(&property).Error)

	svc := NewPricingService(
		repository.NewPropertyRepository(db),
		repository.NewRoomRepository(db),
		repository.NewPricingRepository(db),
		zerolog.Nop(),
	)

	return svc, db, property
}

func setRooms(t *testing.T, db *gorm.DB, propertyID uint, capacity, occupied int) {
	t.Helper()
	require.NoError(t, db.Where("property_id = ?", propertyID).Delete(&models.Room{}).Error)
	require.NoError(t, db.Create(&models.Room{
		PropertyID: propertyID,
		RoomNumber: "101",
		Capacity:   capacity,
		Occupied:   occupied,
	}).Error)
}

func TestPricingRaisesOnHighOccupancy(t *testing.T) {
	svc, db, property := newPricingFixture(t, "pricing_high")
	setRooms(t, db, property.ID, 10, 9)

	change, err := svc.RunForProperty(context.Background(), property.ID)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.Equal(t, models.PricingReasonOccupancyHigh, change.Reason)
	require.EqualValues(t, 1000000, change.OldPrice)
	require.EqualValues(t, 1050000, change.NewPrice)
	require.InDelta(t, 0.9, change.OccupancyRate, 0.001)

	var updated models.Property
	require.NoError(t, db.First(&updated, property.ID).Error)
	require.EqualValues(t, 1050000, updated.CurrentPrice)
	require.EqualValues(t, 1000000, updated.BasePrice)
}

func TestPricingDropsOnLowOccupancy(t *testing.T) {
	svc, db, property := newPricingFixture(t, "pricing_low")
	setRooms(t, db, property.ID, 10, 2)

	change, err := svc.RunForProperty(context.Background(), property.ID)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.Equal(t, models.PricingReasonOccupancyLow, change.Reason)
	require.EqualValues(t, 970000, change.NewPrice)
}

func TestPricingAnchorsToBasePrice(t *testing.T) {
	svc, db, property := newPricingFixture(t, "pricing_anchor")
	setRooms(t, db, property.ID, 10, 9)

	ctx := context.Background()
	_, err := svc.RunForProperty(ctx, property.ID)
	require.NoError(t, err)

	// A second pass at the same occupancy is a no-op, never a compounding
	// raise on top of the raised price.
	change, err := svc.RunForProperty(ctx, property.ID)
	require.NoError(t, err)
	require.Nil(t, change)

	var updated models.Property
	require.NoError(t, db.First(&updated, property.ID).Error)
	require.EqualValues(t, 1050000, updated.CurrentPrice)

	// Occupancy returning to normal restores the base price.
	setRooms(t, db, property.ID, 10, 6)
	change, err = svc.RunForProperty(ctx, property.ID)
	require.NoError(t, err)
	require.NotNil(t, change)
	require.EqualValues(t, 1000000, change.NewPrice)
	require.Equal(t, "occupancy_normalized", change.Reason)

	history, err := svc.History(ctx, property.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestPricingSkipsOptedOutAndEmptyProperties(t *testing.T) {
	svc, db, property := newPricingFixture(t, "pricing_skip")

	// No rooms at all: nothing to compute.
	change, err := svc.RunForProperty(context.Background(), property.ID)
	require.NoError(t, err)
	require.Nil(t, change)

	// Opted out.
	require.NoError(t, db.Model(&models.Property{}).Where("id = ?", property.ID).
		Update("dynamic_pricing_enabled", false).Error)
	setRooms(t, db, property.ID, 10, 10)
	change, err = svc.RunForProperty(context.Background(), property.ID)
	require.NoError(t, err)
	require.Nil(t, change)

	applied, err := svc.RunAll(context.Background())
	require.NoError(t, err)
	require.Zero(t, applied)
}

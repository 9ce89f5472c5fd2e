package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
)

type captureEnrollmentSink struct {
	requested chan models.Property
	decided   chan bool
}

func newCaptureEnrollmentSink() *captureEnrollmentSink {
	return &captureEnrollmentSink{
		requested: make(chan models.Property, 4),
		decided:   make(chan bool, 4),
	}
}

func (c *captureEnrollmentSink) EnrollmentRequested(_ models.User, property models.Property) {
	c.requested <- property
}

func (c *captureEnrollmentSink) EnrollmentDecided(_ models.Enrollment, approved bool) {
	c.decided <- approved
}

type enrollmentFixture struct {
	svc       EnrollmentService
	referrals ReferralService
	sink      *captureEnrollmentSink
	db        *gorm.DB
	owner     models.User
	student   models.User
	property  models.Property
	room      models.Room
}

func newEnrollmentFixture(t *testing.T, name string) enrollmentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Property{}, &models.Room{},
		&models.Enrollment{}, &models.Referral{},
	))

	owner := models.User{FullName: "Owner", Email: name + "-owner@example.com", Role: models.RoleOwner}
	require.NoError(t, db.Create(&owner).Error)
	student := models.User{FullName: "Ravi Kumar", Email: name + "-ravi@example.com", Role: models.RoleStudent, Gender: models.GenderMale}
	require.NoError(t, db.Create(&student).Error)

	property := models.Property{
		OwnerID:      owner.ID,
		Name:         "Hilltop PG",
		BasePrice:    800000,
		CurrentPrice: 850000,
		Status:       models.PropertyStatusApproved,
	}
	require.NoError(t, db.Create(&property).Error)
	room := models.Room{PropertyID: property.ID, RoomNumber: "2B", Capacity: 2, Occupied: 0, Status: models.RoomStatusAvailable}
	require.NoError(t, db.Create(&room).Error)

	sink := newCaptureEnrollmentSink()
	referrals := NewReferralService(repository.NewReferralRepository(db), 50000, zerolog.Nop())
	svc := NewEnrollmentService(
		repository.NewEnrollmentRepository(db),
		repository.NewPropertyRepository(db),
		repository.NewRoomRepository(db),
		referrals,
		nil,
		sink,
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)

	return enrollmentFixture{
		svc:       svc,
		referrals: referrals,
		sink:      sink,
		db:        db,
		owner:     owner,
		student:   student,
		property:  property,
		room:      room,
	}
}

func TestRequestFreezesRentAtCurrentPrice(t *testing.T) {
	fx := newEnrollmentFixture(t, "enroll_request")
	ctx := context.Background()

	enrollment, err := fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{
		PropertyID: fx.property.ID,
		RoomID:     fx.room.ID,
		Message:    "Starting in July",
	})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	require.Equal(t, int64(850000), enrollment.MonthlyRent)
	require.False(t, enrollment.RequestedAt.IsZero())

	select {
	case property := <-fx.sink.requested:
		require.Equal(t, fx.property.ID, property.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a booking-requested alert")
	}

	// A live request blocks a second one.
	_, err = fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: fx.room.ID})
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestRequestRejections(t *testing.T) {
	fx := newEnrollmentFixture(t, "enroll_reject")
	ctx := context.Background()

	_, err := fx.svc.Request(ctx, fx.owner, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: fx.room.ID})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{RoomID: fx.room.ID})
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: 999, RoomID: fx.room.ID})
	require.ErrorIs(t, err, ErrPropertyNotFound)

	require.NoError(t, fx.db.Model(&models.Property{}).Where("id = ?", fx.property.ID).
		Update("status", models.PropertyStatusPending).Error)
	_, err = fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: fx.room.ID})
	require.ErrorIs(t, err, ErrPropertyNotApproved)
	require.NoError(t, fx.db.Model(&models.Property{}).Where("id = ?", fx.property.ID).
		Update("status", models.PropertyStatusApproved).Error)

	// Women-only listing turns away a male student.
	require.NoError(t, fx.db.Model(&models.Property{}).Where("id = ?", fx.property.ID).
		Update("gender_restriction", models.GenderFemale).Error)
	_, err = fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: fx.room.ID})
	require.ErrorIs(t, err, ErrGenderRestricted)
	require.NoError(t, fx.db.Model(&models.Property{}).Where("id = ?", fx.property.ID).
		Update("gender_restriction", models.GenderAny).Error)

	_, err = fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: 999})
	require.ErrorIs(t, err, ErrRoomUnavailable)

	otherProperty := models.Property{OwnerID: fx.owner.ID, Name: "Lakeside PG", BasePrice: 700000, CurrentPrice: 700000, Status: models.PropertyStatusApproved}
	require.NoError(t, fx.db.Create(&otherProperty).Error)
	foreignRoom := models.Room{PropertyID: otherProperty.ID, RoomNumber: "1A", Capacity: 2, Status: models.RoomStatusAvailable}
	require.NoError(t, fx.db.Create(&foreignRoom).Error)
	_, err = fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: foreignRoom.ID})
	require.ErrorIs(t, err, ErrRoomUnavailable)

	require.NoError(t, fx.db.Model(&models.Room{}).Where("id = ?", fx.room.ID).
		Updates(map[string]any{"occupied": 2, "status": models.RoomStatusFilled}).Error)
	_, err = fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: fx.room.ID})
	require.ErrorIs(t, err, ErrRoomUnavailable)

	var count int64
	require.NoError(t, fx.db.Model(&models.Enrollment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDecideApprovalActivatesAndFillsRoom(t *testing.T) {
	fx := newEnrollmentFixture(t, "enroll_approve")
	ctx := context.Background()

	// Single-bed room so approval fills it.
	require.NoError(t, fx.db.Model(&models.Room{}).Where("id = ?", fx.room.ID).
		Update("capacity", 1).Error)

	enrollment, err := fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: fx.room.ID})
	require.NoError(t, err)

	stranger := models.User{ID: 999, Role: models.RoleOwner}
	_, err = fx.svc.Decide(ctx, stranger, enrollment.ID, dto.EnrollmentDecisionRequest{Action: "approve"})
	require.ErrorIs(t, err, ErrNotPropertyOwner)

	_, err = fx.svc.Decide(ctx, fx.owner, enrollment.ID, dto.EnrollmentDecisionRequest{Action: "evict"})
	require.ErrorIs(t, err, ErrInvalidPayload)

	decided, err := fx.svc.Decide(ctx, fx.owner, enrollment.ID, dto.EnrollmentDecisionRequest{Action: "approve"})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusActive, decided.Status)
	require.NotNil(t, decided.ActivatedAt)

	var room models.Room
	require.NoError(t, fx.db.First(&room, fx.room.ID).Error)
	require.Equal(t, 1, room.Occupied)
	require.Equal(t, models.RoomStatusFilled, room.Status)

	select {
	case approved := <-fx.sink.decided:
		require.True(t, approved)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a decision alert")
	}

	// A decided booking cannot be decided again.
	_, err = fx.svc.Decide(ctx, fx.owner, enrollment.ID, dto.EnrollmentDecisionRequest{Action: "reject"})
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecideRejectionLeavesRoomUntouched(t *testing.T) {
	fx := newEnrollmentFixture(t, "enroll_deny")
	ctx := context.Background()

	enrollment, err := fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: fx.room.ID})
	require.NoError(t, err)

	decided, err := fx.svc.Decide(ctx, fx.owner, enrollment.ID, dto.EnrollmentDecisionRequest{Action: "reject"})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusRejected, decided.Status)

	var room models.Room
	require.NoError(t, fx.db.First(&room, fx.room.ID).Error)
	require.Zero(t, room.Occupied)

	select {
	case approved := <-fx.sink.decided:
		require.False(t, approved)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a decision alert")
	}

	// The rejection frees the student to request again.
	_, err = fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: fx.room.ID})
	require.NoError(t, err)
}

func TestEndReleasesRoomSlot(t *testing.T) {
	fx := newEnrollmentFixture(t, "enroll_end")
	ctx := context.Background()

	require.NoError(t, fx.db.Model(&models.Room{}).Where("id = ?", fx.room.ID).
		Update("capacity", 1).Error)

	enrollment, err := fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{PropertyID: fx.property.ID, RoomID: fx.room.ID})
	require.NoError(t, err)
	_, err = fx.svc.Decide(ctx, fx.owner, enrollment.ID, dto.EnrollmentDecisionRequest{Action: "approve"})
	require.NoError(t, err)

	stranger := models.User{ID: 999, Role: models.RoleStudent}
	_, err = fx.svc.End(ctx, stranger, enrollment.ID)
	require.ErrorIs(t, err, ErrForbidden)

	ended, err := fx.svc.End(ctx, fx.student, enrollment.ID)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)

	var room models.Room
	require.NoError(t, fx.db.First(&room, fx.room.ID).Error)
	require.Zero(t, room.Occupied)
	require.Equal(t, models.RoomStatusAvailable, room.Status)

	// Only an active stay can be ended.
	_, err = fx.svc.End(ctx, fx.owner, enrollment.ID)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestReferralCreditsOnActivation(t *testing.T) {
	fx := newEnrollmentFixture(t, "enroll_referral")
	ctx := context.Background()

	friend := models.User{FullName: "Meera Iyer", Email: "enroll-referral-meera@example.com", Role: models.RoleStudent}
	require.NoError(t, fx.db.Create(&friend).Error)

	referral, err := fx.referrals.IssueCode(ctx, friend.ID)
	require.NoError(t, err)
	require.Len(t, referral.Code, 8)

	require.ErrorIs(t, fx.referrals.Redeem(ctx, "NOPE1234", fx.student.ID), ErrReferralNotFound)
	require.ErrorIs(t, fx.referrals.Redeem(ctx, referral.Code, friend.ID), ErrSelfReferral)

	enrollment, err := fx.svc.Request(ctx, fx.student, dto.EnrollmentRequest{
		PropertyID:   fx.property.ID,
		RoomID:       fx.room.ID,
		ReferralCode: referral.Code,
	})
	require.NoError(t, err)

	var joined models.Referral
	require.NoError(t, fx.db.First(&joined, referral.ID).Error)
	require.Equal(t, models.ReferralStatusJoined, joined.Status)
	require.ErrorIs(t, fx.referrals.Redeem(ctx, referral.Code, fx.student.ID), ErrReferralUsed)

	_, err = fx.svc.Decide(ctx, fx.owner, enrollment.ID, dto.EnrollmentDecisionRequest{Action: "approve"})
	require.NoError(t, err)

	var credited models.Referral
	require.NoError(t, fx.db.First(&credited, referral.ID).Error)
	require.Equal(t, models.ReferralStatusCredited, credited.Status)
	require.NotNil(t, credited.CreditedAt)
	require.Equal(t, enrollment.ID, *credited.EnrollmentID)
	require.Equal(t, int64(50000), credited.RewardAmount)

	rewards, err := fx.referrals.ListForReferrer(ctx, friend.ID)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
}

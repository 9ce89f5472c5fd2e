package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/qr"
)

func newQRFixture(t *testing.T, name string) (QRService, *gorm.DB, models.User) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	student := models.User{FullName: "Ravi Kumar", Email: name + "-ravi@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)

	svc := NewQRService(repository.NewUserRepository(db), zerolog.Nop())

	return svc, db, student
}

func TestIssueMintsOnceAndRotateReplaces(t *testing.T) {
	svc, db, student := newQRFixture(t, "qr_issue")
	ctx := context.Background()

	_, err := svc.Get(ctx, student.ID)
	require.ErrorIs(t, err, ErrQRNotIssued)

	first, err := svc.Issue(ctx, student.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.QRDataURL, "data:image/png;base64,"))

	token, ok := qr.ParsePayload(first.Token)
	require.True(t, ok)

	var stored models.User
	require.NoError(t, db.First(&stored, student.ID).Error)
	require.NotNil(t, stored.QRToken)
	require.Equal(t, token, *stored.QRToken)

	// Issue is idempotent once a token exists.
	again, err := svc.Issue(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, first.Token, again.Token)

	fetched, err := svc.Get(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, first.Token, fetched.Token)

	rotated, err := svc.Rotate(ctx, student.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, rotated.Token)

	require.NoError(t, db.First(&stored, student.ID).Error)
	rotatedToken, ok := qr.ParsePayload(rotated.Token)
	require.True(t, ok)
	require.Equal(t, rotatedToken, *stored.QRToken)
}

func TestQRServiceRejectsNonStudents(t *testing.T) {
	svc, db, _ := newQRFixture(t, "qr_roles")
	ctx := context.Background()

	owner := models.User{FullName: "Owner", Email: "qr-roles-owner@example.com", Role: models.RoleOwner}
	require.NoError(t, db.Create(&owner).Error)

	_, err := svc.Issue(ctx, owner.ID)
	require.ErrorIs(t, err, ErrQRUserNotFound)

	_, err = svc.Issue(ctx, 999)
	require.ErrorIs(t, err, ErrQRUserNotFound)
}

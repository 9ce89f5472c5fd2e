package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/handler"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/service"
)

type mockScanService struct {
	lastOperator models.User
	lastPayload  dto.ScanRequest
	result       dto.ScanResult
	entries      []dto.EntryLogResponse
	inside       int64
	err          error
}

func (m *mockScanService) RecordScan(_ context.Context, operator models.User, payload dto.ScanRequest) (dto.ScanResult, error) {
	m.lastOperator = operator
	m.lastPayload = payload
	if m.err != nil {
		return dto.ScanResult{}, m.err
	}
	return m.result, nil
}

func (m *mockScanService) ListPropertyLog(_ context.Context, operator models.User, propertyID uint, limit int) ([]dto.EntryLogResponse, error) {
	m.lastOperator = operator
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockScanService) ListStudentLog(_ context.Context, studentID uint, limit int) ([]dto.EntryLogResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockScanService) CountInside(_ context.Context, operator models.User, propertyID uint) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.inside, nil
}

func newScanApp(svc service.ScanService, userID uint, role string) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	})
	h := handler.NewScanHandler(svc, zerolog.New(io.Discard))
	h.RegisterOperator(group)
	h.RegisterStudent(group)
	return app
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestScanHandlerReturnsFlatResult(t *testing.T) {
	scannedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	svc := &mockScanService{result: dto.ScanResult{
		Success:    true,
		Direction:  models.DirectionEnter,
		PersonName: "Asha Verma",
		Timestamp:  scannedAt,
		Message:    "Asha Verma entered",
	}}
	app := newScanApp(svc, 7, models.RoleOwner)

	body, err := json.Marshal(dto.ScanRequest{QRRaw: `{"token":"t","platform":"rentease","version":1}`, PropertyID: 3})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Scanner devices consume the result directly, without the envelope.
	var result dto.ScanResult
	decodeBody(t, resp, &result)
	require.True(t, result.Success)
	require.Equal(t, models.DirectionEnter, result.Direction)
	require.Equal(t, "Asha Verma entered", result.Message)

	require.Equal(t, uint(7), svc.lastOperator.ID)
	require.Equal(t, models.RoleOwner, svc.lastOperator.Role)
	require.Equal(t, uint(3), svc.lastPayload.PropertyID)
}

func TestScanHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "unauthorized", err: service.ErrUnauthorized, statusCode: fiber.StatusUnauthorized},
		{name: "invalid payload", err: service.ErrInvalidPayload, statusCode: fiber.StatusBadRequest},
		{name: "throttled", err: service.ErrThrottled, statusCode: fiber.StatusTooManyRequests},
		{name: "property not found", err: service.ErrPropertyNotFound, statusCode: fiber.StatusNotFound},
		{name: "not owner", err: service.ErrNotPropertyOwner, statusCode: fiber.StatusForbidden},
		{name: "student not found", err: service.ErrStudentNotFound, statusCode: fiber.StatusNotFound},
		{name: "no enrollment", err: service.ErrNoActiveEnrollment, statusCode: fiber.StatusForbidden},
		{name: "store failed", err: service.ErrEntryStoreFailed, statusCode: fiber.StatusInternalServerError},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockScanService{err: tc.err}
			app := newScanApp(svc, 7, models.RoleOwner)

			body, err := json.Marshal(dto.ScanRequest{QRRaw: "raw", PropertyID: 3})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestScanHandlerPropertyLog(t *testing.T) {
	svc := &mockScanService{entries: []dto.EntryLogResponse{
		{ID: 2, StudentID: 9, Direction: models.DirectionLeave, CurfewViolation: true},
		{ID: 1, StudentID: 9, Direction: models.DirectionEnter},
	}}
	app := newScanApp(svc, 7, models.RoleOwner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/3/entries?limit=10", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                   `json:"success"`
		Data    []dto.EntryLogResponse `json:"data"`
	}
	decodeBody(t, resp, &response)
	require.True(t, response.Success)
	require.Len(t, response.Data, 2)
	require.True(t, response.Data[0].CurfewViolation)

	// Bad path param short-circuits before the service runs.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/properties/abc/entries", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestScanHandlerCountInside(t *testing.T) {
	svc := &mockScanService{inside: 12}
	app := newScanApp(svc, 7, models.RoleOwner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/3/inside", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Inside int64 `json:"inside"`
		} `json:"data"`
	}
	decodeBody(t, resp, &response)
	require.EqualValues(t, 12, response.Data.Inside)
}

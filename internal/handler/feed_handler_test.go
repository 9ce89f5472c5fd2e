package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/handler"
	"github.com/rentease/rentease-api/internal/models"
)

type mockAlertService struct {
	stream chan dto.AlertResponse
}

func newMockAlertService() *mockAlertService {
	return &mockAlertService{stream: make(chan dto.AlertResponse, 8)}
}

func (m *mockAlertService) Publish(_ context.Context, userID uint, alertType, message string, metadata map[string]interface{}) (dto.AlertResponse, error) {
	return dto.AlertResponse{UserID: userID, Type: alertType, Message: message, Metadata: metadata}, nil
}

func (m *mockAlertService) List(_ context.Context, _ uint, _, _ int) ([]dto.AlertResponse, error) {
	return nil, nil
}

func (m *mockAlertService) MarkRead(_ context.Context, id, userID uint) (dto.AlertResponse, error) {
	return dto.AlertResponse{ID: id, UserID: userID, Read: true}, nil
}

func (m *mockAlertService) Subscribe(uint) (<-chan dto.AlertResponse, func()) {
	return m.stream, func() {}
}

func (m *mockAlertService) Start(context.Context) {}

func (m *mockAlertService) ScanRecorded(models.User, models.Property, models.EntryLog) {}
func (m *mockAlertService) EnrollmentRequested(models.User, models.Property)           {}
func (m *mockAlertService) EnrollmentDecided(models.Enrollment, bool)                  {}
func (m *mockAlertService) InvoiceGenerated(models.Invoice)                            {}
func (m *mockAlertService) InvoiceOverdue(models.Invoice)                              {}
func (m *mockAlertService) PaymentSettled(models.Invoice, bool)                        {}
func (m *mockAlertService) DisputeRaised(models.Dispute)                               {}
func (m *mockAlertService) DisputeDecided(models.Dispute)                              {}

func startFeedServer(t *testing.T, alerts *mockAlertService, userID uint) (string, func()) {
	t.Helper()

	app := fiber.New()
	group := app.Group("/api/v1", func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals("user_id", userID)
			c.Locals("user_role", models.RoleOwner)
		}
		return c.Next()
	})
	handler.NewFeedHandler(alerts, 30*time.Second, zerolog.New(io.Discard)).RegisterOwner(group)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if serveErr := app.Listener(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", serveErr)
		}
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

func TestFeedStreamsScanAlertsOnly(t *testing.T) {
	alerts := newMockAlertService()
	baseURL, shutdown := startFeedServer(t, alerts, 7)
	defer shutdown()

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(baseURL, "http")+"/api/v1/feed", nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	// Billing noise must not reach the gate feed.
	alerts.stream <- dto.AlertResponse{ID: 1, UserID: 7, Type: models.AlertTypeInvoice, Message: "invoice ready"}
	alerts.stream <- dto.AlertResponse{ID: 2, UserID: 7, Type: models.AlertTypeScan, Message: "Ravi Kumar entered"}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var alert dto.AlertResponse
	require.NoError(t, json.Unmarshal(payload, &alert))
	require.Equal(t, uint(2), alert.ID)
	require.Equal(t, models.AlertTypeScan, alert.Type)

	alerts.stream <- dto.AlertResponse{ID: 3, UserID: 7, Type: models.AlertTypeCurfew, Message: "Ravi Kumar left ⚠️ Curfew violation!"}
	_, payload, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &alert))
	require.Equal(t, models.AlertTypeCurfew, alert.Type)
}

func TestFeedRequiresUpgradeAndIdentity(t *testing.T) {
	alerts := newMockAlertService()
	baseURL, shutdown := startFeedServer(t, alerts, 0)
	defer shutdown()

	// Plain HTTP requests are refused.
	resp, err := http.Get(baseURL + "/api/v1/feed")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	// Without an authenticated user the socket is closed immediately.
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, wsResp, err := dialer.Dial("ws"+strings.TrimPrefix(baseURL, "http")+"/api/v1/feed", nil)
	require.NoError(t, err)
	if wsResp != nil {
		_ = wsResp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	require.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

package dto

import (
	"encoding/json"
	"time"

	"github.com/rentease/rentease-api/internal/models"
)

// AlertResponse is one in-app notification on the wire.
type AlertResponse struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"user_id"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewAlertResponse maps an alert row to its wire shape.
func NewAlertResponse(alert models.Alert) AlertResponse {
	var metadata map[string]interface{}
	if len(alert.Metadata) > 0 {
		_ = json.Unmarshal(alert.Metadata, &metadata)
	}

	return AlertResponse{
		ID:        alert.ID,
		UserID:    alert.UserID,
		Type:      alert.Type,
		Message:   alert.Message,
		Metadata:  metadata,
		Read:      alert.Read,
		CreatedAt: alert.CreatedAt,
	}
}

// NewAlertResponseSlice maps a page of alerts.
func NewAlertResponseSlice(alerts []models.Alert) []AlertResponse {
	out := make([]AlertResponse, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, NewAlertResponse(alert))
	}
	return out
}

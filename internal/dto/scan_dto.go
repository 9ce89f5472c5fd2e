package dto

import (
	"time"

	"github.com/rentease/rentease-api/internal/models"
)

// ScanRequest is the payload posted by the owner's scanner screen.
type ScanRequest struct {
	QRRaw      string `json:"qrRaw" validate:"required"`
	PropertyID uint   `json:"propertyId" validate:"required"`
}

// ScanResult is the wire response for a successful gate scan. The response is
// flat (not wrapped in the shared envelope) because scanner devices consume
// it directly.
type ScanResult struct {
	Success    bool      `json:"success"`
	Direction  string    `json:"direction"`
	PersonName string    `json:"personName"`
	Flagged    bool      `json:"flagged"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
}

// EntryLogResponse is one ledger row in history listings.
type EntryLogResponse struct {
	ID              uint      `json:"id"`
	StudentID       uint      `json:"student_id"`
	StudentName     string    `json:"student_name,omitempty"`
	PropertyID      uint      `json:"property_id"`
	PropertyName    string    `json:"property_name,omitempty"`
	Direction       string    `json:"direction"`
	CurfewViolation bool      `json:"curfew_violation"`
	ScannedAt       time.Time `json:"scanned_at"`
}

// NewEntryLogResponse maps a ledger row to its wire shape.
func NewEntryLogResponse(entry models.EntryLog) EntryLogResponse {
	return EntryLogResponse{
		ID:              entry.ID,
		StudentID:       entry.StudentID,
		StudentName:     entry.Student.FullName,
		PropertyID:      entry.PropertyID,
		PropertyName:    entry.Property.Name,
		Direction:       entry.Direction,
		CurfewViolation: entry.CurfewViolation,
		ScannedAt:       entry.ScannedAt,
	}
}

// NewEntryLogResponseSlice maps a page of ledger rows.
func NewEntryLogResponseSlice(entries []models.EntryLog) []EntryLogResponse {
	out := make([]EntryLogResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, NewEntryLogResponse(entry))
	}
	return out
}

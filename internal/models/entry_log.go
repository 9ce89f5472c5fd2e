package models

import "time"

// Scan directions. The gate ledger records exactly these two values and the
// sequence per (student, property) must strictly alternate, starting with
// "enter".
const (
	DirectionEnter = "enter"
	DirectionLeave = "leave"
)

// OppositeDirection returns the direction a student toggles into after the
// given last recorded direction.
func OppositeDirection(last string) string {
	if last == DirectionEnter {
		return DirectionLeave
	}
	return DirectionEnter
}

// EntryLog is one immutable gate scan event. Rows are append-only: nothing in
// the system updates or deletes them, and the student's inside/outside state
// is always derived from the latest row rather than stored.
type EntryLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StudentID       uint      `gorm:"not null;index:idx_entry_scope,priority:1" json:"student_id"`
	Student         User      `gorm:"foreignKey:StudentID" json:"-"`
	PropertyID      uint      `gorm:"not null;index:idx_entry_scope,priority:2" json:"property_id"`
	Property        Property  `gorm:"foreignKey:PropertyID" json:"-"`
	Direction       string    `gorm:"size:8;not null" json:"direction"`
	CurfewViolation bool      `gorm:"not null;default:false" json:"curfew_violation"`
	ScannedAt       time.Time `gorm:"not null;index:idx_entry_scope,priority:3" json:"scanned_at"`
}

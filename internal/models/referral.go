package models

import "time"

// Referral statuses.
const (
	ReferralStatusIssued   = "issued"
	ReferralStatusJoined   = "joined"
	ReferralStatusCredited = "credited"
)

// Referral tracks one student inviting another. The reward (in paise) is
// credited once the referred student's enrollment becomes active.
type Referral struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ReferrerID   uint       `gorm:"not null;index" json:"referrer_id"`
	Referrer     User       `gorm:"foreignKey:ReferrerID" json:"-"`
	ReferredID   *uint      `gorm:"index" json:"referred_id,omitempty"`
	EnrollmentID *uint      `json:"enrollment_id,omitempty"`
	Code         string     `gorm:"size:16;uniqueIndex;not null" json:"code"`
	Status       string     `gorm:"size:16;not null;default:issued" json:"status"`
	RewardAmount int64      `json:"reward_amount"`
	CreditedAt   *time.Time `json:"credited_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

package dto

// EnrollmentRequest is a student's booking request for a room.
type EnrollmentRequest struct {
	PropertyID   uint   `json:"propertyId" validate:"required"`
	RoomID       uint   `json:"roomId" validate:"required"`
	Message      string `json:"message" validate:"max=1024"`
	ReferralCode string `json:"referralCode" validate:"omitempty,max=16"`
}

// EnrollmentDecisionRequest is an owner's verdict on a pending request.
type EnrollmentDecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

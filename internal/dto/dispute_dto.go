package dto

// DisputeCreateRequest raises a new dispute.
type DisputeCreateRequest struct {
	Title        string   `json:"title" validate:"required,max=255"`
	Description  string   `json:"description" validate:"required,max=4096"`
	PropertyID   *uint    `json:"propertyId"`
	InvoiceID    *uint    `json:"invoiceId"`
	EvidenceURLs []string `json:"evidenceUrls" validate:"max=10,dive,url"`
}

// DisputeResolveRequest closes a dispute with a verdict.
type DisputeResolveRequest struct {
	Status     string `json:"status" validate:"required,oneof=resolved escalated rejected"`
	Resolution string `json:"resolution" validate:"max=2048"`
}

package dto

// UploadResponse describes a stored property photo.
type UploadResponse struct {
	ID          uint   `json:"id"`
	FileName    string `json:"file_name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

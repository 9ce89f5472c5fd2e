package dto

// QRCodeResponse carries a student's scan token and its rendered QR image.
type QRCodeResponse struct {
	Token     string `json:"token"`
	QRDataURL string `json:"qrDataURL"`
}

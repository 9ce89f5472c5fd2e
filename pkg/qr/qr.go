// Package qr generates and parses the scan payloads encoded into student QR
// codes. The token inside a payload is a bearer credential: callers must not
// log it in plaintext.
package qr

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// PlatformMarker identifies payloads produced by this platform. A scanned
// payload whose marker differs is rejected as foreign.
const PlatformMarker = "rentease"

const payloadVersion = 1

// Payload is the JSON document encoded into a QR image.
type Payload struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
	Version  int    `json:"version"`
}

// GenerateToken mints a new scan token for a student. Tokens are derived from
// 16 bytes of CSPRNG output so collisions are practically unreachable; the
// unique index on users.qr_token turns the impossible case into a hard error.
func GenerateToken(studentID uint) (string, error) {
	random := make([]byte, 16)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%d-%s-%d", studentID, hex.EncodeToString(random), time.Now().UnixNano())))
	return hex.EncodeToString(sum[:]), nil
}

// EncodePayload wraps a token in the canonical QR payload document.
func EncodePayload(token string) (string, error) {
	data, err := json.Marshal(Payload{
		Token:    token,
		Platform: PlatformMarker,
		Version:  payloadVersion,
	})
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ParsePayload decodes a raw scanned string. It returns the embedded token
// and false whenever the payload is not a well-formed platform payload.
func ParsePayload(raw string) (string, bool) {
	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", false
	}
	if payload.Platform != PlatformMarker {
		return "", false
	}
	token := strings.TrimSpace(payload.Token)
	if token == "" {
		return "", false
	}

	return token, true
}

// ImageDataURL renders the payload for a token as a PNG data URL suitable for
// direct embedding in an <img> tag.
func ImageDataURL(token string, size int) (string, error) {
	if size <= 0 {
		size = 300
	}

	data, err := EncodePayload(token)
	if err != nil {
		return "", err
	}

	png, err := qrcode.Encode(data, qrcode.High, size)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr image: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func signFor(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	secret := "whsec_test"

	require.True(t, VerifyHMAC(body, signFor(t, body, secret), secret))
	require.False(t, VerifyHMAC(body, signFor(t, body, "other"), secret))
	require.False(t, VerifyHMAC(body, "", secret))
	require.False(t, VerifyHMAC(body, signFor(t, body, secret), ""))
}

func TestVerifyPaymentSignature(t *testing.T) {
	client := &Client{cfg: Config{KeySecret: "key_secret"}}

	sig := signFor(t, []byte("order_abc|pay_xyz"), "key_secret")
	require.True(t, client.VerifyPaymentSignature("order_abc", "pay_xyz", sig))
	require.False(t, client.VerifyPaymentSignature("order_abc", "pay_other", sig))
}

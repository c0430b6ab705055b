package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// VerifySignature checks an HMAC-SHA512 hex signature over the raw webhook
// body. Providers sign with the shared webhook secret; a mismatch means the
// delivery is rejected before any state is touched.
func VerifySignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	if _, err := mac.Write(payload); err != nil {
		return false
	}

	expectedSig := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

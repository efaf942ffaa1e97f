package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks a GitHub-style X-Hub-Signature-256 header against
// the raw payload bytes. The header must be "sha256=<hex>"; any other shape
// returns false without error. Comparison is constant time. A panic during
// computation is recovered and reported as a verification failure.
func VerifySignature(payload []byte, header, secret string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if secret == "" || !strings.HasPrefix(header, signaturePrefix) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(header))
}

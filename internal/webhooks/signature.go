package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries "sha256=<hex>", an HMAC-SHA256 of
// "<X-Event-Id>.<raw body>" keyed by the webhook secret.
const SignatureHeader = "X-Signature"

const signaturePrefix = "sha256="

func sign(secret, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(eventID))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

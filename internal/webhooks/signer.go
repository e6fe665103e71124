package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader is the request header carrying the payload signature.
const SignatureHeader = "X-Cal-Signature-256"

// NoSecretSentinel is sent in place of a signature when the subscriber has
// not configured a signing secret.
const NoSecretSentinel = "no-secret-provided"

// Sign computes the lowercase hex HMAC-SHA256 of the final body bytes keyed
// by the subscriber secret. The body must be exactly what the transport
// will send, so receivers can verify by HMAC-ing the raw request body.
// An empty secret yields the sentinel value.
func Sign(body string, secret string) string {
	if secret == "" {
		return NoSecretSentinel
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

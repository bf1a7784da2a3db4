package video

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// WebhookEvent is the part of a provider webhook payload the server reads.
type WebhookEvent struct {
	Event   string          `json:"event"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Name returns the event name regardless of which key the provider used.
func (e WebhookEvent) Name() string {
	if e.Event != "" {
		return e.Event
	}
	if e.Type != "" {
		return e.Type
	}
	return "unknown"
}

// VerifyWebhookSignature checks a hex HMAC-SHA256 signature of the raw body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

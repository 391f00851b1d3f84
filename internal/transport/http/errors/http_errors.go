package errors

import (
	"encoding/json"
	"net/http"
)

// APIError is the body of every non-2xx JSON response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e APIError) Error() string {
	return e.Code + ": " + e.Message
}

// RateLimitError accompanies 429 responses; RetryAfterSec mirrors the
// Retry-After header.
type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

// Write encodes payload as JSON. HTML escaping is off so share and QR URLs
// keep their ampersands readable.
func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

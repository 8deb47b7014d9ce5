package models

// RateLimitExceededResponse is the 429 body. RetryAfter mirrors the
// Retry-After header in seconds.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

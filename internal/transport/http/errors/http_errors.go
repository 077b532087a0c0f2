package errors

import (
	"encoding/json"
	"net/http"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreditError is the 402 payload; the client renders the deficit in
// its top-up prompt.
type CreditError struct {
	Code            string `json:"code"`
	Message         string `json:"message"`
	RequiredCredits int    `json:"required_credits"`
	CurrentCredits  int    `json:"current_credits"`
	Deficit         int    `json:"deficit"`
}

// CapError is the 409 payload for the active alert limit.
type CapError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
}

// FeatureError is the 403 payload for a tier-locked feature.
type FeatureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Feature string `json:"feature"`
	Plan    string `json:"plan"`
}

type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

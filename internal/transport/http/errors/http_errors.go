package errors

import (
	"encoding/json"
	"net/http"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
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

func Unprocessable(w http.ResponseWriter, code, message string) {
	Write(w, http.StatusUnprocessableEntity, APIError{Code: code, Message: message})
}

func Internal(w http.ResponseWriter) {
	Write(w, http.StatusInternalServerError, APIError{
		Code:    "INTERNAL",
		Message: "internal server error",
	})
}

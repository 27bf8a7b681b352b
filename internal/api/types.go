package api

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is returned for errors outside the order workflows
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ModifyOrderBody is the request body of POST /orders/{id}/modify.
type ModifyOrderBody struct {
	Symbol   string `json:"symbol"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Side     string `json:"side"`
}

// HealthResponse is served on /health.
type HealthResponse struct {
	Status      string `json:"status"`
	LogPoisoned bool   `json:"log_poisoned"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

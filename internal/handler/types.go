package handler

import "time"

// ChatRequest is the POST /chat request body
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse is the POST /chat response body
type ChatResponse struct {
	Response string `json:"response"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	MailBackend  string    `json:"mail_backend"`
	CacheEntries int       `json:"cache_entries"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

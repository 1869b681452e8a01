// Package handler contains the HTTP request handlers.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, a function with the http.HandlerFunc signature, which chi
// accepts directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, query, body)
// 2. Call the service layer with the caller's auth.Identity
// 3. Write the response envelope (status code, headers, body)
//
// Handlers contain no business rules; they are the glue between HTTP and the
// services.
package handler

import (
	"net/http"
	"time"
)

// Version is reported by the welcome route.
const Version = "1.0.0"

type welcomeResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HandleWelcome describes the API.
//
// HTTP: GET /
func HandleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, welcomeResponse{
		Success: true,
		Message: "Welcome to the eventhub API",
		Version: Version,
		Endpoints: map[string]string{
			"auth":          "/api/auth",
			"users":         "/api/users",
			"events":        "/api/events",
			"announcements": "/api/announcements",
		},
	})
}

type healthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleHealth is the liveness probe.
//
// HTTP: GET /health
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Success:   true,
		Message:   "Server is running",
		Timestamp: time.Now().UTC(),
	})
}

// HandleNotFound answers unknown routes with the standard envelope.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found"})
}

// HandleMethodNotAllowed answers known routes hit with the wrong method.
func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
}

package handler

// RESPONSE HELPERS:
// Every response from the API uses the same envelope:
//
//	success: {"success": true, "data": ...}            (plus count/message where useful)
//	failure: {"success": false, "error": "event not found with id abc"}
//
// The frontend can always branch on "success" first, whatever the status.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/eventhub/internal/apperror"
)

// maxBodyBytes caps every JSON request body. The largest legitimate body is
// an event with a 5000-character description.
const maxBodyBytes = 64 << 10

// Envelope is the success shape. Optional fields are omitted when empty.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Token   string `json:"token,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the failure shape returned by every endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be written before the body; once Encode starts
// writing, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, so all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// writeList adds the element count next to the data.
func writeList[T any](w http.ResponseWriter, items []T) {
	n := len(items)
	writeJSON(w, http.StatusOK, Envelope{Success: true, Count: &n, Data: items})
}

// writeDeleted mirrors the `data: {}` shape clients already expect for deletes.
func writeDeleted(w http.ResponseWriter) {
	writeData(w, http.StatusOK, struct{}{})
}

// writeError maps a domain error to its HTTP status.
//
// The service layer never knows about status codes; it returns
// *apperror.AppError values and this function translates them. Anything
// that is not an AppError is an infrastructure failure: it is logged with
// full detail and the client only gets a generic message, because the raw
// error may contain SQL, file paths or connection strings.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.StatusCode(), ErrorResponse{
			Error: appErr.Message,
			Field: appErr.Field,
		})
		return
	}

	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "an internal error occurred",
	})
}

// decodeJSON reads a single JSON object from the body into dst. Malformed
// or oversized bodies become a validation error, so they map to 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("", fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit))
		}
		return apperror.ValidationFailed("", "invalid JSON body")
	}
	return nil
}

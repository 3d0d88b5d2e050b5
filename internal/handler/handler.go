// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/larder/larder/internal/handler/dto"
)

// Error codes carried in dto.ErrorResponse.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternal             = "INTERNAL_ERROR"
)

const (
	msgInternalError = "Internal server error"
	msgBodyTooLarge  = "Request body too large"
)

// Handler serves router fallbacks.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, CodeNotFound, "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
}

// WriteError writes an error response. Middleware shares it so every error
// body has the same shape.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Message: message,
		Code:    code,
	})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.MessageResponse{Message: message})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing useful can be done with the error.
	_ = json.NewEncoder(w).Encode(data)
}

// writeDecodeError reports a body that could not be decoded. Bodies cut off
// at the size limit get 413; anything else gets 400 with message.
func writeDecodeError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, dto.ErrBodyTooLarge) {
		WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, msgBodyTooLarge)
		return
	}
	WriteError(w, http.StatusBadRequest, CodeValidation, message)
}

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/handler/dto"
	"github.com/larder/larder/internal/service"
)

const msgWeakPassword = "Password must be at least 8 characters long and include at least one uppercase letter, one lowercase letter, one digit, and one special character."

// AuthHandler handles registration, login, logout and the protected check route.
type AuthHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	input, err := dto.DecodeRegisterRequest(r.Body)
	if err != nil {
		writeDecodeError(w, err, "Request body must not be empty")
		return
	}

	user, err := h.svc.Register(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RegisterResponse{
		Message: "User registered successfully",
		User:    dto.ToUserResponse(user),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeLoginRequest(r.Body)
	if err != nil {
		writeDecodeError(w, err, "Request body must not be empty")
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLoginResponse("Login successful", result.Token))
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac := auth.AuthFromContext(r.Context())
	if ac == nil {
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Missing Authorization header")
		return
	}

	if err := h.svc.Logout(r.Context(), ac); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// Protected handles GET /auth/protected.
func (h *AuthHandler) Protected(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Profile(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("Hello, %s!", user.Username))
}

// handleServiceError maps service errors to HTTP responses.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrMissingUsername):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Missing username")
	case errors.Is(err, service.ErrMissingEmail):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Missing email")
	case errors.Is(err, service.ErrMissingPassword):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Missing password")
	case errors.Is(err, service.ErrUsernameExists):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Username already exists")
	case errors.Is(err, service.ErrEmailExists):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Email already exists")
	case errors.Is(err, service.ErrWeakPassword):
		WriteError(w, http.StatusBadRequest, CodeValidation, msgWeakPassword)
	case errors.Is(err, service.ErrMissingCredentials):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Missing email or password")
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrUserNotFound):
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Token has expired or is invalid")
	default:
		h.logger.Error("internal_error", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, CodeInternal, msgInternalError)
	}
}

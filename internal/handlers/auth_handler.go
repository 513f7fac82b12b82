package handlers

import (
	"net/http"

	"bookstore/internal/models"
	"bookstore/internal/services"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	userService *services.UserService
	authService *services.AuthService
	logger      zerolog.Logger
}

func NewAuthHandler(userService *services.UserService, authService *services.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		logger:      logger,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, false, "Login successful.")
}

// AdminLogin only accepts administrator accounts.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, true, "Admin login successful.")
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, adminOnly bool, message string) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body.")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), &req, adminOnly)
	if err != nil {
		serviceError(w, r, h.logger, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "token_generation_failed", "Failed to generate token.")
		return
	}

	respondWithJSON(w, http.StatusOK, models.MessageResponse{
		Message: message,
		Token:   token,
	})
}

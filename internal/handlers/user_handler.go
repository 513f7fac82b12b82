package handlers

import (
	"net/http"

	"bookstore/internal/models"
	"bookstore/internal/services"

	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService *services.UserService
	logger      zerolog.Logger
}

func NewUserHandler(userService *services.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		serviceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body.")
		return
	}
	req.UserType = models.UserTypeRegular

	if err := h.userService.Register(r.Context(), &req); err != nil {
		serviceError(w, r, h.logger, err)
		return
	}
	respondWithMessage(w, http.StatusCreated, "User registered successfully.")
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-bot/services"
)

type AuthHandler struct {
	errorReporter
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		errorReporter: errorReporter{logger: logger},
		authService:   authService,
	}
}

// Login обрабатывает POST /api/auth/login и выдаёт JWT администратору.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput

	err := readJSON(w, r, &input)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	if input.UserID == 0 || input.Password == "" {
		h.badRequestResponse(w, r, errors.New("user_id and password are required"))
		return
	}

	token, err := h.authService.Login(r.Context(), input)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"token": token,
	}

	err = writeJSON(w, http.StatusOK, response, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

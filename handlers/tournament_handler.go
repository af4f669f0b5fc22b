package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/services"
)

type TournamentHandler struct {
	errorReporter
	tournamentService services.TournamentService
	authorizer        *services.Authorizer
	now               func() time.Time
}

func NewTournamentHandler(ts services.TournamentService, authorizer *services.Authorizer, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{
		errorReporter:     errorReporter{logger: logger},
		tournamentService: ts,
		authorizer:        authorizer,
		now:               time.Now,
	}
}

// ListActiveHandler обрабатывает GET /api/tournaments/active
func (h *TournamentHandler) ListActiveHandler(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournamentService.ListActive(r.Context(), h.now())
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if tournaments == nil {
		tournaments = []models.Tournament{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /api/tournaments/{tournamentID}
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Get(r.Context(), id)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// ParticipantsHandler обрабатывает GET /api/admin/tournaments/{tournamentID}/participants
func (h *TournamentHandler) ParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := currentAdmin(r, h.authorizer); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Get(r.Context(), id)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	participants, err := h.tournamentService.Participants(r.Context(), tournament)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if participants == nil {
		participants = []models.User{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

type updateStatusInput struct {
	Status string `json:"status"`
}

// UpdateStatusHandler обрабатывает PATCH /api/admin/tournaments/{tournamentID}/status
func (h *TournamentHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	admin, err := currentAdmin(r, h.authorizer)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	var input updateStatusInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Status == "" {
		h.badRequestResponse(w, r, errors.New("status is required"))
		return
	}

	status, err := models.ParseTournamentStatus(input.Status)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, fmt.Errorf("%w: %v", services.ErrInvalidStatus, err))
		return
	}

	tournament, err := h.tournamentService.TransitionStatus(r.Context(), admin, id, status)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

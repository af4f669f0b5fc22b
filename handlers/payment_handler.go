package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Dosada05/tournament-bot/services"
)

const maxProofSize = 10 << 20

type PaymentHandler struct {
	errorReporter
	paymentService services.PaymentService
	authorizer     *services.Authorizer
}

func NewPaymentHandler(ps services.PaymentService, authorizer *services.Authorizer, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		errorReporter:  errorReporter{logger: logger},
		paymentService: ps,
		authorizer:     authorizer,
	}
}

// UploadProof обрабатывает POST /webhook/payments/{paymentID}/proof.
// Форма: поле user_id и файл proof.
func (h *PaymentHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	paymentID, err := getIDFromURL(r, "paymentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProofSize+1024)
	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		h.badRequestResponse(w, r, errors.New("invalid multipart form or file too large"))
		return
	}

	userID, err := strconv.ParseInt(r.FormValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		h.badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	file, header, err := r.FormFile("proof")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		h.badRequestResponse(w, r, errors.New("content type required"))
		return
	}

	payment, err := h.paymentService.AttachProof(r.Context(), paymentID, userID, contentType, file)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"payment": payment}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

type confirmPaymentInput struct {
	UserID       int64  `json:"user_id"`
	TournamentID *int64 `json:"tournament_id,omitempty"`
}

// Confirm обрабатывает POST /api/admin/payments/confirm.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	admin, err := currentAdmin(r, h.authorizer)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	var input confirmPaymentInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		h.badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	result, err := h.paymentService.Confirm(r.Context(), admin, input.UserID, input.TournamentID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"payment":           result.Payment,
		"already_confirmed": result.AlreadyConfirmed,
		"referral_rewarded": result.Referral != nil,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

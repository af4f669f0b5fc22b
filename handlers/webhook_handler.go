package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-bot/bot"
)

// EventHandler is the bot core as seen by the transport.
type EventHandler interface {
	Handle(ctx context.Context, ev bot.Event) []bot.Reply
}

type WebhookHandler struct {
	errorReporter
	events EventHandler
}

func NewWebhookHandler(events EventHandler, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		errorReporter: errorReporter{logger: logger},
		events:        events,
	}
}

// Events обрабатывает POST /webhook/events: одно событие чата на запрос,
// ответы для того же чата возвращаются в теле.
func (h *WebhookHandler) Events(w http.ResponseWriter, r *http.Request) {
	var ev bot.Event
	if err := readLenientJSON(w, r, &ev); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	if ev.UserID <= 0 {
		h.badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	replies := h.events.Handle(r.Context(), ev)
	if replies == nil {
		replies = []bot.Reply{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"replies": replies}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

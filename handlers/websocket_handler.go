package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-bot/notify"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Доступ уже проверен секретом вебхука, Origin не важен.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub    *notify.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *notify.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// ServeWs подключает чат-шлюз пользователя к хабу уведомлений.
// Клиент подключается к /ws/users/{userID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой, здесь только логируем.
		h.logger.Warn("websocket upgrade failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}

	client := notify.NewClient(h.hub, conn, userID)
	if !h.hub.Attach(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Debug("websocket client registered", slog.Int64("user_id", userID), slog.String("room", client.Room))
}

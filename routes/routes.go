package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/tournament-bot/handlers"
	"github.com/Dosada05/tournament-bot/middleware"
	"github.com/Dosada05/tournament-bot/services"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

// Secrets are the shared keys guarding the two surfaces.
type Secrets struct {
	JWT     []byte
	Webhook string
}

func SetupRoutes(
	router chi.Router,
	secrets Secrets,
	authHandler *handlers.AuthHandler,
	webhookHandler *handlers.WebhookHandler,
	paymentHandler *handlers.PaymentHandler,
	tournamentHandler *handlers.TournamentHandler,
	reportHandler *handlers.ReportHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Чат-шлюз: события, скриншоты оплат и канал исходящих сообщений.
	router.Group(func(r chi.Router) {
		r.Use(middleware.WebhookSecret(secrets.Webhook))

		r.With(chiMiddleware.Timeout(30*time.Second)).Post("/webhook/events", webhookHandler.Events)
		r.Post("/webhook/payments/{paymentID}/proof", paymentHandler.UploadProof)
		r.Get("/ws/users/{userID}", webSocketHandler.ServeWs)
	})

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Get("/tournaments/active", tournamentHandler.ListActiveHandler)
		r.Get("/tournaments/{tournamentID}", tournamentHandler.GetByIDHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Authenticate(secrets.JWT))
			r.Use(middleware.Authorize(services.RoleAdmin))

			r.Get("/tournaments/{tournamentID}/participants", tournamentHandler.ParticipantsHandler)
			r.Patch("/tournaments/{tournamentID}/status", tournamentHandler.UpdateStatusHandler)
			r.Post("/payments/confirm", paymentHandler.Confirm)
			r.Get("/reports/{period}", reportHandler.GetReport)
		})
	})
}

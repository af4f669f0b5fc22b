package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-bot/announce"
	"github.com/Dosada05/tournament-bot/bot"
	"github.com/Dosada05/tournament-bot/config"
	"github.com/Dosada05/tournament-bot/db"
	"github.com/Dosada05/tournament-bot/handlers"
	"github.com/Dosada05/tournament-bot/notify"
	"github.com/Dosada05/tournament-bot/repositories"
	api "github.com/Dosada05/tournament-bot/routes"
	"github.com/Dosada05/tournament-bot/services"
	"github.com/Dosada05/tournament-bot/sessions"
	"github.com/Dosada05/tournament-bot/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
)

const (
	sweepInterval         = time.Minute
	broadcastConcurrency  = 8
	gracefulShutdownLimit = 15 * time.Second
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Int("admins", len(cfg.AdminIDs)),
		slog.String("timezone", cfg.Timezone))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, cfg.StoreTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	if err := db.Migrate(dbConn); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("database ready")

	// Хранилище скриншотов оплаты (Cloudflare R2) подключается только при полной настройке.
	var uploader storage.FileUploader
	if cfg.ProofUploadEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("payment proof upload disabled")
	}

	// Хранилище сессий мастеров
	store, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sessionManager := sessions.NewManager(store, sessions.DefaultWizards(sessions.Options{
		Maps:      cfg.Maps,
		UTRLength: cfg.UTRLength,
		Location:  cfg.Location,
	}), cfg.SessionStepTimeout, logger)

	scheduler, err := startSweeper(sessionManager, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to stop scheduler", slog.Any("error", err))
		}
	}()

	// Исходящие сообщения
	hub := notify.NewHub(logger)
	go hub.Run(ctx)
	broadcaster := notify.NewBroadcaster(hub, cfg.NotifyTimeout, broadcastConcurrency, logger)
	logger.Info("notification hub started")

	var generator announce.Generator
	if cfg.AIAPIKey != "" {
		generator = announce.NewChatClient(cfg.AIAPIURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout)
		logger.Info("ai announcements enabled", slog.String("model", cfg.AIModel))
	}
	announcer := announce.New(generator, cfg.AITimeout, cfg.Location, logger)

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	paymentRepo := repositories.NewPostgresPaymentRepository(dbConn)
	referralRepo := repositories.NewPostgresReferralRepository(dbConn)

	// Инициализация сервисов
	authorizer := services.NewAuthorizer(cfg.AdminIDs)
	authService := services.NewAuthService(authorizer, cfg.AdminPasswordHash, cfg.JWTSecretKey)
	userService := services.NewUserService(userRepo, cfg.StoreTimeout, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, userRepo, cfg.ActivePageSize, cfg.StoreTimeout, logger)
	referralService := services.NewReferralService(referralRepo, userRepo, cfg.ReferralReward, cfg.FreeEntryFee, cfg.StoreTimeout, logger)
	paymentService := services.NewPaymentService(paymentRepo, tournamentRepo, referralService, uploader, cfg.UTRLength, cfg.StoreTimeout, logger)
	reportService := services.NewReportService(paymentRepo, cfg.Location, cfg.StoreTimeout)
	logger.Info("services initialized")

	dispatcher := bot.NewDispatcher(bot.Deps{
		Users:       userService,
		Tournaments: tournamentService,
		Payments:    paymentService,
		Referrals:   referralService,
		Reports:     reportService,
		Authorizer:  authorizer,
		Sessions:    sessionManager,
		Announcer:   announcer,
		Notifier:    broadcaster,
	}, bot.Settings{
		PaymentUPIID:   cfg.PaymentUPIID,
		ReferralReward: cfg.ReferralReward,
		UTRLength:      cfg.UTRLength,
		Location:       cfg.Location,
	}, logger)

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, logger)
	webhookHandler := handlers.NewWebhookHandler(dispatcher, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, authorizer, logger)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, authorizer, logger)
	reportHandler := handlers.NewReportHandler(reportService, authorizer, logger)
	webSocketHandler := handlers.NewWebSocketHandler(hub, logger)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Secrets{JWT: []byte(cfg.JWTSecretKey), Webhook: cfg.WebhookSecret},
		authHandler,
		webhookHandler,
		paymentHandler,
		tournamentHandler,
		reportHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	// WriteTimeout не задаём: websocket-соединения живут долго.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), gracefulShutdownLimit)
	defer cancelShutdown()

	logger.Info("shutting down server", slog.Duration("timeout", gracefulShutdownLimit))
	if err := server.Shutdown(shutdownCtx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

// newSessionStore выбирает Redis при заданном REDIS_URL, иначе память процесса.
func newSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sessions.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("using in-memory session store")
		return sessions.NewMemoryStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("using redis session store", slog.String("addr", opts.Addr))

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}
	return sessions.NewRedisStore(client, cfg.SessionStepTimeout), closeFn, nil
}

// startSweeper периодически удаляет просроченные сессии из памяти.
// Для Redis Sweep ничего не делает: ключи истекают по TTL.
func startSweeper(manager *sessions.Manager, logger *slog.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepInterval/2)
			defer cancel()

			removed, err := manager.Sweep(ctx)
			if err != nil {
				logger.Error("session sweep failed", slog.Any("error", err))
				return
			}
			if removed > 0 {
				logger.Info("expired sessions removed", slog.Int("count", removed))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	sched.Start()
	logger.Info("session sweeper started", slog.Duration("interval", sweepInterval))
	return sched, nil
}

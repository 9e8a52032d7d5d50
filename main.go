package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	api "fled-backend/cmd/api"
	authUsecase "fled-backend/internal/auth/usecase"
	"fled-backend/internal/auth/verifier"
	notifRepo "fled-backend/internal/notification/repository"
	"fled-backend/internal/notification/trigger"
	notifUsecase "fled-backend/internal/notification/usecase"
	schoolRepo "fled-backend/internal/school/repository"
	"fled-backend/pkg/config"
	"fled-backend/pkg/database"
	"fled-backend/pkg/fcm"
	"fled-backend/pkg/firebaseapp"
	appLogger "fled-backend/pkg/logger"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"
)

type repositories struct {
	students  schoolRepo.StudentRepository
	parents   schoolRepo.ParentRepository
	users     schoolRepo.UserRepository
	devices   schoolRepo.DeviceRepository
	documents schoolRepo.DocumentRepository
	close     func() error
}

func main() {
	// Load configuration
	cfg := config.Load()
	logger := appLogger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Firebase is needed unless both storage and auth run locally
	var app *firebase.App
	if cfg.StoreDriver != "memory" || cfg.AuthProvider != "jwt" {
		var err error
		app, err = firebaseapp.New(ctx, cfg.GoogleProjectID, cfg.FirebaseCredentials)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize Firebase")
		}
	}

	repos, err := newRepositories(ctx, cfg, app, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer repos.close()

	// Push provider
	var sender notifUsecase.Sender
	if app != nil {
		fcmClient, err := fcm.NewClient(ctx, app, cfg.ProviderTimeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize FCM client")
		}
		sender = fcmClient
	} else {
		logger.Warn().Msg("no Firebase app, push notifications are logged only")
		sender = fcm.NewLogSender(logger)
	}

	// Dispatch audit log
	var auditRepo notifRepo.DispatchLogRepository
	switch {
	case cfg.DatabaseURL != "":
		db, err := database.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		auditRepo, err = notifRepo.NewGormDispatchLogRepository(db)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	case cfg.StoreDriver == "memory":
		logger.Info().Int("max_rows", notifRepo.DefaultMemoryLogSize).Msg("dispatch log kept in memory")
		auditRepo = notifRepo.NewMemoryDispatchLogRepository(notifRepo.DefaultMemoryLogSize)
	default:
		logger.Info().Msg("DATABASE_URL not set, dispatch log disabled")
	}

	// Use cases (dependency injection)
	sanitizer := notifUsecase.NewTokenSanitizer(repos.devices, repos.users, repos.parents, logger)
	resolver := notifUsecase.NewTokenResolver(repos.students, repos.parents, logger)
	dispatcher := notifUsecase.NewDispatcher(sender, sanitizer, cfg.FCMBatchRPS, logger)
	notificationUc := notifUsecase.NewNotificationUsecase(resolver, dispatcher, sanitizer, repos.documents, auditRepo, logger)

	tokenVerifier, err := newVerifier(ctx, cfg, app)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token verifier")
	}
	authUc := authUsecase.NewAuthUsecase(tokenVerifier, repos.users, notificationUc, cfg.AuthRequiredRole, logger)

	// Event trigger (Pub/Sub), only when a topic is configured
	if cfg.GoogleProjectID != "" && cfg.PubSubTopic != "" {
		topicName := cfg.PubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		svc, err := trigger.NewService(ctx, cfg.GoogleProjectID, topicName, cfg.PubSubSubscription, cfg.FirebaseCredentials, notificationUc, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialize event trigger")
		} else {
			defer svc.Close()
			go func() {
				if err := svc.Start(ctx); err != nil {
					logger.Error().Err(err).Msg("event trigger stopped")
				}
			}()
		}
	} else {
		logger.Warn().Msg("PUBSUB_TOPIC not configured, event trigger disabled")
	}

	handler := api.NewHandler(authUc, notificationUc, logger)
	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func newRepositories(ctx context.Context, cfg *config.Config, app *firebase.App, logger zerolog.Logger) (*repositories, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn().Msg("using in-memory store, data is not persisted")
		store := schoolRepo.NewMemoryStore()
		return &repositories{
			students:  schoolRepo.NewMemoryStudentRepository(store),
			parents:   schoolRepo.NewMemoryParentRepository(store),
			users:     schoolRepo.NewMemoryUserRepository(store),
			devices:   schoolRepo.NewMemoryDeviceRepository(store),
			documents: schoolRepo.NewMemoryDocumentRepository(store),
			close:     func() error { return nil },
		}, nil
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	return &repositories{
		students:  schoolRepo.NewFirestoreStudentRepository(client),
		parents:   schoolRepo.NewFirestoreParentRepository(client),
		users:     schoolRepo.NewFirestoreUserRepository(client),
		devices:   schoolRepo.NewFirestoreDeviceRepository(client),
		documents: schoolRepo.NewFirestoreDocumentRepository(client),
		close:     client.Close,
	}, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, app *firebase.App) (verifier.Verifier, error) {
	if cfg.AuthProvider == "jwt" {
		return verifier.NewJWTVerifier(cfg.JWTSecret)
	}
	return verifier.NewFirebaseVerifier(ctx, app)
}

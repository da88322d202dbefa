package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rosterline/roster-api/internal/config"
	"github.com/rosterline/roster-api/internal/handlers"
	"github.com/rosterline/roster-api/internal/identity"
	"github.com/rosterline/roster-api/internal/invite"
	"github.com/rosterline/roster-api/internal/middleware"
	"github.com/rosterline/roster-api/internal/migration"
	"github.com/rosterline/roster-api/internal/notification"
	"github.com/rosterline/roster-api/internal/repository"
	"github.com/rosterline/roster-api/internal/roster"
	"github.com/rosterline/roster-api/internal/routes"
	"github.com/rosterline/roster-api/internal/temporal"
	"github.com/rosterline/roster-api/internal/temporal/activities"
	"github.com/rosterline/roster-api/internal/temporal/workflows"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	temporalClient tc.Client
	logger         zerolog.Logger
	notifications  notification.Service
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	temporalLogger := temporal.NewZerologAdapter(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Initialize notification service with an optional email channel.
	notificationRepo := repository.NewNotificationRepository(db)
	var notifiers []notification.Notifier
	if len(cfg.Email.AlertRecipients) > 0 {
		emailNotifier, err := notification.NewEmailNotifier(cfg.Email, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure email notifier")
		}
		notifiers = append(notifiers, emailNotifier)
	}
	notificationService := notification.NewService(notificationRepo, logger, notifiers...)

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		Logger: temporalLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	// Create the application instance.
	app := &application{
		config:         cfg,
		db:             db,
		temporalClient: temporalClient,
		logger:         logger,
		notifications:  notificationService,
	}

	// Build the services shared by the HTTP layer and the Temporal worker.
	identities := identity.NewPostgresProvider(db)
	inviteRepo := repository.NewInviteRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	memberRepo := repository.NewMemberRepository(db)

	mintScheduler := temporal.NewMintScheduler(temporalClient)
	inviteService := invite.NewService(
		inviteRepo,
		accountRepo,
		identities,
		mintScheduler,
		notificationService,
		cfg.Invite.TokenBytes,
		cfg.Invite.TTL(),
		logger,
	)
	rosterService := roster.NewService(accountRepo, memberRepo, notificationService, logger)

	// Start the Temporal worker in a separate goroutine.
	temporalWorker := app.startTemporalWorker(inviteService, accountRepo, logger)

	// Initialize the HTTP router and middleware.
	router := app.initRouter(identities, inviteService, rosterService, logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(
	identities identity.Provider,
	inviteService *invite.Service,
	rosterService *roster.Service,
	logger zerolog.Logger,
) http.Handler {
	userRepo := repository.NewUserRepository(app.db)

	authHandler := handlers.NewAuthHandler(identities, userRepo, app.config.JWTSecret, logger)
	accountHandler := handlers.NewAccountHandler(rosterService, logger)
	memberHandler := handlers.NewMemberHandler(rosterService, logger)
	inviteHandler := handlers.NewInviteHandler(inviteService, logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, logger)

	return routes.NewRouter(authHandler, accountHandler, memberHandler, inviteHandler, notificationHandler)
}

func (app *application) startTemporalWorker(
	inviteService *invite.Service,
	accountRepo repository.AccountRepository,
	logger zerolog.Logger,
) worker.Worker {
	inviteMailer, err := notification.NewSMTPInviteMailer(app.config.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure invite mailer")
	}

	activityImpl := &activities.Activities{
		Invites:           inviteService,
		Accounts:          accountRepo,
		Mailer:            inviteMailer,
		Events:            app.notifications,
		InviteURLTemplate: app.config.Invite.URLTemplate,
	}

	w := worker.New(app.temporalClient, temporal.TaskQueueName, worker.Options{})

	w.RegisterWorkflow(workflows.InviteWorkflow)
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/kaibiganhq/kaibigan-api/internal/config"
	"github.com/kaibiganhq/kaibigan-api/internal/handler"
	"github.com/kaibiganhq/kaibigan-api/internal/llm"
	"github.com/kaibiganhq/kaibigan-api/internal/mailer"
	"github.com/kaibiganhq/kaibigan-api/internal/provider"
	"github.com/kaibiganhq/kaibigan-api/internal/repository"
	"github.com/kaibiganhq/kaibigan-api/internal/session"
	"github.com/kaibiganhq/kaibigan-api/internal/usecase"
)

const sessionIssuer = "kaibigan-api"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "kaibigan-api").Logger()

	cfg := config.Load(&logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mongodb")
	}

	db := client.Database(cfg.MongoDatabase)

	userRepo := repository.NewUserMongoRepository(ctx, &logger, db)
	otpRepo := repository.NewOtpMongoRepository(ctx, &logger, db)
	turnRepo := repository.NewChatTurnMongoRepository(ctx, &logger, db)

	mail := mailer.NewMailer(&logger)
	completer := llm.NewClient(cfg.CompletionAPIURL, cfg.CompletionAPIKey, cfg.CompletionModel, cfg.CompletionTimeout)
	google := provider.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	sessions := session.NewManager(cfg.SessionSecret, sessionIssuer, cfg.SessionTTL, cfg.CookieSecure)

	otpUC := usecase.NewOTPUsecase(otpRepo, userRepo, mail)
	authUC := usecase.NewAuthUsecase(userRepo, otpUC)
	chatUC := usecase.NewChatUsecase(turnRepo, completer, &logger)

	h := handler.New(&logger, sessions, authUC, otpUC, chatUC, google)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()

	if err := server.Shutdown(drainCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

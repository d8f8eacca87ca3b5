// cmd/api is the application entry point. It wires the store, the identity
// gateway, the services, and the HTTP layer, then serves until interrupted.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventcheckin/config"
	"eventcheckin/internal/adapters/auth"
	"eventcheckin/internal/adapters/email"
	"eventcheckin/internal/adapters/idp"
	deliveryhttp "eventcheckin/internal/delivery/http"
	"eventcheckin/internal/delivery/http/controllers"
	"eventcheckin/internal/delivery/http/middleware"
	"eventcheckin/internal/domain"
	"eventcheckin/internal/repository/memory"
	"eventcheckin/internal/repository/postgres"
	"eventcheckin/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	var (
		members domain.MemberRepository
		flows   domain.AuthFlowRepository
	)
	switch cfg.StoreProvider {
	case "memory":
		members = memory.NewMemberRepository()
		flows = memory.NewAuthFlowRepository()
		logger.Info("using in-memory store")
	default:
		db, err := sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			logger.Error("failed to open database", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Error("failed to reach database", "err", err)
			os.Exit(1)
		}
		members = postgres.NewMemberRepository(db)
		flows = postgres.NewAuthFlowRepository(db)
		logger.Info("connected to postgres")
	}

	gateway := idp.NewGateway(idp.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		JWKSURL:      cfg.OAuth.JWKSURL,
		Issuer:       cfg.OAuth.Issuer,
		Audience:     cfg.OAuth.Audience,
	})
	tokenIssuer, tokenVerifier := auth.NewJWTTokens(cfg.JWTSecret)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.SESRegion,
			AccessKeyID:     cfg.Email.SESAccessKey,
			SecretAccessKey: cfg.Email.SESSecretAccess,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	reconciler := services.NewReconciler(members)
	sessionService := services.NewSessionService(gateway, reconciler, members, flows, tokenIssuer, cfg.JWTExpiry, cfg.FlowTTL, logger)
	rosterService := services.NewRosterService(members, emailService, logger)

	// Settle any sign-in flows left pending by an earlier run.
	if err := sessionService.ResumeIfPending(context.Background()); err != nil {
		logger.Error("failed to resume pending sign-in flows", "err", err)
		os.Exit(1)
	}

	authController := controllers.NewAuthController(logger, sessionService)
	memberController := controllers.NewMemberController(logger, rosterService)

	mux := deliveryhttp.NewRouter(authController, memberController, tokenVerifier, members, logger)
	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

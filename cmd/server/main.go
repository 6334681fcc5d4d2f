package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"callerlens/internal/config"
	contacthandler "callerlens/internal/contact/handler"
	contactrepo "callerlens/internal/contact/repository"
	contactservice "callerlens/internal/contact/service"
	"callerlens/internal/db"
	healthhandler "callerlens/internal/health/handler"
	searchhandler "callerlens/internal/search/handler"
	searchservice "callerlens/internal/search/service"
	"callerlens/internal/security"
	"callerlens/internal/server"
	spamhandler "callerlens/internal/spam/handler"
	spamrepo "callerlens/internal/spam/repository"
	spamservice "callerlens/internal/spam/service"
	"callerlens/internal/telemetry/otel"
	userhandler "callerlens/internal/user/handler"
	userrepo "callerlens/internal/user/repository"
	userservice "callerlens/internal/user/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "callerlens", cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal("telemetry setup failed", zap.Error(err))
	}
	providers.SetGlobal()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("jwt private key", zap.Error(err))
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("jwt public key", zap.Error(err))
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(database)
	contacts := contactrepo.NewPostgresRepository(database)
	reports := spamrepo.NewPostgresRepository(database)

	authSvc := userservice.NewAuthService(users, hasher, tokens)
	spamSvc := spamservice.NewService(reports)
	contactSvc := contactservice.NewService(contacts, users, spamSvc)
	searchSvc := searchservice.NewService(users, contacts, spamSvc)

	router := server.NewRouter(server.Deps{
		Logger:   logger,
		Tokens:   tokens,
		Users:    users,
		User:     userhandler.NewHTTP(authSvc, logger),
		Contacts: contacthandler.NewHTTP(contactSvc, logger),
		Spam:     spamhandler.NewHTTP(spamSvc, logger),
		Search:   searchhandler.NewHTTP(searchSvc, logger),
		Health:   healthhandler.NewHTTP(database),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", zap.Error(err))
	}
	logger.Info("http server stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Command portal runs the customer service portal API server.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/enerconnect/portal/internal/app"
	"github.com/enerconnect/portal/internal/app/storage/postgres"
	"github.com/enerconnect/portal/internal/auth"
	"github.com/enerconnect/portal/internal/config"
	"github.com/enerconnect/portal/internal/platform/migrations"
	"github.com/enerconnect/portal/pkg/logger"
)

func main() {
	log := logger.New("portal")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Error("database unreachable")
		os.Exit(1)
	}
	if err := migrations.Apply(ctx, db); err != nil {
		log.WithError(err).Error("failed to apply migrations")
		os.Exit(1)
	}

	store := postgres.New(db)
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	portal := app.New(app.Config{
		Stores: app.Stores{
			Users:        store,
			Applications: store,
			Connections:  store,
			Evacuations:  store,
		},
		Tokens:         tokens,
		Logger:         log,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      portal.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("portal listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

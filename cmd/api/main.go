package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josiahbryan/userhub/internal/config"
	"github.com/josiahbryan/userhub/internal/db"
	httpx "github.com/josiahbryan/userhub/internal/http"
	"github.com/josiahbryan/userhub/internal/observability"
	mongorepo "github.com/josiahbryan/userhub/internal/repo/mongo"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing is opt-in: no endpoint, no exporter
	if cfg.OTLPEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)

		shutdownTracer, err := observability.InitTracer(ctx, "userhub", cfg.OTLPEndpoint)
		cancel()

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()

			_ = shutdownTracer(ctx)
		}()
	}

	client, err := db.Connect(cfg.MongoURL)

	if err != nil {
		log.Error("mongo connect failed", "err", err)
		os.Exit(1)
	}

	defer func() {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()

		_ = client.Disconnect(ctx)
	}()

	database := client.Database(cfg.DBName)

	// unique email index before serving traffic
	{
		ctx, cancel := config.WithTimeout(10 * time.Second)

		usersRepo := mongorepo.NewUsersRepo(database, nil)

		if err := usersRepo.EnsureIndexes(ctx); err != nil {
			cancel()
			log.Error("index creation failed", "err", err)
			os.Exit(1)
		}

		if err := db.EnsureAdminUser(ctx, usersRepo, cfg); err != nil {
			cancel()
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}

		cancel()
	}

	router := httpx.NewRouter(log, database, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"volunteerhub.org/internal/activity"
	"volunteerhub.org/internal/audit"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/config"
	"volunteerhub.org/internal/httpapi"
	"volunteerhub.org/internal/obs"
	"volunteerhub.org/internal/settings"
	"volunteerhub.org/internal/store/memory"
	"volunteerhub.org/internal/store/pg"
	"volunteerhub.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

type stores interface {
	auth.Store
	activity.Store
	settings.Store
	audit.Store
}

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.AuthSecret == "" {
		log.Fatal("VHUB_AUTH_SECRET must be set")
	}

	var (
		store stores
		db    *sql.DB
	)
	if cfg.PostgresDSN != "" {
		pgStore, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		db = pgStore.DB()
	} else {
		log.Println("VHUB_PG_DSN not set, using in-memory store")
		store = memory.New()
	}

	changes := stream.New()

	authSvc, err := auth.NewService(store, auth.WithAccessTTL(cfg.AccessTTL))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	activities, err := activity.NewService(store, changes)
	if err != nil {
		log.Fatalf("activity service: %v", err)
	}
	settingsSvc, err := settings.NewService(store, changes)
	if err != nil {
		log.Fatalf("settings service: %v", err)
	}
	recorder := audit.NewRecorder(store)

	runCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	watcher := settings.NewWatcher(settingsSvc)
	watcher.Run(runCtx, changes)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, authSvc, activities, settingsSvc, watcher, recorder, changes,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: /v1/changes holds SSE connections open.
		IdleTimeout: 60 * time.Second,
	}

	log.Printf("Starting volunteerhub-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

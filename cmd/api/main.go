package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tally/internal/app"
	"tally/internal/auth"
	"tally/internal/config"
	"tally/internal/hub"
	"tally/internal/session"
	"tally/internal/store"
)

func main() {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}

	secrets, err := auth.LoadSecrets(cfg.SecretsPath)
	if err != nil {
		log.Fatalf("secrets load failed: %v", err)
	}
	defer secrets.Close()
	if err := secrets.Watch(); err != nil {
		log.Printf("WARNING: secrets watch disabled: %v", err)
	}

	items, err := store.Open(cfg.ItemsPath)
	if err != nil {
		log.Fatalf("items store failed: %v", err)
	}

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		sessions = redisStore
	} else {
		log.Printf("Using in-memory session storage")
		sessions = session.NewMemoryStore()
	}
	defer sessions.Close()

	backupCtx, stopBackups := context.WithCancel(context.Background())
	defer stopBackups()
	backups := store.NewBackups(items, cfg.BackupsDir, cfg.BackupKeep)
	go backups.Run(backupCtx, cfg.BackupEvery)

	broadcast := hub.New()
	service := app.NewService(items, broadcast, secrets, sessions, []byte(cfg.TokenSecret), cfg.SessionTTL)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)

	// No WriteTimeout: the event stream handler holds connections open
	// indefinitely and manages its own write deadline.
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("tally API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

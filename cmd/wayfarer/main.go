package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wayfarer-app/wayfarer/internal/archive"
	"github.com/wayfarer-app/wayfarer/internal/database"
	"github.com/wayfarer-app/wayfarer/internal/logging"
	"github.com/wayfarer-app/wayfarer/internal/push"
	"github.com/wayfarer-app/wayfarer/internal/server"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("WAYFARER_LOG_LEVEL"))

	port := os.Getenv("WAYFARER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("WAYFARER_DB_PATH")
	if dbPath == "" {
		dbPath = "wayfarer.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		Archive: archive.Config{
			S3: archive.S3Config{
				Endpoint:  os.Getenv("WAYFARER_S3_ENDPOINT"),
				Bucket:    os.Getenv("WAYFARER_S3_BUCKET"),
				Region:    os.Getenv("WAYFARER_S3_REGION"),
				AccessKey: os.Getenv("WAYFARER_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("WAYFARER_S3_SECRET_KEY"),
			},
			DBPath: dbPath,
		},
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("WAYFARER_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("WAYFARER_VAPID_PRIVATE_KEY"),
		},
		HomeCurrency: os.Getenv("WAYFARER_HOME_CURRENCY"),
	}

	srv := server.New(db, cfg, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	srv.ArchiveManager().Start(ctx)
	defer srv.ArchiveManager().Stop()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}

	// Reconnect to the remote store if a config was saved with
	// auto-connect enabled. Failure leaves the app offline but usable.
	if settings, err := srv.SettingsStore().GetSyncSettings(); err == nil {
		if settings["sync_auto_connect"] == "true" && settings["sync_config"] != "" {
			connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := srv.Session().ConnectRaw(connectCtx, settings["sync_config"]); err != nil {
				logger.Warn("auto connect failed", "error", err)
			}
			cancel()
		}
	}
	defer srv.Session().Close()

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Wayfarer running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

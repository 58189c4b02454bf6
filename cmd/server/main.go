package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/juju/clock"

	"github.com/noahxzhu/widget-dashboard/internal/config"
	"github.com/noahxzhu/widget-dashboard/internal/credentials"
	"github.com/noahxzhu/widget-dashboard/internal/dashboard"
	"github.com/noahxzhu/widget-dashboard/internal/notify"
	"github.com/noahxzhu/widget-dashboard/internal/pushover"
	"github.com/noahxzhu/widget-dashboard/internal/storage"
	"github.com/noahxzhu/widget-dashboard/internal/web"
)

func main() {
	// Setup structured logger (JSON handler)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load Config
	loader := config.NewLoader("configs/config.yaml", logger)
	cfg, err := loader.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Init Storage
	store := storage.NewStore(cfg.Storage.FilePath, clock.WallClock, logger)
	if err := store.Load(); err != nil {
		slog.Error("Failed to load storage", "error", err)
		os.Exit(1)
	}
	registry := credentials.NewRegistry(store)

	// Init Notifications
	httpClient := httpcache.NewMemoryCacheTransport().Client()
	player := notify.NewExecPlayer(cfg.Notify.PlayerCommand, httpClient)
	if !player.Available() {
		slog.Warn("Audio player not found, sounds disabled", "command", cfg.Notify.PlayerCommand)
	}
	audio := notify.NewAudioCache(player, cfg.Notify.AudioCacheSize)

	policy := notify.Policy(cfg.Notify.DesktopPolicy)
	alerter := pushover.NewAlerter(pushover.NewClient(cfg.Notify.PushoverEndpoint, nil), registry, cfg.Notify.Title)
	engine := notify.NewEngine(clock.WallClock, logger, audio,
		notify.NewPermissionGate(notify.NewNotifySendDesktop(cfg.Notify.Title), policy, logger),
		notify.NewPermissionGate(alerter, policy, logger),
	)
	engine.SetDefaultLifetime(cfg.Notify.DefaultLifetime)

	loader.Watch(func(next *config.Config) {
		engine.SetDefaultLifetime(next.Notify.DefaultLifetime)
	})

	// Mount Widgets
	var sound *notify.Sound
	if cfg.Countdown.CompletionSound != "" {
		sound = notify.SoundAt(cfg.Countdown.CompletionSound, cfg.Countdown.CompletionVolume)
	}
	host := dashboard.NewHost(store, clock.WallClock, engine, sound, logger)
	if err := host.MountAll(); err != nil {
		slog.Warn("Some widgets failed to mount", "error", err)
	}

	// Init Web Server
	srv := web.NewServer(store, registry, engine, host, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: srv,
	}

	// Start HTTP Server
	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "url", "http://localhost"+cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	host.Close()
	engine.Close()
	slog.Info("Server exited")
}

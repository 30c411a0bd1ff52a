package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pomodoroplaza/internal/config"
	"pomodoroplaza/internal/db"
	"pomodoroplaza/internal/handler"
	"pomodoroplaza/internal/notify"
	"pomodoroplaza/internal/repository"
	"pomodoroplaza/internal/router"
	"pomodoroplaza/internal/service"
)

func main() {
	cfg := config.Load()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if _, err := db.RunMigrations(database, db.MigrationSource(cfg.MigrationsDir)); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(database)
	stateRepo := repository.NewStateRepository(database)

	timerService := service.NewTimerService(stateRepo, service.TimerOptions{
		Location:            cfg.Location,
		BreakPolicy:         cfg.BreakPolicy,
		TickInterval:        cfg.TickInterval,
		DefaultPauseMinutes: cfg.DefaultPauseMinutes,
		Notifier:            notify.Build(cfg.NotificationsEnabled, cfg.NotifyWebhookURL, log.Default()),
		ShareBaseURL:        cfg.ShareBaseURL,
	})
	defer timerService.Close()

	loaded, err := timerService.Preload(ctx)
	if err != nil {
		log.Fatalf("preload timer states: %v", err)
	}
	log.Printf("loaded %d timer states", loaded)
	go func() {
		if err := timerService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("timer loop stopped: %v", err)
		}
	}()

	authService := service.NewAuthService(userRepo, timerService, cfg.JWTSecret, cfg.TokenTTL)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(timerService)

	engine := router.New(authService, authHandler, timerHandler, cfg.CORSOrigins)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown server: %v", err)
		}
	}()

	log.Printf("backend listening on :%s (break policy %s, tick %s)", cfg.Port, cfg.BreakPolicy, cfg.TickInterval)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("run server: %v", err)
	}
}

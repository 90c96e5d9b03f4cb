package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"

	"github.com/Spok95/signals-bot/internal/bot"
	"github.com/Spok95/signals-bot/internal/config"
	"github.com/Spok95/signals-bot/internal/dialog"
	"github.com/Spok95/signals-bot/internal/domain/signals"
	"github.com/Spok95/signals-bot/internal/domain/users"
	"github.com/Spok95/signals-bot/internal/infra/db"
	httpx "github.com/Spok95/signals-bot/internal/infra/http"
	"github.com/Spok95/signals-bot/internal/infra/logger"
	"github.com/Spok95/signals-bot/migrations"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	goose.SetBaseFS(migrations.FS)
	return goose.Up(sqlDB, ".")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		// без токена и валидного конфига боту делать нечего
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("db connected")

	// Ограниченный таймаут клиента: один недоступный получатель
	// не должен вешать рассылку.
	apiClient := &http.Client{Timeout: 30 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, apiClient)
	if err != nil {
		log.Error("telegram auth failed", "err", err)
		os.Exit(1)
	}
	log.Info("telegram authorized", "username", api.Self.UserName)

	usersRepo := users.NewRepo(pool)
	statesRepo := dialog.NewRepo(pool)
	signalsRepo := signals.NewRepo(pool)
	gen := signals.NewGenerator(cfg.Signals.Assets, cfg.Signals.Expiries, cfg.Signals.CacheTTL, signalsRepo, log)

	b := bot.New(api, log, usersRepo, statesRepo, gen, signalsRepo,
		cfg.Telegram.AdminID, cfg.Broadcast.Delay,
		bot.Links{Register: cfg.Links.Register, Support: cfg.Links.Support})

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	go b.RunScheduler(ctx, cfg.Signals.AutoInterval, cfg.Signals.Retention)

	log.Info("bot started")
	if err := b.Run(ctx, cfg.Telegram.PollTimeoutSec); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped with error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}

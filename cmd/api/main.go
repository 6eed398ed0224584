package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ovaphlow/pitchfork/service-learning/internal/admin"
	"github.com/ovaphlow/pitchfork/service-learning/internal/auth"
	"github.com/ovaphlow/pitchfork/service-learning/internal/category"
	"github.com/ovaphlow/pitchfork/service-learning/internal/completion"
	"github.com/ovaphlow/pitchfork/service-learning/internal/prompt"
	"github.com/ovaphlow/pitchfork/service-learning/internal/router"
	"github.com/ovaphlow/pitchfork/service-learning/internal/token"
	"github.com/ovaphlow/pitchfork/service-learning/internal/user"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/config"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/database"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/utilities"
)

func main() {
	// best-effort: real env wins, a missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.InitLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infow("starting service-learning", "env", cfg.App.Env, "addr", cfg.App.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	tokens, err := token.NewService(cfg.JWT)
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}
	users := user.NewUserService(db, user.BcryptHasher{Cost: cfg.Password.BcryptCost}, tokens, sugar)
	categories := category.NewService(db, sugar)
	ai := completion.NewClient(cfg.Completion, completion.NewMetrics(prometheus.DefaultRegisterer), sugar)
	prompts := prompt.NewService(db, ai, categories, utilities.DefaultIDGenerator(), sugar)

	// prompts references users and categories, so it goes last
	if err := users.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}
	if err := categories.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure categories tables: %v", err)
	}
	if err := prompts.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure prompts table: %v", err)
	}

	if cfg.App.SeedDefaults {
		if err := categories.SeedDefaults(ctx); err != nil {
			sugar.Warnw("seeding default categories failed", "err", err)
		}
	}
	if cfg.App.AdminEmail != "" && cfg.App.AdminPass != "" {
		if _, err := users.EnsureAdmin(ctx, cfg.App.AdminEmail, cfg.App.AdminName, cfg.App.AdminPass); err != nil {
			sugar.Warnw("bootstrapping admin failed", "email", cfg.App.AdminEmail, "err", err)
		}
	}

	gate := auth.NewGate(tokens, users, sugar)
	handler := router.New(router.Deps{
		Logger:         sugar,
		DB:             db,
		AI:             ai,
		Gate:           gate,
		Users:          user.NewHandler(users, sugar),
		Categories:     category.NewHandler(categories, sugar),
		Prompts:        prompt.NewHandler(prompts, sugar),
		Admin:          admin.NewHandler(users, categories, prompts, ai, sugar),
		Metrics:        promhttp.Handler(),
		AllowedOrigins: cfg.App.CORSOrigins,
		PingTimeout:    cfg.DB.Timeout,
	})

	srv := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// lesson generation may take up to the completion timeout
		WriteTimeout: cfg.Completion.Timeout + 15*time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "completion_configured", ai.Configured())

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if err := database.Ping(doneCtx, db, time.Second); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

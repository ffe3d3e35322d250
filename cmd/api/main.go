package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pageforge-dev/pageforge-backend/config"
	"github.com/pageforge-dev/pageforge-backend/internal/bootstrap"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/admission"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/llm"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/repository"
	"github.com/pageforge-dev/pageforge-backend/internal/retention"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()
	dbOpts := bootstrap.DBOptions{DSN: cfg.Database.DSN()}

	pool, err := bootstrap.OpenDB(ctx, dbOpts)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	db, err := bootstrap.OpenSQL(ctx, dbOpts)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	upstream := llm.NewClient(llm.Options{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	})

	adm := admission.NewController(admission.Limits{
		PerMinute: cfg.Limits.RequestsPerMinute,
		PerDay:    cfg.Limits.RequestsPerDay,
	})

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "pageforge-backend",
		Version:     cfg.App.Version,
		APIKey:      cfg.App.APIKey,
		DB:          db,
		Pool:        pool,
		Redis:       rdb,
		Upstream:    upstream,
		Admission:   adm,
		MaxRetries:  cfg.Limits.MaxRetries,
		RetryDelay:  cfg.Limits.RetryBaseDelay,
	})

	sweeper := retention.NewSweeper(repository.NewGenerationRepository(db), cfg.Retention.Days)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("retention: %v", err)
	}
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		log.Printf("[info] listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[info] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[warn] shutdown: %v", err)
	}
}

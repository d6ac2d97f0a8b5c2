package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lysyi3m/rss-catalog/app/api"
	"github.com/lysyi3m/rss-catalog/app/cfg"
	"github.com/lysyi3m/rss-catalog/app/database"
	"github.com/lysyi3m/rss-catalog/app/feed"
	"github.com/lysyi3m/rss-catalog/app/lock"
	"github.com/lysyi3m/rss-catalog/app/tasks"
)

func main() {
	// A missing .env is fine; the environment and flags still apply
	_ = godotenv.Load()

	appConfig, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appConfig == nil {
		return
	}

	level := slog.LevelInfo
	if appConfig.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	time.Local = appConfig.Location

	if err := run(appConfig); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(appConfig *cfg.Cfg) error {
	slog.Info("Starting RSS Catalog server", "version", appConfig.Version, "timezone", appConfig.Location.String())

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", appConfig.DBPath, "schema_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	feedRepo := database.NewFeedRepository(db)
	categoryRepo := database.NewCategoryRepository(db)
	authorRepo := database.NewAuthorRepository(db)
	tagRepo := database.NewTagRepository(db)
	articleRepo := database.NewArticleRepository(db)

	var locker lock.Locker = lock.NewMemoryLocker()
	if appConfig.RedisAddr != "" {
		redisLocker, err := lock.NewRedisLocker(context.Background(), appConfig.RedisAddr, appConfig.RedisPassword)
		if err != nil {
			return err
		}
		defer redisLocker.Close()
		locker = redisLocker
	}

	httpClient := &http.Client{Timeout: appConfig.FetchTimeout}

	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), appConfig.UserAgent, appConfig.FetchTimeout, appConfig.MaxFeedSize)
	normalizer := feed.NewNormalizer(feed.NewFilters(
		appConfig.TitleStrip, appConfig.AuthorExcludes, appConfig.TagIncludes, appConfig.TagExcludes))
	resolver := feed.NewAuthorResolver(authorRepo, authorRepo)

	// The scheduler is created after the loader it drives, so new articles
	// reach it through this closure.
	var scheduler *tasks.Scheduler
	var onCreate feed.PostCreateHook
	var enricher *feed.Enricher
	if appConfig.LoadPageData {
		enricher = feed.NewEnricher(articleRepo, httpClient, appConfig.UserAgent, appConfig.FetchTimeout)
		onCreate = func(ctx context.Context, article *database.Article) {
			scheduler.EnqueueEnrichment(ctx, article)
		}
	}

	upserter := feed.NewUpserter(articleRepo, feedRepo, tagRepo, resolver, onCreate)
	loader := feed.NewLoader(feedRepo, fetcher, normalizer, upserter, feed.NewHealthTracker(feedRepo), locker,
		feed.LoaderConfig{
			DefaultSchedule: appConfig.DefaultSchedule,
			Workers:         appConfig.WorkerCount,
		})

	configCache := feed.NewConfigCache(appConfig.FeedsDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	slog.Info("Catalog loaded", "dir", appConfig.FeedsDir, "sources", configCache.GetConfigCount())

	syncer := feed.NewCatalogSyncer(sourceRepo, feedRepo, categoryRepo, authorRepo, resolver)

	scheduler = tasks.NewScheduler(loader, feedRepo, configCache, syncer, enricher, tasks.SchedulerConfig{
		TaskSchedule: appConfig.TaskSchedule,
		WorkerCount:  appConfig.WorkerCount,
		Location:     appConfig.Location,
	})
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	handler := api.NewHandler(api.Repositories{
		Sources:  sourceRepo,
		Feeds:    feedRepo,
		Authors:  authorRepo,
		Tags:     tagRepo,
		Articles: articleRepo,
	}, configCache, loader, scheduler, api.HandlerConfig{
		DaysPerPage: appConfig.DaysPerPage,
		PageSize:    appConfig.PageSize,
		Version:     appConfig.Version,
	})

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      api.NewServer(handler, appConfig.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port, "api_enabled", appConfig.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	return nil
}

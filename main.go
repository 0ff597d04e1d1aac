package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"atlas_scraper/api"
	"atlas_scraper/config"
	"atlas_scraper/httputil"
	"atlas_scraper/logging"
	"atlas_scraper/models"
	"atlas_scraper/scheduler"
	"atlas_scraper/scraper"
	"atlas_scraper/services"
	"atlas_scraper/storage"
	"atlas_scraper/workers"
)

var (
	analyzeURL  = flag.String("analyze", "", "Analyze a single listing URL and print the result")
	platformArg = flag.String("platform", "", "Platform for -analyze (idealista, fotocasa, habitaclia)")
	mockData    = flag.Bool("mock", false, "Use synthetic data instead of scraping (with -analyze)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logFile, err := logging.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logger.Info("starting atlas_scraper")

	clients := httputil.NewClients(cfg.Scraper.ProxyURL)

	cache, err := storage.NewFileCache(cfg.Cache.Dir, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open file cache")
	}

	sqliteStore, err := storage.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		logger.WithError(err).Fatal("failed to open SQLite")
	}
	defer sqliteStore.Close()
	logger.WithField("path", cfg.SQLitePath).Info("SQLite run log ready")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var archive scraper.ArchiveStore
	var trends services.TrendSource
	if cfg.Postgres.URL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.Postgres.URL)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to Postgres")
		}
		defer pgStore.Close()
		archive = pgStore
		trends = pgStore
		logger.Info("Postgres analysis archive connected")
	} else {
		logger.Info("no Postgres configured, archive and city trends disabled")
	}

	var archiver *workers.ImageArchiver
	var images scraper.ImageArchiver
	if cfg.S3.Enabled() {
		uploader, err := storage.NewS3Uploader(ctx, storage.S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to set up S3 uploader")
		}
		archiver = workers.NewImageArchiver(clients.Scraping, uploader, logger)
		go archiver.Run(ctx)
		images = archiver
		logger.WithField("bucket", cfg.S3.Bucket).Info("image archiver running")
	}

	launcher, err := scraper.NewPlaywrightLauncher(cfg.Scraper, logger, nil)
	if err != nil {
		logger.WithError(err).Fatal("failed to launch browser")
	}
	defer launcher.Close()

	calc := services.NewCalculator(services.DefaultCalculatorParams(), nil).
		WithBaselines(cfg.Platforms)
	analyzer := services.NewAnalyzer(calc, trends, logger).
		WithOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, clients.API)

	orchestrator := scraper.NewOrchestrator(scraper.OrchestratorOptions{
		Config:    cfg,
		Launcher:  launcher,
		Cache:     cache,
		Runs:      sqliteStore,
		Archive:   archive,
		Images:    images,
		Analyzer:  analyzer,
		Generator: services.NewGenerator(nil).WithBaselines(cfg.Platforms),
		Log:       logger,
	})

	if *analyzeURL != "" {
		runOnce(ctx, orchestrator, logger)
		stop()
		if archiver != nil {
			archiver.Wait()
		}
		return
	}

	sched := scheduler.New(cfg.Scheduler, cache, sqliteStore, logger)
	if err := sched.Start(); err != nil {
		logger.WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	handler := api.NewHandler(orchestrator, sqliteStore, logger)
	router := api.NewRouter(cfg.Server, handler, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown incomplete")
	}

	if archiver != nil {
		archiver.Wait()
	}
}

// runOnce handles the -analyze CLI mode: one listing, result on stdout.
func runOnce(ctx context.Context, orchestrator *scraper.Orchestrator, logger *logrus.Logger) {
	platform, ok := models.ParsePlatform(*platformArg)
	if !ok {
		logger.Fatalf("unknown platform %q, expected idealista, fotocasa or habitaclia", *platformArg)
	}

	outcome, err := orchestrator.Analyze(ctx, scraper.AnalyzeRequest{
		RequestID:   uuid.NewString(),
		Platform:    platform,
		URL:         *analyzeURL,
		UseMockData: *mockData,
	})
	if err != nil {
		logger.WithError(err).Fatal("analysis failed")
	}

	out, err := json.MarshalIndent(outcome.Analysis, "", "  ")
	if err != nil {
		logger.WithError(err).Fatal("marshal result")
	}
	fmt.Println(string(out))
}

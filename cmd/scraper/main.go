package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bestsellers/config"
	"bestsellers/models"
	"bestsellers/ranking"
	"bestsellers/scraper"
)

func main() {
	metricsDefault := ""
	if value, ok := config.EnvString("BESTSELLERS_SCRAPE_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	configPath := flag.String("config", "", "Path to YAML config file")
	sourceURL := flag.String("source-url", "", "Bestsellers page URL (overrides config)")
	refreshURL := flag.String("refresh-url", "", "API refresh endpoint (overrides config)")
	maxPerCategory := flag.Int("max-per-category", 0, "Products kept per category (overrides config)")
	maxRetries := flag.Int("max-retries", -1, "Maximum retry attempts for the page fetch")
	retryBackoffMs := flag.Int("retry-backoff", 0, "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", 0, "Maximum retry backoff (milliseconds)")
	interval := flag.Duration("interval", 0, "Re-scrape interval; zero runs once and exits")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading configuration", slog.Any("error", err))
		os.Exit(1)
	}
	applyFlags(cfg, *sourceURL, *refreshURL, *maxPerCategory, *maxRetries, *retryBackoffMs, *retryBackoffMaxMs, *interval, *verbose)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape job",
		slog.String("source_url", cfg.Scraper.SourceURL),
		slog.String("refresh_url", cfg.Scraper.RefreshURL),
		slog.Int("max_per_category", cfg.Scraper.MaxPerCategory),
		slog.Duration("interval", cfg.Scraper.Interval),
	)

	s, err := scraper.NewScraper(cfg.Scraper)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}
	publisher := scraper.NewPublisher(cfg.Scraper)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if *metricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    *metricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", *metricsAddr))
	}

	succeeded := runLoop(ctx, cfg.Scraper.Interval, func(ctx context.Context) error {
		err := runOnce(ctx, s, publisher, cfg)
		if err != nil {
			slog.Error("scrape run failed", slog.Any("error", err))
		}
		return err
	})

	exitCode := 0
	if !succeeded {
		exitCode = 1
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	os.Exit(exitCode)
}

// runLoop executes run once immediately, then on every interval tick until
// the context is cancelled. A non-positive interval means a single run. It
// reports whether at least one run succeeded, so an interval job that never
// once published still exits non-zero.
func runLoop(ctx context.Context, interval time.Duration, run func(context.Context) error) bool {
	succeeded := run(ctx) == nil
	if interval <= 0 {
		return succeeded
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received")
			return succeeded
		case <-ticker.C:
			if run(ctx) == nil {
				succeeded = true
			}
		}
	}
}

// runOnce performs one full cycle: fetch the page, map and group the cards,
// and publish the grouped payload to the API.
func runOnce(ctx context.Context, s *scraper.Scraper, publisher *scraper.Publisher, cfg *config.Config) error {
	startTime := time.Now()

	result, err := s.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	products := ranking.BuildProducts(result.Cards)
	grouped := ranking.GroupTopByCategory(products, cfg.Scraper.MaxPerCategory)
	payload := models.RefreshPayload{
		Categories:    grouped,
		CategoryOrder: ranking.CategoryOrder(result.CategoryTitles),
	}

	if err := publisher.Publish(ctx, payload); err != nil {
		return err
	}

	printSummary(result, len(result.Cards)-len(products), grouped, time.Since(startTime))
	return nil
}

func applyFlags(cfg *config.Config, sourceURL, refreshURL string, maxPerCategory, maxRetries, retryBackoffMs, retryBackoffMaxMs int, interval time.Duration, verbose bool) {
	if sourceURL != "" {
		cfg.Scraper.SourceURL = sourceURL
	}
	if refreshURL != "" {
		cfg.Scraper.RefreshURL = refreshURL
	}
	if maxPerCategory > 0 {
		cfg.Scraper.MaxPerCategory = maxPerCategory
	}
	if maxRetries >= 0 {
		cfg.Scraper.MaxRetries = maxRetries
	}
	if retryBackoffMs > 0 {
		cfg.Scraper.RetryBackoff = time.Duration(retryBackoffMs) * time.Millisecond
	}
	if retryBackoffMaxMs > 0 {
		cfg.Scraper.RetryBackoffMax = time.Duration(retryBackoffMaxMs) * time.Millisecond
	}
	if interval > 0 {
		cfg.Scraper.Interval = interval
	}
	cfg.Verbose = verbose
}

func printSummary(result *models.ScrapeResult, dropped int, grouped models.ProductsByCategory, duration time.Duration) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	total := 0
	for _, products := range grouped {
		total += len(products)
	}

	fmt.Printf("  Categories:    %d\n", len(grouped))
	fmt.Printf("  Products:      %d\n", total)
	fmt.Printf("  Cards scraped: %d\n", len(result.Cards))
	fmt.Printf("  Cards dropped: %d\n", dropped)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

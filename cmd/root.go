// Package cmd defines the CLI for the pricecrawler executable.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pyaterochka-price-crawler/internal/browser"
	"pyaterochka-price-crawler/internal/config"
	"pyaterochka-price-crawler/internal/crawler"
	"pyaterochka-price-crawler/internal/logging"
	"pyaterochka-price-crawler/internal/metrics"
	"pyaterochka-price-crawler/internal/session"
	"pyaterochka-price-crawler/internal/store"
)

var cfgFile string

// shutdownGrace gives the browser process a moment to exit after the loop
// stops.
const shutdownGrace = 500 * time.Millisecond

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricecrawler",
		Short: "Crawls Pyaterochka store catalogs and records price history",
		Long: `pricecrawler discovers Pyaterochka stores from a list of geographic
coordinates, crawls each store's product catalogs through an authenticated
browser session, and records products together with change-triggered price
history in a local SQLite database. It runs until interrupted.`,
		RunE:          runCrawl,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (JSON or YAML)")
	return cmd
}

// Execute runs the CLI. An interrupt cancels the command context; the crawl
// loop observes it between store iterations.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, configNote := config.Load(cfgFile)
	logger, err := logging.New(cfg.LogDevelopment)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	configNote(logger)
	logger.Info("configuration loaded",
		zap.String("db_path", cfg.DBPath),
		zap.String("coordinates_path", cfg.CoordinatesPath),
		zap.Int("catalogs", len(cfg.Catalogs)),
		zap.Duration("catalog_delay", cfg.CatalogDelay()),
	)

	metrics.Init()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	db, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close() //nolint:errcheck // shutdown path

	// Session acquisition is the only fatal crawl step: without cookies no
	// page fetch gets past the bot detection.
	manager := session.NewManager(cfg.CookiesStorePath, cfg.BrowserExecutable, cfg.UserAgent, logger)
	if _, err := manager.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	b, err := browser.Launch(browser.Options{
		ExecPath:  cfg.BrowserExecutable,
		Headless:  true,
		UserAgent: cfg.UserAgent,
	}, logger)
	if err != nil {
		return fmt.Errorf("launch crawl browser: %w", err)
	}
	defer b.Close()

	if err := session.SeedFromFile(b, cfg.CookiesStorePath); err != nil {
		return fmt.Errorf("seed crawl session: %w", err)
	}

	coords, err := crawler.LoadCoordinates(cfg.CoordinatesPath)
	if err != nil {
		return fmt.Errorf("load coordinates: %w", err)
	}

	locator := crawler.NewLocator(b, cfg.StoreWait(), logger)
	scheduler := crawler.NewScheduler(b, cfg.CatalogDelay(), cfg.CatalogWait(), logger)
	loop := crawler.NewLoop(locator, scheduler, db, cfg.Catalogs, logger)

	loop.Run(ctx, coords)

	b.Close()
	logger.Info("shut down", zap.Duration("grace", shutdownGrace))
	time.Sleep(shutdownGrace)
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("metrics listener starting", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics listener failed", zap.Error(err))
	}
}

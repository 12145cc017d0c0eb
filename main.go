package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"catercal/config"
	"catercal/internal/browser"
	"catercal/internal/calendar"
	"catercal/internal/export"
	"catercal/internal/order"
	"catercal/internal/scraper"
	"catercal/internal/webhook"
	"catercal/logger"
	"catercal/pkg/errors"
	"catercal/services/cache"
	"catercal/services/publisher"
)

var (
	cfg        *config.Config
	noCalendar bool
	noExport   bool
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	root := &cobra.Command{
		Use:   "catercal",
		Short: "Extracts catering orders from the vendor portal and mirrors them onto a calendar",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.LoadConfig()
			return cfg.Validate()
		},
		SilenceUsage: true,
	}

	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Log into the portal, walk the orders grid and synchronize the calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyScrapeFlags(cmd)
			return runScrape(cmd.Context())
		},
	}
	scrapeCmd.Flags().Int("max-orders", -1, "stop after this many orders (0 means all)")
	scrapeCmd.Flags().Int("start-row", 0, "first row to process on the first page")
	scrapeCmd.Flags().Bool("headful", false, "run the browser with a visible window")
	scrapeCmd.Flags().String("out-dir", "", "directory for exports and saved payloads")
	scrapeCmd.Flags().Bool("no-calendar", false, "skip calendar synchronization")
	scrapeCmd.Flags().Bool("no-export", false, "skip json and csv exports")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook receiver for order notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(scrapeCmd, serveCmd)

	// Set up signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// applyScrapeFlags lets command flags override the environment
func applyScrapeFlags(cmd *cobra.Command) {
	if v, err := cmd.Flags().GetInt("max-orders"); err == nil && v >= 0 {
		cfg.MaxOrders = v
	}
	if v, err := cmd.Flags().GetInt("start-row"); err == nil && v >= 1 {
		cfg.StartFromRow = v
	}
	if v, err := cmd.Flags().GetBool("headful"); err == nil && v {
		cfg.Headless = false
	}
	if v, err := cmd.Flags().GetString("out-dir"); err == nil && v != "" {
		cfg.OutDir = v
	}
	noCalendar, _ = cmd.Flags().GetBool("no-calendar")
	noExport, _ = cmd.Flags().GetBool("no-export")
}

func runScrape(ctx context.Context) error {
	log := logger.ForScraper()

	if err := cfg.ValidatePortal(); err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Bool("headless", cfg.Headless).
		Int("max_orders", cfg.MaxOrders).
		Msg("Starting scrape run")

	driver, err := browser.NewChromeDriver(browser.Options{
		Headless: cfg.Headless,
	})
	if err != nil {
		return err
	}
	defer driver.Close()

	sess := scraper.NewSession(driver, cfg)
	if err := sess.Login(ctx); err != nil {
		return err
	}
	if err := sess.OpenOrders(ctx); err != nil {
		return err
	}

	// The orders grid lives inside an iframe; everything past the
	// session setup runs against a frame-scoped driver.
	frame := driver.WithFrame(scraper.PortalFrameSelector)
	nav := scraper.NewNavigator(frame, scraper.NavigatorConfig{
		GridTimeout: cfg.BrowserTimeout,
	})
	rows := scraper.NewRowActions(frame, scraper.RowActionsConfig{
		GridTimeout: cfg.BrowserTimeout,
	})
	det := scraper.NewExtractor(frame, scraper.ExtractorConfig{})
	agg := scraper.NewAggregator(frame, nav, rows, det, scraper.AggregatorConfig{
		MaxOrders:    cfg.MaxOrders,
		StartFromRow: cfg.StartFromRow,
		ActionLabel:  cfg.ActionLabel,
	})

	orders, err := agg.Run(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("order_count", len(orders)).Msg("Scrape finished")

	if !noExport {
		exp := export.NewExporter(cfg.OutDir)
		if path, err := exp.WriteJSON(orders); err != nil {
			logger.LogError("export", err, "Failed to write json export")
		} else {
			log.Info().Str("path", path).Msg("Wrote json export")
		}
		if ordersCSV, itemsCSV, err := exp.WriteCSV(orders); err != nil {
			logger.LogError("export", err, "Failed to write csv export")
		} else {
			log.Info().Str("orders", ordersCSV).Str("items", itemsCSV).Msg("Wrote csv export")
		}
	}

	if !noCalendar && cfg.CalendarID != "" && cfg.CalendarAPIToken != "" {
		if err := syncCalendar(ctx, orders); err != nil {
			logger.LogError("calendar-sync", err, "Calendar synchronization failed")
		}
	} else if !noCalendar {
		log.Warn().Msg("Calendar credentials not configured, skipping synchronization")
	}

	export.RenderSummary(os.Stdout, orders)
	return nil
}

// syncCalendar upserts the scraped orders and announces the written
// events on the Redis stream when one is configured.
func syncCalendar(ctx context.Context, orders []order.Order) error {
	log := logger.ForSync()

	client := calendar.NewClient(calendar.ClientConfig{
		BaseURL: cfg.CalendarAPIBase,
		Token:   cfg.CalendarAPIToken,
	})
	sync := calendar.NewSynchronizer(client, cfg.CalendarID)

	build := func(o *order.Order) *calendar.Event {
		return calendar.BuildEventBody(o, cfg.Platform, cfg.CalendarTimezone, cfg.CalendarEventDuration)
	}
	window := time.Duration(cfg.CalendarWindowDays) * 24 * time.Hour

	written, err := sync.Upsert(ctx, orders, build, window, window)
	if err != nil {
		return err
	}
	log.Info().Int("event_count", len(written)).Msg("Calendar synchronized")

	if cfg.RedisAddr == "" {
		return nil
	}
	pub := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMax)
	defer pub.Close()
	for i := range written {
		data, err := json.Marshal(&written[i])
		if err != nil {
			continue
		}
		if err := pub.Publish("event", data); err != nil {
			logger.LogError("publisher", err, "Failed to announce event %s", written[i].OrderKey())
		}
	}
	return nil
}

func runServe(ctx context.Context) error {
	log := logger.ForWebhook()

	if cfg.CalendarID == "" || cfg.CalendarAPIToken == "" {
		return errors.NewConfiguration("CALENDAR_ID and CALENDAR_API_TOKEN are required to serve webhooks", nil)
	}

	client := calendar.NewClient(calendar.ClientConfig{
		BaseURL: cfg.CalendarAPIBase,
		Token:   cfg.CalendarAPIToken,
	})
	sync := calendar.NewSynchronizer(client, cfg.CalendarID)

	var dedupe cache.CacheService
	if cfg.MemcacheAddr != "" {
		dedupe = cache.NewMemcacheService(cfg.MemcacheAddr)
		log.Info().Str("addr", cfg.MemcacheAddr).Msg("Using memcache for webhook deduplication")
	} else {
		dedupe = cache.NewMemoryService()
	}

	srv := webhook.NewServer(cfg, sync, dedupe)
	return srv.Run(ctx)
}

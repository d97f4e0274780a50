package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unklstewy/flightlog/internal/db"
	"github.com/unklstewy/flightlog/pkg/adsbx"
	"github.com/unklstewy/flightlog/pkg/config"
	"github.com/unklstewy/flightlog/pkg/filter"
	"github.com/unklstewy/flightlog/pkg/flight"
	"github.com/unklstewy/flightlog/pkg/geo"
)

// Collector continuously fetches flight data from ADS-B Exchange and
// stores the filtered results in PostgreSQL. This runs as a background
// service so other tools can query historical data without hitting the
// API rate limits themselves.
func main() {
	configPath := flag.String("config", "", "Path to configuration file (default: standard locations)")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  flightlog collector service")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Observer: %s at %.4f, %.4f",
		cfg.Observer.Name, cfg.Observer.Latitude, cfg.Observer.Longitude)
	log.Printf("Update interval: %d seconds", cfg.Collector.UpdateIntervalSeconds)
	log.Printf("Position retention: %d hours", cfg.Collector.RetentionHours)

	// Connect to database
	log.Println("\nConnecting to database...")
	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("✓ Database connected")

	ctx := context.Background()
	if err := database.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("✓ Database schema initialized")

	observer := geo.Coordinate{
		Latitude:  cfg.Observer.Latitude,
		Longitude: cfg.Observer.Longitude,
	}
	repo := db.NewFlightRepository(database, observer)

	client, err := adsbx.NewClient(adsbx.Config{
		APIKey:            cfg.ADSBX.APIKey,
		UseRapidAPI:       cfg.ADSBX.UseRapidAPI,
		BaseURL:           cfg.ADSBX.BaseURL,
		RequestsPerSecond: cfg.ADSBX.RequestsPerSecond,
		Timeout:           time.Duration(cfg.ADSBX.TimeoutSeconds) * time.Second,
		RawUnits:          cfg.ADSBX.RawUnits,
	})
	if err != nil {
		log.Fatalf("Failed to create ADS-B Exchange client: %v", err)
	}

	// Only flights matching the configured filter are stored
	pipeline := filter.New()
	if cfg.Filter.RadiusKm > 0 {
		pipeline.AddRadiusFilter(observer, cfg.Filter.RadiusKm*1000)
		log.Printf("✓ Storing flights within %.0f km of %s", cfg.Filter.RadiusKm, cfg.Observer.Name)
	} else {
		log.Println("⚠️  No radius configured, storing ALL tracked flights")
	}
	if cfg.Filter.MinAltitudeM != nil || cfg.Filter.MaxAltitudeM != nil {
		pipeline.AddAltitudeFilter(cfg.Filter.MinAltitudeM, cfg.Filter.MaxAltitudeM)
	}

	collector := &Collector{
		repo:           repo,
		db:             database,
		client:         client,
		pipeline:       pipeline,
		updateInterval: time.Duration(cfg.Collector.UpdateIntervalSeconds) * time.Second,
		retention:      time.Duration(cfg.Collector.RetentionHours) * time.Hour,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	runCtx, cancel := context.WithCancel(ctx)
	doneChan := make(chan struct{})
	go func() {
		defer close(doneChan)
		collector.Run(runCtx)
	}()

	log.Println("\n===========================================")
	log.Println("  Collector service started")
	log.Println("  Press Ctrl+C to stop")
	log.Println("===========================================")

	select {
	case sig := <-sigChan:
		log.Printf("\nReceived signal: %v", sig)
	case <-doneChan:
		log.Println("\nCollector stopped")
	}

	cancel()
	<-doneChan
	log.Println("✓ Collector service stopped")
}

// Collector manages the flight data collection loop.
type Collector struct {
	repo           *db.FlightRepository
	db             *db.DB
	client         *adsbx.Client
	pipeline       *filter.Pipeline
	updateInterval time.Duration
	retention      time.Duration

	// Statistics
	totalUpdates int
	totalStored  int
}

// Run starts the collection loop and blocks until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.updateInterval)
	defer ticker.Stop()

	// First update immediately
	log.Println("Performing initial data fetch...")
	c.update(ctx)

	// Periodic cleanup (every 5 minutes)
	cleanupTicker := time.NewTicker(5 * time.Minute)
	defer cleanupTicker.Stop()

	// Stats ticker (every minute)
	statsTicker := time.NewTicker(time.Minute)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.update(ctx)
		case <-cleanupTicker.C:
			c.cleanup(ctx)
		case <-statsTicker.C:
			c.printStats(ctx)
		}
	}
}

// update fetches a snapshot, filters it and stores the survivors.
func (c *Collector) update(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in update(): %v", r)
			log.Println("Update will be retried on next cycle")
		}
	}()

	now := time.Now().UTC()
	c.totalUpdates++

	records, err := adsbx.RetryWithBackoffResult(ctx, adsbx.DefaultRetryConfig(), func() ([]flight.Record, error) {
		return c.client.AllFlights(ctx)
	})
	if err != nil {
		log.Printf("✗ Failed to fetch flights after retries: %v (will retry in next update cycle)", err)
		return
	}

	stored := 0
	for rec := range c.pipeline.Evaluate(flight.SliceSeq(records)) {
		if err := c.repo.UpsertFlight(ctx, rec, now); err != nil {
			log.Printf("Error storing flight %s: %v", rec.ICAO, err)
			continue
		}
		stored++
	}
	c.totalStored += stored

	log.Printf("[%s] Update #%d: %d fetched, %d stored",
		now.Format("15:04:05"), c.totalUpdates, len(records), stored)
}

// cleanup removes stale flights and expired position history.
func (c *Collector) cleanup(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in cleanup(): %v", r)
		}
	}()

	// Flights unseen for ten update cycles are considered gone
	maxAge := 10 * c.updateInterval
	if err := c.db.CleanupOldData(ctx, maxAge, c.retention); err != nil {
		log.Printf("Error during cleanup: %v", err)
		return
	}

	log.Println("✓ Cleanup completed")
}

// printStats displays current statistics.
func (c *Collector) printStats(ctx context.Context) {
	count, err := c.repo.CountFlights(ctx)
	if err != nil {
		log.Printf("Error getting stats: %v", err)
		return
	}

	log.Printf("📊 Stats: %d flights in database | %d stored this session | %d total updates",
		count, c.totalStored, c.totalUpdates)
}

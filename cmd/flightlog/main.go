package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/unklstewy/flightlog/pkg/adsbx"
	"github.com/unklstewy/flightlog/pkg/config"
	"github.com/unklstewy/flightlog/pkg/export"
	"github.com/unklstewy/flightlog/pkg/filter"
	"github.com/unklstewy/flightlog/pkg/flight"
	"github.com/unklstewy/flightlog/pkg/geo"
)

// main implements the one-shot fetch/filter/export command. It pulls a
// snapshot from ADS-B Exchange, runs it through the filter pipeline and
// writes the survivors as CSV or JSON.
func main() {
	configPath := flag.String("config", "", "Path to configuration file (default: standard locations)")
	initConfig := flag.String("init-config", "", "Write a default configuration file to this path and exit")
	icao := flag.String("icao", "", "Look up a single aircraft by ICAO hex code")
	lat := flag.Float64("lat", 0, "Filter center latitude (requires -lon and -radius)")
	lon := flag.Float64("lon", 0, "Filter center longitude")
	radiusKm := flag.Float64("radius", 0, "Filter radius in km around -lat/-lon (0 uses config defaults)")
	bounds := flag.String("bounds", "", "Bounding box filter as latMin,latMax,lonMin,lonMax")
	minAlt := flag.Float64("min-alt", -1, "Minimum altitude in meters (-1 disables)")
	maxAlt := flag.Float64("max-alt", -1, "Maximum altitude in meters (-1 disables)")
	typeFilter := flag.String("type", "", "Keep only aircraft whose type contains this string")
	format := flag.String("format", "csv", "Output format: csv or json")
	output := flag.String("output", "", "Output file path (default: stdout)")
	appendMode := flag.Bool("append", false, "Append to the output file instead of overwriting (CSV only)")
	noDefaults := flag.Bool("no-defaults", false, "Ignore the filter defaults from the config file")
	flag.Parse()

	if *initConfig != "" {
		if err := config.DefaultConfig().Save(*initConfig); err != nil {
			log.Fatalf("Failed to write config template: %v", err)
		}
		log.Printf("✓ Wrote default configuration to %s", *initConfig)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

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

	ctx := context.Background()

	// Single aircraft lookup short-circuits the pipeline
	if *icao != "" {
		rec, err := client.FlightByICAO(ctx, *icao)
		if err != nil {
			log.Fatalf("Failed to look up %s: %v", *icao, err)
		}
		if rec == nil {
			log.Fatalf("Aircraft %s is not currently tracked", *icao)
		}
		writeRecords(flight.SliceSeq([]flight.Record{*rec}), *format, *output, *appendMode)
		return
	}

	pipeline := filter.New()
	describeFilters := buildFilters(pipeline, cfg, *lat, *lon, *radiusKm, *bounds,
		*minAlt, *maxAlt, *typeFilter, *noDefaults)

	log.Println("Fetching aircraft from ADS-B Exchange...")
	records, err := adsbx.RetryWithBackoffResult(ctx, adsbx.DefaultRetryConfig(), func() ([]flight.Record, error) {
		return client.AllFlights(ctx)
	})
	if err != nil {
		log.Fatalf("Failed to fetch aircraft: %v", err)
	}
	log.Printf("✓ Fetched %d aircraft", len(records))
	for _, desc := range describeFilters {
		log.Printf("  Filter: %s", desc)
	}

	writeRecords(pipeline.Evaluate(flight.SliceSeq(records)), *format, *output, *appendMode)
}

// buildFilters populates the pipeline from flags, falling back to the
// config file defaults when no explicit criteria are given. Returns
// human-readable descriptions of the active filters.
func buildFilters(p *filter.Pipeline, cfg *config.Config,
	lat, lon, radiusKm float64, bounds string,
	minAlt, maxAlt float64, typeFilter string, noDefaults bool) []string {

	var descriptions []string
	explicit := false

	if radiusKm > 0 {
		center := geo.Coordinate{Latitude: lat, Longitude: lon}
		p.AddRadiusFilter(center, radiusKm*1000)
		descriptions = append(descriptions,
			fmt.Sprintf("within %.0f km of %.4f, %.4f", radiusKm, lat, lon))
		explicit = true
	}

	if bounds != "" {
		latMin, latMax, lonMin, lonMax, err := parseBounds(bounds)
		if err != nil {
			log.Fatalf("Invalid -bounds value: %v", err)
		}
		p.AddBoundsFilter(latMin, latMax, lonMin, lonMax)
		descriptions = append(descriptions,
			fmt.Sprintf("inside bounds [%.4f, %.4f] x [%.4f, %.4f]", latMin, latMax, lonMin, lonMax))
		explicit = true
	}

	var altMin, altMax *float64
	if minAlt >= 0 {
		altMin = &minAlt
	}
	if maxAlt >= 0 {
		altMax = &maxAlt
	}
	if altMin != nil || altMax != nil {
		p.AddAltitudeFilter(altMin, altMax)
		descriptions = append(descriptions, describeAltitude(altMin, altMax))
		explicit = true
	}

	if typeFilter != "" {
		want := strings.ToUpper(typeFilter)
		p.AddCustomFilter(func(r flight.Record) bool {
			return r.Type != "" && strings.Contains(strings.ToUpper(r.Type), want)
		})
		descriptions = append(descriptions, fmt.Sprintf("type contains %q", typeFilter))
		explicit = true
	}

	// No explicit criteria: fall back to the configured observer radius
	if !explicit && !noDefaults && cfg.Filter.RadiusKm > 0 {
		center := geo.Coordinate{
			Latitude:  cfg.Observer.Latitude,
			Longitude: cfg.Observer.Longitude,
		}
		p.AddRadiusFilter(center, cfg.Filter.RadiusKm*1000)
		descriptions = append(descriptions,
			fmt.Sprintf("within %.0f km of %s (config default)", cfg.Filter.RadiusKm, cfg.Observer.Name))
		if cfg.Filter.MinAltitudeM != nil || cfg.Filter.MaxAltitudeM != nil {
			p.AddAltitudeFilter(cfg.Filter.MinAltitudeM, cfg.Filter.MaxAltitudeM)
			descriptions = append(descriptions,
				describeAltitude(cfg.Filter.MinAltitudeM, cfg.Filter.MaxAltitudeM))
		}
	}

	return descriptions
}

// parseBounds parses "latMin,latMax,lonMin,lonMax".
func parseBounds(s string) (latMin, latMax, lonMin, lonMax float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("value %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}

func describeAltitude(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("altitude %.0f-%.0f m", *min, *max)
	case min != nil:
		return fmt.Sprintf("altitude >= %.0f m", *min)
	case max != nil:
		return fmt.Sprintf("altitude <= %.0f m", *max)
	default:
		return "altitude present"
	}
}

// writeRecords sends the filtered records to the requested sink.
func writeRecords(records flight.Seq, format, output string, appendMode bool) {
	var (
		count int
		err   error
	)

	switch format {
	case "csv":
		if output == "" {
			count, err = export.WriteCSV(os.Stdout, records)
		} else {
			count, err = export.WriteCSVFile(output, records, appendMode)
		}
	case "json":
		if output == "" {
			count, err = export.WriteJSON(os.Stdout, records, 2)
		} else {
			count, err = export.WriteJSONFile(output, records, 2)
		}
	default:
		log.Fatalf("Unknown format %q (expected csv or json)", format)
	}

	if err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	if output != "" {
		log.Printf("✓ Wrote %d records to %s", count, output)
	} else {
		log.Printf("✓ Wrote %d records", count)
	}
}

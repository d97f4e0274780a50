package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/flightlog/pkg/adsbx"
	"github.com/unklstewy/flightlog/pkg/config"
	"github.com/unklstewy/flightlog/pkg/filter"
	"github.com/unklstewy/flightlog/pkg/flight"
	"github.com/unklstewy/flightlog/pkg/geo"
)

// maxRows limits the table to the closest flights.
const maxRows = 20

// flightView is a record annotated with range and bearing from the
// observer for display.
type flightView struct {
	record   flight.Record
	rangeKm  float64
	bearing  float64
	hasRange bool
}

type model struct {
	cfg        *config.Config
	client     *adsbx.Client
	pipeline   *filter.Pipeline
	observer   geo.Coordinate
	interval   time.Duration
	flights    []flightView
	selected   int
	paused     bool
	fetching   bool
	lastUpdate time.Time
	err        error
}

type tickMsg time.Time

// flightsMsg carries the result of a background fetch.
type flightsMsg struct {
	flights []flightView
	err     error
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchFlights pulls a snapshot, filters it and sorts by range. Runs as
// a tea.Cmd so the UI stays responsive during the HTTP call.
func (m model) fetchFlights() tea.Cmd {
	client := m.client
	pipeline := m.pipeline
	observer := m.observer

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		records, err := adsbx.RetryWithBackoffResult(ctx, adsbx.DefaultRetryConfig(), func() ([]flight.Record, error) {
			return client.AllFlights(ctx)
		})
		if err != nil {
			return flightsMsg{err: err}
		}

		var views []flightView
		for rec := range pipeline.Evaluate(flight.SliceSeq(records)) {
			view := flightView{record: rec}
			if pos, ok := rec.Position(); ok {
				view.rangeKm = geo.Distance(observer, pos) / 1000
				view.bearing = geo.Bearing(observer, pos)
				view.hasRange = true
			}
			views = append(views, view)
		}

		// Closest first, positionless flights at the end
		sort.SliceStable(views, func(i, j int) bool {
			if views[i].hasRange != views[j].hasRange {
				return views[i].hasRange
			}
			return views[i].rangeKm < views[j].rangeKm
		})

		return flightsMsg{flights: views}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetchFlights(), tick(m.interval))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.flights)-1 && m.selected < maxRows-1 {
				m.selected++
			}
		case "p", " ":
			m.paused = !m.paused
		case "r":
			if !m.fetching {
				m.fetching = true
				return m, m.fetchFlights()
			}
		}

	case tickMsg:
		if m.paused || m.fetching {
			return m, tick(m.interval)
		}
		m.fetching = true
		return m, tea.Batch(m.fetchFlights(), tick(m.interval))

	case flightsMsg:
		m.fetching = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.flights = msg.flights
		m.lastUpdate = time.Now()
		if m.selected >= len(m.flights) && len(m.flights) > 0 {
			m.selected = len(m.flights) - 1
		}
	}

	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	s.WriteString(titleStyle.Render("FLIGHTLOG LIVE WATCH"))
	s.WriteString("\n\n")

	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	status := fmt.Sprintf("Observer: %s (%.4f, %.4f)", m.cfg.Observer.Name,
		m.observer.Latitude, m.observer.Longitude)
	if !m.lastUpdate.IsZero() {
		status += fmt.Sprintf("  Updated: %s", m.lastUpdate.Format("15:04:05"))
	}
	if m.paused {
		status += "  [PAUSED]"
	}
	if m.fetching {
		status += "  [FETCHING]"
	}
	s.WriteString(infoStyle.Render(status))
	s.WriteString("\n\n")

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		s.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderTable())
	s.WriteString("\n")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	s.WriteString(helpStyle.Render("↑/↓: Select  SPACE: Pause  R: Refresh  Q: Quit"))
	s.WriteString("\n")

	return s.String()
}

func (m model) renderTable() string {
	var table strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	table.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %-9s %-5s %9s %8s %6s %9s %8s",
		"ICAO", "CALLSIGN", "TYPE", "ALT m", "SPD m/s", "TRK", "RANGE km", "BRG")))
	table.WriteString("\n")

	if len(m.flights) == 0 {
		table.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).
			Render("  No flights match the current filter"))
		table.WriteString("\n")
		return table.String()
	}

	rows := len(m.flights)
	if rows > maxRows {
		rows = maxRows
	}

	for i := 0; i < rows; i++ {
		fv := m.flights[i]
		rec := fv.record

		callsign := rec.Callsign
		if callsign == "" {
			callsign = "--------"
		}
		acType := rec.Type
		if acType == "" {
			acType = "----"
		}

		rangeStr, brgStr := "---", "---"
		if fv.hasRange {
			rangeStr = fmt.Sprintf("%9.1f", fv.rangeKm)
			brgStr = fmt.Sprintf("%7.0f°", fv.bearing)
		}

		line := fmt.Sprintf("%-8s %-9s %-5s %9s %8s %6s %9s %8s",
			rec.ICAO,
			callsign,
			acType,
			floatCell(rec.Altitude, "%9.0f"),
			floatCell(rec.GroundSpeed, "%8.1f"),
			floatCell(rec.Track, "%5.0f°"),
			rangeStr,
			brgStr,
		)

		if i == m.selected {
			line = lipgloss.NewStyle().Background(lipgloss.Color("237")).Render("→ " + line)
		} else {
			line = "  " + line
		}

		table.WriteString(line)
		table.WriteString("\n")
	}

	if len(m.flights) > maxRows {
		table.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).
			Render(fmt.Sprintf("  ... and %d more", len(m.flights)-maxRows)))
		table.WriteString("\n")
	}

	return table.String()
}

// floatCell formats an optional value or a placeholder of equal width.
func floatCell(v *float64, format string) string {
	if v == nil {
		width := len(fmt.Sprintf(format, 0.0))
		return strings.Repeat(" ", width-3) + "---"
	}
	return fmt.Sprintf(format, *v)
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (default: standard locations)")
	interval := flag.Int("interval", 10, "Refresh interval in seconds")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
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

	observer := geo.Coordinate{
		Latitude:  cfg.Observer.Latitude,
		Longitude: cfg.Observer.Longitude,
	}

	pipeline := filter.New()
	if cfg.Filter.RadiusKm > 0 {
		pipeline.AddRadiusFilter(observer, cfg.Filter.RadiusKm*1000)
	}
	if cfg.Filter.MinAltitudeM != nil || cfg.Filter.MaxAltitudeM != nil {
		pipeline.AddAltitudeFilter(cfg.Filter.MinAltitudeM, cfg.Filter.MaxAltitudeM)
	}

	m := model{
		cfg:      cfg,
		client:   client,
		pipeline: pipeline,
		observer: observer,
		interval: time.Duration(*interval) * time.Second,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

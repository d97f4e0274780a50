package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unklstewy/flightlog/pkg/flight"
	"github.com/unklstewy/flightlog/pkg/geo"
)

// FlightRepository handles database operations for flight records.
type FlightRepository struct {
	db       *DB
	observer geo.Coordinate
}

// NewFlightRepository creates a new flight repository. The observer
// coordinate is used to store range and bearing alongside each update.
func NewFlightRepository(db *DB, observer geo.Coordinate) *FlightRepository {
	return &FlightRepository{
		db:       db,
		observer: observer,
	}
}

// UpsertFlight inserts or updates the current state for an aircraft
// and, when the record carries a position, appends to the position
// history.
func (r *FlightRepository) UpsertFlight(ctx context.Context, rec flight.Record, now time.Time) error {
	var rangeM, bearingDeg *float64
	pos, hasPos := rec.Position()
	if hasPos {
		d := geo.Distance(r.observer, pos)
		b := geo.Bearing(r.observer, pos)
		rangeM = &d
		bearingDeg = &b
	}

	observed := now
	if rec.Timestamp != nil {
		observed = *rec.Timestamp
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO flights (
			icao, callsign, registration, aircraft_type, squawk,
			latitude, longitude, altitude_m,
			ground_speed_mps, track_deg, vertical_rate_mps,
			range_m, bearing_deg,
			first_seen, last_seen, position_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $14, $15
		)
		ON CONFLICT (icao) DO UPDATE SET
			callsign = EXCLUDED.callsign,
			registration = EXCLUDED.registration,
			aircraft_type = EXCLUDED.aircraft_type,
			squawk = EXCLUDED.squawk,
			latitude = COALESCE(EXCLUDED.latitude, flights.latitude),
			longitude = COALESCE(EXCLUDED.longitude, flights.longitude),
			altitude_m = COALESCE(EXCLUDED.altitude_m, flights.altitude_m),
			ground_speed_mps = COALESCE(EXCLUDED.ground_speed_mps, flights.ground_speed_mps),
			track_deg = COALESCE(EXCLUDED.track_deg, flights.track_deg),
			vertical_rate_mps = COALESCE(EXCLUDED.vertical_rate_mps, flights.vertical_rate_mps),
			range_m = COALESCE(EXCLUDED.range_m, flights.range_m),
			bearing_deg = COALESCE(EXCLUDED.bearing_deg, flights.bearing_deg),
			last_seen = EXCLUDED.last_seen,
			position_count = flights.position_count + EXCLUDED.position_count`,
		rec.ICAO,
		nullString(rec.Callsign),
		nullString(rec.Registration),
		nullString(rec.Type),
		nullString(rec.Squawk),
		rec.Latitude,
		rec.Longitude,
		rec.Altitude,
		rec.GroundSpeed,
		rec.Track,
		rec.VerticalRate,
		rangeM,
		bearingDeg,
		observed.UTC(),
		boolToCount(hasPos),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flight %s: %w", rec.ICAO, err)
	}

	if hasPos {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO flight_positions (icao, latitude, longitude, altitude_m, recorded_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			rec.ICAO, pos.Latitude, pos.Longitude, rec.Altitude, observed.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert position for %s: %w", rec.ICAO, err)
		}
	}

	return nil
}

// ActiveFlights returns the current state of flights seen within
// maxAge, most recently seen first.
func (r *FlightRepository) ActiveFlights(ctx context.Context, maxAge time.Duration) ([]flight.Record, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	rows, err := r.db.QueryContext(ctx,
		`SELECT icao, callsign, registration, aircraft_type, squawk,
		        latitude, longitude, altitude_m,
		        ground_speed_mps, track_deg, vertical_rate_mps, last_seen
		 FROM flights
		 WHERE last_seen >= $1
		 ORDER BY last_seen DESC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query active flights: %w", err)
	}
	defer rows.Close()

	var records []flight.Record
	for rows.Next() {
		var (
			rec                                  flight.Record
			callsign, registration, typ, squawk  sql.NullString
			lat, lon, alt, speed, track, vrate   sql.NullFloat64
			lastSeen                             time.Time
		)

		err := rows.Scan(&rec.ICAO, &callsign, &registration, &typ, &squawk,
			&lat, &lon, &alt, &speed, &track, &vrate, &lastSeen)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight row: %w", err)
		}

		rec.Callsign = callsign.String
		rec.Registration = registration.String
		rec.Type = typ.String
		rec.Squawk = squawk.String
		rec.Latitude = nullFloat(lat)
		rec.Longitude = nullFloat(lon)
		rec.Altitude = nullFloat(alt)
		rec.GroundSpeed = nullFloat(speed)
		rec.Track = nullFloat(track)
		rec.VerticalRate = nullFloat(vrate)
		ts := lastSeen.UTC()
		rec.Timestamp = &ts

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flight rows: %w", err)
	}

	return records, nil
}

// CountFlights returns the number of stored flights.
func (r *FlightRepository) CountFlights(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flights`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count flights: %w", err)
	}
	return count, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package flight defines the flight record type shared by the ADS-B
// Exchange client, the filter pipeline, and the export sinks.
package flight

import (
	"time"

	"github.com/unklstewy/flightlog/pkg/geo"
)

// Record is an immutable snapshot of one aircraft's reported state.
// Every field other than ICAO is optional: the upstream feed routinely
// omits position, altitude, and velocity for aircraft it has only
// partial data for. Optional numeric fields are pointers so that
// "unknown" is distinguishable from zero. A Record is a plain value
// and is never mutated after construction.
type Record struct {
	// ICAO is the unique 24-bit ICAO aircraft address (e.g., "A12345")
	ICAO string `json:"icao" csv:"icao"`

	// Callsign is the flight number or callsign, empty if unknown
	Callsign string `json:"callsign,omitempty" csv:"callsign"`

	// Registration is the aircraft tail number, empty if unknown
	Registration string `json:"registration,omitempty" csv:"registration"`

	// Type is the ICAO aircraft type designator (e.g., "B738")
	Type string `json:"type,omitempty" csv:"type"`

	// Latitude in decimal degrees (-90 to +90), nil if position unknown
	Latitude *float64 `json:"lat,omitempty" csv:"lat"`

	// Longitude in decimal degrees (-180 to +180), nil if position unknown
	Longitude *float64 `json:"lon,omitempty" csv:"lon"`

	// Altitude in meters above mean sea level, nil if unknown
	Altitude *float64 `json:"altitude,omitempty" csv:"altitude"`

	// GroundSpeed in meters per second, nil if unknown
	GroundSpeed *float64 `json:"speed,omitempty" csv:"speed"`

	// Track is the ground track in degrees (0-360), nil if unknown
	Track *float64 `json:"track,omitempty" csv:"track"`

	// VerticalRate in meters per second (positive = climbing), nil if unknown
	VerticalRate *float64 `json:"vert_rate,omitempty" csv:"vert_rate"`

	// Squawk is the transponder code, empty if unknown
	Squawk string `json:"squawk,omitempty" csv:"squawk"`

	// Timestamp is when this state was reported, nil if unknown
	Timestamp *time.Time `json:"timestamp,omitempty" csv:"timestamp"`
}

// Position returns the record's coordinate and whether both latitude
// and longitude are present. A record missing either is "position
// unknown" and fails every geographic predicate.
func (r Record) Position() (geo.Coordinate, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return geo.Coordinate{}, false
	}
	return geo.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}, true
}

// HasPosition reports whether both latitude and longitude are present.
func (r Record) HasPosition() bool {
	_, ok := r.Position()
	return ok
}

package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/unklstewy/flightlog/pkg/flight"
	"github.com/unklstewy/flightlog/pkg/geo"
)

func floatPtr(f float64) *float64 {
	return &f
}

func record(icao string, lat, lon, alt *float64) flight.Record {
	return flight.Record{
		ICAO:      icao,
		Latitude:  lat,
		Longitude: lon,
		Altitude:  alt,
	}
}

// TestRadiusFilter tests geographic radius filtering.
func TestRadiusFilter(t *testing.T) {
	center := geo.Coordinate{Latitude: 37.77, Longitude: -122.42}

	t.Run("Record at center passes with radius 0", func(t *testing.T) {
		p := New().AddRadiusFilter(center, 0)
		r := record("a00001", floatPtr(37.77), floatPtr(-122.42), nil)
		if !p.Matches(r) {
			t.Error("Expected record at center to pass with radius 0")
		}
	})

	t.Run("Record beyond radius fails", func(t *testing.T) {
		p := New().AddRadiusFilter(center, 5000)
		r := record("a00002", floatPtr(40.0), floatPtr(-70.0), nil)
		if p.Matches(r) {
			t.Error("Expected record far away to fail")
		}
	})

	t.Run("Record inside radius passes", func(t *testing.T) {
		p := New().AddRadiusFilter(center, 5000)
		r := record("a00003", floatPtr(37.78), floatPtr(-122.41), nil)
		if !p.Matches(r) {
			t.Error("Expected record ~1.4 km away to pass with 5 km radius")
		}
	})

	t.Run("Missing position always fails", func(t *testing.T) {
		p := New().AddRadiusFilter(center, 1e9)
		cases := []flight.Record{
			record("a00004", nil, nil, nil),
			record("a00005", floatPtr(37.77), nil, nil),
			record("a00006", nil, floatPtr(-122.42), nil),
		}
		for _, r := range cases {
			if p.Matches(r) {
				t.Errorf("Expected record %s with missing position to fail", r.ICAO)
			}
		}
	})
}

// TestBoundsFilter tests bounding box filtering with inclusive bounds.
func TestBoundsFilter(t *testing.T) {
	p := New().AddBoundsFilter(30.0, 40.0, -125.0, -115.0)

	tests := []struct {
		name     string
		rec      flight.Record
		expected bool
	}{
		{"Inside bounds", record("a1", floatPtr(35.0), floatPtr(-120.0), nil), true},
		{"On lat_min boundary", record("a2", floatPtr(30.0), floatPtr(-120.0), nil), true},
		{"On lat_max boundary", record("a3", floatPtr(40.0), floatPtr(-120.0), nil), true},
		{"On lon_min boundary", record("a4", floatPtr(35.0), floatPtr(-125.0), nil), true},
		{"Just below lat_min", record("a5", floatPtr(29.9999), floatPtr(-120.0), nil), false},
		{"Just above lat_max", record("a6", floatPtr(40.0001), floatPtr(-120.0), nil), false},
		{"Outside longitude", record("a7", floatPtr(35.0), floatPtr(-114.0), nil), false},
		{"Missing position", record("a8", nil, nil, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Matches(tt.rec); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestAltitudeFilter tests altitude range filtering.
func TestAltitudeFilter(t *testing.T) {
	t.Run("Inclusive bounds", func(t *testing.T) {
		p := New().AddAltitudeFilter(floatPtr(1000), floatPtr(10000))

		if !p.Matches(record("a1", nil, nil, floatPtr(1000))) {
			t.Error("Expected altitude == min to pass")
		}
		if !p.Matches(record("a2", nil, nil, floatPtr(10000))) {
			t.Error("Expected altitude == max to pass")
		}
		if p.Matches(record("a3", nil, nil, floatPtr(999.9))) {
			t.Error("Expected altitude below min to fail")
		}
		if p.Matches(record("a4", nil, nil, floatPtr(10000.1))) {
			t.Error("Expected altitude above max to fail")
		}
	})

	t.Run("Only min bound", func(t *testing.T) {
		p := New().AddAltitudeFilter(floatPtr(5000), nil)
		if !p.Matches(record("a1", nil, nil, floatPtr(30000))) {
			t.Error("Expected high altitude to pass with open max")
		}
		if p.Matches(record("a2", nil, nil, floatPtr(100))) {
			t.Error("Expected low altitude to fail")
		}
	})

	t.Run("Only max bound", func(t *testing.T) {
		p := New().AddAltitudeFilter(nil, floatPtr(5000))
		if !p.Matches(record("a1", nil, nil, floatPtr(100))) {
			t.Error("Expected low altitude to pass with open min")
		}
		if p.Matches(record("a2", nil, nil, floatPtr(30000))) {
			t.Error("Expected high altitude to fail")
		}
	})

	t.Run("Missing altitude always fails", func(t *testing.T) {
		// Even with both bounds open, unknown altitude is rejected
		p := New().AddAltitudeFilter(nil, nil)
		if p.Matches(record("a1", floatPtr(37.0), floatPtr(-122.0), nil)) {
			t.Error("Expected missing altitude to fail even with no bounds")
		}
	})
}

// TestCustomFilter tests caller-supplied predicates.
func TestCustomFilter(t *testing.T) {
	t.Run("Type substring filter", func(t *testing.T) {
		p := New().AddCustomFilter(func(r flight.Record) bool {
			return strings.Contains(r.Type, "B74")
		})

		if !p.Matches(flight.Record{ICAO: "a1", Type: "B748"}) {
			t.Error("Expected B748 to pass")
		}
		if p.Matches(flight.Record{ICAO: "a2", Type: "A320"}) {
			t.Error("Expected A320 to fail")
		}
	})

	t.Run("Panicking predicate propagates", func(t *testing.T) {
		p := New().AddCustomFilter(func(r flight.Record) bool {
			panic("predicate bug")
		})

		defer func() {
			if recover() == nil {
				t.Error("Expected panic to propagate out of evaluation")
			}
		}()

		for range p.Evaluate(flight.SliceSeq([]flight.Record{{ICAO: "a1"}})) {
		}
	})
}

// TestEvaluate tests pipeline evaluation semantics.
func TestEvaluate(t *testing.T) {
	center := geo.Coordinate{Latitude: 37.77, Longitude: -122.42}

	input := []flight.Record{
		record("first", floatPtr(37.77), floatPtr(-122.42), nil),
		record("second", floatPtr(37.78), floatPtr(-122.41), floatPtr(12000)),
		record("third", floatPtr(40.0), floatPtr(-70.0), floatPtr(12000)),
	}

	t.Run("Radius then altitude end to end", func(t *testing.T) {
		p := New().
			AddRadiusFilter(center, 5000).
			AddAltitudeFilter(floatPtr(10000), nil)

		out := flight.Collect(p.Evaluate(flight.SliceSeq(input)))

		if len(out) != 1 {
			t.Fatalf("Expected 1 surviving record, got %d", len(out))
		}
		if out[0].ICAO != "second" {
			t.Errorf("Expected record second, got %s", out[0].ICAO)
		}
	})

	t.Run("No filters is identity", func(t *testing.T) {
		p := New()
		out := flight.Collect(p.Evaluate(flight.SliceSeq(input)))
		if len(out) != len(input) {
			t.Fatalf("Expected %d records, got %d", len(input), len(out))
		}
		for i := range out {
			if out[i].ICAO != input[i].ICAO {
				t.Errorf("Record %d: expected %s, got %s", i, input[i].ICAO, out[i].ICAO)
			}
		}
	})

	t.Run("ClearFilters restores identity", func(t *testing.T) {
		p := New().
			AddRadiusFilter(center, 1).
			AddAltitudeFilter(floatPtr(99999), nil)
		p.ClearFilters()

		if p.Len() != 0 {
			t.Errorf("Expected 0 predicates after clear, got %d", p.Len())
		}
		out := flight.Collect(p.Evaluate(flight.SliceSeq(input)))
		if len(out) != len(input) {
			t.Errorf("Expected all %d records, got %d", len(input), len(out))
		}
	})

	t.Run("Filter order does not change the surviving set", func(t *testing.T) {
		ab := New().
			AddRadiusFilter(center, 5000).
			AddAltitudeFilter(floatPtr(10000), nil)
		ba := New().
			AddAltitudeFilter(floatPtr(10000), nil).
			AddRadiusFilter(center, 5000)

		outAB := flight.Collect(ab.Evaluate(flight.SliceSeq(input)))
		outBA := flight.Collect(ba.Evaluate(flight.SliceSeq(input)))

		if len(outAB) != len(outBA) {
			t.Fatalf("Expected same result set, got %d vs %d", len(outAB), len(outBA))
		}
		for i := range outAB {
			if outAB[i].ICAO != outBA[i].ICAO {
				t.Errorf("Record %d differs: %s vs %s", i, outAB[i].ICAO, outBA[i].ICAO)
			}
		}
	})

	t.Run("Idempotent over a restartable source", func(t *testing.T) {
		p := New().AddRadiusFilter(center, 5000)
		src := flight.SliceSeq(input)

		first := flight.Collect(p.Evaluate(src))
		second := flight.Collect(p.Evaluate(src))

		if len(first) != len(second) {
			t.Fatalf("Expected identical output, got %d vs %d records", len(first), len(second))
		}
		for i := range first {
			if first[i].ICAO != second[i].ICAO {
				t.Errorf("Record %d differs between evaluations", i)
			}
		}
	})

	t.Run("Short-circuits on first failing predicate", func(t *testing.T) {
		firstCalls, secondCalls := 0, 0
		p := New().
			AddCustomFilter(func(r flight.Record) bool {
				firstCalls++
				return false
			}).
			AddCustomFilter(func(r flight.Record) bool {
				secondCalls++
				return true
			})

		out := flight.Collect(p.Evaluate(flight.SliceSeq(input)))
		if len(out) != 0 {
			t.Fatalf("Expected no survivors, got %d", len(out))
		}
		if firstCalls != len(input) {
			t.Errorf("Expected first predicate called %d times, got %d", len(input), firstCalls)
		}
		if secondCalls != 0 {
			t.Errorf("Expected second predicate never called, got %d calls", secondCalls)
		}
	})

	t.Run("Consumer can stop pulling", func(t *testing.T) {
		pulled := 0
		src := flight.Seq(func(yield func(flight.Record) bool) {
			for i := 0; i < 1000; i++ {
				pulled++
				if !yield(flight.Record{ICAO: "a1"}) {
					return
				}
			}
		})

		p := New()
		for range p.Evaluate(src) {
			break
		}

		if pulled != 1 {
			t.Errorf("Expected 1 record pulled before stopping, got %d", pulled)
		}
	})

	t.Run("Filters added after Evaluate do not apply", func(t *testing.T) {
		p := New()
		seq := p.Evaluate(flight.SliceSeq(input))
		p.AddRadiusFilter(center, 1)

		out := flight.Collect(seq)
		if len(out) != len(input) {
			t.Errorf("Expected snapshot of empty predicate list, got %d of %d records",
				len(out), len(input))
		}
	})
}

// TestMatchesTimestampIgnored verifies filtering reads only the fields
// its predicates need.
func TestMatchesTimestampIgnored(t *testing.T) {
	now := time.Now().UTC()
	r := flight.Record{
		ICAO:      "abc123",
		Latitude:  floatPtr(37.77),
		Longitude: floatPtr(-122.42),
		Timestamp: &now,
	}

	p := New().AddBoundsFilter(37.0, 38.0, -123.0, -122.0)
	if !p.Matches(r) {
		t.Error("Expected record with timestamp to pass bounds filter")
	}
}

// Package filter selects flight records by geographic and altitude
// criteria. A Pipeline holds an ordered list of predicates and applies
// them lazily to a record sequence, dropping a record at the first
// predicate it fails.
package filter

import (
	"github.com/unklstewy/flightlog/pkg/flight"
	"github.com/unklstewy/flightlog/pkg/geo"
)

// Predicate decides whether a single record is kept. Predicates must
// be pure: no side effects, and the same record always yields the same
// answer. The pipeline does not inspect or constrain predicate logic.
type Predicate func(flight.Record) bool

// Pipeline is an ordered collection of predicates. Add* methods append
// and return the pipeline for chaining. A Pipeline is not safe for
// concurrent mutation; adding or clearing filters while an Evaluate
// sequence is being consumed is unsupported.
type Pipeline struct {
	predicates []Predicate
}

// New creates an empty pipeline. With no filters registered every
// record passes.
func New() *Pipeline {
	return &Pipeline{}
}

// AddRadiusFilter appends a predicate keeping records within
// radiusMeters of center. Records without a position are dropped,
// regardless of radius.
func (p *Pipeline) AddRadiusFilter(center geo.Coordinate, radiusMeters float64) *Pipeline {
	p.predicates = append(p.predicates, func(r flight.Record) bool {
		pos, ok := r.Position()
		if !ok {
			return false
		}
		return geo.Distance(center, pos) <= radiusMeters
	})
	return p
}

// AddBoundsFilter appends a predicate keeping records inside the
// inclusive bounding box. Records without a position are dropped.
// There is no wraparound handling across the antimeridian; callers
// needing that should register two bounds filters on separate
// pipelines and merge the results.
func (p *Pipeline) AddBoundsFilter(latMin, latMax, lonMin, lonMax float64) *Pipeline {
	p.predicates = append(p.predicates, func(r flight.Record) bool {
		pos, ok := r.Position()
		if !ok {
			return false
		}
		return pos.Latitude >= latMin && pos.Latitude <= latMax &&
			pos.Longitude >= lonMin && pos.Longitude <= lonMax
	})
	return p
}

// AddAltitudeFilter appends a predicate keeping records whose altitude
// (meters) falls within [minAlt, maxAlt]. Either bound may be nil to
// leave it open. Records with unknown altitude are dropped even when
// both bounds are nil.
func (p *Pipeline) AddAltitudeFilter(minAlt, maxAlt *float64) *Pipeline {
	p.predicates = append(p.predicates, func(r flight.Record) bool {
		if r.Altitude == nil {
			return false
		}
		if minAlt != nil && *r.Altitude < *minAlt {
			return false
		}
		if maxAlt != nil && *r.Altitude > *maxAlt {
			return false
		}
		return true
	})
	return p
}

// AddCustomFilter appends an arbitrary caller-supplied predicate.
// A predicate that panics is not recovered; the panic surfaces to
// whoever is consuming the evaluated sequence.
func (p *Pipeline) AddCustomFilter(pred Predicate) *Pipeline {
	p.predicates = append(p.predicates, pred)
	return p
}

// ClearFilters removes all registered predicates.
func (p *Pipeline) ClearFilters() *Pipeline {
	p.predicates = nil
	return p
}

// Len returns the number of registered predicates.
func (p *Pipeline) Len() int {
	return len(p.predicates)
}

// Matches tests all predicates against a single record in registration
// order, stopping at the first failure.
func (p *Pipeline) Matches(r flight.Record) bool {
	for _, pred := range p.predicates {
		if !pred(r) {
			return false
		}
	}
	return true
}

// Evaluate returns a lazy sequence of the input records that satisfy
// every registered predicate. Records are pulled from the input one at
// a time and tested immediately; nothing is buffered. The predicate
// list is snapshotted when Evaluate is called, so filters added
// afterwards do not affect an already-obtained sequence. The result is
// restartable only if the input sequence is.
func (p *Pipeline) Evaluate(records flight.Seq) flight.Seq {
	predicates := p.predicates
	return func(yield func(flight.Record) bool) {
		for r := range records {
			keep := true
			for _, pred := range predicates {
				if !pred(r) {
					keep = false
					break
				}
			}
			if keep && !yield(r) {
				return
			}
		}
	}
}

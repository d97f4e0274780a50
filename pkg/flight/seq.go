package flight

import "iter"

// Seq is a lazy, forward-only sequence of flight records. Elements are
// produced on demand as the consumer pulls them; whether a Seq can be
// ranged over more than once depends on the producer. A Seq built with
// SliceSeq is restartable, one wrapping a network response may not be.
type Seq = iter.Seq[Record]

// SliceSeq returns a restartable Seq over the given records.
func SliceSeq(records []Record) Seq {
	return func(yield func(Record) bool) {
		for _, r := range records {
			if !yield(r) {
				return
			}
		}
	}
}

// Collect drains a Seq into a slice.
func Collect(seq Seq) []Record {
	var out []Record
	for r := range seq {
		out = append(out, r)
	}
	return out
}

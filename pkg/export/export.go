// Package export writes filtered flight records to CSV or JSON sinks.
// The sinks own all serialization and file I/O; they consume a record
// sequence and report how many records were written.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/unklstewy/flightlog/pkg/flight"
)

// WriteCSV writes records to w as CSV with a header row.
// Returns the number of records written.
func WriteCSV(w io.Writer, records flight.Seq) (int, error) {
	recs := flight.Collect(records)
	if err := gocsv.Marshal(&recs, w); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(recs), nil
}

// WriteCSVFile writes records to a CSV file at path.
// When appendMode is set and the file already has content, records are
// appended and the header row is not repeated.
func WriteCSVFile(path string, records flight.Seq, appendMode bool) (int, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return 0, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	if appendMode {
		fi, err := f.Stat()
		if err != nil {
			return 0, fmt.Errorf("stat csv file: %w", err)
		}
		if fi.Size() > 0 {
			recs := flight.Collect(records)
			if err := gocsv.MarshalWithoutHeaders(&recs, f); err != nil {
				return 0, fmt.Errorf("append csv: %w", err)
			}
			return len(recs), nil
		}
	}

	return WriteCSV(f, records)
}

// WriteJSON writes records to w as a JSON array.
// indent is the number of spaces per indentation level; 0 writes
// compact output. Returns the number of records written.
func WriteJSON(w io.Writer, records flight.Seq, indent int) (int, error) {
	recs := flight.Collect(records)
	if recs == nil {
		recs = []flight.Record{}
	}

	enc := json.NewEncoder(w)
	if indent > 0 {
		var pad string
		for i := 0; i < indent; i++ {
			pad += " "
		}
		enc.SetIndent("", pad)
	}
	if err := enc.Encode(recs); err != nil {
		return 0, fmt.Errorf("write json: %w", err)
	}
	return len(recs), nil
}

// WriteJSONFile writes records to a JSON file at path, replacing any
// existing content.
func WriteJSONFile(path string, records flight.Seq, indent int) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	return WriteJSON(f, records, indent)
}

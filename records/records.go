// Package records reads the {title, lat, lon} input stream the tiler
// consumes. Parsing the upstream Wikipedia dump into this stream is an
// external collaborator (see spec.md §1); this package only reads the
// already-extracted CSV.
package records

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Record is one input row: an article title and its geographic position.
type Record struct {
	Title string
	Lat   float64
	Lon   float64
}

// Read parses a CSV stream of "title,lat,lon" rows (no header) into
// Records. Rows with lat/lon both equal to zero are rejected upstream per
// the spec and are skipped here defensively with a count of how many were
// dropped.
func Read(r io.Reader) ([]Record, int, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = 3
	cr.ReuseRecord = true

	var out []Record
	skipped := 0
	line := 0
	for {
		row, err := cr.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("records: Read: line %d: %w", line, err)
		}
		lat, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, skipped, fmt.Errorf("records: Read: line %d: invalid latitude %q: %w", line, row[1], err)
		}
		lon, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, skipped, fmt.Errorf("records: Read: line %d: invalid longitude %q: %w", line, row[2], err)
		}
		if lat == 0 && lon == 0 {
			skipped++
			continue
		}
		out = append(out, Record{Title: row[0], Lat: lat, Lon: lon})
	}
	return out, skipped, nil
}

// Limit truncates recs to at most n records, the CLI's --limit flag.
func Limit(recs []Record, n int) []Record {
	if n <= 0 || n >= len(recs) {
		return recs
	}
	return recs[:n]
}

// Bounds is an inclusive south/north/west/east geographic box.
type Bounds struct {
	South, North, West, East float64
}

// Filter keeps only records within b, the CLI's --bounds flag.
func Filter(recs []Record, b Bounds) []Record {
	out := recs[:0:0]
	for _, r := range recs {
		if r.Lat >= b.South && r.Lat <= b.North && r.Lon >= b.West && r.Lon <= b.East {
			out = append(out, r)
		}
	}
	return out
}

package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/civica/civica/pkg/logger"
)

var log = logger.Get("Catalog")

// dateLayouts covers the formats observed in scraper output; the
// portal emits US-style slash dates, the video platform occasionally
// ISO dates.
var dateLayouts = []string{
	"1/2/2006",
	"1/2/06",
	"2006-01-02",
	"January 2, 2006",
}

// LoadFile reads the meeting catalog CSV at the given path. A missing
// catalog is a systemic error - there is nothing to do without one.
func LoadFile(path string) ([]MeetingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	log.Emit(logger.INFO, "Loaded %d meetings from %s\n", len(records), path)
	return records, nil
}

// Read parses catalog rows from the reader provided. The first row
// must be a header naming at least the 'title' and 'date' columns;
// resource columns the header omits are treated as absent. Rows with
// a blank title are dropped (they cannot produce a deterministic
// target path), preserving the order of everything else.
func Read(r io.Reader) ([]MeetingRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"title", "date"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("catalog is missing required column '%s'", required)
		}
	}

	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]MeetingRecord, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("malformed catalog row: %w", err)
		}

		title := cell(row, "title")
		if title == "" {
			log.Emit(logger.VERBOSE, "Dropping catalog row with no title: %v\n", row)
			continue
		}

		rawDate := cell(row, "date")
		record := MeetingRecord{
			Date:      parseDate(rawDate),
			RawDate:   rawDate,
			Time:      cell(row, "time"),
			Title:     title,
			Type:      ParseMeetingType(cell(row, "meeting_type")),
			Resources: make(map[ResourceKind]string),
		}

		for _, kind := range ResourceKinds() {
			if url := cell(row, string(kind)); url != "" {
				record.Resources[kind] = url
			}
		}

		records = append(records, record)
	}

	return records, nil
}

// parseDate attempts each known layout in turn, returning the zero
// time when none match. Callers treat a zero date as "unknown", not
// as an error.
func parseDate(raw string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}

	return time.Time{}
}

package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	unitRe      = regexp.MustCompile(`(?i)\s*(?:h|hr|hrs|hour|hours)\.?\s*$`)
	thousandsRe = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
)

// dateLayouts are tried in order; day-first slashes follow the site's paper logs.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
}

// ReadingRecord is one row of an hour meter import.
type ReadingRecord struct {
	Line      int
	Equipment string
	Date      time.Time
	Hours     float64
}

// RowError ties a parse failure to its input line.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseReadingDate parses a reading date into a UTC calendar date. The calendar day is
// taken in the offset the value was written in.
func ParseReadingDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", raw)
}

// ParseHours parses an hour meter value such as "1,234.5", "1234.5 h" or "1234,5 hrs".
func ParseHours(raw string) (float64, error) {
	s := strings.TrimSpace(unitRe.ReplaceAllString(strings.TrimSpace(raw), ""))
	s = strings.ReplaceAll(s, " ", "")

	switch {
	case thousandsRe.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1 && !strings.Contains(s, "."):
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse hours: %q", raw)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("hours must be a non-negative number: %q", raw)
	}
	return v, nil
}

// ParseReadingRecord parses an "equipment,date,hours" row.
func ParseReadingRecord(record []string) (ReadingRecord, error) {
	if len(record) < 3 {
		return ReadingRecord{}, fmt.Errorf("expected 3 columns (equipment, date, hours), got %d", len(record))
	}
	equipment := strings.TrimSpace(record[0])
	if equipment == "" {
		return ReadingRecord{}, errors.New("equipment is empty")
	}
	date, err := ParseReadingDate(record[1])
	if err != nil {
		return ReadingRecord{}, err
	}
	hours, err := ParseHours(record[2])
	if err != nil {
		return ReadingRecord{}, err
	}
	return ReadingRecord{Equipment: equipment, Date: date, Hours: hours}, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	return first == "equipment" || first == "unit" || first == "equipment_id"
}

// ReadReadings parses a whole CSV import. Bad rows are reported with their line and
// skipped; a malformed CSV stream aborts.
func ReadReadings(r io.Reader) ([]ReadingRecord, []error, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		records []ReadingRecord
		rowErrs []error
	)
	for first := true; ; first = false {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if first && isHeader(row) {
			continue
		}

		rec, err := ParseReadingRecord(row)
		if err != nil {
			rowErrs = append(rowErrs, &RowError{Line: line, Err: err})
			continue
		}
		rec.Line = line
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

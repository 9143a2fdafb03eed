// Package source reads an already-cleaned meter table into records.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

const (
	ColumnTimestamp = "utc_time"
	ColumnFlow      = "flowQuantity_delta"
	ColumnAsset     = "asset_type"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// CSVSource reads records from a CSV file with a header row
type CSVSource struct {
	Path string
}

// NewCSVSource creates a source for path
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Records reads the whole file. See ReadRecords for the error contract.
func (s *CSVSource) Records(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer f.Close()

	return ReadRecords(f)
}

// ReadRecords parses CSV rows into records. Values are not coerced or filled:
// a cell that does not parse leaves a NaN flow or a zero timestamp in its
// record and adds a MalformedRecordError for that row position. Rows are
// always returned in file order together with the joined row errors, so the
// caller can drop them or abort. Structural problems return no records.
func ReadRecords(r io.Reader) ([]models.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty input: missing header row")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	tsCol, ok := cols[ColumnTimestamp]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", ColumnTimestamp)
	}
	flowCol, ok := cols[ColumnFlow]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", ColumnFlow)
	}
	assetCol, hasAsset := cols[ColumnAsset]

	var (
		records []models.Record
		errs    []error
	)
	for pos := 0; ; pos++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", pos, err)
		}

		var rec models.Record

		ts, err := parseTimestamp(cell(row, tsCol))
		if err != nil {
			errs = append(errs, &models.MalformedRecordError{Index: pos, Field: ColumnTimestamp, Reason: "unparseable timestamp", Err: err})
		}
		rec.Timestamp = ts

		flow, err := strconv.ParseFloat(cell(row, flowCol), 64)
		if err != nil {
			errs = append(errs, &models.MalformedRecordError{Index: pos, Field: ColumnFlow, Reason: "not a number", Err: err})
			flow = math.NaN()
		}
		rec.FlowDelta = flow

		if hasAsset {
			rec.AssetType = cell(row, assetCol)
		}
		records = append(records, rec)
	}
	return records, errors.Join(errs...)
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty value")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown time format %q", s)
}

// Package gtfs loads GTFS feeds and fare tables into storage.
//
// Every table is plain CSV with a header row. Records decode into structs by
// `csv` tag, whether they come from a feed zip member or a standalone file
// such as distance_fares.csv.
package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
)

// ParseZip decodes the agency, route, stop and trip tables of a feed zip.
// stop_times.txt is left for the importer to stream.
func ParseZip(path string, logger *slog.Logger) (*Feed, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	feed := &Feed{}

	for _, f := range r.File {
		switch f.Name {
		case "agency.txt":
			feed.Agencies, err = parseZipMember[Agency](f)
		case "routes.txt":
			feed.Routes, err = parseZipMember[Route](f)
		case "stops.txt":
			feed.Stops, err = parseZipMember[Stop](f)
		case "trips.txt":
			feed.Trips, err = parseZipMember[Trip](f)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.Name, err)
		}
	}

	logger.Info("GTFS feed parsed",
		"agencies", len(feed.Agencies),
		"routes", len(feed.Routes),
		"stops", len(feed.Stops),
		"trips", len(feed.Trips),
	)

	return feed, nil
}

func parseZipMember[T any](f *zip.File) ([]T, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer rc.Close()
	return ParseCSV[T](rc)
}

// ParseCSV decodes every record of r into a slice of T, matching header
// columns to `csv` struct tags. Unknown columns are ignored.
func ParseCSV[T any](r io.Reader) ([]T, error) {
	s, err := NewCSVStream[T](r)
	if err != nil {
		return nil, err
	}

	var results []T
	for {
		item, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		results = append(results, item)
	}
	return results, nil
}

// CSVStream decodes one record at a time, for tables too large to hold
// in memory.
type CSVStream[T any] struct {
	reader   *csv.Reader
	fieldMap []fieldMapping
}

type fieldMapping struct {
	csvIndex   int
	fieldIndex int
}

// NewCSVStream reads the header row of r and returns a stream positioned
// at the first record.
func NewCSVStream[T any](r io.Reader) (*CSVStream[T], error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	// Strip BOM
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")
	}

	return &CSVStream[T]{
		reader:   reader,
		fieldMap: buildFieldMap[T](header),
	}, nil
}

// Next decodes the next record. It returns io.EOF when the input is exhausted.
func (s *CSVStream[T]) Next() (T, error) {
	var t T
	record, err := s.reader.Read()
	if err != nil {
		return t, err
	}
	v := reflect.ValueOf(&t).Elem()
	for _, fm := range s.fieldMap {
		if fm.csvIndex < len(record) {
			v.Field(fm.fieldIndex).SetString(record[fm.csvIndex])
		}
	}
	return t, nil
}

// buildFieldMap maps CSV column positions to struct field positions.
func buildFieldMap[T any](header []string) []fieldMapping {
	typ := reflect.TypeFor[T]()

	tagToField := make(map[string]int)
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("csv"); tag != "" {
			tagToField[tag] = i
		}
	}

	var mappings []fieldMapping
	for csvIdx, colName := range header {
		if fieldIdx, ok := tagToField[strings.TrimSpace(colName)]; ok {
			mappings = append(mappings, fieldMapping{csvIndex: csvIdx, fieldIndex: fieldIdx})
		}
	}
	return mappings
}

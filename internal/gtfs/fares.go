package gtfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"komyut/internal/fare"
	"komyut/internal/storage"
)

// Fare table file names inside the fares directory.
const (
	DistanceFaresFile = "distance_fares.csv"
	StationFaresFile  = "station_fares.csv"
)

// FareImporter loads the road and rail fare matrices from CSV files.
type FareImporter struct {
	db     *storage.DB
	logger *slog.Logger
}

// NewFareImporter creates a FareImporter.
func NewFareImporter(db *storage.DB, logger *slog.Logger) *FareImporter {
	return &FareImporter{db: db, logger: logger}
}

// Import replaces the fare tables with the CSV files found in dir.
// A missing file leaves its table untouched.
func (fi *FareImporter) Import(ctx context.Context, dir string) error {
	bands, err := readCSVFile[DistanceFareRow](filepath.Join(dir, DistanceFaresFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fi.logger.Warn("distance fare table not found", "dir", dir)
	case err != nil:
		return err
	default:
		parsed, err := DistanceBands(bands)
		if err != nil {
			return err
		}
		if err := fi.db.ReplaceDistanceFares(ctx, parsed); err != nil {
			return fmt.Errorf("store distance fares: %w", err)
		}
		fi.logger.Info("imported distance fares", "bands", len(parsed))
	}

	stations, err := readCSVFile[StationFareRow](filepath.Join(dir, StationFaresFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fi.logger.Warn("station fare table not found", "dir", dir)
	case err != nil:
		return err
	default:
		parsed, err := StationFares(stations)
		if err != nil {
			return err
		}
		if err := fi.db.ReplaceStationFares(ctx, parsed); err != nil {
			return fmt.Errorf("store station fares: %w", err)
		}
		fi.logger.Info("imported station fares", "pairs", len(parsed))
	}
	return nil
}

func readCSVFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ParseCSV[T](f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// DistanceBands converts distance_fares.csv rows to fare bands.
// An empty discounted column means the standard discount applies.
func DistanceBands(rows []DistanceFareRow) ([]fare.Band, error) {
	bands := make([]fare.Band, 0, len(rows))
	for i, r := range rows {
		line := i + 2 // header is line 1
		mode := strings.TrimSpace(r.Mode)
		if mode == "" {
			return nil, fmt.Errorf("%s line %d: missing mode", DistanceFaresFile, line)
		}
		km, err := strconv.Atoi(strings.TrimSpace(r.DistanceKm))
		if err != nil || km < 1 {
			return nil, fmt.Errorf("%s line %d: bad distance_km %q", DistanceFaresFile, line, r.DistanceKm)
		}
		regular, err := parsePrice(r.Regular)
		if err != nil || !regular.Available {
			return nil, fmt.Errorf("%s line %d: bad regular fare %q", DistanceFaresFile, line, r.Regular)
		}
		discounted, err := parsePrice(r.Discounted)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad discounted fare %q", DistanceFaresFile, line, r.Discounted)
		}
		bands = append(bands, fare.Band{
			Mode:       mode,
			MaxKm:      km,
			Regular:    regular.Amount,
			Discounted: discounted.Amount,
		})
	}
	return bands, nil
}

// StationFares converts station_fares.csv rows to rail fare rows.
func StationFares(rows []StationFareRow) ([]fare.StationFare, error) {
	out := make([]fare.StationFare, 0, len(rows))
	for i, r := range rows {
		line := i + 2
		sf := fare.StationFare{
			System:      strings.TrimSpace(r.System),
			Origin:      strings.TrimSpace(r.Origin),
			Destination: strings.TrimSpace(r.Destination),
		}
		if sf.System == "" || sf.Origin == "" || sf.Destination == "" {
			return nil, fmt.Errorf("%s line %d: system, origin and destination are required", StationFaresFile, line)
		}
		for _, col := range []struct {
			name string
			raw  string
			dst  *fare.Price
		}{
			{"single_journey", r.SingleJourney, &sf.SingleJourney},
			{"stored_value", r.StoredValue, &sf.StoredValue},
			{"fare", r.Fare, &sf.Fare},
			{"discounted", r.Discounted, &sf.Discounted},
		} {
			p, err := parsePrice(col.raw)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: bad %s %q", StationFaresFile, line, col.name, col.raw)
			}
			*col.dst = p
		}
		out = append(out, sf)
	}
	return out, nil
}

// parsePrice reads a peso amount such as "13", "13.50" or "₱13.50".
// Blank and "N/A" cells are unavailable.
func parsePrice(raw string) (fare.Price, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "₱")
	if s == "" || strings.EqualFold(s, "N/A") {
		return fare.NA, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fare.NA, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fare.NA, fmt.Errorf("invalid amount %v", v)
	}
	return fare.Amount(fare.Pesos(v)), nil
}

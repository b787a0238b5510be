package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"komyut/internal/fare"
)

// DistanceBands returns the fare bands of a mode, ascending by distance.
func (db *DB) DistanceBands(ctx context.Context, mode string) ([]fare.Band, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT mode, distance_km, regular, COALESCE(discounted, 0)
		FROM distance_fares
		WHERE mode = ?
		ORDER BY distance_km`, mode)
	if err != nil {
		return nil, fmt.Errorf("distance fares query: %w", err)
	}
	defer rows.Close()

	var bands []fare.Band
	for rows.Next() {
		var b fare.Band
		if err := rows.Scan(&b.Mode, &b.MaxKm, &b.Regular, &b.Discounted); err != nil {
			return nil, fmt.Errorf("scan distance fare: %w", err)
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}

// StationFare looks up a rail fare by normalized station keys.
func (db *DB) StationFare(ctx context.Context, system, originKey, destinationKey string) (fare.StationFare, bool, error) {
	var (
		r                                fare.StationFare
		single, stored, flat, discounted sql.NullInt64
	)
	err := db.QueryRowContext(ctx, `
		SELECT system, origin, destination, single_journey, stored_value, fare, discounted
		FROM station_fares
		WHERE system = ? AND origin_key = ? AND destination_key = ?`,
		system, originKey, destinationKey,
	).Scan(&r.System, &r.Origin, &r.Destination, &single, &stored, &flat, &discounted)
	if errors.Is(err, sql.ErrNoRows) {
		return fare.StationFare{}, false, nil
	}
	if err != nil {
		return fare.StationFare{}, false, fmt.Errorf("station fare query: %w", err)
	}
	r.SingleJourney = price(single)
	r.StoredValue = price(stored)
	r.Fare = price(flat)
	r.Discounted = price(discounted)
	return r, true, nil
}

// ReplaceDistanceFares swaps the whole road fare matrix in one transaction.
func (db *DB) ReplaceDistanceFares(ctx context.Context, bands []fare.Band) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM distance_fares`); err != nil {
		return fmt.Errorf("clear distance_fares: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO distance_fares (mode, distance_km, regular, discounted) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare distance_fares: %w", err)
	}
	defer stmt.Close()

	for _, b := range bands {
		var discounted any
		if b.Discounted != 0 {
			discounted = int64(b.Discounted)
		}
		if _, err := stmt.ExecContext(ctx, b.Mode, b.MaxKm, int64(b.Regular), discounted); err != nil {
			return fmt.Errorf("insert distance fare %s/%d: %w", b.Mode, b.MaxKm, err)
		}
	}
	return tx.Commit()
}

// ReplaceStationFares swaps the whole rail fare matrix in one transaction.
// Station keys are normalized on the way in.
func (db *DB) ReplaceStationFares(ctx context.Context, rows []fare.StationFare) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM station_fares`); err != nil {
		return fmt.Errorf("clear station_fares: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO station_fares
		  (system, origin_key, destination_key, origin, destination,
		   single_journey, stored_value, fare, discounted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare station_fares: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.System,
			fare.NormalizeStation(r.Origin), fare.NormalizeStation(r.Destination),
			r.Origin, r.Destination,
			nullable(r.SingleJourney), nullable(r.StoredValue), nullable(r.Fare), nullable(r.Discounted),
		); err != nil {
			return fmt.Errorf("insert station fare %s %s-%s: %w", r.System, r.Origin, r.Destination, err)
		}
	}
	return tx.Commit()
}

func price(n sql.NullInt64) fare.Price {
	if !n.Valid {
		return fare.NA
	}
	return fare.Amount(fare.Money(n.Int64))
}

func nullable(p fare.Price) any {
	if !p.Available {
		return nil
	}
	return int64(p.Amount)
}

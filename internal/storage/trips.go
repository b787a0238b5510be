package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"komyut/internal/journey"
)

// Fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// CreateTrip inserts a new user trip.
func (db *DB) CreateTrip(ctx context.Context, t journey.UserTrip) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_trips (id, user_id, from_location, to_location, transit_type,
		  route_name, distance_km, fare_paid, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.FromLocation, t.ToLocation, t.TransitType,
		t.RouteName, t.DistanceKm, nullable(t.FarePaid), string(t.Status),
		t.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert user trip: %w", err)
	}
	return nil
}

// CompleteTrip marks an active trip completed and credits the user's points
// in one transaction. The status guard on the update means concurrent calls
// for the same trip award points once.
func (db *DB) CompleteTrip(ctx context.Context, tripID string, completedAt time.Time, points int) (journey.UserTrip, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return journey.UserTrip{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE user_trips SET status = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		string(journey.StatusCompleted), completedAt.UTC().Format(timeLayout),
		tripID, string(journey.StatusActive),
	)
	if err != nil {
		return journey.UserTrip{}, fmt.Errorf("complete trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return journey.UserTrip{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return journey.UserTrip{}, journey.ErrNotFoundOrCompleted
	}

	t, err := scanTrip(tx.QueryRowContext(ctx, tripColumns+` WHERE id = ?`, tripID))
	if err != nil {
		return journey.UserTrip{}, fmt.Errorf("reload trip: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, points) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET points = points + excluded.points`,
		t.UserID, points,
	); err != nil {
		return journey.UserTrip{}, fmt.Errorf("award points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return journey.UserTrip{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

// Trip returns one trip by id, or journey.ErrNotFoundOrCompleted.
func (db *DB) Trip(ctx context.Context, tripID string) (journey.UserTrip, error) {
	t, err := scanTrip(db.QueryRowContext(ctx, tripColumns+` WHERE id = ?`, tripID))
	if errors.Is(err, sql.ErrNoRows) {
		return journey.UserTrip{}, journey.ErrNotFoundOrCompleted
	}
	return t, err
}

// TripsForUser returns a user's trips, newest first.
func (db *DB) TripsForUser(ctx context.Context, userID string, limit int) ([]journey.UserTrip, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, tripColumns+`
		WHERE user_id = ?
		ORDER BY started_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("user trips query: %w", err)
	}
	defer rows.Close()

	trips := []journey.UserTrip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// UserPoints returns a user's cumulative points; unknown users have zero.
func (db *DB) UserPoints(ctx context.Context, userID string) (int, error) {
	var points int
	err := db.QueryRowContext(ctx, `SELECT points FROM users WHERE id = ?`, userID).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("user points query: %w", err)
	}
	return points, nil
}

const tripColumns = `
	SELECT id, user_id, from_location, to_location, transit_type, route_name,
	       distance_km, fare_paid, status, started_at, completed_at
	FROM user_trips`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (journey.UserTrip, error) {
	var (
		t         journey.UserTrip
		farePaid  sql.NullInt64
		status    string
		started   string
		completed sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.FromLocation, &t.ToLocation, &t.TransitType,
		&t.RouteName, &t.DistanceKm, &farePaid, &status, &started, &completed); err != nil {
		return journey.UserTrip{}, fmt.Errorf("scan user trip: %w", err)
	}
	t.FarePaid = price(farePaid)
	t.Status = journey.Status(status)

	var err error
	if t.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return journey.UserTrip{}, fmt.Errorf("parse started_at: %w", err)
	}
	if completed.Valid {
		at, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return journey.UserTrip{}, fmt.Errorf("parse completed_at: %w", err)
		}
		t.CompletedAt = &at
	}
	return t, nil
}

package gtfs

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"komyut/internal/storage"
)

// checkHour is the local hour of the daily feed check.
const checkHour = 3

// Scheduler manages periodic GTFS feed updates.
type Scheduler struct {
	downloader *Downloader
	importer   *Importer
	db         *storage.DB
	loc        *time.Location
	logger     *slog.Logger
	onImport   func(context.Context)
	now        func() time.Time

	mu            sync.Mutex
	lastCheckDate string // YYYY-MM-DD of last check, prevents multiple checks per day
}

// NewScheduler creates a Scheduler that checks the feed daily at 03:00 in loc.
func NewScheduler(downloader *Downloader, db *storage.DB, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		downloader: downloader,
		importer:   NewImporter(db, logger),
		db:         db,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// OnImport registers fn to run after every successful import, typically to
// reload in-memory snapshots of the reference data.
func (s *Scheduler) OnImport(fn func(context.Context)) {
	s.onImport = fn
}

// EnsureData downloads and imports GTFS data if the database is empty.
// Called on startup.
func (s *Scheduler) EnsureData(ctx context.Context) error {
	if s.db.HasData(ctx) {
		s.logger.Info("GTFS data already present")
		return nil
	}
	s.logger.Info("no GTFS data found, performing initial import")
	return s.update(ctx)
}

// ForceUpdate downloads and imports the feed unconditionally.
func (s *Scheduler) ForceUpdate(ctx context.Context) error {
	return s.update(ctx)
}

// CheckAndUpdate checks if the feed has been updated and imports it if so.
// Only checks once per calendar day.
func (s *Scheduler) CheckAndUpdate(ctx context.Context) error {
	s.mu.Lock()
	today := s.now().In(s.loc).Format("2006-01-02")
	if s.lastCheckDate == today {
		s.mu.Unlock()
		return nil
	}
	s.lastCheckDate = today
	s.mu.Unlock()

	lastModified, _ := s.db.GetMetadata(ctx, "last_modified")
	etag, _ := s.db.GetMetadata(ctx, "etag")

	result, err := s.downloader.Check(ctx, lastModified, etag)
	if err != nil {
		return err
	}
	if !result.NeedsUpdate {
		return nil
	}

	return s.update(ctx)
}

// StartBackground starts the 3 AM daily check goroutine.
// It blocks until the context is cancelled.
func (s *Scheduler) StartBackground(ctx context.Context) {
	s.logger.Info("GTFS background scheduler started")

	for {
		next := nextCheck(s.now(), s.loc)
		s.logger.Info("next GTFS check scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			if err := s.CheckAndUpdate(ctx); err != nil {
				s.logger.Error("background GTFS update failed", "error", err)
			}
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("GTFS background scheduler stopped")
			return
		}
	}
}

// update performs a full download-parse-import cycle.
func (s *Scheduler) update(ctx context.Context) error {
	zipPath, lastModified, etag, err := s.downloader.Download(ctx)
	if err != nil {
		return err
	}
	defer os.Remove(zipPath)

	feed, err := ParseZip(zipPath, s.logger)
	if err != nil {
		return err
	}
	feed.LastModified = lastModified
	feed.ETag = etag

	if err := s.importer.Import(ctx, feed, zipPath); err != nil {
		return err
	}
	if s.onImport != nil {
		s.onImport(ctx)
	}
	return nil
}

// nextCheck returns the next 03:00 in loc strictly after now.
func nextCheck(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), checkHour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

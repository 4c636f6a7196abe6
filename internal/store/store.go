// Package store handles SQLite persistence of the latest calendar snapshot.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/ghstreak/internal/calendar"
	"github.com/verte-zerg/ghstreak/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNoSnapshot is returned when no calendar has been cached for a login.
var ErrNoSnapshot = errors.New("no cached calendar")

// Snapshot is the most recent calendar fetched for a login.
type Snapshot struct {
	Login              string
	FetchedAt          time.Time
	TotalContributions int
	Series             model.CalendarSeries
}

// Store wraps SQLite access for cached calendars.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			login TEXT PRIMARY KEY,
			fetched_at TEXT NOT NULL,
			total_contributions INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshot_days (
			login TEXT NOT NULL,
			date TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (login, date)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot replaces the cached calendar of snap.Login.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (login, fetched_at, total_contributions) VALUES (?, ?, ?)
		 ON CONFLICT(login) DO UPDATE SET fetched_at = excluded.fetched_at, total_contributions = excluded.total_contributions`,
		snap.Login, snap.FetchedAt.UTC().Format(time.RFC3339Nano), snap.TotalContributions,
	); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM snapshot_days WHERE login = ?`, snap.Login); err != nil {
		return err
	}

	if len(snap.Series) > 0 {
		stmt, perr := tx.PrepareContext(ctx, `INSERT INTO snapshot_days (login, date, count) VALUES (?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, rec := range snap.Series {
			if _, err = stmt.ExecContext(ctx, snap.Login, rec.Date.Format(calendar.DateLayout), rec.Count); err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	return err
}

// LoadSnapshot returns the cached calendar of login, ordered ascending by date.
func (s *Store) LoadSnapshot(ctx context.Context, login string) (Snapshot, error) {
	snap := Snapshot{Login: login}
	var fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, total_contributions FROM snapshots WHERE login = ?`, login,
	).Scan(&fetchedAt, &snap.TotalContributions)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, err
	}
	snap.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse fetched_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, count FROM snapshot_days WHERE login = ? ORDER BY date ASC`, login)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var date string
		var rec model.DayRecord
		if err := rows.Scan(&date, &rec.Count); err != nil {
			return Snapshot{}, err
		}
		rec.Date, err = calendar.ParseDate(date)
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to parse cached date %q: %w", date, err)
		}
		snap.Series = append(snap.Series, rec)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// DeleteSnapshot removes the cached calendar of login.
func (s *Store) DeleteSnapshot(ctx context.Context, login string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_days WHERE login = ?`, login); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE login = ?`, login); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Entry summarizes one cached calendar.
type Entry struct {
	Login              string
	FetchedAt          time.Time
	TotalContributions int
	Days               int
}

// ListEntries returns every cached calendar, ordered by login.
func (s *Store) ListEntries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.login, s.fetched_at, s.total_contributions, COUNT(d.date)
		 FROM snapshots s LEFT JOIN snapshot_days d ON d.login = s.login
		 GROUP BY s.login ORDER BY s.login ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []Entry
	for rows.Next() {
		var entry Entry
		var fetchedAt string
		if err := rows.Scan(&entry.Login, &fetchedAt, &entry.TotalContributions, &entry.Days); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, fetchedAt)
		if err != nil {
			return nil, err
		}
		entry.FetchedAt = parsed
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

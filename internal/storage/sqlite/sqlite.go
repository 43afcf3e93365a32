// Package sqlite provides a SQLite-backed word tally store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"empatia/internal/domain"
	"empatia/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS word_tallies (
	round             INTEGER NOT NULL,
	position          INTEGER NOT NULL,
	text              TEXT    NOT NULL,
	points            INTEGER NOT NULL,
	cumulative_points INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL,
	PRIMARY KEY (round, position)
);`

// Store persists word tallies in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite tally store and creates its table.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single kiosk process writes; one connection keeps the pragmas in effect
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Read returns a round's tallies in display order.
func (s *Store) Read(ctx context.Context, round int) ([]domain.WordTally, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if !domain.ValidRound(round) {
		return nil, fmt.Errorf("round %d: %w", round, domain.ErrInvalidRound)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT text, points, cumulative_points
		   FROM word_tallies
		  WHERE round = ?
		  ORDER BY position`,
		round,
	)
	if err != nil {
		return nil, fmt.Errorf("query round %d: %w", round, err)
	}
	defer rows.Close()

	tallies := make([]domain.WordTally, 0, domain.WordsPerRound)
	for rows.Next() {
		var t domain.WordTally
		if err := rows.Scan(&t.Text, &t.Points, &t.CumulativePoints); err != nil {
			return nil, fmt.Errorf("scan round %d: %w", round, err)
		}
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate round %d: %w", round, err)
	}
	if len(tallies) == 0 {
		return nil, storage.ErrNotFound
	}
	return tallies, nil
}

// Write replaces a round's tallies in one transaction.
func (s *Store) Write(ctx context.Context, round int, tallies []domain.WordTally) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if !domain.ValidRound(round) {
		return fmt.Errorf("round %d: %w", round, domain.ErrInvalidRound)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, rbErr)
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM word_tallies WHERE round = ?`, round); err != nil {
		return fmt.Errorf("clear round %d: %w", round, err)
	}

	now := toMillis(time.Now())
	for position, t := range tallies {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO word_tallies (
			   round,
			   position,
			   text,
			   points,
			   cumulative_points,
			   updated_at
			 ) VALUES (?, ?, ?, ?, ?, ?)`,
			round,
			position,
			t.Text,
			t.Points,
			t.CumulativePoints,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert %q: %w", t.Text, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit round %d: %w", round, err)
	}
	return nil
}

// DeleteAll removes every stored tally.
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM word_tallies`); err != nil {
		return fmt.Errorf("delete tallies: %w", err)
	}
	return nil
}

var _ storage.Backend = (*Store)(nil)

// Package jsonfile stores each round's tallies in its own JSON file, the
// layout event staff edit or delete by hand between events.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"empatia/internal/domain"
	"empatia/internal/storage"
)

// roundFile is the on-disk format of one round
type roundFile struct {
	Words []domain.WordTally `json:"words"`
}

// Store is a storage.Backend over a directory of JSON files
type Store struct {
	dir string
}

// Open prepares dir for use, creating it when missing
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("scores directory is required")
	}
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return nil, fmt.Errorf("create scores directory: %w", err)
	}
	return &Store{dir: clean}, nil
}

// Dir returns the directory the files live in
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file used for a round
func (s *Store) Path(round int) (string, error) {
	if !domain.ValidRound(round) {
		return "", fmt.Errorf("round %d: %w", round, domain.ErrInvalidRound)
	}
	return filepath.Join(s.dir, fmt.Sprintf("round%d_scores.json", round+1)), nil
}

// Read decodes a round's file
func (s *Store) Read(ctx context.Context, round int) ([]domain.WordTally, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(round)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file roundFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return file.Words, nil
}

// Write replaces a round's file. The content is written to a temporary file in
// the same directory and renamed over the old one.
func (s *Store) Write(ctx context.Context, round int, tallies []domain.WordTally) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(round)
	if err != nil {
		return err
	}
	if tallies == nil {
		tallies = []domain.WordTally{}
	}

	data, err := json.MarshalIndent(roundFile{Words: tallies}, "", "    ")
	if err != nil {
		return fmt.Errorf("encode round %d: %w", round, err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// DeleteAll removes every round file that exists
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for round := 0; round < domain.RoundCount; round++ {
		path, err := s.Path(round)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("delete %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// Close is a no-op; files are not held open between calls
func (s *Store) Close() error {
	return nil
}

var _ storage.Backend = (*Store)(nil)

package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// Store is the CSV file holding the current broken-link set, one Record per row.
type Store struct {
	path string
}

// NewStore returns a store backed by the CSV file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads every record. A missing file yields ErrNoData; an empty file yields no records.
func (s *Store) Load() (map[Key]Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: open store: %w", err)
	}
	defer f.Close()

	var rows []*Record
	if err := gocsv.UnmarshalFile(f, &rows); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return nil, fmt.Errorf("ledger: read store: %w", err)
	}

	records := make(map[Key]Record, len(rows))
	for _, r := range rows {
		records[r.Key()] = *r
	}
	return records, nil
}

// Save replaces the store with records. Readers see either the old or the new file.
func (s *Store) Save(records map[Key]Record) error {
	rows := Select(records, FilterAll)
	err := writeFileAtomic(s.path, func(f *os.File) error {
		return gocsv.MarshalFile(&rows, f)
	})
	if err != nil {
		return fmt.Errorf("ledger: save store: %w", err)
	}
	return nil
}

// writeFileAtomic writes through a temp file in the target directory and renames it
// over path.
func writeFileAtomic(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

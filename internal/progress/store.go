package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/OtherLeadingBrand/PaperRouter/internal/fileutil"
)

const (
	recordFile = "progress.json"
	backupFile = "progress.json.bak"
	lockFile   = "progress.lock"
)

// ErrLocked indicates another run holds the writable session for the
// output directory.
var ErrLocked = errors.New("another run is active for this output directory")

// Store persists progress records for one output directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at the output directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the location of the primary record file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, recordFile)
}

// Load reads the record for the collection. A missing file yields a fresh
// empty record. A corrupt primary falls back to the last backup; the
// second return value reports that a backup restore happened.
func (s *Store) Load(collectionID, sourceName string) (*Record, bool, error) {
	record, err := readRecord(s.Path())
	if err == nil {
		record.normalize()
		return record, false, nil
	}
	if os.IsNotExist(err) {
		return NewRecord(collectionID, sourceName), false, nil
	}

	backup, backupErr := readRecord(filepath.Join(s.dir, backupFile))
	if backupErr != nil {
		return nil, false, fmt.Errorf("progress record unreadable and no usable backup: %w", err)
	}
	backup.normalize()
	return backup, true, nil
}

// Save persists the record atomically. The previous known-good record is
// copied to the backup path first so a manual recovery point always exists.
func (s *Store) Save(record *Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress record: %w", err)
	}

	primary := s.Path()
	if _, statErr := os.Stat(primary); statErr == nil {
		// Best effort: losing the backup must not block the save.
		_ = fileutil.CopyFile(primary, filepath.Join(s.dir, backupFile))
	}

	if err := fileutil.WriteFileAtomic(primary, data, 0o644); err != nil {
		return fmt.Errorf("save progress record: %w", err)
	}
	return nil
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &record, nil
}

// Session is a writable, exclusive hold on one output directory's record.
type Session struct {
	store    *Store
	lock     *flock.Flock
	Record   *Record
	Restored bool
}

// OpenSession acquires the advisory lock for the output directory and loads
// its record. A directory already locked by a live run returns ErrLocked.
func OpenSession(dir, collectionID, sourceName string) (*Session, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire progress lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	store := NewStore(dir)
	record, restored, err := store.Load(collectionID, sourceName)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Session{store: store, lock: lock, Record: record, Restored: restored}, nil
}

// Save persists the session's record.
func (s *Session) Save() error {
	return s.store.Save(s.Record)
}

// Close releases the directory lock.
func (s *Session) Close() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}

package harness

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// lockFileName is the supervision lock under the lock directory. Its
// presence marks a (possibly stale) supervised run; it is the sole source
// of truth for external kills.
const lockFileName = "harness.lock"

type lockInfo struct {
	PGID      int       `json:"pgid"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

func lockPath(dir string) string {
	return filepath.Join(dir, lockFileName)
}

func writeLock(dir string, info lockInfo) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(lockPath(dir), append(data, '\n'), 0o644)
}

func readLock(dir string) (lockInfo, error) {
	var info lockInfo
	data, err := os.ReadFile(lockPath(dir))
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("parse %s: %w", lockFileName, err)
	}
	return info, nil
}

func removeLock(dir string) {
	_ = os.Remove(lockPath(dir))
}

// KillReport describes what an external kill found and did.
type KillReport struct {
	// Found is false when no lock file exists.
	Found bool
	// Stale is true when the lock referred to a dead tree.
	Stale bool
	// PID is the recorded worker pid, when a lock was found.
	PID int
	// Processes is the number of processes signalled.
	Processes int
	// StartedAt is the recorded launch time, when a lock was found.
	StartedAt time.Time
}

// Kill terminates the process tree recorded in lockDir's supervision lock.
// Safe to call when no supervisor is polling: a missing lock reports
// nothing to kill, and a lock whose root process is gone is detected as
// stale and cleaned up instead of acted on.
func Kill(lockDir string, logger *slog.Logger) (KillReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := readLock(lockDir)
	if err != nil {
		if os.IsNotExist(err) {
			return KillReport{}, nil
		}
		return KillReport{}, err
	}

	report := KillReport{Found: true, PID: info.PID, StartedAt: info.StartedAt}
	tree := newProcessTree()
	if !tree.Alive(info.PID) {
		logger.Info("supervision lock is stale, removing", "pid", info.PID)
		removeLock(lockDir)
		report.Stale = true
		return report, nil
	}

	report.Processes = tree.KillTree(info.PGID, info.PID)
	removeLock(lockDir)
	logger.Info("killed supervised tree", "pid", info.PID, "processes", report.Processes)
	return report, nil
}

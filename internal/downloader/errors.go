package downloader

import "errors"

var (
	// ErrFatalDiscovery marks a failure to resolve the issue list at all.
	// Nothing can be iterated, so the run aborts.
	ErrFatalDiscovery = errors.New("issue discovery failed")
	// ErrProgressStore marks a failure to persist the progress record.
	// Progress cannot be trusted without it, so the run aborts.
	ErrProgressStore = errors.New("progress store unwritable")
)

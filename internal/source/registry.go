package source

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/OtherLeadingBrand/PaperRouter/internal/ratelimit"
)

// Options carries the shared dependencies a Source implementation needs.
type Options struct {
	UserAgent      string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryBackoff   time.Duration
	Limiter        *ratelimit.Limiter
	Logger         *slog.Logger
}

// Factory constructs a Source from shared options.
type Factory func(Options) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a source factory under name. Implementations call this from
// an init function; registering a duplicate name panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("source %q registered twice", name))
	}
	registry[name] = factory
}

// Open constructs the named source.
func Open(name string, opts Options) (Source, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source %q (registered: %v)", name, Names())
	}
	return factory(opts)
}

// Names lists the registered source names in ascending order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

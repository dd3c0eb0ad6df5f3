package loc

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/OtherLeadingBrand/PaperRouter/internal/ratelimit"
	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

const apiPageSize = 100

// baseURL is a var so tests can point the source at a local server.
var (
	baseURL          = "https://www.loc.gov"
	collectionAPIURL = baseURL + "/collections/chronicling-america/"
)

// lccnPattern matches the usual LCCN shape: a short lowercase prefix
// ("sn", "ca", ...) followed by 8-10 digits.
var lccnPattern = regexp.MustCompile(`^[a-z]{1,3}\d{8,10}$`)

// ValidLCCN reports whether s looks like a Library of Congress Control
// Number. Callers warn rather than reject on a mismatch; uncommon prefixes
// exist.
func ValidLCCN(s string) bool {
	return lccnPattern.MatchString(s)
}

// LOC reads the Library of Congress Chronicling America collection.
type LOC struct {
	client  *client
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func init() {
	source.Register("loc", func(opts source.Options) (source.Source, error) {
		return New(opts)
	})
}

// New constructs a Chronicling America source.
func New(opts source.Options) (*LOC, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := opts.RetryAttempts
	if attempts < 1 {
		attempts = 5
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &LOC{
		client: &client{
			http:      &http.Client{Timeout: timeout},
			userAgent: opts.UserAgent,
			attempts:  attempts,
			backoff:   backoff,
			logger:    logger,
		},
		limiter: opts.Limiter,
		logger:  logger,
	}, nil
}

// Name implements source.Source.
func (l *LOC) Name() string { return "loc" }

// DisplayName implements source.Source.
func (l *LOC) DisplayName() string { return "Library of Congress" }

// RebuildPageLocator implements source.Source. The resource URL addresses a
// page by issue identity plus 1-based sequence number.
func (l *LOC) RebuildPageLocator(collectionID, date string, edition, index int) string {
	return fmt.Sprintf("%s/resource/%s/%s/ed-%d/?sp=%d", baseURL, collectionID, date, edition, index)
}

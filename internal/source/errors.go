package source

import (
	"errors"
	"fmt"
	"strings"
)

// Remote failure classes. Transient failures are retried with backoff up to
// a bounded attempt count; permanent failures are recorded immediately.
var (
	ErrTransient = errors.New("transient remote failure")
	ErrPermanent = errors.New("permanent remote failure")
)

// Wrap tags err with the given failure-class marker while adding operation
// context for later classification. A nil marker keeps the class already
// carried by err, falling back to transient.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		if errors.Is(err, ErrPermanent) {
			marker = ErrPermanent
		} else {
			marker = ErrTransient
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "source failure"
	}
	return strings.Join(parts, ": ")
}

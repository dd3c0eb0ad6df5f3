package testsupport

import (
	"testing"

	"github.com/OtherLeadingBrand/PaperRouter/internal/progress"
)

// MustOpenSession opens a progress session on dir for tests and registers
// cleanup.
func MustOpenSession(t testing.TB, dir, collectionID, sourceName string) *progress.Session {
	t.Helper()

	session, err := progress.OpenSession(dir, collectionID, sourceName)
	if err != nil {
		t.Fatalf("progress.OpenSession: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close()
	})
	return session
}

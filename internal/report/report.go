package report

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted over the progress stream.
const (
	EventRunStarted     = "run_started"
	EventIssueStarted   = "issue_started"
	EventPageDownloaded = "page_downloaded"
	EventPageFailed     = "page_failed"
	EventIssueCompleted = "issue_completed"
	EventIssueFailed    = "issue_failed"
	EventOCRPage        = "ocr_page"
	EventRunCompleted   = "run_completed"
)

// Event is one line on the progress stream. Fields not relevant to the
// event type are omitted.
type Event struct {
	Type       string    `json:"event"`
	RunID      string    `json:"run_id"`
	Time       time.Time `json:"time"`
	Collection string    `json:"collection,omitempty"`
	Issue      string    `json:"issue,omitempty"`
	Page       int       `json:"page,omitempty"`
	File       string    `json:"file,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Tier       string    `json:"tier,omitempty"`
	Error      string    `json:"error,omitempty"`
	Issues     int       `json:"issues,omitempty"`
	Pages      int       `json:"pages,omitempty"`
	Failed     int       `json:"failed,omitempty"`
}

// Emitter writes newline-delimited JSON events for a supervising process
// to parse. A nil Emitter discards everything, so call sites never branch
// on whether streaming is enabled.
type Emitter struct {
	mu    sync.Mutex
	out   io.Writer
	runID string
}

// New creates an emitter with a fresh run identifier.
func New(out io.Writer) *Emitter {
	return &Emitter{out: out, runID: uuid.NewString()}
}

// RunID returns the run identifier stamped on every event.
func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

// Emit writes one event line. Marshal and write failures are swallowed;
// the progress stream is advisory and must never fail a run.
func (e *Emitter) Emit(event Event) {
	if e == nil || e.out == nil {
		return
	}
	event.RunID = e.runID
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.out.Write(append(data, '\n'))
}

package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestEmitWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	emitter := New(&buf)

	emitter.Emit(Event{Type: EventRunStarted, Collection: "sn0001"})
	emitter.Emit(Event{Type: EventPageDownloaded, Collection: "sn0001", Issue: "1900-01-01_ed-1", Page: 2, Bytes: 2048})
	emitter.Emit(Event{Type: EventRunCompleted, Issues: 1, Pages: 2})

	scanner := bufio.NewScanner(&buf)
	var events []Event
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line is not valid JSON: %v: %s", err, scanner.Text())
		}
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("got %d lines, want 3", len(events))
	}

	for i, ev := range events {
		if ev.RunID != emitter.RunID() {
			t.Fatalf("event %d run_id = %q, want %q", i, ev.RunID, emitter.RunID())
		}
		if ev.Time.IsZero() {
			t.Fatalf("event %d missing timestamp", i)
		}
	}
	if events[1].Page != 2 || events[1].Bytes != 2048 {
		t.Fatalf("page event fields lost: %+v", events[1])
	}
}

func TestEmitOmitsIrrelevantFields(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Emit(Event{Type: EventRunStarted})

	line := buf.String()
	for _, field := range []string{"issue", "page", "bytes", "tier", "error"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Fatalf("zero-valued field %q serialized: %s", field, line)
		}
	}
}

func TestNilEmitterDiscards(t *testing.T) {
	var emitter *Emitter
	// Must not panic.
	emitter.Emit(Event{Type: EventRunCompleted})
	if emitter.RunID() != "" {
		t.Fatal("nil emitter has a run id")
	}
}

func TestRunIDsAreUnique(t *testing.T) {
	a := New(&bytes.Buffer{})
	b := New(&bytes.Buffer{})
	if a.RunID() == b.RunID() {
		t.Fatal("run ids collide")
	}
	if a.RunID() == "" {
		t.Fatal("run id empty")
	}
}

package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendEventWritesLine(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`{"kind":"status_changed","application_id":"a1","tracking_id":"DR-ABCD1234","status":"completed","previous_status":"ready","actor_id":3,"occurred_at":"2026-01-02T03:04:05Z"}`)
	if err := appendEvent(dir, body); err != nil {
		t.Fatalf("appendEvent: %v", err)
	}
	if err := appendEvent(dir, body); err != nil {
		t.Fatalf("appendEvent: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "applications.log"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	want := "[2026-01-02T03:04:05Z] Application status_changed | id=a1 | tracking_id=DR-ABCD1234 | status=completed | previous=ready | actor=3"
	if lines[0] != want {
		t.Errorf("line = %q\nwant  %q", lines[0], want)
	}
}

func TestAppendEventRejectsGarbage(t *testing.T) {
	if err := appendEvent(t.TempDir(), []byte("not json")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

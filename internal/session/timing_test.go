package session

import (
	"testing"
	"time"
)

func TestTiming_StartEndFlush(t *testing.T) {
	dir := t.TempDir()
	tm, err := LoadTiming(dir)
	if err != nil {
		t.Fatal(err)
	}
	tm.Start("generate")
	tm.End("generate", "fallback")
	tm.Start("publish")

	if err := tm.Flush(dir); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadTiming(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Entries) != 2 {
		t.Fatalf("entries = %d", len(loaded.Entries))
	}
	e, ok := loaded.Last("generate")
	if !ok || e.Outcome != "fallback" || e.Duration == "" {
		t.Fatalf("last generate = %+v, %v", e, ok)
	}
	if _, ok := loaded.Last("publish"); ok {
		t.Fatal("open entry should not be reported as finished")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(125 * time.Second); got != "2m 05s" {
		t.Fatalf("got %q", got)
	}
}

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TimingEntry is one attempt of one workflow step.
type TimingEntry struct {
	Step     string    `json:"step"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end,omitempty"`
	Duration string    `json:"duration,omitempty"`
	Outcome  string    `json:"outcome,omitempty"`
}

// Timing is the journal of step attempts for a session.
type Timing struct {
	mu      sync.Mutex
	Entries []TimingEntry `json:"entries"`
}

func timingPath(dir string) string {
	return filepath.Join(dir, "timing.json")
}

// LoadTiming reads the journal from dir.
func LoadTiming(dir string) (*Timing, error) {
	data, err := os.ReadFile(timingPath(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Timing{}, nil
		}
		return nil, err
	}
	var t Timing
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Start appends an open entry for step.
func (t *Timing) Start(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Entries = append(t.Entries, TimingEntry{Step: step, Start: time.Now()})
}

// End closes the most recent open entry for step.
func (t *Timing) End(step, outcome string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.Entries) - 1; i >= 0; i-- {
		e := &t.Entries[i]
		if e.Step == step && e.End.IsZero() {
			e.End = time.Now()
			e.Duration = FormatDuration(e.End.Sub(e.Start))
			e.Outcome = outcome
			return
		}
	}
}

// Last returns the most recent finished entry for step.
func (t *Timing) Last(step string) (TimingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.Entries) - 1; i >= 0; i-- {
		if t.Entries[i].Step == step && !t.Entries[i].End.IsZero() {
			return t.Entries[i], true
		}
	}
	return TimingEntry{}, false
}

// Reset drops every entry.
func (t *Timing) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Entries = nil
}

// Flush writes the journal to dir.
func (t *Timing) Flush(dir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(timingPath(dir), data, 0644)
}

// FormatDuration renders d as "Xm YYs".
func FormatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}

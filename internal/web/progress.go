package web

import (
	"sync"
	"time"
)

// maxLines bounds the progress log kept for the generating page.
const maxLines = 200

// ProgressLog collects the progress lines of the step in flight. It is
// the driver's observer while the server runs.
type ProgressLog struct {
	mu    sync.Mutex
	lines []string
}

// Reset drops every collected line.
func (p *ProgressLog) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = nil
}

// Lines returns a copy of the collected lines.
func (p *ProgressLog) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

func (p *ProgressLog) add(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, line)
	if len(p.lines) > maxLines {
		p.lines = p.lines[len(p.lines)-maxLines:]
	}
}

func (p *ProgressLog) StepStarted(step string)            { p.Reset() }
func (p *ProgressLog) Progress(_, line string)            { p.add(line) }
func (p *ProgressLog) StepFinished(string, time.Duration) {}
func (p *ProgressLog) StepFailed(step string, err error)  {}

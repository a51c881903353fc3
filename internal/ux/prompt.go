package ux

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompter reads answers from the user one line at a time. A background
// goroutine owns the reader so a blocked read never holds up cancellation.
type Prompter struct {
	lines chan string
	done  chan struct{}
}

// NewPrompter starts reading lines from r.
func NewPrompter(r io.Reader) *Prompter {
	p := &Prompter{
		lines: make(chan string, 16),
		done:  make(chan struct{}),
	}
	go p.readLoop(r)
	return p
}

func (p *Prompter) readLoop(r io.Reader) {
	defer close(p.lines)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case p.lines <- scanner.Text():
		case <-p.done:
			return
		}
	}
}

// ReadLine prints prompt and waits for a line. It returns io.EOF when the
// input is exhausted and the context error when ctx ends first.
func (p *Prompter) ReadLine(ctx context.Context, prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprintf(Out, "%s ", bold.Sprint(prompt))
	}
	select {
	case <-ctx.Done():
		fmt.Fprintln(Out)
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.ReadLine(ctx, question+" [y/N]:")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Stop lets the reading goroutine exit once its current read returns.
func (p *Prompter) Stop() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

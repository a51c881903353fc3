package ux

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Out is where user-facing output goes. Logs go to stderr separately.
var Out io.Writer = color.Output

var (
	dim    = color.New(color.Faint)
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// Order is the display order of the workflow steps.
var Order = []string{"initialize", "analyze", "configure", "generate", "edit", "publish"}

var descriptions = map[string]string{
	"initialize":   "start a session for the repository",
	"authenticate": "sign in with the identity provider",
	"analyze":      "analyze the repository",
	"configure":    "send documentation preferences",
	"generate":     "generate the README",
	"edit":         "revise the README with AI",
	"publish":      "commit the README to the repository",
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

func stepNumber(step string) string {
	for i, s := range Order {
		if s == step {
			return fmt.Sprintf("Step %d/%d: ", i+1, len(Order))
		}
	}
	return ""
}

// StepHeader prints a timestamped step header.
func StepHeader(step string) {
	rule := strings.Repeat("═", 38)
	fmt.Fprintf(Out, "\n%s %s\n", dim.Sprintf("[%s]", timestamp()), cyan.Sprint(rule))
	desc := ""
	if d, ok := descriptions[step]; ok {
		desc = " — " + d
	}
	fmt.Fprintf(Out, "%s  %s\n", dim.Sprintf("[%s]", timestamp()), bold.Sprintf("%s%s%s", stepNumber(step), step, desc))
	fmt.Fprintf(Out, "%s %s\n", dim.Sprintf("[%s]", timestamp()), cyan.Sprint(rule))
}

// StepLine prints a progress line under the current step.
func StepLine(line string) {
	fmt.Fprintf(Out, "%s  %s %s\n", dim.Sprintf("[%s]", timestamp()), dim.Sprint(">"), line)
}

// StepComplete prints a step completion message.
func StepComplete(step string, duration time.Duration) {
	m := int(duration.Minutes())
	s := int(duration.Seconds()) % 60
	fmt.Fprintf(Out, "%s  %s\n", dim.Sprintf("[%s]", timestamp()), green.Sprintf("✓ %s complete (%dm %02ds)", step, m, s))
}

// StepFail prints a step failure message.
func StepFail(step, errMsg string) {
	fmt.Fprintf(Out, "%s  %s\n", dim.Sprintf("[%s]", timestamp()), red.Sprintf("✗ %s failed: %s", step, errMsg))
}

// Warn prints a yellow notice.
func Warn(format string, args ...any) {
	fmt.Fprintf(Out, "%s  %s\n", dim.Sprintf("[%s]", timestamp()), yellow.Sprintf("⚠ "+format, args...))
}

// Next prints the command that continues the workflow.
func Next(command string) {
	if command == "" {
		return
	}
	fmt.Fprintf(Out, "\n%s docugithub %s\n", yellow.Sprint("Next:"), command)
}

// ResumeHint prints the command that retries a failed step.
func ResumeHint(step string) {
	if step == "" {
		return
	}
	fmt.Fprintf(Out, "\n%s docugithub %s\n", yellow.Sprint("Retry:"), step)
}

// Success prints a final success message.
func Success(msg string) {
	fmt.Fprintf(Out, "\n%s  %s\n\n", dim.Sprintf("[%s]", timestamp()), color.New(color.Bold, color.FgGreen).Sprintf("══ %s ══", msg))
}

// Terminal prints workflow progress as it happens.
type Terminal struct{}

func (Terminal) StepStarted(step string) { StepHeader(step) }
func (Terminal) Progress(_, line string) { StepLine(line) }
func (Terminal) StepFailed(step string, err error) {
	StepFail(step, errorText(err))
}
func (Terminal) StepFinished(step string, elapsed time.Duration) {
	StepComplete(step, elapsed)
}

package ux

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/identity"
	"github.com/docugithub/docugithub/internal/logging"
	"github.com/docugithub/docugithub/internal/markdown"
	"github.com/docugithub/docugithub/internal/session"
)

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return failure.Message(err)
}

// commands maps a step to the command that runs it.
var commands = map[string]string{
	"initialize":   "start",
	"authenticate": "auth",
	"analyze":      "analyze",
	"configure":    "configure",
	"generate":     "generate",
	"edit":         "chat",
	"publish":      "publish",
}

// CommandFor returns the command that runs step for s.
func CommandFor(step string, s session.Session) string {
	cmd := commands[step]
	if cmd == "start" && s.RepoURL != "" {
		cmd += " " + s.RepoURL
	}
	return cmd
}

// NextCommand returns the command that continues s from its stage.
func NextCommand(s session.Session) string {
	switch s.Stage {
	case session.StageIdle, session.StageInitializing:
		if s.RepoURL == "" {
			return "start <repository-url>"
		}
		return CommandFor("initialize", s)
	case session.StageAnalyzing:
		return "analyze"
	case session.StageConfiguring:
		return "configure"
	case session.StageGenerating:
		return "generate"
	case session.StageEditing, session.StagePublishing:
		return "publish"
	case session.StagePublished:
		return "export README.md"
	case session.StageError:
		return CommandFor(s.FailedStep, s)
	}
	return ""
}

func stageColor(st session.Stage) *color.Color {
	switch st {
	case session.StagePublished:
		return green
	case session.StageError:
		return red
	case session.StageIdle:
		return dim
	}
	return yellow
}

// RenderStatus prints the full status display for a session.
func RenderStatus(s session.Session, timing *session.Timing) {
	label := func(name string) string { return bold.Sprintf("%-12s", name+":") }

	repoText := s.RepoURL
	if repoText == "" {
		repoText = dim.Sprint("(none)")
	}
	fmt.Fprintf(Out, "%s %s\n", label("Repository"), repoText)
	id := s.SessionID
	if id == "" {
		id = dim.Sprint("(none)")
	}
	fmt.Fprintf(Out, "%s %s\n", label("Session"), id)
	fmt.Fprintf(Out, "%s %s\n", label("Stage"), stageColor(s.Stage).Sprint(s.Stage))
	fmt.Fprintf(Out, "%s %s\n", label("Signed in"), tokenText(s.AccessToken))

	fmt.Fprintf(Out, "\n%s\n", bold.Sprint("Preferences:"))
	fmt.Fprintf(Out, "  style   %s\n", s.DocStyle)
	fmt.Fprintf(Out, "  topics  %s\n", strings.Join(s.Topics, ", "))
	if len(s.ReferenceImages) > 0 {
		fmt.Fprintf(Out, "  images  %d\n", len(s.ReferenceImages))
	}

	fmt.Fprintf(Out, "\n%s\n", bold.Sprint("Steps:"))
	for _, step := range Order {
		marker := "  "
		if s.Stage == session.StageError && s.FailedStep == step {
			marker = red.Sprint("✗ ")
		}
		detail := ""
		if timing != nil {
			if e, ok := timing.Last(step); ok {
				outcome := e.Outcome
				if outcome == "success" {
					outcome = green.Sprint("done")
				} else {
					outcome = red.Sprint(outcome)
				}
				detail = fmt.Sprintf("%s  %s", outcome, dim.Sprintf("(%s)", e.Duration))
			}
		}
		fmt.Fprintf(Out, "  %s%-12s %s\n", marker, step, detail)
	}

	if s.GeneratedDocument != "" {
		lines := strings.Count(s.GeneratedDocument, "\n") + 1
		title := markdown.Title(s.GeneratedDocument)
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(Out, "\n%s %s, %d lines, %s\n", label("Document"), title, lines, s.PublishStatus)
	}
	if s.CommitURL != "" {
		fmt.Fprintf(Out, "%s %s\n", label("Commit"), s.CommitURL)
	}
	if s.LastError != "" {
		fmt.Fprintf(Out, "\n%s %s\n", red.Sprint("Last error:"), s.LastError)
	}
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(Out, "\n%s\n", dim.Sprintf("updated %s", s.UpdatedAt.Format(time.RFC1123)))
	}
	Next(NextCommand(s))
	fmt.Fprintln(Out)
}

func tokenText(token string) string {
	if token == "" {
		return dim.Sprint("no")
	}
	info, err := identity.Inspect(token)
	if err != nil {
		return "yes " + dim.Sprintf("(%s)", logging.Redact(token))
	}
	parts := []string{"yes"}
	if info.Subject != "" {
		parts = append(parts, "as "+info.Subject)
	}
	if !info.ExpiresAt.IsZero() {
		if info.Expired(time.Now()) {
			parts = append(parts, red.Sprint("(expired)"))
		} else {
			parts = append(parts, dim.Sprintf("(expires %s)", info.ExpiresAt.Format("2006-01-02 15:04")))
		}
	}
	return strings.Join(parts, " ")
}

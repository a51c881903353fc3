// Package doctor checks that a workspace can run the workflow and explains
// the last failure.
package doctor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/httpclient"
	"github.com/docugithub/docugithub/internal/session"
	"github.com/docugithub/docugithub/internal/ux"
)

// Level is the outcome of one check.
type Level int

const (
	Pass Level = iota
	Warn
	Fail
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	}
	return "ok"
}

// Finding is the result of one check.
type Finding struct {
	Check  string
	Level  Level
	Detail string
}

// Prober reports whether url answers HTTP at all.
type Prober func(ctx context.Context, url string) error

// Input is what the checks look at. Errors from loading the workspace are
// passed in rather than aborting, so they show up as findings.
type Input struct {
	Env        config.Env
	ConfigErr  error
	Session    *session.Session
	SessionErr error
	Timing     *session.Timing
	Probe      Prober
}

// HTTPProbe sends GET to url. Any response counts as reachable.
func HTTPProbe(timeout time.Duration) Prober {
	c := httpclient.New(httpclient.Options{Timeout: timeout})
	return func(ctx context.Context, url string) error {
		req, err := c.Request(ctx)
		if err != nil {
			return err
		}
		_, err = req.Get(url)
		return err
	}
}

// Check runs every check in order.
func Check(ctx context.Context, in Input) []Finding {
	var out []Finding
	out = append(out, checkConfig(in.ConfigErr))
	out = append(out, checkEnv(in.Env)...)
	if in.Env.Webhook.BaseURL != "" && in.Probe != nil {
		out = append(out, checkReachable(ctx, "workflow backend", in.Env.Webhook.BaseURL, in.Probe))
	}
	out = append(out, checkSession(in.Session, in.SessionErr)...)
	return out
}

func checkConfig(err error) Finding {
	if err != nil {
		return Finding{Check: "workspace config", Level: Fail, Detail: err.Error()}
	}
	return Finding{Check: "workspace config", Level: Pass, Detail: "valid"}
}

func checkEnv(env config.Env) []Finding {
	missing := env.Missing()
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Finding
	for _, name := range names {
		level := Warn
		if strings.HasPrefix(missing[name], "required") {
			level = Fail
		}
		out = append(out, Finding{Check: name, Level: level, Detail: missing[name]})
	}
	if len(out) == 0 {
		out = append(out, Finding{Check: "environment", Level: Pass, Detail: "all services configured"})
	}
	return out
}

func checkReachable(ctx context.Context, name, url string, probe Prober) Finding {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := probe(ctx, url); err != nil {
		return Finding{Check: name, Level: Fail, Detail: fmt.Sprintf("%s is unreachable: %v", url, err)}
	}
	return Finding{Check: name, Level: Pass, Detail: url + " answers"}
}

func checkSession(s *session.Session, err error) []Finding {
	if err != nil {
		return []Finding{{Check: "session", Level: Fail, Detail: "session.json is unreadable: " + err.Error()}}
	}
	if s == nil || s.RepoURL == "" {
		return []Finding{{Check: "session", Level: Pass, Detail: "no session yet"}}
	}

	var out []Finding
	switch {
	case s.Stage != session.StageIdle && s.Stage != session.StageInitializing && s.SessionID == "":
		out = append(out, Finding{Check: "session", Level: Fail, Detail: fmt.Sprintf("stage %s without a session id; run start again", s.Stage)})
	case s.Stage == session.StageError:
		out = append(out, Finding{Check: "session", Level: Warn, Detail: fmt.Sprintf("%s failed: %s", s.FailedStep, s.LastError)})
	default:
		out = append(out, Finding{Check: "session", Level: Pass, Detail: fmt.Sprintf("%s at stage %s", s.RepoURL, s.Stage)})
	}
	if (s.Stage == session.StageEditing || s.Stage == session.StagePublished) && s.GeneratedDocument == "" {
		out = append(out, Finding{Check: "document", Level: Fail, Detail: "stage " + string(s.Stage) + " without a document"})
	}
	if s.PublishStatus == session.Publishing {
		out = append(out, Finding{Check: "publish", Level: Warn, Detail: "a publish was interrupted; run publish again"})
	}
	return out
}

// gatherTiming summarizes the attempts of step.
func gatherTiming(t *session.Timing, step string) string {
	if t == nil {
		return ""
	}
	var parts []string
	for _, e := range t.Entries {
		if e.Step != step || e.End.IsZero() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", e.Outcome, e.Duration))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("%d attempt(s): %s", len(parts), strings.Join(parts, ", "))
}

// Run prints the findings and, when the session failed, a diagnosis with
// the command that retries the failed step. It returns an error when any
// check failed.
func Run(ctx context.Context, in Input) error {
	findings := Check(ctx, in)

	fmt.Fprintf(ux.Out, "\n══ Doctor ══\n\n")
	failed := 0
	for _, f := range findings {
		mark := "✓"
		switch f.Level {
		case Warn:
			mark = "⚠"
		case Fail:
			mark = "✗"
			failed++
		}
		fmt.Fprintf(ux.Out, "  %s %-30s %s\n", mark, f.Check, f.Detail)
	}

	if s := in.Session; s != nil && s.Stage == session.StageError && s.FailedStep != "" {
		fmt.Fprintf(ux.Out, "\nLast failure: %s\n", s.FailedStep)
		fmt.Fprintf(ux.Out, "  Error: %s\n", s.LastError)
		if timing := gatherTiming(in.Timing, s.FailedStep); timing != "" {
			fmt.Fprintf(ux.Out, "  Timing: %s\n", timing)
		}
		ux.ResumeHint(ux.CommandFor(s.FailedStep, *s))
	}
	fmt.Fprintln(ux.Out)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

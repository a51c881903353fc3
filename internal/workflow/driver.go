// Package workflow drives a documentation session through its steps:
// initialize, analyze, configure, generate, edit and publish.
package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docugithub/docugithub/internal/backend"
	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/github"
	"github.com/docugithub/docugithub/internal/identity"
	"github.com/docugithub/docugithub/internal/metrics"
	"github.com/docugithub/docugithub/internal/persistence"
	"github.com/docugithub/docugithub/internal/session"
)

// Step names as they appear in logs, metrics and the timing journal.
const (
	StepInitialize   = "initialize"
	StepAuthenticate = "authenticate"
	StepRepositories = "repositories"
	StepAnalyze      = "analyze"
	StepConfigure    = "configure"
	StepGenerate     = "generate"
	StepEdit         = "edit"
	StepPublish      = "publish"
)

// DefaultFallbackDelay is how long generate waits before showing the
// placeholder document.
const DefaultFallbackDelay = 3 * time.Second

// Backend is the workflow backend. Tests can substitute a mock.
type Backend interface {
	Ready() error
	Initialize(ctx context.Context, in backend.InitializeRequest, token string) error
	Analyze(ctx context.Context, in backend.AnalyzeRequest, token string) (json.RawMessage, error)
	Preferences(ctx context.Context, in backend.PreferencesRequest, token string) error
	Generate(ctx context.Context, in backend.GenerateRequest, token string) (*backend.GenerateResponse, error)
	Chat(ctx context.Context, in backend.ChatRequest, token string) (*backend.ChatResponse, error)
	Push(ctx context.Context, in backend.PushRequest, token string) (*backend.PushResponse, error)
}

// Persistence records sessions remotely.
type Persistence interface {
	CreateSession(ctx context.Context, row persistence.SessionRow) (*persistence.SessionRow, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpsertUserConfig(ctx context.Context, uc persistence.UserConfig) error
}

// Identity signs the user in.
type Identity interface {
	Login(ctx context.Context, prompt func(*identity.DeviceCode)) (*identity.Token, error)
}

// Repositories lists the user's repositories.
type Repositories interface {
	RecentRepositories(ctx context.Context, token string) ([]github.Repository, error)
}

// Observer is told about step progress as it happens.
type Observer interface {
	StepStarted(step string)
	Progress(step, line string)
	StepFinished(step string, elapsed time.Duration)
	StepFailed(step string, err error)
}

// Driver runs workflow steps against one session store. Steps are
// serialized: a step started while another is running waits for it.
//
// Persistence, Identity, GitHub, Observer, Metrics and Timing are optional.
type Driver struct {
	Store       *session.Store
	Backend     Backend
	Persistence Persistence
	Identity    Identity
	GitHub      Repositories
	Observer    Observer
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Timing      *session.Timing

	// Dir, when set, receives session.json and timing.json after every step.
	Dir           string
	Defaults      session.Defaults
	FallbackDelay time.Duration
	CommitMessage string
	NewID         func() string

	mu sync.Mutex
}

func (d *Driver) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Driver) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

func (d *Driver) progress(step, line string) {
	d.logger().Debug(line, zap.String("step", step))
	if d.Observer != nil {
		d.Observer.Progress(step, line)
	}
}

// persist saves the session and timing journal. Failures are logged, not
// returned: the step itself already succeeded or failed.
func (d *Driver) persist() {
	if d.Dir == "" {
		return
	}
	if err := d.Store.Save(d.Dir); err != nil {
		d.logger().Warn("failed to save session", zap.Error(err))
	}
	if d.Timing != nil {
		if err := d.Timing.Flush(d.Dir); err != nil {
			d.logger().Warn("failed to flush timing", zap.Error(err))
		}
	}
}

// reject reports a step refused before any request was made. The stage is
// left as it was.
func (d *Driver) reject(step string, err error) error {
	err = failure.WithStep(err, step)
	d.Metrics.ObserveStep(step, metrics.OutcomeRejected, 0)
	d.logger().Info("step rejected", zap.String("step", step), zap.String("kind", failure.KindOf(err).String()), zap.Error(err))
	return err
}

// attempt is one run of a step past its preconditions.
type attempt struct {
	d     *Driver
	step  string
	stage session.Stage
	start time.Time
}

// begin enters stage (when non-empty) and starts the step's bookkeeping.
func (d *Driver) begin(step string, stage session.Stage) *attempt {
	d.Store.ClearFailure()
	if stage != "" {
		d.Store.SetStage(stage)
	}
	if d.Timing != nil {
		d.Timing.Start(step)
	}
	d.logger().Info("step started", zap.String("step", step))
	if d.Observer != nil {
		d.Observer.StepStarted(step)
	}
	return &attempt{d: d, step: step, stage: stage, start: time.Now()}
}

func (a *attempt) end(outcome string) time.Duration {
	elapsed := time.Since(a.start)
	if a.d.Timing != nil {
		a.d.Timing.End(a.step, outcome)
	}
	a.d.Metrics.ObserveStep(a.step, outcome, elapsed)
	return elapsed
}

// succeed moves to next (when non-empty) and saves.
func (a *attempt) succeed(next session.Stage) {
	d := a.d
	if next != "" {
		d.Store.SetStage(next)
	}
	elapsed := a.end(metrics.OutcomeSuccess)
	d.logger().Info("step finished", zap.String("step", a.step), zap.Duration("elapsed", elapsed))
	if d.Observer != nil {
		d.Observer.StepFinished(a.step, elapsed)
	}
	d.persist()
}

// fail records err on the session, moves a staged step to error, saves and
// returns err tagged with the step.
func (a *attempt) fail(err error) error {
	d := a.d
	err = failure.WithStep(err, a.step)
	d.Store.SetFailure(a.step, failure.Message(err))
	if a.stage != "" {
		d.Store.SetStage(session.StageError)
	}
	elapsed := a.end(metrics.OutcomeFailure)
	d.logger().Warn("step failed",
		zap.String("step", a.step),
		zap.String("kind", failure.KindOf(err).String()),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))
	if d.Observer != nil {
		d.Observer.StepFailed(a.step, err)
	}
	d.persist()
	return err
}

// updateRow sets the remote session status. It is best effort.
func (d *Driver) updateRow(ctx context.Context, id, status string) {
	if d.Persistence == nil || id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := d.Persistence.UpdateStatus(ctx, id, status); err != nil {
		d.logger().Warn("failed to update session row", zap.String("session_id", id), zap.String("status", status), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package workflow

import (
	"context"
	"fmt"

	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/identity"
)

// Plan is a full run from repository URL to document, and optionally to
// a published commit.
type Plan struct {
	RepoURL string
	// Login runs the device flow when the session has no access token.
	Login  bool
	Prompt func(*identity.DeviceCode)
	// Preferences nil means the session's current preferences.
	Preferences   *Preferences
	Publish       bool
	CommitMessage string
}

// Outcome is what a Run produced.
type Outcome struct {
	Generate *GenerateResult
	Publish  *PublishResult
}

type stage struct {
	name string
	run  func(ctx context.Context) error
}

// Run executes the plan's steps in order and stops at the first failure.
// A placeholder document is never published.
func (d *Driver) Run(ctx context.Context, p Plan) (*Outcome, error) {
	out := &Outcome{}
	stages := []stage{
		{StepInitialize, func(ctx context.Context) error { return d.Initialize(ctx, p.RepoURL) }},
	}
	if p.Login && d.Identity != nil {
		stages = append(stages, stage{StepAuthenticate, func(ctx context.Context) error {
			if d.Store.AccessToken() != "" {
				return nil
			}
			_, err := d.Authenticate(ctx, p.Prompt)
			return err
		}})
	}
	stages = append(stages,
		stage{StepAnalyze, func(ctx context.Context) error {
			_, err := d.Analyze(ctx)
			return err
		}},
		stage{StepConfigure, func(ctx context.Context) error {
			prefs := d.CurrentPreferences()
			if p.Preferences != nil {
				prefs = *p.Preferences
			}
			return d.Configure(ctx, prefs)
		}},
		stage{StepGenerate, func(ctx context.Context) error {
			res, err := d.Generate(ctx)
			out.Generate = res
			return err
		}},
	)
	if p.Publish {
		stages = append(stages, stage{StepPublish, func(ctx context.Context) error {
			if out.Generate != nil && out.Generate.Fallback {
				return failure.New(failure.ValidationFailure, "Generation fell back to the placeholder document; not publishing it.")
			}
			res, err := d.Publish(ctx, p.CommitMessage)
			out.Publish = res
			return err
		}})
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("interrupted before %s: %w", s.name, err)
		}
		if err := s.run(ctx); err != nil {
			return out, err
		}
	}
	return out, nil
}

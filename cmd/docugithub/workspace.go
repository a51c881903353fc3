package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/docugithub/docugithub/internal/backend"
	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/github"
	"github.com/docugithub/docugithub/internal/identity"
	"github.com/docugithub/docugithub/internal/logging"
	"github.com/docugithub/docugithub/internal/metrics"
	"github.com/docugithub/docugithub/internal/persistence"
	"github.com/docugithub/docugithub/internal/session"
	"github.com/docugithub/docugithub/internal/ux"
	"github.com/docugithub/docugithub/internal/workflow"
)

// workspace is a loaded project directory with its driver.
type workspace struct {
	Root   string
	Config *config.Config
	Logger *zap.Logger
	Driver *workflow.Driver
}

// findProjectRoot walks up from cwd looking for .docugithub/. Without one
// the current directory is the workspace and defaults apply.
func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dir := cwd
	for {
		if info, err := os.Stat(filepath.Join(dir, config.DirName)); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

func newLogger(env config.Env) *zap.Logger {
	l, err := logging.New(logging.Config{
		Level:       env.Logging.Level,
		Development: env.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL %q, using info\n", env.Logging.Level)
		return logging.NewDefault()
	}
	return l
}

// openWorkspace loads config, session and timing and wires the driver.
// m may be nil.
func openWorkspace(m *metrics.Metrics) (*workspace, error) {
	root, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg.Env)

	store, err := session.Load(cfg.Dir, cfg.File.Defaults())
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	timing, err := session.LoadTiming(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading timing: %w", err)
	}

	env := cfg.Env
	timeout := env.Workflow.HTTPTimeout
	d := &workflow.Driver{
		Store:         store,
		Backend:       backend.New(env.Webhook, timeout, logger),
		GitHub:        github.New(env.GitHub, timeout, logger),
		Observer:      ux.Terminal{},
		Logger:        logger,
		Metrics:       m,
		Timing:        timing,
		Dir:           cfg.Dir,
		Defaults:      cfg.File.Defaults(),
		FallbackDelay: env.Workflow.FallbackDelay,
		CommitMessage: cfg.File.CommitMessage,
	}
	// Optional services are assigned only when built, so the interfaces
	// stay nil when they are not configured.
	if env.Persistence.Configured() {
		p, err := persistence.New(env.Persistence, timeout, logger)
		if err != nil {
			return nil, err
		}
		d.Persistence = p
	}
	if env.Identity.Configured() {
		c, err := identity.New(env.Identity, timeout, logger)
		if err != nil {
			return nil, err
		}
		d.Identity = c
	}

	return &workspace{Root: root, Config: cfg, Logger: logger, Driver: d}, nil
}

func (w *workspace) Close() {
	_ = w.Logger.Sync()
}

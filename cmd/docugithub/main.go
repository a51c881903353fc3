package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	cli "github.com/urfave/cli/v3"

	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/docs"
	"github.com/docugithub/docugithub/internal/doctor"
	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/scaffold"
	"github.com/docugithub/docugithub/internal/session"
	"github.com/docugithub/docugithub/internal/ux"
)

func main() {
	app := &cli.Command{
		Name:        "docugithub",
		Usage:       "Generate, revise and publish a repository README with AI",
		Description: "Run 'docugithub docs' for documentation on the workflow, configuration and endpoints.",
		Commands: []*cli.Command{
			initCmd(),
			startCmd(),
			authCmd(),
			reposCmd(),
			analyzeCmd(),
			configureCmd(),
			generateCmd(),
			chatCmd(),
			editCmd(),
			exportCmd(),
			publishCmd(),
			runCmd(),
			statusCmd(),
			resetCmd(),
			serveCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	err := app.Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.FgRed).Sprint("error:"), errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage prefers the user-facing text of a classified failure.
func errorMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "interrupted"
	}
	return failure.Message(err)
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new .docugithub/ directory with a starter config",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return scaffold.Init(dir)
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the session and the next command",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ws, err := openWorkspace(nil)
			if err != nil {
				return err
			}
			defer ws.Close()
			ux.RenderStatus(ws.Driver.Store.Snapshot(), ws.Driver.Timing)
			return nil
		},
	}
}

func resetCmd() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Discard the session and start over (the access token is kept)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ws, err := openWorkspace(nil)
			if err != nil {
				return err
			}
			defer ws.Close()
			token := ws.Driver.Store.AccessToken()
			ws.Driver.Start()
			if token != "" {
				ws.Driver.SetAccessToken(token)
			}
			ux.Success("Session reset")
			ux.Next(ux.NextCommand(ws.Driver.Store.Snapshot()))
			return nil
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check configuration and services, and explain the last failure",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "offline", Usage: "Skip the backend reachability probe"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			root, err := findProjectRoot()
			if err != nil {
				return err
			}
			in := doctor.Input{}

			env, err := config.LoadEnv()
			if err != nil {
				return err
			}
			in.Env = *env

			cfg, cfgErr := config.Load(root)
			in.ConfigErr = cfgErr
			dir := config.Workspace(root)
			defaults := config.DefaultFile().Defaults()
			if cfgErr == nil {
				defaults = cfg.File.Defaults()
			}

			if store, err := session.Load(dir, defaults); err != nil {
				in.SessionErr = err
			} else {
				snap := store.Snapshot()
				in.Session = &snap
			}
			if timing, err := session.LoadTiming(dir); err == nil {
				in.Timing = timing
			}
			if !cmd.Bool("offline") {
				in.Probe = doctor.HTTPProbe(env.Workflow.HTTPTimeout)
			}
			return doctor.Run(ctx, in)
		},
	}
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Fprint(ux.Out, "\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Fprintf(ux.Out, "  %-14s %s\n", t.Name, t.Summary)
				}
				fmt.Fprintln(ux.Out, "\nRun 'docugithub docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprint(ux.Out, t.Content)
			return nil
		},
	}
}

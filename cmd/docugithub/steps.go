package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/docugithub/docugithub/internal/identity"
	"github.com/docugithub/docugithub/internal/markdown"
	"github.com/docugithub/docugithub/internal/scaffold"
	"github.com/docugithub/docugithub/internal/session"
	"github.com/docugithub/docugithub/internal/ux"
	"github.com/docugithub/docugithub/internal/workflow"
)

var tokenFlag = &cli.StringFlag{
	Name:    "token",
	Usage:   "GitHub access token to use instead of the device login",
	Sources: cli.EnvVars("DOCUGITHUB_TOKEN"),
}

// withWorkspace opens the workspace, runs fn, then prints the next command.
func withWorkspace(fn func(ctx context.Context, cmd *cli.Command, ws *workspace) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		ws, err := openWorkspace(nil)
		if err != nil {
			return err
		}
		defer ws.Close()
		if err := fn(ctx, cmd, ws); err != nil {
			return err
		}
		ux.Next(ux.NextCommand(ws.Driver.Store.Snapshot()))
		return nil
	}
}

func printDeviceCode(dc *identity.DeviceCode) {
	uri := dc.VerificationURIComplete
	if uri == "" {
		uri = dc.VerificationURI
	}
	fmt.Fprintf(ux.Out, "\n  Open %s\n  and enter the code %s\n\n", uri, dc.UserCode)
}

func startCmd() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start a session for a repository",
		ArgsUsage: "[repository-url]",
		Flags:     []cli.Flag{tokenFlag},
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			url := cmd.Args().First()
			if url == "" {
				url = scaffold.DetectRepository(ws.Root)
				if url == "" {
					return fmt.Errorf("repository URL argument is required (no git origin remote found)")
				}
			}
			if token := cmd.String("token"); token != "" {
				ws.Driver.SetAccessToken(token)
			}
			return ws.Driver.Initialize(ctx, url)
		}),
	}
}

func authCmd() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in with the device login or store an access token",
		Flags: []cli.Flag{tokenFlag},
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			if token := cmd.String("token"); token != "" {
				ws.Driver.SetAccessToken(token)
				ux.Success("Token stored")
				return nil
			}
			tok, err := ws.Driver.Authenticate(ctx, printDeviceCode)
			if err != nil {
				return err
			}
			who := "Signed in"
			if info, err := identity.Inspect(tok.AccessToken); err == nil && info.Subject != "" {
				who += " as " + info.Subject
			}
			ux.Success(who)
			return nil
		}),
	}
}

func reposCmd() *cli.Command {
	return &cli.Command{
		Name:  "repos",
		Usage: "List your most recently updated repositories",
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			repos, err := ws.Driver.ListRepositories(ctx)
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Fprintln(ux.Out, "No repositories found.")
				return nil
			}
			fmt.Fprintln(ux.Out)
			for _, r := range repos {
				visibility := ""
				if r.Private {
					visibility = " (private)"
				}
				fmt.Fprintf(ux.Out, "  %-40s %s%s\n", r.FullName, r.HTMLURL, visibility)
			}
			fmt.Fprintf(ux.Out, "\nRun 'docugithub start <url>' to document one.\n")
			return nil
		}),
	}
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze the repository",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the analysis returned by the backend"},
		},
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			raw, err := ws.Driver.Analyze(ctx)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				var v any
				if err := json.Unmarshal(raw, &v); err == nil {
					out, _ := json.MarshalIndent(v, "", "  ")
					fmt.Fprintln(ux.Out, string(out))
				}
			}
			return nil
		}),
	}
}

func configureCmd() *cli.Command {
	return &cli.Command{
		Name:  "configure",
		Usage: "Send documentation preferences",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "style", Usage: "Documentation style: simple, detailed or vibrant"},
			&cli.StringSliceFlag{Name: "topic", Usage: "Topic to cover; replaces the current topics (repeatable)"},
			&cli.StringSliceFlag{Name: "add-topic", Usage: "Topic to add (repeatable)"},
			&cli.StringSliceFlag{Name: "remove-topic", Usage: "Topic to remove (repeatable)"},
			&cli.StringSliceFlag{Name: "image", Usage: "Reference image URL; replaces the current images (repeatable)"},
		},
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			prefs, err := preferencesFromFlags(cmd, ws.Driver.CurrentPreferences())
			if err != nil {
				return err
			}
			return ws.Driver.Configure(ctx, prefs)
		}),
	}
}

// preferencesFromFlags applies the configure flags to p.
func preferencesFromFlags(cmd *cli.Command, p workflow.Preferences) (workflow.Preferences, error) {
	if cmd.IsSet("style") {
		style, err := session.ParseStyle(cmd.String("style"))
		if err != nil {
			return p, err
		}
		p.Style = style
	}
	if cmd.IsSet("topic") {
		p.Topics = cmd.StringSlice("topic")
	}
	p.Topics = append(append([]string(nil), p.Topics...), cmd.StringSlice("add-topic")...)
	if remove := cmd.StringSlice("remove-topic"); len(remove) > 0 {
		drop := make(map[string]bool, len(remove))
		for _, t := range remove {
			drop[strings.TrimSpace(t)] = true
		}
		kept := p.Topics[:0]
		for _, t := range p.Topics {
			if !drop[t] {
				kept = append(kept, t)
			}
		}
		p.Topics = kept
	}
	if cmd.IsSet("image") {
		p.Images = cmd.StringSlice("image")
	}
	return p, nil
}

func generateCmd() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate the README",
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			res, err := ws.Driver.Generate(ctx)
			if err != nil {
				return err
			}
			reportGenerate(res)
			return nil
		}),
	}
}

func reportGenerate(res *workflow.GenerateResult) {
	if res.Fallback {
		ux.Warn("generation failed; the document is a placeholder you can edit or regenerate")
		return
	}
	title := markdown.Title(res.Document)
	if title == "" {
		title = "README"
	}
	ux.Success("Generated " + title)
}

func chatCmd() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Revise the README with an AI instruction",
		ArgsUsage: "<instruction>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "selection", Aliases: []string{"s"}, Usage: "Only revise this text (first occurrence)"},
			&cli.BoolFlag{Name: "print", Usage: "Print the revised document"},
		},
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			instruction := strings.Join(cmd.Args().Slice(), " ")
			doc, err := ws.Driver.ChatRevise(ctx, cmd.String("selection"), instruction)
			if err != nil {
				return err
			}
			if cmd.Bool("print") {
				fmt.Fprintln(ux.Out, doc)
			}
			ux.Success("Revision applied")
			return nil
		}),
	}
}

func editCmd() *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Revise the README interactively, or replace it with a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Replace the document with this file's content"},
		},
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			if path := cmd.String("file"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if err := ws.Driver.SetDocument(string(data)); err != nil {
					return err
				}
				ux.Success("Document replaced from " + path)
				return nil
			}
			return editLoop(ctx, ws.Driver, ux.NewPrompter(os.Stdin))
		}),
	}
}

// editLoop reads instructions until EOF or :quit. Every instruction
// revises the whole document; ":show" prints it.
func editLoop(ctx context.Context, d *workflow.Driver, p *ux.Prompter) error {
	defer p.Stop()
	fmt.Fprintln(ux.Out, "\nType an instruction to revise the README, :show to print it, :quit to stop.")
	for {
		line, err := p.ReadLine(ctx, "›")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch line {
		case "":
			continue
		case ":quit", ":q":
			return nil
		case ":show":
			fmt.Fprintln(ux.Out, d.Store.GeneratedDocument())
			continue
		}
		if _, err := d.ChatRevise(ctx, "", line); err != nil {
			if ctx.Err() != nil {
				return err
			}
			ux.Warn("%s", errorMessage(err))
			continue
		}
		fmt.Fprintln(ux.Out, "Revision applied.")
	}
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the README to a file",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ws, err := openWorkspace(nil)
			if err != nil {
				return err
			}
			defer ws.Close()

			doc := ws.Driver.Store.GeneratedDocument()
			if doc == "" {
				return fmt.Errorf("there is no document yet; run 'docugithub generate' first")
			}
			path := cmd.Args().First()
			if path == "" {
				path = scaffold.FindReadme(ws.Root)
				if path == "" {
					path = filepath.Join(ws.Root, "README.md")
				}
			}
			if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
				return fmt.Errorf("%s already exists; pass --force to overwrite it", path)
			}
			if !strings.HasSuffix(doc, "\n") {
				doc += "\n"
			}
			if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
				return err
			}
			ux.Success("Wrote " + path)
			return nil
		},
	}
}

func publishCmd() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Commit the README to the repository",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Commit message"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			if !cmd.Bool("yes") {
				p := ux.NewPrompter(os.Stdin)
				defer p.Stop()
				ok, err := p.Confirm(ctx, "Push the README to "+ws.Driver.Store.RepoURL()+"?")
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				if !ok {
					fmt.Fprintln(ux.Out, "Not published.")
					return nil
				}
			}
			res, err := ws.Driver.Publish(ctx, cmd.String("message"))
			if err != nil {
				return err
			}
			reportPublish(res)
			return nil
		}),
	}
}

func reportPublish(res *workflow.PublishResult) {
	switch {
	case res.AlreadyPublished:
		fmt.Fprintln(ux.Out, "Already published; nothing to push.")
	case res.CommitURL != "":
		ux.Success("Published " + res.CommitURL)
	default:
		ux.Success("Published")
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run every step from repository URL to README",
		ArgsUsage: "[repository-url]",
		Flags: []cli.Flag{
			tokenFlag,
			&cli.BoolFlag{Name: "login", Usage: "Sign in with the device login when no token is stored"},
			&cli.StringFlag{Name: "style", Usage: "Documentation style: simple, detailed or vibrant"},
			&cli.StringSliceFlag{Name: "topic", Usage: "Topic to cover (repeatable)"},
			&cli.StringSliceFlag{Name: "image", Usage: "Reference image URL (repeatable)"},
			&cli.BoolFlag{Name: "publish", Usage: "Publish the README at the end"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Commit message when publishing"},
		},
		Action: withWorkspace(func(ctx context.Context, cmd *cli.Command, ws *workspace) error {
			url := cmd.Args().First()
			if url == "" {
				url = scaffold.DetectRepository(ws.Root)
				if url == "" {
					return fmt.Errorf("repository URL argument is required (no git origin remote found)")
				}
			}
			if token := cmd.String("token"); token != "" {
				ws.Driver.SetAccessToken(token)
			}
			defaults := ws.Config.File.Defaults()
			prefs, err := preferencesFromFlags(cmd, workflow.Preferences{
				Style:  defaults.Style,
				Topics: defaults.Topics,
				Images: defaults.Images,
			})
			if err != nil {
				return err
			}

			out, err := ws.Driver.Run(ctx, workflow.Plan{
				RepoURL:       url,
				Login:         cmd.Bool("login"),
				Prompt:        printDeviceCode,
				Preferences:   &prefs,
				Publish:       cmd.Bool("publish"),
				CommitMessage: cmd.String("message"),
			})
			if out != nil && out.Generate != nil {
				reportGenerate(out.Generate)
			}
			if err != nil {
				return err
			}
			if out.Publish != nil {
				reportPublish(out.Publish)
			}
			return nil
		}),
	}
}

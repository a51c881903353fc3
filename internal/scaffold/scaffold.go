package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/ux"
)

var configTemplate = `name: %s

# Documentation tone: simple, detailed or vibrant.
default-style: detailed

# Topics selected on a fresh session.
default-topics:
  - Quick Start
  - Installation

# Topics offered on the preferences page. Leave empty for the built-in list.
available-topics: []

commit-message: "%s"

# Reference image URLs sent with the preferences.
reference-images: []
`

// session.json holds the access token.
const gitignore = `session.json
timing.json
`

// Init creates a new .docugithub/ directory with a starter config.
func Init(targetDir string) error {
	dir := filepath.Join(targetDir, config.DirName)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%s directory already exists in %s", config.DirName, targetDir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", config.DirName, err)
	}

	name := projectName(targetDir)
	configPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(configTemplate, name, config.DefaultCommitMessage)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing config.yaml: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	ux.Success("Initialized " + config.DirName + "/")
	fmt.Fprintf(ux.Out, "  Created:\n")
	fmt.Fprintf(ux.Out, "    %s/config.yaml   documentation preferences\n", config.DirName)
	fmt.Fprintf(ux.Out, "    %s/.gitignore    keeps the session and token out of git\n\n", config.DirName)

	if url := DetectRepository(targetDir); url != "" {
		ux.Next("start " + url)
	} else {
		ux.Next("start <repository-url>")
	}
	return nil
}

func projectName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "my-project"
	}
	name := strings.TrimSpace(filepath.Base(abs))
	if name == "" || name == "/" || name == "." {
		return "my-project"
	}
	return name
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/docugithub/docugithub/internal/session"
)

// DirName is the workspace directory holding config and session files.
const DirName = ".docugithub"

// AvailableTopics are offered on the preferences page unless the workspace overrides them.
var AvailableTopics = []string{
	"Overview", "Installation", "Quick Start", "Architecture",
	"API Reference", "Authentication", "Deployment", "Contributing", "License",
}

// DefaultCommitMessage is used when publishing without an explicit message.
const DefaultCommitMessage = "docs: update README via DocuGithub"

// File is the workspace's .docugithub/config.yaml.
type File struct {
	Name            string   `yaml:"name"`
	DefaultStyle    string   `yaml:"default-style"`
	DefaultTopics   []string `yaml:"default-topics"`
	AvailableTopics []string `yaml:"available-topics"`
	CommitMessage   string   `yaml:"commit-message"`
	ReferenceImages []string `yaml:"reference-images"`
}

// Config is everything a command needs: the workspace file and the environment.
type Config struct {
	Dir  string
	File File
	Env  Env
}

// DefaultFile returns the preferences used when a workspace has no config file.
func DefaultFile() File {
	f := File{}
	_ = Validate(&f)
	return f
}

// LoadFile reads and validates a workspace config file. A missing file
// yields the defaults.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f := DefaultFile()
			return &f, nil
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Workspace returns the workspace directory under root.
func Workspace(root string) string {
	return filepath.Join(root, DirName)
}

// Load reads the workspace rooted at root and the environment.
func Load(root string) (*Config, error) {
	dir := Workspace(root)
	f, err := LoadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		return nil, err
	}
	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	return &Config{Dir: dir, File: *f, Env: *env}, nil
}

// Defaults returns the preferences a fresh session starts with.
func (f File) Defaults() session.Defaults {
	style, _ := session.ParseStyle(f.DefaultStyle)
	return session.Defaults{
		Style:  style,
		Topics: append([]string(nil), f.DefaultTopics...),
		Images: append([]string(nil), f.ReferenceImages...),
	}
}

// Topics returns the topics offered for selection.
func (f File) Topics() []string {
	if len(f.AvailableTopics) > 0 {
		return f.AvailableTopics
	}
	return AvailableTopics
}

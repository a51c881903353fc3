package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"

	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/session"
	"github.com/docugithub/docugithub/internal/workflow"
)

// parsePrefs runs the configure flags over args and returns the result.
func parsePrefs(t *testing.T, start workflow.Preferences, args ...string) (workflow.Preferences, error) {
	t.Helper()
	var got workflow.Preferences
	var perr error
	cmd := &cli.Command{
		Name:  "configure",
		Flags: configureCmd().Flags,
		Action: func(_ context.Context, cmd *cli.Command) error {
			got, perr = preferencesFromFlags(cmd, start)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"configure"}, args...)))
	return got, perr
}

func TestPreferencesFromFlags(t *testing.T) {
	start := workflow.Preferences{
		Style:  session.StyleSimple,
		Topics: []string{"Quick Start", "Installation"},
	}

	t.Run("no flags keep current", func(t *testing.T) {
		got, err := parsePrefs(t, start)
		require.NoError(t, err)
		assert.Equal(t, start.Style, got.Style)
		assert.Equal(t, start.Topics, got.Topics)
		assert.Empty(t, got.Images)
	})

	t.Run("add and remove", func(t *testing.T) {
		got, err := parsePrefs(t, start, "--style", "Detailed", "--add-topic", "License", "--remove-topic", "Installation")
		require.NoError(t, err)
		assert.Equal(t, session.StyleDetailed, got.Style)
		assert.Equal(t, []string{"Quick Start", "License"}, got.Topics)
	})

	t.Run("topic replaces", func(t *testing.T) {
		got, err := parsePrefs(t, start, "--topic", "Overview", "--image", "https://example.com/a.png")
		require.NoError(t, err)
		assert.Equal(t, []string{"Overview"}, got.Topics)
		assert.Equal(t, []string{"https://example.com/a.png"}, got.Images)
	})

	t.Run("unknown style", func(t *testing.T) {
		_, err := parsePrefs(t, start, "--style", "loud")
		assert.Error(t, err)
	})

	t.Run("start is not mutated", func(t *testing.T) {
		_, err := parsePrefs(t, start, "--remove-topic", "Quick Start")
		require.NoError(t, err)
		assert.Equal(t, []string{"Quick Start", "Installation"}, start.Topics)
	})
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "interrupted", errorMessage(fmt.Errorf("analyze: %w", context.Canceled)))
	assert.Equal(t, "Repository URL is required.",
		errorMessage(failure.New(failure.ValidationFailure, "Repository URL is required.")))
	assert.Equal(t, "boom", errorMessage(fmt.Errorf("boom")))
}

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/docugithub/docugithub/internal/session"
)

// Validate checks the workspace file and fills in defaults.
func Validate(f *File) error {
	if f.Name == "" {
		f.Name = "docugithub"
	}

	if f.DefaultStyle == "" {
		f.DefaultStyle = string(session.StyleDetailed)
	}
	style, err := session.ParseStyle(f.DefaultStyle)
	if err != nil {
		return fmt.Errorf("config: 'default-style': %w", err)
	}
	f.DefaultStyle = string(style)

	if err := checkTopics("available-topics", f.AvailableTopics); err != nil {
		return err
	}
	if f.DefaultTopics == nil {
		f.DefaultTopics = append([]string(nil), session.DefaultTopics...)
	}
	if err := checkTopics("default-topics", f.DefaultTopics); err != nil {
		return err
	}
	if len(f.AvailableTopics) > 0 {
		offered := make(map[string]bool, len(f.AvailableTopics))
		for _, t := range f.AvailableTopics {
			offered[t] = true
		}
		for _, t := range f.DefaultTopics {
			if !offered[t] {
				return fmt.Errorf("config: default topic %q is not listed in 'available-topics'", t)
			}
		}
	}

	if strings.TrimSpace(f.CommitMessage) == "" {
		f.CommitMessage = DefaultCommitMessage
	}

	for _, img := range f.ReferenceImages {
		if err := ValidateImageURL(img); err != nil {
			return fmt.Errorf("config: 'reference-images': %w", err)
		}
	}
	return nil
}

func checkTopics(field string, topics []string) error {
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("config: '%s' entries must be non-empty", field)
		}
		if seen[t] {
			return fmt.Errorf("config: '%s': duplicate topic %q", field, t)
		}
		seen[t] = true
	}
	return nil
}

// ValidateImageURL accepts absolute http and https URLs.
func ValidateImageURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("image URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image URL %q must be an absolute http(s) URL", raw)
	}
	return nil
}

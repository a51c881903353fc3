package repo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docugithub/docugithub/internal/failure"
)

// DefaultHost is used when a deep link names only owner and repo.
const DefaultHost = "github.com"

var (
	hostRe = regexp.MustCompile(`^[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+(:\d+)?$`)
	nameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// Ref identifies a hosted repository.
type Ref struct {
	Host  string
	Owner string
	Name  string
}

// URL returns the canonical https URL, without a trailing .git.
func (r Ref) URL() string {
	return fmt.Sprintf("https://%s/%s/%s", r.Host, r.Owner, r.Name)
}

// FullName returns "owner/name".
func (r Ref) FullName() string {
	return r.Owner + "/" + r.Name
}

// Parse accepts "host/owner/repo" with an optional http(s) scheme, an
// optional trailing slash and an optional ".git" suffix.
func Parse(raw string) (Ref, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ref{}, failure.New(failure.ValidationFailure, "repository URL is required")
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
		s = s[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		s = s[len("http://"):]
	case strings.Contains(s, "://"):
		return Ref{}, failure.Newf(failure.ValidationFailure, "repository URL %q must use http or https", raw)
	}
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Ref{}, failure.Newf(failure.ValidationFailure, "repository URL %q must look like host/owner/repo", raw)
	}
	ref := Ref{Host: strings.ToLower(parts[0]), Owner: parts[1], Name: parts[2]}
	if !hostRe.MatchString(ref.Host) {
		return Ref{}, failure.Newf(failure.ValidationFailure, "repository URL %q has an invalid host", raw)
	}
	if !validName(ref.Owner) || !validName(ref.Name) {
		return Ref{}, failure.Newf(failure.ValidationFailure, "repository URL %q has an invalid owner or repository name", raw)
	}
	return ref, nil
}

// FromOwnerRepo builds a Ref on DefaultHost, as used by the /{owner}/{repo} deep link.
func FromOwnerRepo(owner, name string) (Ref, error) {
	return Parse(DefaultHost + "/" + owner + "/" + name)
}

func validName(s string) bool {
	return s != "" && s != "." && s != ".." && nameRe.MatchString(s)
}

package scaffold

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/docugithub/docugithub/internal/repo"
)

// readmeNames are probed, in order, by FindReadme.
var readmeNames = []string{"README.md", "readme.md", "Readme.md", "README.markdown", "README"}

// DetectRepository returns the canonical URL of the origin remote of the
// git checkout at root, or "" when there is none.
func DetectRepository(root string) string {
	cmd := exec.Command("git", "remote", "get-url", "origin")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return RemoteURL(strings.TrimSpace(string(out)))
}

// RemoteURL converts a git remote (https or scp-like ssh) to a repository
// URL, or returns "" when it does not name a hosted repository.
func RemoteURL(remote string) string {
	s := strings.TrimSpace(remote)
	switch {
	case strings.HasPrefix(s, "ssh://"):
		s = strings.TrimPrefix(s, "ssh://")
		if i := strings.Index(s, "@"); i >= 0 {
			s = s[i+1:]
		}
	case strings.Contains(s, "@") && strings.Contains(s, ":") && !strings.Contains(s, "://"):
		s = s[strings.Index(s, "@")+1:]
		s = strings.Replace(s, ":", "/", 1)
	}
	ref, err := repo.Parse(s)
	if err != nil {
		return ""
	}
	return ref.URL()
}

// FindReadme returns the path of the README at root, or "" if none exists.
func FindReadme(root string) string {
	for _, name := range readmeNames {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

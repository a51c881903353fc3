package workflow

import (
	"fmt"
	"strings"

	"github.com/docugithub/docugithub/internal/repo"
)

// Placeholder is the document shown when generation fails, so the editor
// still has something to work on.
func Placeholder(ref repo.Ref) string {
	name := ref.Name
	if name == "" {
		name = "Project"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (Demo Mode)\n\n", name)
	b.WriteString("> **Note**: The documentation service could not be reached. This is a placeholder README; edit it by hand or try generating again.\n\n")
	b.WriteString("## Overview\n\n")
	if ref.Owner != "" {
		fmt.Fprintf(&b, "%s is maintained at [%s](%s).\n\n", name, ref.FullName(), ref.URL())
	} else {
		fmt.Fprintf(&b, "%s is a software project.\n\n", name)
	}
	b.WriteString("## Installation\n\n")
	fmt.Fprintf(&b, "```bash\ngit clone %s\n```\n", cloneURL(ref))
	return b.String()
}

func cloneURL(ref repo.Ref) string {
	if ref.Owner == "" {
		return "<repository-url>"
	}
	return ref.URL() + ".git"
}

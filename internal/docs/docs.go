// Package docs holds the product documentation shown by 'docugithub docs'
// and the /docs pages.
package docs

import (
	"fmt"
	"strings"
)

// Topic is one documentation article.
type Topic struct {
	Name    string // slug used as CLI argument and URL segment
	Title   string
	Summary string
	Content string // Markdown, opening with "# Title"
}

// All returns every topic in display order.
func All() []Topic {
	return append([]Topic(nil), topics...)
}

// Names lists the topic slugs in display order.
func Names() []string {
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.Name
	}
	return names
}

// Get looks a topic up by slug or title, ignoring case.
func Get(name string) (Topic, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, t := range topics {
		if t.Name == key || strings.ToLower(t.Title) == key {
			return t, nil
		}
	}
	return Topic{}, fmt.Errorf("unknown topic %q (available: %s); run 'docugithub docs' to list them",
		name, strings.Join(Names(), ", "))
}

// Package markdown holds the document helpers shared by the driver and the
// editor: unwrapping model output, replacing a selected span, and rendering
// a sanitized preview.
package markdown

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var fenceOpenRe = regexp.MustCompile("^```\\s*(markdown|md)?\\s*$")

// Unwrap strips a single fence that wraps the whole document, as models
// sometimes answer with:
//
//	```markdown
//	# Title
//	```
//
// Text with content outside the fence is returned unchanged.
func Unwrap(text string) string {
	trimmed := strings.TrimSpace(text)
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return text
	}
	if !fenceOpenRe.MatchString(strings.TrimSpace(lines[0])) {
		return text
	}
	if strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return text
	}
	inner := lines[1 : len(lines)-1]
	// A fence in the middle means the outer pair are two separate blocks.
	for _, line := range inner {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			return text
		}
	}
	return strings.Join(inner, "\n")
}

// ReplaceSpan replaces the first occurrence of selected in doc. It reports
// false, leaving doc unchanged, when selected is empty or absent.
func ReplaceSpan(doc, selected, replacement string) (string, bool) {
	if selected == "" {
		return doc, false
	}
	i := strings.Index(doc, selected)
	if i < 0 {
		return doc, false
	}
	return doc[:i] + replacement + doc[i+len(selected):], true
}

// Title returns the text of the first level-one heading, or "".
func Title(doc string) string {
	for _, h := range Headings(doc) {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

// Heading is an ATX heading.
type Heading struct {
	Level int
	Text  string
}

// Headings lists the ATX headings outside fenced code, in order.
func Headings(doc string) []Heading {
	var out []Heading
	inFence := false
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || !strings.HasPrefix(trimmed, "#") {
			continue
		}
		level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
		if level > 6 {
			continue
		}
		rest := trimmed[level:]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		text := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
		if text == "" {
			continue
		}
		out = append(out, Heading{Level: level, Text: text})
	}
	return out
}

// Renderer turns markdown into HTML that is safe to embed in a page.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer renders GitHub-flavored markdown. Raw HTML in the source is
// passed through goldmark and then sanitized.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("align").OnElements("p", "div", "img", "td", "th")
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+-]+$`)).OnElements("code")
	return &Renderer{md: md, policy: policy}
}

// Render converts src and sanitizes the result.
func (r *Renderer) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

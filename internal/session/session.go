package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DocStyle is the documentation tone requested from the generator.
type DocStyle string

const (
	StyleSimple   DocStyle = "simple"
	StyleDetailed DocStyle = "detailed"
	StyleVibrant  DocStyle = "vibrant"
)

// Styles lists every style in display order.
var Styles = []DocStyle{StyleSimple, StyleDetailed, StyleVibrant}

// ParseStyle accepts a style name in any case.
func ParseStyle(s string) (DocStyle, error) {
	for _, st := range Styles {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown doc style %q (must be simple, detailed, or vibrant)", s)
}

// Valid reports whether s is a known style.
func (s DocStyle) Valid() bool {
	switch s {
	case StyleSimple, StyleDetailed, StyleVibrant:
		return true
	}
	return false
}

type PublishStatus string

const (
	Unpublished   PublishStatus = "unpublished"
	Publishing    PublishStatus = "publishing"
	Published     PublishStatus = "published"
	PublishFailed PublishStatus = "failed"
)

// Stage is the workflow page the session is on.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageInitializing Stage = "initializing"
	StageAnalyzing    Stage = "analyzing"
	StageConfiguring  Stage = "configuring"
	StageGenerating   Stage = "generating"
	StageEditing      Stage = "editing"
	StagePublishing   Stage = "publishing"
	StagePublished    Stage = "published"
	StageError        Stage = "error"
)

// Session is one documentation-generation attempt.
type Session struct {
	SessionID         string          `json:"session_id,omitempty"`
	RepoURL           string          `json:"repo_url"`
	Owner             string          `json:"owner,omitempty"`
	Repo              string          `json:"repo,omitempty"`
	AccessToken       string          `json:"access_token,omitempty"`
	DocStyle          DocStyle        `json:"doc_style"`
	Topics            []string        `json:"topics"`
	ReferenceImages   []string        `json:"reference_images,omitempty"`
	GeneratedDocument string          `json:"generated_document,omitempty"`
	PublishStatus     PublishStatus   `json:"publish_status"`
	Stage             Stage           `json:"stage"`
	FailedStep        string          `json:"failed_step,omitempty"`
	LastError         string          `json:"last_error,omitempty"`
	Analysis          json.RawMessage `json:"analysis,omitempty"`
	CommitURL         string          `json:"commit_url,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Defaults seed a fresh session.
type Defaults struct {
	Style  DocStyle
	Topics []string
	Images []string
}

// DefaultTopics are preselected on a fresh session.
var DefaultTopics = []string{"Quick Start", "Installation"}

func newSession(d Defaults) Session {
	style := d.Style
	if style == "" {
		style = StyleDetailed
	}
	topics := d.Topics
	if topics == nil {
		topics = DefaultTopics
	}
	return Session{
		DocStyle:        style,
		Topics:          dedupe(topics),
		ReferenceImages: append([]string(nil), d.Images...),
		PublishStatus:   Unpublished,
		Stage:           StageIdle,
	}
}

func (s Session) clone() Session {
	cp := s
	cp.Topics = append([]string(nil), s.Topics...)
	cp.ReferenceImages = append([]string(nil), s.ReferenceImages...)
	if s.Analysis != nil {
		cp.Analysis = append(json.RawMessage(nil), s.Analysis...)
	}
	return cp
}

// dedupe keeps the first occurrence of each non-empty topic.
func dedupe(topics []string) []string {
	out := make([]string, 0, len(topics))
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

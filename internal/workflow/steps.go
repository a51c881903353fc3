package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docugithub/docugithub/internal/backend"
	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/github"
	"github.com/docugithub/docugithub/internal/identity"
	"github.com/docugithub/docugithub/internal/markdown"
	"github.com/docugithub/docugithub/internal/metrics"
	"github.com/docugithub/docugithub/internal/persistence"
	"github.com/docugithub/docugithub/internal/repo"
	"github.com/docugithub/docugithub/internal/session"
)

var (
	errNoSession  = failure.New(failure.ValidationFailure, "No active session. Start with a repository URL.")
	errNoDocument = failure.New(failure.ValidationFailure, "There is no document yet. Generate one first.")
)

// Preferences are the documentation choices sent by configure.
type Preferences struct {
	Style  session.DocStyle
	Topics []string
	Images []string
}

// normalize trims and dedupes topics and images and checks every field.
func (p Preferences) normalize() (Preferences, error) {
	if !p.Style.Valid() {
		return p, failure.Newf(failure.ValidationFailure, "Unknown documentation style %q.", p.Style)
	}
	out := Preferences{Style: p.Style, Topics: uniq(p.Topics), Images: uniq(p.Images)}
	if len(out.Topics) == 0 {
		return p, failure.New(failure.ValidationFailure, "Select at least one topic.")
	}
	for _, u := range out.Images {
		if err := config.ValidateImageURL(u); err != nil {
			return p, failure.Newf(failure.ValidationFailure, "Reference image %q: %v.", u, err)
		}
	}
	return out, nil
}

func uniq(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// refOf returns the repository of a session.
func refOf(s session.Session) (repo.Ref, error) {
	if s.RepoURL == "" {
		return repo.Ref{}, failure.New(failure.ValidationFailure, "No repository selected.")
	}
	return repo.Parse(s.RepoURL)
}

// Start discards the current session, the way a fresh page load does.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Store.Reset(d.Defaults)
	if d.Timing != nil {
		d.Timing.Reset()
	}
	d.persist()
}

// SetAccessToken stores a token obtained outside the device flow.
func (d *Driver) SetAccessToken(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Store.SetAccessToken(strings.TrimSpace(token))
	d.persist()
}

// Initialize starts a session for repoURL. Any previous session is
// replaced; the access token is kept.
func (d *Driver) Initialize(ctx context.Context, repoURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ref, err := repo.Parse(repoURL)
	if err != nil {
		return d.reject(StepInitialize, err)
	}
	if err := d.Backend.Ready(); err != nil {
		return d.reject(StepInitialize, err)
	}

	token := d.Store.AccessToken()
	d.Store.Reset(d.Defaults)
	d.Store.SetAccessToken(token)
	d.Store.SetRepo(ref.URL(), ref.Owner, ref.Name)
	if d.Timing != nil {
		d.Timing.Reset()
	}

	a := d.begin(StepInitialize, session.StageInitializing)
	id, remote, err := d.sessionID(ctx, ref)
	if err != nil {
		return a.fail(err)
	}
	d.progress(StepInitialize, "Initializing "+ref.FullName()+"...")

	err = d.Backend.Initialize(ctx, backend.InitializeRequest{
		RepoURL:   ref.URL(),
		SessionID: id,
		Owner:     ref.Owner,
		Repo:      ref.Name,
	}, token)
	if err != nil {
		if remote {
			d.updateRow(ctx, id, persistence.StatusFailed)
		}
		return a.fail(err)
	}
	d.Store.SetSessionID(id)
	a.succeed(session.StageAnalyzing)
	return nil
}

// sessionID creates the remote session row when persistence is configured
// and mints a local id otherwise. remote reports which one happened.
func (d *Driver) sessionID(ctx context.Context, ref repo.Ref) (id string, remote bool, err error) {
	if d.Persistence == nil {
		return d.newID(), false, nil
	}
	row, err := d.Persistence.CreateSession(ctx, persistence.SessionRow{
		RepoURL: ref.URL(),
		Owner:   ref.Owner,
		Repo:    ref.Name,
		Status:  persistence.StatusStarted,
	})
	if err != nil {
		return "", false, err
	}
	return row.ID, true, nil
}

// Authenticate runs the device login and stores the token. It does not
// move the session between stages.
//
// The poll runs without holding the step lock, so other steps proceed
// while the user approves the login. A canceled login is not recorded as
// a failure.
func (d *Driver) Authenticate(ctx context.Context, prompt func(*identity.DeviceCode)) (*identity.Token, error) {
	if d.Identity == nil {
		return nil, d.reject(StepAuthenticate, failure.New(failure.ConfigurationMissing, "AUTH0_DOMAIN and AUTH0_CLIENT_ID are not configured"))
	}
	d.mu.Lock()
	a := d.begin(StepAuthenticate, "")
	d.mu.Unlock()

	tok, err := d.Identity.Login(ctx, prompt)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			a.end(metrics.OutcomeCanceled)
			d.logger().Info("login canceled", zap.String("step", StepAuthenticate))
			return nil, err
		}
		return nil, a.fail(err)
	}
	d.Store.SetAccessToken(tok.AccessToken)
	a.succeed("")
	return tok, nil
}

// ListRepositories returns the user's recently updated repositories.
func (d *Driver) ListRepositories(ctx context.Context) ([]github.Repository, error) {
	if d.GitHub == nil {
		return nil, d.reject(StepRepositories, failure.New(failure.ConfigurationMissing, "GitHub API is not configured"))
	}
	start := time.Now()
	repos, err := d.GitHub.RecentRepositories(ctx, d.Store.AccessToken())
	if err != nil {
		d.Metrics.ObserveStep(StepRepositories, metrics.OutcomeFailure, time.Since(start))
		d.logger().Warn("listing repositories failed", zap.Error(err))
		return nil, failure.WithStep(err, StepRepositories)
	}
	d.Metrics.ObserveStep(StepRepositories, metrics.OutcomeSuccess, time.Since(start))
	return repos, nil
}

// Analyze asks the backend for the repository analysis and stores it.
func (d *Driver) Analyze(ctx context.Context) (json.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.Store.Snapshot()
	if snap.SessionID == "" {
		return nil, d.reject(StepAnalyze, errNoSession)
	}
	ref, err := refOf(snap)
	if err != nil {
		return nil, d.reject(StepAnalyze, err)
	}
	if err := d.Backend.Ready(); err != nil {
		return nil, d.reject(StepAnalyze, err)
	}

	a := d.begin(StepAnalyze, session.StageAnalyzing)
	d.progress(StepAnalyze, "Analyzing file structure...")
	raw, err := d.Backend.Analyze(ctx, backend.AnalyzeRequest{
		SessionID: snap.SessionID,
		RepoURL:   ref.URL(),
		Owner:     ref.Owner,
		Repo:      ref.Name,
	}, snap.AccessToken)
	if err != nil {
		return nil, a.fail(err)
	}
	d.Store.SetAnalysis(raw)
	d.updateRow(ctx, snap.SessionID, persistence.StatusAnalyzed)
	a.succeed(session.StageConfiguring)
	return raw, nil
}

// CurrentPreferences returns the preferences held by the session.
func (d *Driver) CurrentPreferences() Preferences {
	snap := d.Store.Snapshot()
	return Preferences{Style: snap.DocStyle, Topics: snap.Topics, Images: snap.ReferenceImages}
}

// Configure stores p on the session and sends it to the backend.
func (d *Driver) Configure(ctx context.Context, p Preferences) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.Store.Snapshot()
	if snap.SessionID == "" {
		return d.reject(StepConfigure, errNoSession)
	}
	p, err := p.normalize()
	if err != nil {
		return d.reject(StepConfigure, err)
	}
	if err := d.Backend.Ready(); err != nil {
		return d.reject(StepConfigure, err)
	}

	d.Store.SetDocStyle(p.Style)
	d.Store.SetTopics(p.Topics)
	d.Store.SetReferenceImages(p.Images)

	a := d.begin(StepConfigure, session.StageConfiguring)
	err = d.Backend.Preferences(ctx, backend.PreferencesRequest{
		SessionID: snap.SessionID,
		Preferences: backend.Preferences{
			Style:  string(p.Style),
			Topics: p.Topics,
			Images: p.Images,
		},
	}, snap.AccessToken)
	if err != nil {
		return a.fail(err)
	}
	if d.Persistence != nil {
		err := d.Persistence.UpsertUserConfig(ctx, persistence.UserConfig{
			SessionID:   snap.SessionID,
			Style:       string(p.Style),
			Topics:      p.Topics,
			Images:      p.Images,
			GitHubToken: snap.AccessToken,
		})
		if err != nil {
			d.logger().Warn("failed to save user config", zap.String("session_id", snap.SessionID), zap.Error(err))
		}
	}
	d.updateRow(ctx, snap.SessionID, persistence.StatusConfigured)
	a.succeed(session.StageGenerating)
	return nil
}

// GenerateResult describes how generate ended. When Fallback is set the
// document is the placeholder and Cause is why generation failed.
type GenerateResult struct {
	Document string
	Fallback bool
	Cause    error
}

// Generate requests the README. On failure it waits FallbackDelay and
// moves to editing with a placeholder document; if ctx ends during the
// wait the session stays in error and the context error is returned.
func (d *Driver) Generate(ctx context.Context) (*GenerateResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.Store.Snapshot()
	if snap.SessionID == "" {
		return nil, d.reject(StepGenerate, errNoSession)
	}
	ref, err := refOf(snap)
	if err != nil {
		return nil, d.reject(StepGenerate, err)
	}
	if err := d.Backend.Ready(); err != nil {
		return nil, d.reject(StepGenerate, err)
	}

	a := d.begin(StepGenerate, session.StageGenerating)
	d.progress(StepGenerate, "Connecting to the workflow backend...")
	d.progress(StepGenerate, "Drafting documentation for "+ref.FullName()+"...")

	var doc string
	out, err := d.Backend.Generate(ctx, backend.GenerateRequest{SessionID: snap.SessionID, RepoURL: ref.URL()}, snap.AccessToken)
	if err == nil {
		doc = markdown.Unwrap(out.Markdown)
		if strings.TrimSpace(doc) == "" {
			err = failure.New(failure.BackendFailure, "generate: empty document")
		}
	}
	if err != nil {
		cause := a.fail(err)
		return d.fallback(ctx, a, ref, cause)
	}

	d.progress(StepGenerate, "Finalizing Markdown...")
	d.Store.SetGeneratedDocument(doc)
	d.Store.SetPublishStatus(session.Unpublished)
	d.Store.SetCommitURL("")
	d.updateRow(ctx, snap.SessionID, persistence.StatusGenerated)
	a.succeed(session.StageEditing)
	return &GenerateResult{Document: doc}, nil
}

func (d *Driver) fallback(ctx context.Context, a *attempt, ref repo.Ref, cause error) (*GenerateResult, error) {
	d.progress(StepGenerate, "Error: "+failure.Message(cause))
	delay := d.FallbackDelay
	if delay == 0 {
		delay = DefaultFallbackDelay
	}
	if err := sleep(ctx, delay); err != nil {
		return nil, err
	}
	d.progress(StepGenerate, "Falling back to demo mode...")

	doc := Placeholder(ref)
	d.Store.SetGeneratedDocument(doc)
	d.Store.SetPublishStatus(session.Unpublished)
	d.Store.SetCommitURL("")
	d.Store.SetStage(session.StageEditing)
	d.Metrics.ObserveFallback()
	d.Metrics.ObserveStep(StepGenerate, metrics.OutcomeFallback, time.Since(a.start))
	d.logger().Info("generate fell back to placeholder", zap.String("repo", ref.FullName()))
	d.persist()
	return &GenerateResult{Document: doc, Fallback: true, Cause: cause}, nil
}

// ChatRevise asks the backend to revise the document following
// instruction. With a selection only its first occurrence is replaced.
func (d *Driver) ChatRevise(ctx context.Context, selected, instruction string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.Store.Snapshot()
	if snap.SessionID == "" {
		return "", d.reject(StepEdit, errNoSession)
	}
	doc := snap.GeneratedDocument
	if doc == "" {
		return "", d.reject(StepEdit, errNoDocument)
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", d.reject(StepEdit, failure.New(failure.ValidationFailure, "Describe the change you want."))
	}
	if selected != "" && !strings.Contains(doc, selected) {
		return "", d.reject(StepEdit, failure.New(failure.ValidationFailure, "The selected text is not in the document."))
	}
	if err := d.Backend.Ready(); err != nil {
		return "", d.reject(StepEdit, err)
	}

	a := d.begin(StepEdit, session.StageEditing)
	out, err := d.Backend.Chat(ctx, backend.ChatRequest{
		SessionID:     snap.SessionID,
		Message:       instruction,
		CurrentReadme: doc,
		SelectedText:  selected,
	}, snap.AccessToken)
	if err != nil {
		return "", a.fail(err)
	}

	revised := markdown.Unwrap(out.RevisedReadme)
	next := revised
	if selected != "" {
		next, _ = markdown.ReplaceSpan(doc, selected, revised)
	}
	d.replaceDocument(next)
	a.succeed(session.StageEditing)
	return next, nil
}

// SetDocument replaces the document with a manual edit.
func (d *Driver) SetDocument(doc string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.Store.Snapshot()
	if snap.GeneratedDocument == "" {
		return d.reject(StepEdit, errNoDocument)
	}
	if strings.TrimSpace(doc) == "" {
		return d.reject(StepEdit, failure.New(failure.ValidationFailure, "The document cannot be empty."))
	}
	if d.replaceDocument(doc) && snap.Stage == session.StagePublished {
		d.Store.SetStage(session.StageEditing)
	}
	d.persist()
	return nil
}

// replaceDocument stores doc. A changed document is no longer the one that
// was published.
func (d *Driver) replaceDocument(doc string) bool {
	snap := d.Store.Snapshot()
	if snap.GeneratedDocument == doc {
		return false
	}
	d.Store.SetGeneratedDocument(doc)
	if snap.PublishStatus != session.Unpublished {
		d.Store.SetPublishStatus(session.Unpublished)
	}
	return true
}

// PublishResult describes a publish. AlreadyPublished is set when the
// document had been pushed already and nothing was sent.
type PublishResult struct {
	CommitURL        string
	AlreadyPublished bool
}

// Publish pushes the document to the repository.
func (d *Driver) Publish(ctx context.Context, commitMessage string) (*PublishResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.Store.Snapshot()
	if snap.SessionID == "" {
		return nil, d.reject(StepPublish, errNoSession)
	}
	if snap.GeneratedDocument == "" {
		return nil, d.reject(StepPublish, errNoDocument)
	}
	if snap.PublishStatus == session.Published {
		d.logger().Info("document already published", zap.String("session_id", snap.SessionID))
		return &PublishResult{CommitURL: snap.CommitURL, AlreadyPublished: true}, nil
	}
	if err := d.Backend.Ready(); err != nil {
		return nil, d.reject(StepPublish, err)
	}

	msg := strings.TrimSpace(commitMessage)
	if msg == "" {
		msg = d.CommitMessage
	}
	if msg == "" {
		msg = config.DefaultCommitMessage
	}

	a := d.begin(StepPublish, session.StagePublishing)
	d.Store.SetPublishStatus(session.Publishing)
	out, err := d.Backend.Push(ctx, backend.PushRequest{
		SessionID:     snap.SessionID,
		ReadmeContent: snap.GeneratedDocument,
		CommitMessage: msg,
	}, snap.AccessToken)
	if err != nil {
		d.Store.SetPublishStatus(session.PublishFailed)
		return nil, a.fail(err)
	}
	d.Store.SetPublishStatus(session.Published)
	d.Store.SetCommitURL(out.CommitURL)
	d.updateRow(ctx, snap.SessionID, persistence.StatusPublished)
	d.Metrics.ObservePublish()
	a.succeed(session.StagePublished)
	return &PublishResult{CommitURL: out.CommitURL}, nil
}

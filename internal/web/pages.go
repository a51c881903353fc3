package web

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/docugithub/docugithub/internal/config"
	"github.com/docugithub/docugithub/internal/docs"
	"github.com/docugithub/docugithub/internal/failure"
	"github.com/docugithub/docugithub/internal/github"
	"github.com/docugithub/docugithub/internal/identity"
	"github.com/docugithub/docugithub/internal/repo"
	"github.com/docugithub/docugithub/internal/session"
	"github.com/docugithub/docugithub/internal/workflow"
)

type option struct {
	Value   string
	Label   string
	Detail  string
	Checked bool
}

type pageData struct {
	Title   string
	Refresh string
	Session session.Session
	Flash   string
	Error   string

	RepoURL    string
	Repos      []github.Repository
	ReposError string

	Account  string
	Device   *identity.DeviceCode
	CanLogin bool

	Analysis string

	Styles []option
	Topics []option
	Images string

	Lines []string

	Preview       template.HTML
	CommitMessage string

	Topic *docs.Topic
	Body  template.HTML
}

// statusFor maps a failure to the status of the page that reports it.
func statusFor(err error) int {
	switch failure.KindOf(err) {
	case failure.ValidationFailure:
		return http.StatusBadRequest
	case failure.ConfigurationMissing:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// formValue reads a form field with browser line endings normalized.
func formValue(r *http.Request, key string) string {
	return strings.ReplaceAll(r.FormValue(key), "\r\n", "\n")
}

func (s *Server) landing(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Home"}
	if s.driver.GitHub != nil && s.driver.Store.AccessToken() != "" {
		repos, err := s.driver.ListRepositories(r.Context())
		if err != nil {
			data.ReposError = failure.Message(err)
		}
		data.Repos = repos
	}
	s.render(w, http.StatusOK, "landing", data)
}

// startSession handles the landing form and the repository picker.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	url := r.FormValue("repo_url")
	if err := s.driver.Initialize(r.Context(), url); err != nil {
		s.render(w, statusFor(err), "landing", &pageData{Title: "Home", RepoURL: url, Error: failure.Message(err)})
		return
	}
	if r.FormValue("picked") != "" {
		redirect(w, r, "/analysis")
		return
	}
	redirect(w, r, "/auth")
}

// deepLink starts a session for github.com/{owner}/{repo}.
func (s *Server) deepLink(w http.ResponseWriter, r *http.Request) {
	ref, err := repo.FromOwnerRepo(chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	if err == nil {
		err = s.driver.Initialize(r.Context(), ref.URL())
	}
	if err != nil {
		s.logger.Warn("deep link failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.setFlash(failure.Message(err))
		redirect(w, r, "/")
		return
	}
	redirect(w, r, "/auth")
}

func (s *Server) authPage(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Authentication", CanLogin: s.driver.Identity != nil}

	s.mu.Lock()
	if dl := s.device; dl != nil {
		switch {
		case dl.err != "":
			data.Error = dl.err
			s.device = nil
		case !dl.done:
			data.Device = dl.code
			data.Refresh = "3"
		default:
			s.device = nil
		}
	}
	s.mu.Unlock()

	if token := s.driver.Store.AccessToken(); token != "" {
		data.Account = "with a token"
		if info, err := identity.Inspect(token); err == nil && info.Subject != "" {
			data.Account = "as " + info.Subject
		}
	}
	s.render(w, http.StatusOK, "auth", data)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	switch r.FormValue("action") {
	case "device":
		if s.driver.Identity == nil {
			s.render(w, http.StatusServiceUnavailable, "auth", &pageData{Title: "Authentication", Error: "Device login is not configured."})
			return
		}
		s.startDeviceLogin()
		redirect(w, r, "/auth")
		return
	case "skip":
		s.stopDeviceLogin()
		redirect(w, r, "/analysis")
		return
	}
	token := strings.TrimSpace(r.FormValue("token"))
	if token == "" {
		s.render(w, http.StatusBadRequest, "auth", &pageData{Title: "Authentication", CanLogin: s.driver.Identity != nil, Error: "Enter a token to continue."})
		return
	}
	s.stopDeviceLogin()
	s.driver.SetAccessToken(token)
	redirect(w, r, "/analysis")
}

// startDeviceLogin runs the device flow in the background; the auth page
// polls until it finishes. A second start while one runs is ignored.
func (s *Server) startDeviceLogin() {
	s.mu.Lock()
	if s.device != nil && !s.device.done && s.device.err == "" {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.loginTimeout)
	dl := &deviceLogin{cancel: cancel}
	s.device = dl
	s.mu.Unlock()

	go func() {
		defer cancel()
		_, err := s.driver.Authenticate(ctx, func(code *identity.DeviceCode) {
			s.mu.Lock()
			dl.code = code
			s.mu.Unlock()
		})
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.device != dl {
			// Abandoned for a token or a skip.
			return
		}
		if err != nil {
			dl.err = failure.Message(err)
			return
		}
		dl.done = true
		s.flash = "Signed in."
	}()
}

// stopDeviceLogin cancels a device login still waiting for approval.
func (s *Server) stopDeviceLogin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device != nil && s.device.cancel != nil {
		s.device.cancel()
	}
	s.device = nil
}

func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	snap := s.driver.Store.Snapshot()
	if snap.SessionID == "" {
		s.setFlash("Start a session with a repository URL first.")
		redirect(w, r, "/")
		return snap, false
	}
	return snap, true
}

// due reports whether step should run now: the session waits in stage
// or the step is the one that failed.
func due(snap session.Session, stage session.Stage, step string) bool {
	return snap.Stage == stage || (snap.Stage == session.StageError && snap.FailedStep == step)
}

func (s *Server) analysis(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if due(snap, session.StageAnalyzing, workflow.StepAnalyze) {
		if _, err := s.driver.Analyze(r.Context()); err != nil {
			s.render(w, statusFor(err), "analysis", &pageData{Title: "Analysis", Error: failure.Message(err)})
			return
		}
		redirect(w, r, "/config")
		return
	}
	s.render(w, http.StatusOK, "analysis", &pageData{Title: "Analysis", Analysis: prettyJSON(snap.Analysis)})
}

func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func (s *Server) configData(p workflow.Preferences) *pageData {
	data := &pageData{Title: "Preferences"}
	for _, st := range session.Styles {
		data.Styles = append(data.Styles, option{Value: string(st), Checked: st == p.Style})
	}
	selected := make(map[string]bool, len(p.Topics))
	for _, t := range p.Topics {
		selected[t] = true
	}
	offered := s.topics
	if len(offered) == 0 {
		offered = config.AvailableTopics
	}
	seen := make(map[string]bool, len(offered))
	for _, t := range offered {
		seen[t] = true
		data.Topics = append(data.Topics, option{Value: t, Checked: selected[t]})
	}
	for _, t := range p.Topics {
		if !seen[t] {
			data.Topics = append(data.Topics, option{Value: t, Checked: true})
		}
	}
	data.Images = strings.Join(p.Images, "\n")
	return data
}

func (s *Server) configPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireSession(w, r); !ok {
		return
	}
	s.render(w, http.StatusOK, "config", s.configData(s.driver.CurrentPreferences()))
}

func (s *Server) configure(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "config", &pageData{Title: "Preferences", Error: err.Error()})
		return
	}
	prefs := workflow.Preferences{
		Style:  session.DocStyle(r.FormValue("style")),
		Topics: r.Form["topics"],
		Images: strings.Split(formValue(r, "images"), "\n"),
	}
	if err := s.driver.Configure(r.Context(), prefs); err != nil {
		data := s.configData(prefs)
		data.Error = failure.Message(err)
		s.render(w, statusFor(err), "config", data)
		return
	}
	redirect(w, r, "/generating")
}

func (s *Server) generating(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	switch {
	case snap.GeneratedDocument != "" && !due(snap, session.StageGenerating, workflow.StepGenerate):
		redirect(w, r, "/editor")
		return
	case !due(snap, session.StageGenerating, workflow.StepGenerate):
		redirect(w, r, "/config")
		return
	}

	res, err := s.driver.Generate(r.Context())
	data := &pageData{Title: "Generating"}
	if err != nil {
		data.Lines = s.progress.Lines()
		data.Error = failure.Message(err)
		s.render(w, statusFor(err), "generating", data)
		return
	}
	data.Lines = s.progress.Lines()
	if res.Fallback {
		data.Flash = "Generation failed; the editor opens with a placeholder README."
	}
	data.Refresh = "2;url=/editor"
	s.render(w, http.StatusOK, "generating", data)
}

func (s *Server) editor(w http.ResponseWriter, r *http.Request) {
	snap := s.driver.Store.Snapshot()
	if snap.GeneratedDocument == "" {
		if snap.SessionID == "" {
			redirect(w, r, "/")
		} else {
			redirect(w, r, "/generating")
		}
		return
	}
	data := &pageData{Title: "Editor", CommitMessage: s.driver.CommitMessage}
	if data.CommitMessage == "" {
		data.CommitMessage = config.DefaultCommitMessage
	}
	preview, err := s.renderer.Render(snap.GeneratedDocument)
	if err != nil {
		data.Error = "Preview unavailable: " + err.Error()
	}
	data.Preview = preview
	s.render(w, http.StatusOK, "editor", data)
}

func (s *Server) saveDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.driver.SetDocument(formValue(r, "document")); err != nil {
		s.setFlash(failure.Message(err))
	}
	redirect(w, r, "/editor")
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	_, err := s.driver.ChatRevise(r.Context(), formValue(r, "selection"), formValue(r, "instruction"))
	if err != nil {
		s.setFlash(failure.Message(err))
	} else {
		s.setFlash("Revision applied.")
	}
	redirect(w, r, "/editor")
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	res, err := s.driver.Publish(r.Context(), strings.TrimSpace(r.FormValue("commit_message")))
	switch {
	case err != nil:
		s.setFlash(failure.Message(err))
	case res.AlreadyPublished:
		s.setFlash("Already published.")
	case res.CommitURL != "":
		s.setFlash("Published: " + res.CommitURL)
	default:
		s.setFlash("Published.")
	}
	redirect(w, r, "/editor")
}

func topicOptions() []option {
	var out []option
	for _, t := range docs.All() {
		out = append(out, option{Value: t.Name, Label: t.Title, Detail: t.Summary})
	}
	return out
}

func (s *Server) docsIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "docs", &pageData{Title: "Documentation", Topics: topicOptions()})
}

func (s *Server) docsTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := docs.Get(chi.URLParam(r, "topic"))
	if err != nil {
		s.render(w, http.StatusNotFound, "docs", &pageData{Title: "Documentation", Topics: topicOptions(), Error: err.Error()})
		return
	}
	body, err := s.renderer.Render(topic.Content)
	if err != nil {
		s.render(w, http.StatusInternalServerError, "docs", &pageData{Title: topic.Title, Error: err.Error()})
		return
	}
	s.render(w, http.StatusOK, "docs", &pageData{Title: topic.Title, Topic: &topic, Body: body})
}

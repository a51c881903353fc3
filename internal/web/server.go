// Package web serves the documentation workflow as server-rendered pages.
// Every page reads the session store and runs at most one workflow step.
package web

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/docugithub/docugithub/internal/identity"
	"github.com/docugithub/docugithub/internal/markdown"
	"github.com/docugithub/docugithub/internal/metrics"
	"github.com/docugithub/docugithub/internal/workflow"
)

// Options configure a Server.
type Options struct {
	Driver  *workflow.Driver
	Topics  []string
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// LoginTimeout bounds a device login started from the auth page.
	LoginTimeout time.Duration
}

// Server holds the page handlers and the state shared between requests.
type Server struct {
	driver   *workflow.Driver
	topics   []string
	metrics  *metrics.Metrics
	logger   *zap.Logger
	renderer *markdown.Renderer
	progress *ProgressLog
	pages    map[string]*template.Template

	loginTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc

	mu     sync.Mutex
	flash  string
	device *deviceLogin
}

// deviceLogin is a device flow started from the auth page.
type deviceLogin struct {
	code   *identity.DeviceCode
	err    string
	done   bool
	cancel context.CancelFunc
}

var pageNames = []string{"landing", "auth", "analysis", "config", "generating", "editor", "docs"}

// New builds a server around opts.Driver. When the driver has no observer
// the server's progress log becomes its observer.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.LoginTimeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		driver:       opts.Driver,
		topics:       opts.Topics,
		metrics:      opts.Metrics,
		logger:       logger,
		renderer:     markdown.NewRenderer(),
		progress:     &ProgressLog{},
		pages:        make(map[string]*template.Template, len(pageNames)),
		loginTimeout: timeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	if s.driver.Observer == nil {
		s.driver.Observer = s.progress
	}
	for _, name := range pageNames {
		s.pages[name] = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html"))
	}
	return s
}

// Close stops a device login still polling in the background.
func (s *Server) Close() {
	s.cancel()
}

// Handler returns the router with every route and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/", s.landing)
	r.Post("/", s.startSession)
	r.Get("/auth", s.authPage)
	r.Post("/auth", s.authenticate)
	r.Get("/analysis", s.analysis)
	r.Get("/config", s.configPage)
	r.Post("/config", s.configure)
	r.Get("/generating", s.generating)
	r.Route("/editor", func(r chi.Router) {
		r.Get("/", s.editor)
		r.Post("/", s.saveDocument)
		r.Post("/chat", s.chat)
		r.Post("/publish", s.publish)
	})
	r.Route("/docs", func(r chi.Router) {
		r.Get("/", s.docsIndex)
		r.Get("/{topic}", s.docsTopic)
	})
	r.Get("/{owner}/{repo}", s.deepLink)
	return r
}

// instrument logs each request and records its route, status and duration.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) setFlash(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = msg
}

func (s *Server) takeFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.flash
	s.flash = ""
	return msg
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data *pageData) {
	data.Session = s.driver.Store.Snapshot()
	data.Session.AccessToken = ""
	if data.Flash == "" {
		data.Flash = s.takeFlash()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages[name].Execute(w, data); err != nil {
		s.logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
	}
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

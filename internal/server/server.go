// Package server provides the HTTP server and page handlers.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/bryan-buckman/blogfront/internal/images"
	"github.com/bryan-buckman/blogfront/internal/logging"
	"github.com/bryan-buckman/blogfront/internal/metrics"
	"github.com/bryan-buckman/blogfront/internal/model"
	"github.com/bryan-buckman/blogfront/internal/notify"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// pages are rendered inside layout.html.
var pages = []string{"index.html", "post.html", "form.html", "delete.html", "error.html"}

// Backend is the blog REST API as the page controllers use it.
type Backend interface {
	ListPosts(ctx context.Context, page, limit int) (*model.ListPage, error)
	GetPost(ctx context.Context, id string) (*model.Post, string, error)
	CreatePost(ctx context.Context, in model.PostInput) (*model.Post, string, error)
	UpdatePost(ctx context.Context, id string, in model.PostInput) (*model.Post, string, error)
	DeletePost(ctx context.Context, id string) (string, error)
}

// Deps are the collaborators a Server needs. Metrics may be nil.
type Deps struct {
	Backend  Backend
	Queue    *notify.Queue
	Resolver *images.Resolver
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Server is the main HTTP server.
type Server struct {
	backend   Backend
	queue     *notify.Queue
	resolver  *images.Resolver
	logger    *zap.Logger
	metrics   *metrics.Metrics
	deleting  *busySet
	router    chi.Router
	templates map[string]*template.Template
	http      *http.Server
}

// New creates a new server.
func New(deps Deps) (*Server, error) {
	if deps.Backend == nil || deps.Queue == nil || deps.Resolver == nil {
		return nil, errors.New("server: backend, queue and resolver are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		backend:   deps.Backend,
		queue:     deps.Queue,
		resolver:  deps.Resolver,
		logger:    logger,
		metrics:   deps.Metrics,
		deleting:  newBusySet(),
		templates: make(map[string]*template.Template, len(pages)),
	}

	funcs := template.FuncMap{
		"timeAgo":    timeAgo,
		"formatDate": formatDate,
		"fileSize":   fileSize,
	}
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		s.templates[page] = tmpl
	}

	s.setupRoutes()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler())
	}

	// Serve static files.
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Pages.
	r.Get("/", s.handleHome)
	r.Route("/posts", func(r chi.Router) {
		r.Get("/new", s.handleNewPost)
		r.Post("/new", s.handleCreatePost)
		r.Get("/{id}", s.handlePost)
		r.Get("/{id}/edit", s.handleEditPost)
		r.Post("/{id}/edit", s.handleUpdatePost)
		r.Get("/{id}/delete", s.handleConfirmDelete)
		r.Post("/{id}/delete", s.handleDeletePost)
	})

	// Notifications.
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", s.handleListNotifications)
		r.Post("/clear", s.handleClearNotifications)
		r.Post("/{id}/dismiss", s.handleDismissNotification)
	})

	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until Shutdown is called. It returns nil
// after a clean shutdown, including one that happened before it started.
func (s *Server) ListenAndServe(addr string) error {
	s.http.Addr = addr
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// --- Helpers ---

// render executes a page inside the layout. Active notifications are added
// to every page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]interface{}) {
	tmpl, ok := s.templates[page]
	if !ok {
		s.logger.Error("Unknown template", zap.String("page", page))
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Notifications"] = toastViews(s.queue.List(), time.Now())
	data["DefaultImage"] = s.resolver.DefaultURL()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error("Template error", zap.String("page", page), zap.Error(err))
	}
}

// abandoned reports whether the client went away before the backend
// answered. Results for such requests are dropped.
func (s *Server) abandoned(r *http.Request) bool {
	if r.Context().Err() == nil {
		return false
	}
	s.logger.Debug("Dropping response for abandoned request", zap.String("path", r.URL.Path))
	return true
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006 at 03:04 PM")
}

func fileSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"intakegate/domain/core"
	"intakegate/internal"
	"intakegate/ports"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// RunBrowser is the read side of the intake service
type RunBrowser interface {
	GetRun(ctx context.Context, id core.RunID) (*ports.StoredRun, error)
	ListRuns(ctx context.Context, filter ports.RunFilter) ([]ports.RunSummary, error)
}

// App serves the operator pages and forwards /api to the JSON engine
type App struct {
	router    *chi.Mux
	runs      RunBrowser
	api       http.Handler
	templates *template.Template
	logger    *internal.Logger
}

// NewApp creates a new UI application. api may be nil when only the pages are wanted.
func NewApp(runs RunBrowser, api http.Handler, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	funcMap := template.FuncMap{
		"pct": func(rate *float64) string {
			if rate == nil {
				return "n/a"
			}
			return fmt.Sprintf("%.2f%%", *rate*100)
		},
		"stamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05Z") },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		runs:      runs,
		api:       api,
		templates: templates,
		logger:    logger,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/runs/{id}", a.handleRun)
	a.router.Get("/runs/{id}/report.md", a.handleRunMarkdown)

	if a.api != nil {
		a.router.Mount("/api", a.api)
		a.router.Handle("/healthz", a.api)
	}
}

// ServeHTTP lets the app be handed straight to an http.Server
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/abrezinsky/gavel/internal/services"
	"github.com/abrezinsky/gavel/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// Templates holds all parsed HTML templates
type Templates struct {
	Index   *template.Template
	Session *template.Template
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Sessions     services.SessionServicer
	Committees   services.CommitteeServicer
	Activity     services.ActivityServicer
	Settings     services.SettingsServicer
	Hub          *websocket.Hub
	Metrics      http.Handler
	Log          HTTPLogger
	templates    *Templates
	staticServer http.Handler
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	sessions services.SessionServicer,
	committees services.CommitteeServicer,
	activity services.ActivityServicer,
	settings services.SettingsServicer,
	templatesFS fs.FS,
	staticServer http.Handler,
	hub *websocket.Hub,
	metrics http.Handler,
	log HTTPLogger,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Sessions:     sessions,
		Committees:   committees,
		Activity:     activity,
		Settings:     settings,
		Hub:          hub,
		Metrics:      metrics,
		Log:          log,
		templates:    templates,
		staticServer: staticServer,
	}, nil
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without loading templates (for testing API endpoints)
func NewForTesting(
	sessions services.SessionServicer,
	committees services.CommitteeServicer,
	activity services.ActivityServicer,
	settings services.SettingsServicer,
) *Handlers {
	return &Handlers{
		Sessions:   sessions,
		Committees: committees,
		Activity:   activity,
		Settings:   settings,
		Log:        NoopHTTPLogger{},
		// templates left nil - API endpoints don't use templates
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Index, err = template.ParseFS(templatesFS, "layout.html", "index.html"); err != nil {
		return nil, fmt.Errorf("index template: %w", err)
	}
	if t.Session, err = template.ParseFS(templatesFS, "layout.html", "session.html"); err != nil {
		return nil, fmt.Errorf("session template: %w", err)
	}

	return t, nil
}

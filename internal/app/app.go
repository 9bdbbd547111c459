package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/gavel/internal/config"
	"github.com/abrezinsky/gavel/internal/handlers"
	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/internal/metrics"
	"github.com/abrezinsky/gavel/internal/repository"
	"github.com/abrezinsky/gavel/internal/services"
	"github.com/abrezinsky/gavel/internal/websocket"
	"github.com/abrezinsky/gavel/pkg/roster"
)

// shutdownTimeout bounds how long Close waits for in-flight requests
const shutdownTimeout = 5 * time.Second

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      *config.Config
	handlers *handlers.Handlers
	repo     *repository.Repository
	sessions *services.SessionService
	hub      *websocket.Hub

	mu        sync.Mutex
	server    *http.Server
	closed    bool
	closeOnce sync.Once
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config, rosterClient roster.Client, templatesFS, staticFS fs.FS) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	// Initialize services
	settingsService := services.NewSettingsService(log, repo)
	activityService := services.NewActivityService(log, repo, m)
	sessionService := services.NewSessionService(log, repo, activityService,
		services.WithTickInterval(cfg.TickInterval),
		services.WithDefaultSpeakingTime(cfg.DefaultSpeakingTime),
		services.WithMetrics(m),
	)
	committeeService := services.NewCommitteeService(log, repo, rosterClient, settingsService, activityService)
	committeeService.SetSessions(sessionService)
	settingsService.SetEvicter(sessionService)

	// Initialize WebSocket hub with DI
	hub := websocket.New(log, sessionService, m)
	hub.Start()
	sessionService.SetBroadcaster(hub)

	a := &App{
		log:      log,
		cfg:      cfg,
		repo:     repo,
		sessions: sessionService,
		hub:      hub,
	}

	if err := a.applyConfiguredSettings(settingsService); err != nil {
		a.Close()
		return nil, err
	}

	// Create static file server
	staticServer := handlers.NewStaticServer(staticFS)

	h, err := handlers.New(
		sessionService,
		committeeService,
		activityService,
		settingsService,
		templatesFS,
		staticServer,
		hub,
		m.Handler(),
		log,
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}
	a.handlers = h

	return a, nil
}

// applyConfiguredSettings stores URLs given in the config so they win over
// whatever was saved through the settings API
func (a *App) applyConfiguredSettings(settings services.SettingsServicer) error {
	err := settings.UpdateSettings(context.Background(), services.Settings{
		BaseURL:   a.cfg.BaseURL,
		RosterURL: a.cfg.RosterURL,
	})
	if err != nil {
		return fmt.Errorf("failed to store configured settings: %w", err)
	}
	return nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close stops the server and releases every resource. Safe to call twice.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		server := a.server
		a.closed = true
		a.mu.Unlock()
		if server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := server.Shutdown(ctx); err != nil {
				a.log.Warn("Server shutdown", "error", err)
			}
			cancel()
		}

		a.hub.Stop()
		a.sessions.Close()
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	})
}

// Run starts the HTTP server and blocks until it stops. Close makes it
// return nil.
func (a *App) Run(addr string) error {
	baseURL := a.cfg.BaseURL
	if baseURL == "" {
		// Set default base URL if not configured, using detected LAN IP
		ip := getPreferredIP(realNetworkProvider{})
		baseURL = fmt.Sprintf("http://%s%s", ip, addr)
		a.setDefaultBaseURL(baseURL)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.server = server
	a.mu.Unlock()

	a.log.Info("Server starting", "url", baseURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// setDefaultBaseURL sets the base URL setting if not already configured
// or if current value uses localhost (which isn't useful for QR codes)
func (a *App) setDefaultBaseURL(baseURL string) {
	ctx := context.Background()
	existing, _ := a.repo.GetSetting(ctx, "base_url")

	// Set default if empty or if current value uses localhost
	needsUpdate := existing == "" || strings.Contains(existing, "localhost")
	if needsUpdate {
		if err := a.repo.SetSetting(ctx, "base_url", baseURL); err != nil {
			a.log.Warn("Failed to set default base_url", "error", err)
		} else {
			a.log.Info("Default base URL set", "url", baseURL)
		}
	}
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IP address for LAN access.
// Prefers private network addresses (192.168.x.x, 10.x.x.x, 172.16-31.x.x).
// Falls back to localhost if no suitable address is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP

	for _, iface := range ifaces {
		// Skip down, loopback, and point-to-point interfaces
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			// Only consider IPv4 addresses
			if ip == nil || ip.To4() == nil {
				continue
			}

			// Skip loopback
			if ip.IsLoopback() {
				continue
			}

			candidates = append(candidates, ip)
		}
	}

	// Prefer private network addresses
	for _, ip := range candidates {
		ipStr := ip.String()
		if strings.HasPrefix(ipStr, "192.168.") ||
			strings.HasPrefix(ipStr, "10.") ||
			isPrivate172(ip) {
			return ipStr
		}
	}

	// Fall back to any non-loopback if no private address found
	if len(candidates) > 0 {
		return candidates[0].String()
	}

	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}

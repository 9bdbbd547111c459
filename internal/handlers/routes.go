package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger) // Custom conditional HTTP logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	// The websocket outlives any request timeout
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Static files (served from embedded filesystem)
		if h.staticServer != nil {
			r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
		}

		// Pages
		r.Get("/", h.handleIndex)
		r.Get("/committees/{id}", h.handleSessionPage)

		r.Get("/health", h.handleHealth)
		if h.Metrics != nil {
			r.Handle("/metrics", h.Metrics)
		}

		// Committees
		r.Get("/api/committees", h.handleListCommittees)
		r.Post("/api/committees", h.handleCreateCommittee)
		r.Post("/api/committees/import", h.handleImportRoster)
		r.Post("/api/committees/import/yaml", h.handleImportRosterYAML)

		r.Route("/api/committees/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetCommittee)
			r.Delete("/", h.handleDeleteCommittee)
			r.Put("/settings", h.handleUpdateCommitteeSettings)

			// Roster
			r.Get("/members", h.handleGetMembers)
			r.Put("/members", h.handleSetMembers)
			r.Put("/members/{code}/attendance", h.handleSetAttendance)

			// Sharing
			r.Get("/share-url", h.handleGetShareURL)
			r.Get("/qr", h.handleGetShareQR)

			r.Get("/activity", h.handleGetActivity)

			// Live session
			r.Get("/session", h.handleGetSession)

			r.Post("/speakers", h.handleAddSpeaker)
			r.Delete("/speakers/{code}", h.handleRemoveSpeaker)
			r.Post("/speakers/next", h.handleNextSpeaker)
			r.Post("/speakers/yield", h.handleYield)
			r.Put("/speakers/order", h.handleReorderSpeakers)
			r.Post("/speakers/drop", h.handleDropSpeaker)

			r.Post("/timer/start", h.handleStartTimer)
			r.Post("/timer/pause", h.handlePauseTimer)
			r.Post("/timer/toggle", h.handleToggleTimer)
			r.Post("/timer/reset", h.handleResetTimer)
			r.Put("/timer", h.handleSetTime)

			r.Post("/motions", h.handleCreateMotion)
			r.Put("/motions/order", h.handleReorderMotions)
			r.Put("/motions/{motionID}", h.handleEditMotion)
			r.Post("/motions/{motionID}/vote", h.handleVoteMotion)
			r.Post("/motions/{motionID}/extend", h.handleExtendMotion)
			r.Post("/motions/{motionID}/adjourn", h.handleAdjournMotion)
		})

		// Settings
		r.Get("/api/settings", h.handleGetSettings)
		r.Put("/api/settings", h.handleUpdateSettings)
		r.Post("/api/settings/reset", h.handleResetDatabase)
	})

	return r
}

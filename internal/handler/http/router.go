package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Handlers struct {
	Timeclock TimeclockHandler
	Approval  ApprovalHandler
	Settings  SettingsHandler
	Events    EventsHandler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, identity user.Identity, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	capability := func(resource user.Resource, action user.Action) func(http.Handler) http.Handler {
		return middleware.RequireCapability(identity, resource, action)
	}

	r.Route("/api/v1/timeclock", func(r chi.Router) {
		// EventSource cannot set headers; the stream authenticates with an SSE token.
		r.Get("/events", h.Events.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(chiMiddleware.AllowContentType("application/json"))

			r.Get("/events/token", h.Events.GetSSEToken)

			r.Group(func(r chi.Router) {
				r.Use(capability(user.ResourceTimeclock, user.ActionClock))
				r.Post("/clock-in", h.Timeclock.ClockIn)
				r.Post("/clock-out", h.Timeclock.ClockOut)
			})

			r.Group(func(r chi.Router) {
				r.Use(capability(user.ResourceTimeclock, user.ActionViewOwn))
				r.Get("/active", h.Timeclock.GetActive)
				r.Get("/entries", h.Timeclock.ListMyEntries)
				r.Get("/alert-status", h.Timeclock.GetAlertStatus)
			})

			// Department scoping is enforced by the services.
			r.Group(func(r chi.Router) {
				r.Use(capability(user.ResourceTimeclock, user.ActionViewTeam))
				r.Get("/team", h.Timeclock.GetTeamTotals)
				r.Get("/missed-punches", h.Timeclock.GetMissedPunches)
			})

			r.Group(func(r chi.Router) {
				r.Use(capability(user.ResourceTimeclock, user.ActionApprove))
				r.Post("/entries/bulk-approve", h.Approval.BulkApprove)
				r.Post("/entries/{id}/approve", h.Approval.Approve)
				r.Post("/entries/{id}/reject", h.Approval.Reject)
			})

			r.Route("/settings", func(r chi.Router) {
				r.With(capability(user.ResourceTimeclockRules, user.ActionViewOwn)).Get("/", h.Settings.Get)
				r.With(capability(user.ResourceTimeclockRules, user.ActionManage)).Put("/", h.Settings.Update)
			})
		})
	})
	return r
}

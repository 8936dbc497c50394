/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. CORS:            Cross-origin requests for frontends and the slack bot
  2. RequestID:       Unique ID per request for tracing
  3. RequestLogger:   httplog, ECS schema, on the injected slog logger
  4. CleanPath:       Collapse double slashes
  5. Recoverer:       Panic recovery (500 instead of crash)
  6. Heartbeat:       GET /health for load balancers

ROUTE GROUPS:
  /api/users/*       Users and role-aware views
  /api/slack/*       Lookups keyed by slack IDs, names and channels
  /api/projects/*    Projects and memberships
  /api/leave/*       Policy and calculator
  /api/scenarios/*   Demo directories
  /api/roles         Assignable roles
  /api/management    Admin users

SECURITY NOTE:
  No authentication middleware. The X-User-ID header is trusted for audit
  fields only.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewLogger builds the JSON logger used for request and service logs.
func NewLogger(w io.Writer, level slog.Level, env string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "identity-engine"),
		slog.String("env", env),
	)
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/roles", h.ListRoles)
		r.Get("/management", h.ListManagement)

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/employees", h.ListEmployees)
			r.Get("/email/{email}/exists", h.EmailExists)
			r.Get("/username/{name}/exists", h.UserNameExists)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Get("/{id}/detail", h.GetUserDetail)
			r.Get("/{id}/roles", h.GetUserRoles)
			r.Get("/{id}/team-members", h.GetTeamMembers)
			r.Get("/{id}/project-users", h.GetProjectUsers)
		})

		// Slack routes
		r.Route("/slack", func(r chi.Router) {
			r.Get("/users/{slackUserId}", h.GetSlackUser)
			r.Get("/users/{slackUserId}/team-leaders", h.GetTeamLeaders)
			r.Get("/users/{slackUserId}/leave-allowed", h.GetAllowedLeave)
			r.Get("/users/{slackUserId}/is-admin", h.IsAdmin)
			r.Get("/usernames/{name}", h.GetSlackUserByName)
			r.Get("/channels/{channel}/users", h.GetChannelUsers)
		})

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", h.CreateProject)
			r.Post("/{id}/members", h.AddProjectMember)
		})

		// Leave routes
		r.Route("/leave", func(r chi.Router) {
			r.Get("/policy", h.GetLeavePolicy)
			r.Post("/calculate", h.CalculateLeave)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/admin"
	"github.com/ovaphlow/pitchfork/service-learning/internal/auth"
	"github.com/ovaphlow/pitchfork/service-learning/internal/category"
	"github.com/ovaphlow/pitchfork/service-learning/internal/prompt"
	"github.com/ovaphlow/pitchfork/service-learning/internal/user"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/response"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/validate"
)

// Deps holds everything the HTTP surface is built from.
type Deps struct {
	Logger         *zap.SugaredLogger
	DB             Pinger
	AI             Availability
	Gate           *auth.Gate
	Users          *user.Handler
	Categories     *category.Handler
	Prompts        *prompt.Handler
	Admin          *admin.Handler
	Metrics        http.Handler
	AllowedOrigins []string
	PingTimeout    time.Duration
}

// New mounts every route under /api plus /health and /metrics.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		RequestIDMiddleware(),
		LoggingMiddleware(d.Logger),
		RecoverMiddleware(d.Logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(d.AllowedOrigins),
		BodyLimitMiddleware(validate.MaxBodyBytes),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, nil, r, apperr.New(apperr.KindNotFound, "Not Found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusMethodNotAllowed, response.ErrorBody{Detail: "Method Not Allowed", Type: "method_not_allowed"})
	})

	timeout := d.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	r.Get("/health", HealthHandler(d.DB, d.AI, timeout))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		api.Mount("/auth", d.Users.Routes(d.Gate))
		api.Mount("/categories", d.Categories.Routes())
		api.Mount("/prompts", d.Prompts.Routes(d.Gate))
		api.Mount("/admin", d.Admin.Routes(d.Gate,
			d.Users.AdminRoutes,
			d.Categories.AdminRoutes,
			d.Prompts.AdminRoutes,
		))
	})
	return r
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps wires the router. Nil Metrics disables /metrics and request metrics;
// nil DB disables /ready.
type Deps struct {
	Orders      OrderService
	Surveys     SurveyService
	Dashboard   DashboardService
	Metrics     MetricsExporter
	DB          Pinger
	Logger      *slog.Logger
	CORSOrigins []string
	Location    *time.Location
}

// MetricsExporter observes requests and serves the collected metrics.
type MetricsExporter interface {
	RequestObserver
	Handler() http.Handler
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(d.CORSOrigins))
	r.Use(Trace)
	if d.Metrics != nil {
		r.Use(Metrics(d.Metrics))
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	if d.DB != nil {
		r.Get("/ready", ReadinessHandler(d.DB))
	}

	orders := orderHandlers{svc: d.Orders, loc: loc}
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orders.create)
		r.Get("/", orders.list)
		r.Get("/{id}", orders.get)
		r.Patch("/{id}", orders.update)
		r.Post("/{id}/state", orders.transition)
		r.Post("/{id}/cancel", orders.cancel)
	})

	surveys := surveyHandlers{svc: d.Surveys}
	r.Route("/surveys", func(r chi.Router) {
		r.Get("/pending", surveys.pending)
		r.Post("/", surveys.create)
		r.Get("/{id}", surveys.get)
		r.Patch("/{id}", surveys.update)
	})

	r.Get("/dashboard", HandleDashboard(d.Dashboard))

	return r
}

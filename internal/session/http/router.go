package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/obs"
	"github.com/afyapapo/sessioncore/internal/session/service"
	"github.com/afyapapo/sessioncore/pkg/httpx"
	"github.com/afyapapo/sessioncore/pkg/slogx"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds shared dependencies for the status handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *obs.Metrics
	store        Pinger

	Session    service.StateSource
	Guard      *service.Guard
	Authorizer *service.AuthorizeService
}

func NewRouter(buildVersion string, st Pinger, metrics *obs.Metrics, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       slogx.OrDiscard(logger),
		metrics:      metrics,
		store:        st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.metrics.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerSession()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Session))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}

func (r *Router) registerSession() {
	h := &SessionHandler{Session: r.Session, Authorizer: r.Authorizer}

	r.Mux.Handle("GET /v1/session", http.HandlerFunc(h.HandleSnapshot))

	// Capabilities only make sense for a signed-in user.
	r.Mux.Handle("GET /v1/session/capabilities",
		httpx.Chain(http.HandlerFunc(h.HandleCapabilities),
			RequireAccess(r.Guard, r.Session, service.Requirement{}),
		),
	)
}

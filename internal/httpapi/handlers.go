package httpapi

import (
	"context"
	"net/http"
	"time"

	"clientdesk.org/internal/auth"
	"clientdesk.org/internal/obs"
	"clientdesk.org/internal/records"
	"clientdesk.org/internal/stream"
)

const serviceName = "clientdesk-api"

type readinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe is a readiness check, usually a store ping.
type ReadyProbe struct {
	Ping func(ctx context.Context) error
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Ping == nil {
		return nil
	}
	return rp.Ping(ctx)
}

// Options tunes the HTTP layer. Zero values fall back to defaults.
type Options struct {
	Version      string
	MaxBodyBytes int64
	RateBurst    int
	RatePerSec   int
	CORSOrigins  []string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe readinessChecker
	auth       *auth.Service
	records    *records.Service
	stream     *stream.Hub
	opts       Options
	limiter    *RateLimiter
	handler    http.Handler
}

// New wires routes and the middleware chain. Call Close to stop background work.
func New(rp readinessChecker, authSvc *auth.Service, recs *records.Service, hub *stream.Hub, opts Options) *API {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 40
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 20
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		auth:       authSvc,
		records:    recs,
		stream:     hub,
		opts:       opts,
		limiter:    NewRateLimiter(opts.RateBurst, opts.RatePerSec),
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// accounts
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.Handle("/v1/me", a.withAuth(http.HandlerFunc(a.handleMe)))
	a.mux.Handle("/v1/me/password", a.withAuth(http.HandlerFunc(a.handleChangePassword)))
	a.mux.Handle("/v1/admin/accounts", a.withAuth(RequireRole(auth.RoleAdmin)(http.HandlerFunc(a.handleAdminAccounts))))

	// records
	a.mux.Handle("/v1/clients", a.withAuth(http.HandlerFunc(a.handleClientsCollection)))
	a.mux.Handle("/v1/clients/", a.withAuth(http.HandlerFunc(a.handleClientResource)))
	a.mux.Handle("/v1/projects", a.withAuth(http.HandlerFunc(a.handleProjectsCollection)))
	a.mux.Handle("/v1/projects/", a.withAuth(http.HandlerFunc(a.handleProjectResource)))
	a.mux.Handle("/v1/events", a.withAuth(http.HandlerFunc(a.Stream)))

	// named operations
	a.mux.HandleFunc("/v1/ops", a.handleOps)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	a.handler = RequestID(LoggingJSON(obs.Instrument(SecurityHeaders(
		CORS(a.limiter.Middleware(MaxBodyBytes(a.mux, opts.MaxBodyBytes)), opts.CORSOrigins)))))
	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	return a.handler
}

// Close stops the rate limiter janitor.
func (a *API) Close() {
	a.limiter.Stop()
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.opts.Version,
	})
}

package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"volunteerhub.org/internal/activity"
	"volunteerhub.org/internal/audit"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/obs"
	"volunteerhub.org/internal/settings"
	"volunteerhub.org/internal/stream"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth       *auth.Service
	activities *activity.Service
	settings   *settings.Service
	watcher    *settings.Watcher
	recorder   *audit.Recorder
	changes    *stream.Stream

	rateBurst  int
	ratePerSec int
}

// Option adjusts optional API behavior.
type Option func(*API)

// WithRateLimit overrides the default per-IP token bucket.
func WithRateLimit(burst, perSec int) Option {
	return func(a *API) {
		if burst > 0 {
			a.rateBurst = burst
		}
		if perSec > 0 {
			a.ratePerSec = perSec
		}
	}
}

func New(rp ReadyProbe, version string, authSvc *auth.Service, activities *activity.Service, settingsSvc *settings.Service, watcher *settings.Watcher, recorder *audit.Recorder, changes *stream.Stream, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		auth:       authSvc,
		activities: activities,
		settings:   settingsSvc,
		watcher:    watcher,
		recorder:   recorder,
		changes:    changes,
		rateBurst:  20,
		ratePerSec: 10,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/signup", a.handleSignUp)
	a.mux.HandleFunc("/v1/auth/token", a.handleToken)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.HandleFunc("/v1/auth/signout", a.handleSignOut)

	a.mux.HandleFunc("/v1/activities", a.handleActivitiesCollection)
	a.mux.HandleFunc("/v1/activities/", a.handleActivityResource)
	a.mux.HandleFunc("/v1/registrations", a.handleMyRegistrations)
	a.mux.HandleFunc("/v1/registrations/", a.handleRegistrationResource)
	a.mux.HandleFunc("/v1/reviews", a.handleMyReviews)
	a.mux.HandleFunc("/v1/reviews/", a.handleReviewResource)

	a.mux.Handle("/v1/admin/users", RequireRole(auth.RequireAdmin)(http.HandlerFunc(a.handleAdminUsers)))
	a.mux.Handle("/v1/admin/users/", RequireRole(auth.RequireAdmin)(http.HandlerFunc(a.handleAdminUserResource)))
	a.mux.Handle("/v1/admin/verifications", RequireRole(auth.RequireAdmin)(http.HandlerFunc(a.handleAdminVerifications)))
	a.mux.Handle("/v1/admin/stats", RequireRole(auth.RequireAdmin)(http.HandlerFunc(a.handleAdminStats)))
	a.mux.Handle("/v1/admin/audit", RequireRole(auth.RequireAdmin)(http.HandlerFunc(a.handleAdminAudit)))

	a.mux.HandleFunc("/v1/settings", a.handleSettings)
	a.mux.HandleFunc("/v1/changes", a.Stream)
	a.mux.HandleFunc("/v1/changes/ws", a.StreamWS)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withMaintenance(h)
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) audit(ctx context.Context, action, targetID string, details map[string]any) {
	if a.recorder == nil {
		_ = audit.LogEvent(ctx, action, details)
		return
	}
	if err := a.recorder.Record(ctx, action, targetID, details); err != nil {
		obs.LogError("audit record failed", map[string]any{"action": action, "error": err.Error()})
	}
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "volunteerhub-api",
		"version": a.version,
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
		"name":    "volunteerhub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

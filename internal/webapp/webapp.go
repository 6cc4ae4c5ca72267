// ABOUTME: Web front end for the dashboard: the auth gate over HTTP
// ABOUTME: Owns visitor state, cookies, CSRF protection and route registration

package webapp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/creatordash/internal/metrics"
	"github.com/2389/creatordash/internal/routes"
	"github.com/2389/creatordash/internal/session"
)

const (
	// VisitorCookieName identifies the browser's visitor state
	VisitorCookieName = "creatordash_visitor"

	// SessionCookieName carries the signed session token
	SessionCookieName = "creatordash_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "creatordash_csrf"

	// DefaultResolveWait bounds how long a request waits for the first session resolution
	DefaultResolveWait = 500 * time.Millisecond

	// DefaultVisitorTTL is how long an idle visitor is kept in memory
	DefaultVisitorTTL = 30 * time.Minute

	// DefaultMaxVisitors caps how many visitors are held in memory
	DefaultMaxVisitors = 10000

	// DefaultRevalidateInterval is how often an authenticated session is rechecked
	DefaultRevalidateInterval = 30 * time.Second

	// heartbeatInterval keeps idle event streams alive through proxies
	heartbeatInterval = 30 * time.Second
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const csrfContextKey contextKey = "csrf_token"

// Config holds web front end configuration
type Config struct {
	// BaseURL is the external URL; an https:// base marks cookies Secure
	BaseURL string

	ResolveWait        time.Duration
	VisitorTTL         time.Duration
	RevalidateInterval time.Duration

	// MaxVisitors bounds the in-memory visitors; the least recently seen
	// is evicted when a new one arrives at the limit.
	MaxVisitors int

	// SecureCookies forces the Secure flag on every cookie
	SecureCookies bool
}

// App handles the dashboard's HTTP surface.
type App struct {
	config   Config
	visitors *visitorHub
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates the web front end. m may be nil when metrics are disabled.
func New(provider session.Provider, m *metrics.Metrics, cfg Config, logger *slog.Logger) *App {
	if cfg.ResolveWait <= 0 {
		cfg.ResolveWait = DefaultResolveWait
	}
	if cfg.VisitorTTL <= 0 {
		cfg.VisitorTTL = DefaultVisitorTTL
	}
	if cfg.MaxVisitors <= 0 {
		cfg.MaxVisitors = DefaultMaxVisitors
	}
	if cfg.RevalidateInterval <= 0 {
		cfg.RevalidateInterval = DefaultRevalidateInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "webapp")

	return &App{
		config:   cfg,
		visitors: newVisitorHub(provider, cfg.VisitorTTL, cfg.MaxVisitors, m, logger),
		metrics:  m,
		logger:   logger,
	}
}

// Close drops all visitor state.
func (a *App) Close() {
	a.visitors.Close()
}

// VisitorCount is the number of visitors currently held in memory.
func (a *App) VisitorCount() int {
	return a.visitors.count()
}

// RegisterRoutes registers the dashboard routes on the given mux
func (a *App) RegisterRoutes(mux *http.ServeMux) {
	// Every content path goes through the gate; unknown paths fall through
	// to the mux's 404.
	for _, p := range routes.Paths() {
		pattern := "GET " + p
		if p == "/" {
			pattern = "GET /{$}"
		}
		mux.HandleFunc(pattern, a.handleGate)
	}

	mux.HandleFunc("POST /auth/submit", a.handleSubmit)
	mux.HandleFunc("POST /auth/mode", a.handleToggleMode)
	mux.HandleFunc("POST /auth/reveal", a.handleToggleReveal)
	mux.HandleFunc("POST /auth/signout", a.handleSignOut)
	mux.HandleFunc("GET /auth/events", a.handleEvents)

	a.logger.Info("dashboard routes registered", "pages", len(routes.Paths()))
}

// visitorFor returns the request's visitor, creating one (and its cookie)
// when the browser is new or its visitor was evicted.
func (a *App) visitorFor(w http.ResponseWriter, r *http.Request) *visitor {
	if cookie, err := r.Cookie(VisitorCookieName); err == nil {
		if v, ok := a.visitors.get(cookie.Value); ok {
			return v
		}
	}

	var token string
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		token = cookie.Value
	}

	v := a.visitors.create(token)
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    v.id,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
	return v
}

// awaitResolution gives the visitor's first resolution a bounded head start.
func (a *App) awaitResolution(r *http.Request, v *visitor) {
	ctx, cancel := context.WithTimeout(r.Context(), a.config.ResolveWait)
	defer cancel()
	_ = v.store.WaitResolved(ctx)
}

// revalidate rechecks an authenticated session with the provider at most
// once per RevalidateInterval.
func (a *App) revalidate(r *http.Request, v *visitor) {
	if v.store.State().Status() != session.StatusAuthenticated {
		return
	}
	if !v.dueForRevalidation(time.Now(), a.config.RevalidateInterval) {
		return
	}
	if err := v.store.Revalidate(r.Context()); err != nil {
		a.logger.Warn("session revalidation failed", "visitor_id", v.id, "error", err)
	}
}

// syncSessionCookie makes the session cookie agree with the visitor's state.
func (a *App) syncSessionCookie(w http.ResponseWriter, r *http.Request, st session.State) {
	var current string
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		current = cookie.Value
	}

	switch st.Status() {
	case session.StatusAuthenticated:
		id, _ := st.Identity()
		if current == id.Token {
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    id.Token,
			Path:     "/",
			Expires:  id.ExpiresAt,
			HttpOnly: true,
			Secure:   a.secure(r),
			SameSite: http.SameSiteLaxMode,
		})
	case session.StatusUnauthenticated:
		if current == "" {
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}

func (a *App) secure(r *http.Request) bool {
	return a.config.SecureCookies || r.TLS != nil || strings.HasPrefix(a.config.BaseURL, "https://")
}

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (a *App) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure(r),
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie
func (a *App) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// safeNext returns next when it names a routed page, else the root.
func safeNext(next string) string {
	if _, ok := routes.Lookup(next); ok {
		return next
	}
	return "/"
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

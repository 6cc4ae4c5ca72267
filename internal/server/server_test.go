package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/creatordash/internal/config"
	"github.com/2389/creatordash/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("CREATORDASH_DB_PATH", "")
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "dash.db")},
		Auth: config.AuthConfig{
			TokenSecret:       "0123456789abcdef0123456789abcdef",
			SessionTTL:        time.Hour,
			MinPasswordLength: 6,
		},
		WebApp:  config.WebAppConfig{ResolveWait: 100 * time.Millisecond, VisitorTTL: time.Minute},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(cfg, slog.Default())
	require.NoError(t, err)
	return srv
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestServer_HealthEndpoints(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body(t, resp))

	resp, err = http.Get(ts.URL + "/health/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "ready")
}

func TestServer_ReadyFailsWhenStoreClosed(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.webApp.Close()

	require.NoError(t, srv.store.Close())

	resp, err := http.Get(ts.URL + "/health/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = body(t, resp)
}

func TestServer_MountsDashboardAndMetrics(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), `data-view="credential_form"`)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "creatordash_gate_views_total")
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	srv := newTestServer(t, cfg)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = body(t, resp)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServer_PurgeExpiredSessions(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	defer func() { _ = srv.Shutdown(context.Background()) }()
	ctx := context.Background()

	user, err := srv.provider.CreateAccount(ctx, "creator@example.com", "secret123")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, srv.store.CreateSession(ctx, &store.Session{
		ID: "expired", UserID: user.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, srv.store.CreateSession(ctx, &store.Session{
		ID: "live", UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	srv.purgeExpiredSessions(ctx)

	_, err = srv.store.GetSession(ctx, "expired")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	_, err = srv.store.GetSession(ctx, "live")
	assert.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "creatordash_expired_sessions_purged_total 1")
}

func TestNew_RejectsShortSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.TokenSecret = ""
	_, err := New(cfg, slog.Default())
	assert.Error(t, err)
}

func TestOpenStore_EnvOverride(t *testing.T) {
	cfg := testConfig(t)
	override := filepath.Join(t.TempDir(), "override.db")
	t.Setenv("CREATORDASH_DB_PATH", override)

	s, err := OpenStore(cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, override)
	assert.NoFileExists(t, cfg.Database.Path)
}

func TestDetermineBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "explicit",
			cfg:  config.Config{WebApp: config.WebAppConfig{BaseURL: "https://dash.example.com"}},
			want: "https://dash.example.com",
		},
		{
			name: "tcp",
			cfg:  config.Config{Server: config.ServerConfig{HTTPAddr: "localhost:8080"}},
			want: "http://localhost:8080",
		},
		{
			name: "tailscale http",
			cfg:  config.Config{Tailscale: config.TailscaleConfig{Enabled: true, Hostname: "dash"}},
			want: "http://dash",
		},
		{
			name: "tailscale https",
			cfg:  config.Config{Tailscale: config.TailscaleConfig{Enabled: true, Hostname: "dash", HTTPS: true}},
			want: "https://dash",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineBaseURL(&tt.cfg))
		})
	}
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	_, err := resolveTailscaleAuthKey("")
	assert.Error(t, err)

	key, err := resolveTailscaleAuthKey("tskey-config")
	require.NoError(t, err)
	assert.Equal(t, "tskey-config", key)

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err = resolveTailscaleAuthKey("")
	require.NoError(t, err)
	assert.Equal(t, "tskey-env", key)
}

func TestResolveTailscaleStateDir(t *testing.T) {
	dir, err := resolveTailscaleStateDir("/var/lib/dash")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/dash", dir)

	dir, err = resolveTailscaleStateDir("")
	require.NoError(t, err)
	assert.Equal(t, "tailscale", filepath.Base(dir))
	assert.Contains(t, dir, "creatordash")
}

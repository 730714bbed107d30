// ABOUTME: Tests for the HTTP server: health probes, metrics endpoint, graceful shutdown
// ABOUTME: Runs a real listener on a loopback port with a fake database

package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/horoscope-desk/internal/config"
)

type fakeDB struct {
	pingErr error
	closed  atomic.Int32
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

func (f *fakeDB) Close() error {
	f.closed.Add(1)
	return nil
}

type routesFunc func(mux *http.ServeMux)

func (f routesFunc) Register(mux *http.ServeMux) { f(mux) }

func echoRoutes() Routes {
	return routesFunc(func(mux *http.ServeMux) {
		mux.HandleFunc("GET /api/ping/{name}", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("pong " + r.PathValue("name")))
		})
	})
}

func newTestServer(t *testing.T, database Database, reg *prometheus.Registry) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.ShutdownTimeout = time.Second
	s, err := New(cfg, echoRoutes(), database, reg, nil)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeDB{}, nil)

	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"database up", nil, http.StatusOK, "ready"},
		{"database down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "database unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeDB{pingErr: tt.err}, nil)
			rec := get(t, s.Handler(), "/health/ready")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestServer(t, &fakeDB{}, reg)

	rec := get(t, s.Handler(), "/api/ping/desk")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong desk", rec.Body.String())
	get(t, s.Handler(), "/nowhere")

	rec = get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `horoscope_http_requests_total{method="GET",route="GET /api/ping/{name}",status="200"} 1`)
	assert.Contains(t, body, `route="unmatched",status="404"`)
}

func TestMetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	s, err := New(cfg, echoRoutes(), &fakeDB{}, prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	database := &fakeDB{}
	s := newTestServer(t, database, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, int32(1), database.closed.Load())
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.Server.HTTPAddr = ln.Addr().String()
	s, err := New(cfg, echoRoutes(), &fakeDB{}, nil, nil)
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "listening on HTTP address"), err.Error())
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HTTPAddr, cfg.MetricsAddr, cfg.PprofAddr = "", "", ""
	cfg.FrameWidth, cfg.FrameHeight = 64, 48
	cfg.WindowWidth, cfg.WindowHeight = 64, 48
	cfg.FPS = 200
	cfg.DisplayHz = 200
	cfg.IdleInterval = time.Millisecond
	cfg.STUNServers = ""
	cfg.LogColor = false
	return cfg
}

func newTestApp(t *testing.T, cfg Config) *app {
	t.Helper()
	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { _ = a.close() })
	return a
}

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t, testConfig())
	h := a.handler()

	if rec := get(t, h, http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health status %d", rec.Code)
	}
	if rec := get(t, h, http.MethodGet, "/api/latency"); rec.Code != http.StatusNoContent {
		t.Errorf("/api/latency before first frame: %d", rec.Code)
	}
	if rec := get(t, h, http.MethodGet, "/offer"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /offer: %d", rec.Code)
	}
	rec := get(t, h, http.MethodOptions, "/offer")
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: %d %v", rec.Code, rec.Header())
	}
	if rec := get(t, h, http.MethodGet, "/snapshot.jpg"); rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("/snapshot.jpg content type %q", rec.Header().Get("Content-Type"))
	}
	if rec := get(t, a.metricsHandler(), http.MethodGet, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("/metrics status %d", rec.Code)
	}
}

func TestHeadlessHasNoSnapshot(t *testing.T) {
	cfg := testConfig()
	cfg.Headless = true
	a := newTestApp(t, cfg)

	if rec := get(t, a.handler(), http.MethodGet, "/snapshot.jpg"); rec.Code != http.StatusNotFound {
		t.Errorf("/snapshot.jpg in headless mode: %d", rec.Code)
	}
}

func TestNewAppRejectsMissingInput(t *testing.T) {
	cfg := testConfig()
	cfg.Input = filepath.Join(t.TempDir(), "missing.h264")
	if _, err := newApp(cfg); err == nil {
		t.Error("missing input accepted")
	}
}

func TestRunPresentsFrames(t *testing.T) {
	for _, headless := range []bool{false, true} {
		cfg := testConfig()
		cfg.Headless = headless
		a := newTestApp(t, cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		err := a.run(ctx)
		cancel()
		if err != nil {
			t.Fatalf("headless=%v: run: %v", headless, err)
		}

		if got := a.metrics.FramesRendered.Load(); got == 0 {
			t.Errorf("headless=%v: no frames rendered", headless)
		}
		if err := a.close(); err != nil {
			t.Errorf("headless=%v: close: %v", headless, err)
		}
		if got := a.decoder.Outstanding(); got != 0 {
			t.Errorf("headless=%v: %d frames still outstanding", headless, got)
		}
	}
}

func TestRunFromAnnexBFile(t *testing.T) {
	stream := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1e, // SPS
		0x00, 0x00, 0x00, 0x01, 0x68, 0xce, 0x3c, 0x80, // PPS
		0x00, 0x00, 0x01, 0x65, 0x88, 0x84, 0x21, // IDR
		0x00, 0x00, 0x01, 0x41, 0x9a, 0x02, // P
	}
	path := filepath.Join(t.TempDir(), "clip.h264")
	if err := os.WriteFile(path, stream, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := testConfig()
	cfg.Input = path
	cfg.Loop = false
	a := newTestApp(t, cfg)

	if got := a.session.Duration(); got != 10_000 {
		t.Errorf("session duration = %d µs, want 10000", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := a.run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	var health healthStatus
	rec := get(t, a.handler(), http.MethodGet, "/health")
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode /health: %v", err)
	}
	if !health.DecoderConfigured || health.FramesDecoded != 2 {
		t.Errorf("health = %+v, want configured with 2 decoded frames", health)
	}
}

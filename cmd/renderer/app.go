package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/denis-giri/pdraw/internal/clock"
	"github.com/denis-giri/pdraw/internal/decoder"
	"github.com/denis-giri/pdraw/internal/demux"
	"github.com/denis-giri/pdraw/internal/logger"
	"github.com/denis-giri/pdraw/internal/metrics"
	"github.com/denis-giri/pdraw/internal/render"
	"github.com/denis-giri/pdraw/internal/session"
	"github.com/denis-giri/pdraw/internal/software"
	"github.com/denis-giri/pdraw/internal/telemetry"
)

var log = logger.For("Main")

// app wires the decoder, the renderer and the viewer endpoints
type app struct {
	cfg     Config
	metrics *metrics.Metrics

	decoder     *decoder.Synthetic
	aus         []demux.AccessUnit
	session     *session.Playback
	broadcaster *telemetry.Broadcaster
	rtc         *telemetry.RTCServer

	renderer render.Renderer
	null     *render.NullRenderer // set when headless
	canvas   *software.Canvas     // nil when headless
}

func newApp(cfg Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, _ := cfg.ColorFormat()

	clk := clock.Process()
	m := metrics.New()

	decCfg := decoder.DefaultConfig()
	decCfg.Width, decCfg.Height = cfg.FrameWidth, cfg.FrameHeight
	decCfg.SARWidth, decCfg.SARHeight = cfg.SARWidth, cfg.SARHeight
	decCfg.Format = format
	decCfg.CaptureLead = cfg.CaptureLead
	dec, err := decoder.New(decCfg, clk, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	a := &app{
		cfg:         cfg,
		metrics:     m,
		decoder:     dec,
		session:     session.NewPlayback(clk),
		broadcaster: telemetry.NewBroadcaster(m),
	}

	if cfg.Input != "" {
		if err := a.loadInput(clk); err != nil {
			return nil, err
		}
	}

	a.rtc = telemetry.NewRTCServer(a.broadcaster, telemetry.RTCConfig{
		STUNServers: cfg.STUNList(),
		MaxClients:  cfg.MaxClients,
	})

	opts := render.Options{
		Metrics: m,
		Pacer:   render.WakePacer{Interval: cfg.IdleInterval, Wake: dec.FrameReady()},
		Clock:   clk,
		Session: a.session,
		Sinks:   []render.LatencySink{a.session, a.broadcaster},
	}

	if cfg.Headless {
		a.null = render.NewNullRenderer(opts)
		a.renderer = a.null
	} else {
		a.canvas = software.NewCanvas(cfg.WindowWidth, cfg.WindowHeight)
		r, err := render.NewSurfaceRenderer(a.canvas,
			func(unit int) (render.VideoPlaneRenderer, error) {
				return software.NewVideoPlane(a.canvas, unit), nil
			},
			func(unit int) (render.OverlayRenderer, error) {
				return software.NewHUD(a.canvas, unit), nil
			},
			opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create renderer: %w", err)
		}
		a.renderer = r
	}

	a.renderer.Configure(cfg.Viewport(), image.Pt(cfg.WindowWidth, cfg.WindowHeight))
	if err := a.renderer.Attach(dec); err != nil {
		_ = a.renderer.Close()
		return nil, fmt.Errorf("failed to attach decoder: %w", err)
	}
	return a, nil
}

// loadInput splits the input file into access units. Without looping the
// session gets a known duration.
func (a *app) loadInput(clk clock.Clock) error {
	f, err := os.Open(a.cfg.Input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	aus, splitter, err := demux.ReadAll(f, clk)
	if err != nil {
		return fmt.Errorf("failed to demux %s: %w", a.cfg.Input, err)
	}
	if len(aus) == 0 {
		return fmt.Errorf("no access units in %s", a.cfg.Input)
	}
	a.aus = aus

	log.Info("Input %s: %d access units, headers cached: %v", a.cfg.Input, len(aus), splitter.HasHeaders())
	if !a.cfg.Loop {
		frame := time.Second / time.Duration(a.cfg.FPS)
		a.session.SetDuration(uint64((time.Duration(len(aus)) * frame).Microseconds()))
	}
	return nil
}

// run drives the decoder, the render loop and the HTTP servers until ctx
// is cancelled or one of them fails.
func (a *app) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	frameInterval := time.Second / time.Duration(a.cfg.FPS)
	g.Go(func() error {
		if len(a.aus) > 0 {
			return a.decoder.Feed(ctx, a.aus, frameInterval, a.cfg.Loop)
		}
		return a.decoder.Run(ctx, frameInterval)
	})

	g.Go(func() error { return a.renderLoop(ctx) })

	a.serve(ctx, g, "HTTP", a.cfg.HTTPAddr, a.handler())
	a.serve(ctx, g, "Metrics", a.cfg.MetricsAddr, a.metricsHandler())
	a.serve(ctx, g, "pprof", a.cfg.PprofAddr, http.DefaultServeMux)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// renderLoop runs one render cycle per display refresh. Headless renderers
// drive themselves.
func (a *app) renderLoop(ctx context.Context) error {
	if a.null != nil {
		if err := a.null.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		a.null.Stop()
		return nil
	}

	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.DisplayHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.renderer.RenderCycle(ctx, 0); err != nil && ctx.Err() == nil {
				return fmt.Errorf("render cycle: %w", err)
			}
		}
	}
}

// serve runs an HTTP server on addr until ctx is done; empty addr disables it
func (a *app) serve(ctx context.Context, g *errgroup.Group, name, addr string, h http.Handler) {
	if addr == "" {
		return
	}
	srv := &http.Server{Addr: addr, Handler: h}

	g.Go(func() error {
		log.Info("Starting %s server on %s", name, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// close releases everything newApp created
func (a *app) close() error {
	err := a.renderer.Close()
	_ = a.rtc.Close()
	a.broadcaster.Close()
	return err
}

func (a *app) handler() http.Handler {
	mux := http.NewServeMux()

	cors := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", a.cfg.CORSOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/offer", cors(a.handleOffer))
	mux.HandleFunc("/api/latency", cors(telemetry.LatestHandler(a.broadcaster)))
	mux.HandleFunc("/api/latency/stream", cors(telemetry.SSEHandler(a.broadcaster, a.cfg.SSEKeepalive)))
	if a.canvas != nil {
		mux.HandleFunc("/snapshot.jpg", software.SnapshotHandler(a.canvas))
		mux.HandleFunc("/stream.mjpg", software.MJPEGHandler(a.canvas, a.cfg.MJPEGInterval))
	}
	mux.HandleFunc("/health", a.handleHealth)
	return mux
}

func (a *app) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}

func (a *app) handleOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	offerJSON, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	answerJSON, err := a.rtc.HandleOffer(offerJSON)
	if err != nil {
		log.Warn("WebRTC offer error: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, telemetry.ErrTooManyClients) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, fmt.Sprintf("Failed to handle offer: %v", err), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(answerJSON)
}

// healthStatus is the /health response body
type healthStatus struct {
	Status            string  `json:"status"`
	DecoderConfigured bool    `json:"decoder_configured"`
	FramesOutstanding int     `json:"frames_outstanding"`
	FramesDecoded     uint64  `json:"frames_decoded"`
	FramesRendered    uint64  `json:"frames_rendered"`
	FramesSkipped     uint64  `json:"frames_skipped"`
	TelemetryClients  int     `json:"telemetry_clients"`
	WebRTCClients     int     `json:"webrtc_clients"`
	Position          string  `json:"position"`
	EndToEndMs        float64 `json:"end_to_end_ms"`
	Headless          bool    `json:"headless"`
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, _, e2e := a.metrics.LastLatency()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthStatus{
		Status:            "ok",
		DecoderConfigured: a.decoder.Configured(),
		FramesOutstanding: a.decoder.Outstanding(),
		FramesDecoded:     a.metrics.FramesDecoded.Load(),
		FramesRendered:    a.metrics.FramesRendered.Load(),
		FramesSkipped:     a.metrics.FramesSkipped.Load(),
		TelemetryClients:  a.broadcaster.ClientCount(),
		WebRTCClients:     a.rtc.ClientCount(),
		Position:          render.FriendlyTimeFromMicros(a.session.CurrentTime()).String(),
		EndToEndMs:        e2e,
		Headless:          a.cfg.Headless,
	})
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/denis-giri/pdraw/internal/render"
	"github.com/denis-giri/pdraw/pkg/types"
)

// Config defines the runtime configuration of the renderer
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	PprofAddr   string
	CORSOrigin  string

	// Decoder output
	Input       string // H.264 Annex-B file; synthetic frames when empty
	Loop        bool
	Format      string
	FrameWidth  int
	FrameHeight int
	SARWidth    int
	SARHeight   int
	FPS         int
	CaptureLead time.Duration

	// Display
	Headless     bool
	WindowWidth  int
	WindowHeight int
	RenderX      int
	RenderY      int
	RenderWidth  int // 0 fills the window
	RenderHeight int
	DisplayHz    int
	IdleInterval time.Duration

	// Viewers
	STUNServers   string
	MaxClients    int
	SSEKeepalive  time.Duration
	MJPEGInterval time.Duration

	LogLevel string
	LogColor bool
}

// DefaultConfig returns a 720p synthetic stream presented at 60 Hz
func DefaultConfig() Config {
	return Config{
		HTTPAddr:      ":8082",
		MetricsAddr:   ":9090",
		CORSOrigin:    "*",
		Loop:          true,
		Format:        "yuv420p",
		FrameWidth:    1280,
		FrameHeight:   720,
		SARWidth:      1,
		SARHeight:     1,
		FPS:           30,
		WindowWidth:   1280,
		WindowHeight:  720,
		DisplayHz:     60,
		IdleInterval:  render.DefaultIdleInterval,
		STUNServers:   "stun:stun.l.google.com:19302",
		MaxClients:    10,
		SSEKeepalive:  30 * time.Second,
		MJPEGInterval: 66 * time.Millisecond,
		LogLevel:      "info",
		LogColor:      true,
	}
}

// RegisterFlags binds every field to a command-line flag
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP server address")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "Metrics server address (empty to disable)")
	fs.StringVar(&c.PprofAddr, "pprof", c.PprofAddr, "pprof server address (empty to disable)")
	fs.StringVar(&c.CORSOrigin, "cors-origin", c.CORSOrigin, "Allowed CORS origin for /offer")

	fs.StringVar(&c.Input, "input", c.Input, "H.264 Annex-B file to decode (synthetic frames when empty)")
	fs.BoolVar(&c.Loop, "loop", c.Loop, "Restart the input file at its end")
	fs.StringVar(&c.Format, "format", c.Format, "Decoder output format (yuv420p, nv12)")
	fs.IntVar(&c.FrameWidth, "frame-width", c.FrameWidth, "Decoded frame width")
	fs.IntVar(&c.FrameHeight, "frame-height", c.FrameHeight, "Decoded frame height")
	fs.IntVar(&c.SARWidth, "sar-width", c.SARWidth, "Sample aspect ratio width")
	fs.IntVar(&c.SARHeight, "sar-height", c.SARHeight, "Sample aspect ratio height")
	fs.IntVar(&c.FPS, "fps", c.FPS, "Decoder frame rate")
	fs.DurationVar(&c.CaptureLead, "capture-lead", c.CaptureLead, "Simulated capture-to-demux delay (0 disables end-to-end latency)")

	fs.BoolVar(&c.Headless, "headless", c.Headless, "Drain and release frames without drawing")
	fs.IntVar(&c.WindowWidth, "window-width", c.WindowWidth, "Window width")
	fs.IntVar(&c.WindowHeight, "window-height", c.WindowHeight, "Window height")
	fs.IntVar(&c.RenderX, "render-x", c.RenderX, "Render region left edge")
	fs.IntVar(&c.RenderY, "render-y", c.RenderY, "Render region top edge")
	fs.IntVar(&c.RenderWidth, "render-width", c.RenderWidth, "Render region width (0 fills the window)")
	fs.IntVar(&c.RenderHeight, "render-height", c.RenderHeight, "Render region height (0 fills the window)")
	fs.IntVar(&c.DisplayHz, "display-hz", c.DisplayHz, "Display refresh rate driving render cycles")
	fs.DurationVar(&c.IdleInterval, "idle", c.IdleInterval, "Wait when a render cycle has no frame")

	fs.StringVar(&c.STUNServers, "stun", c.STUNServers, "STUN server URLs (comma-separated)")
	fs.IntVar(&c.MaxClients, "max-clients", c.MaxClients, "Maximum WebRTC telemetry clients")
	fs.DurationVar(&c.SSEKeepalive, "sse-keepalive", c.SSEKeepalive, "SSE keepalive interval")
	fs.DurationVar(&c.MJPEGInterval, "mjpeg-interval", c.MJPEGInterval, "MJPEG frame interval")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error, silent)")
	fs.BoolVar(&c.LogColor, "log-color", c.LogColor, "Enable colored log output")
}

// Validate checks values the flag package cannot
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.ColorFormat(); err != nil {
		errs = append(errs, err)
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		errs = append(errs, fmt.Errorf("invalid frame size %dx%d", c.FrameWidth, c.FrameHeight))
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		errs = append(errs, fmt.Errorf("invalid window size %dx%d", c.WindowWidth, c.WindowHeight))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("invalid fps %d", c.FPS))
	}
	if c.DisplayHz <= 0 {
		errs = append(errs, fmt.Errorf("invalid display rate %d", c.DisplayHz))
	}
	return errors.Join(errs...)
}

// ColorFormat maps the -format flag to a frame format
func (c *Config) ColorFormat() (types.ColorFormat, error) {
	switch strings.ToLower(c.Format) {
	case "yuv420p", "i420", "planar":
		return types.ColorFormatYUV420Planar, nil
	case "nv12", "semiplanar":
		return types.ColorFormatYUV420SemiPlanar, nil
	default:
		return types.ColorFormatUnknown, fmt.Errorf("unknown format %q", c.Format)
	}
}

// Viewport returns the window and render region, filling the window when
// no region size is set.
func (c *Config) Viewport() types.Viewport {
	vp := types.Viewport{
		WindowWidth:  c.WindowWidth,
		WindowHeight: c.WindowHeight,
		RenderX:      c.RenderX,
		RenderY:      c.RenderY,
		RenderWidth:  c.RenderWidth,
		RenderHeight: c.RenderHeight,
	}
	if vp.RenderWidth == 0 {
		vp.RenderWidth = c.WindowWidth - c.RenderX
	}
	if vp.RenderHeight == 0 {
		vp.RenderHeight = c.WindowHeight - c.RenderY
	}
	return vp
}

// STUNList splits the -stun flag
func (c *Config) STUNList() []string {
	var urls []string
	for _, u := range strings.Split(c.STUNServers, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

package types

import "fmt"

// ColorFormat identifies the memory layout of a decoded frame
type ColorFormat int

const (
	ColorFormatUnknown          ColorFormat = 0
	ColorFormatYUV420Planar     ColorFormat = 1 // Y, U, V in three planes (I420)
	ColorFormatYUV420SemiPlanar ColorFormat = 2 // Y plane + interleaved UV plane (NV12)
)

// String returns the conventional name of the format
func (f ColorFormat) String() string {
	switch f {
	case ColorFormatYUV420Planar:
		return "YUV420P"
	case ColorFormatYUV420SemiPlanar:
		return "NV12"
	case ColorFormatUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("FORMAT(%d)", int(f))
	}
}

// PlaneCount returns the number of planes used by the format
func (f ColorFormat) PlaneCount() int {
	switch f {
	case ColorFormatYUV420Planar:
		return 3
	case ColorFormatYUV420SemiPlanar:
		return 2
	default:
		return 0
	}
}

// TimeUnknown marks a session position or duration that is not known (live streams)
const TimeUnknown = ^uint64(0)

// Telemetry is the metadata record carried with every decoded frame and
// drawn by the HUD.
type Telemetry struct {
	Roll           float64 `json:"roll"`      // radians
	Pitch          float64 `json:"pitch"`     // radians
	Yaw            float64 `json:"yaw"`       // radians
	Altitude       float64 `json:"altitude"`  // meters above takeoff
	Latitude       float64 `json:"latitude"`  // degrees, 500 when no fix
	Longitude      float64 `json:"longitude"` // degrees, 500 when no fix
	GroundSpeed    float64 `json:"ground_speed"`
	BatteryPercent int     `json:"battery_percent"`
	WifiRSSI       int     `json:"wifi_rssi"` // dBm
	Recording      bool    `json:"recording"`
}

// HasLocation reports whether the telemetry carries a GPS fix
func (t *Telemetry) HasLocation() bool {
	return t.Latitude >= -90 && t.Latitude <= 90 && t.Longitude >= -180 && t.Longitude <= 180
}

// DecodedFrame is a decoder output buffer lent to the renderer for one cycle.
// Timestamps are monotonic microseconds.
type DecodedFrame struct {
	FrameNum    uint64
	ColorFormat ColorFormat
	Planes      [][]byte // plane data, len == ColorFormat.PlaneCount() for known formats
	Strides     []int    // bytes per row for each plane
	Width       int
	Height      int
	SARWidth    int
	SARHeight   int

	DemuxOutputTimestamp   uint64
	DecoderOutputTimestamp uint64
	CaptureTimestamp       uint64 // 0 when the source did not provide one

	Metadata Telemetry
}

// AspectRatio returns the display aspect ratio of the frame, accounting for
// non-square samples.
func (f *DecodedFrame) AspectRatio() float64 {
	if f.Height == 0 {
		return 0
	}
	ratio := float64(f.Width) / float64(f.Height)
	if f.SARWidth > 0 && f.SARHeight > 0 {
		ratio *= float64(f.SARWidth) / float64(f.SARHeight)
	}
	return ratio
}

// Viewport holds the window size and the render region inside it
type Viewport struct {
	WindowWidth  int
	WindowHeight int
	RenderX      int
	RenderY      int
	RenderWidth  int
	RenderHeight int
}

// Drawable reports whether the render region has a non-zero area
func (v Viewport) Drawable() bool {
	return v.RenderWidth > 0 && v.RenderHeight > 0
}

// LatencySample is the per-frame timing report produced after a frame is drawn
type LatencySample struct {
	FrameNum        uint64  `json:"frame_num"`
	RenderTimestamp uint64  `json:"render_timestamp_us"`
	Position        uint64  `json:"position_us"`
	Duration        uint64  `json:"duration_us"`
	DecodeMs        float64 `json:"decode_ms"`
	RenderMs        float64 `json:"render_ms"`
	EndToEndMs      float64 `json:"end_to_end_ms"`

	Telemetry Telemetry `json:"telemetry"` // metadata of the drawn frame
}

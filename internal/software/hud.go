package software

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/denis-giri/pdraw/internal/render"
	"github.com/denis-giri/pdraw/pkg/types"
)

var (
	hudColor    = color.RGBA{R: 0x3c, G: 0xff, B: 0x6e, A: 0xff}
	hudAlert    = color.RGBA{R: 0xff, G: 0x40, B: 0x30, A: 0xff}
	hudBackdrop = color.RGBA{A: 0x80}
)

const (
	hudMargin     = 6
	lowBattery    = 20
	weakRSSI      = -75
	horizonLength = 80
)

// HUD draws the flight telemetry over the video area of the canvas
type HUD struct {
	canvas    *Canvas
	firstUnit int
	face      font.Face
}

var _ render.OverlayRenderer = (*HUD)(nil)

// NewHUD creates an overlay renderer drawing into c
func NewHUD(c *Canvas, firstTexUnit int) *HUD {
	return &HUD{
		canvas:    c,
		firstUnit: firstTexUnit,
		face:      basicfont.Face7x13,
	}
}

// FirstTexUnit returns the unit the renderer was created with
func (h *HUD) FirstTexUnit() int { return h.firstUnit }

// Close is a no-op; the canvas owns all pixels
func (h *HUD) Close() error { return nil }

func (h *HUD) RenderOverlay(aspect float64, meta *types.Telemetry) error {
	if meta == nil {
		return nil
	}

	h.canvas.Draw(func(dst *image.RGBA, _ render.SurfaceState) {
		bounds := dst.Bounds()
		area := Letterbox(bounds.Dx(), bounds.Dy(), aspect).Add(bounds.Min)
		if area.Empty() {
			return
		}
		lineHeight := h.face.Metrics().Height.Ceil()

		// Top left: altitude, speed, heading
		h.block(dst, area.Min.X+hudMargin, area.Min.Y+hudMargin, lineHeight, false, []hudLine{
			{fmt.Sprintf("ALT %6.1f m", meta.Altitude), hudColor},
			{fmt.Sprintf("SPD %6.1f m/s", meta.GroundSpeed), hudColor},
			{fmt.Sprintf("HDG %5.0f", heading(meta.Yaw)), hudColor},
		})

		// Top right: battery, link, recording
		status := []hudLine{
			{fmt.Sprintf("BAT %3d%%", meta.BatteryPercent), pick(meta.BatteryPercent <= lowBattery)},
			{fmt.Sprintf("RSSI %d dBm", meta.WifiRSSI), pick(meta.WifiRSSI <= weakRSSI)},
		}
		if meta.Recording {
			status = append(status, hudLine{"REC", hudAlert})
		}
		h.block(dst, area.Max.X-hudMargin, area.Min.Y+hudMargin, lineHeight, true, status)

		// Bottom left: position
		pos := hudLine{"NO GPS", hudAlert}
		if meta.HasLocation() {
			pos = hudLine{fmt.Sprintf("%.5f %.5f", meta.Latitude, meta.Longitude), hudColor}
		}
		h.block(dst, area.Min.X+hudMargin, area.Max.Y-hudMargin-lineHeight, lineHeight, false, []hudLine{pos})

		// Center: artificial horizon
		h.horizon(dst, area, meta.Roll, meta.Pitch)
	})
	return nil
}

type hudLine struct {
	text string
	col  color.RGBA
}

func pick(alert bool) color.RGBA {
	if alert {
		return hudAlert
	}
	return hudColor
}

// block draws lines over a translucent backdrop. With alignRight x is the
// right edge of the block.
func (h *HUD) block(dst *image.RGBA, x, y, lineHeight int, alignRight bool, lines []hudLine) {
	width := 0
	for _, l := range lines {
		if w := font.MeasureString(h.face, l.text).Ceil(); w > width {
			width = w
		}
	}
	if alignRight {
		x -= width
	}

	box := image.Rect(x-2, y-2, x+width+2, y+lineHeight*len(lines)+2).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(hudBackdrop), image.Point{}, draw.Over)

	ascent := h.face.Metrics().Ascent.Ceil()
	for i, l := range lines {
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(l.col),
			Face: h.face,
			Dot:  fixed.P(x, y+ascent+i*lineHeight),
		}
		d.DrawString(l.text)
	}
}

// horizon draws a line through the area center tilted by roll. Pitch moves
// it by half the area height per radian.
func (h *HUD) horizon(dst *image.RGBA, area image.Rectangle, roll, pitch float64) {
	cx := float64(area.Min.X+area.Max.X) / 2
	cy := float64(area.Min.Y+area.Max.Y)/2 + pitch*float64(area.Dy())/2
	dx, dy := math.Cos(roll), math.Sin(roll)

	half := horizonLength / 2
	for i := -half; i <= half; i++ {
		x := int(math.Round(cx + float64(i)*dx))
		y := int(math.Round(cy + float64(i)*dy))
		if (image.Point{X: x, Y: y}).In(area) {
			dst.SetRGBA(x, y, hudColor)
		}
	}
}

// heading converts a yaw in radians to compass degrees in [0, 360)
func heading(yaw float64) float64 {
	deg := math.Mod(yaw*180/math.Pi, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

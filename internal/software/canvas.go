// Package software implements the render surface and sub-renderers on
// in-memory RGBA images, for headless hosts and remote viewing.
package software

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"

	"golang.org/x/image/draw"

	"github.com/denis-giri/pdraw/internal/render"
)

// Canvas is a double-buffered RGBA window surface. Sub-renderers draw into
// the back buffer; Present publishes it as one complete frame. Snapshots
// only ever see presented frames.
type Canvas struct {
	mu      sync.Mutex
	img     *image.RGBA // back buffer
	front   *image.RGBA
	state   render.SurfaceState
	region  image.Rectangle
	version uint64
}

var (
	_ render.Surface       = (*Canvas)(nil)
	_ render.DisplayBinder = (*Canvas)(nil)
	_ render.Presenter     = (*Canvas)(nil)
)

// NewCanvas creates a canvas of the given window size
func NewCanvas(width, height int) *Canvas {
	r := image.Rect(0, 0, width, height)
	return &Canvas{
		img:    image.NewRGBA(r),
		front:  image.NewRGBA(r),
		state:  render.BaselineState,
		region: r,
	}
}

func (c *Canvas) Apply(state render.SurfaceState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// BindDisplay resizes the window when display is an image.Point
func (c *Canvas) BindDisplay(display any) {
	size, ok := display.(image.Point)
	if !ok || size.X <= 0 || size.Y <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if size != c.img.Bounds().Size() {
		c.img = image.NewRGBA(image.Rectangle{Max: size})
		c.front = image.NewRGBA(image.Rectangle{Max: size})
		c.region = c.img.Bounds()
	}
}

// Clear fills the whole back buffer with the clear color
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(c.state.ClearColor), image.Point{}, draw.Src)
}

// SetViewport restricts drawing to the given region, clipped to the window
func (c *Canvas) SetViewport(x, y, width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.region = image.Rect(x, y, x+width, y+height).Intersect(c.img.Bounds())
}

// Region returns the current render region in window coordinates
func (c *Canvas) Region() image.Rectangle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.region
}

// State returns the surface state last applied
func (c *Canvas) State() render.SurfaceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draw calls fn with the back buffer's render region as a sub-image. Its
// bounds keep window coordinates.
func (c *Canvas) Draw(fn func(dst *image.RGBA, state render.SurfaceState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dst := c.img.SubImage(c.region).(*image.RGBA)
	fn(dst, c.state)
}

// Present publishes the back buffer
func (c *Canvas) Present() {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.front.Pix, c.img.Pix)
	c.version++
}

// Version changes every time a frame is presented
func (c *Canvas) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Snapshot returns a copy of the last presented frame
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := image.NewRGBA(c.front.Bounds())
	copy(out.Pix, c.front.Pix)
	return out
}

// SnapshotJPEG encodes the last presented frame as JPEG
func (c *Canvas) SnapshotJPEG(quality int) ([]byte, error) {
	img := c.Snapshot()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

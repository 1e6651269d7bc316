package software

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/denis-giri/pdraw/internal/render"
)

// videoTexUnits is one unit per YUV plane
const videoTexUnits = 3

// ErrBadFrame is returned for frames whose planes do not match their size
var ErrBadFrame = errors.New("malformed frame")

// VideoPlane converts YUV 4:2:0 frames to RGB and scales them, letterboxed to
// the sample aspect ratio, into the canvas render region.
type VideoPlane struct {
	canvas    *Canvas
	firstUnit int

	// Scaler resamples the converted frame, draw.BiLinear by default
	Scaler draw.Scaler

	img image.YCbCr
	cb  []byte
	cr  []byte
}

var _ render.VideoPlaneRenderer = (*VideoPlane)(nil)

// NewVideoPlane creates a video renderer drawing into c
func NewVideoPlane(c *Canvas, firstTexUnit int) *VideoPlane {
	return &VideoPlane{
		canvas:    c,
		firstUnit: firstTexUnit,
		Scaler:    draw.BiLinear,
	}
}

func (v *VideoPlane) TexUnitCount() int { return videoTexUnits }

// FirstTexUnit returns the unit the renderer was created with
func (v *VideoPlane) FirstTexUnit() int { return v.firstUnit }

func (v *VideoPlane) RenderFrame(p render.VideoPlaneParams) error {
	if err := v.load(p); err != nil {
		return err
	}

	aspect := 0.0
	if p.Width > 0 && p.Height > 0 && p.SARWidth > 0 && p.SARHeight > 0 {
		aspect = float64(p.Width*p.SARWidth) / float64(p.Height*p.SARHeight)
	}

	v.canvas.Draw(func(dst *image.RGBA, state render.SurfaceState) {
		bounds := dst.Bounds()
		draw.Draw(dst, bounds, image.NewUniform(state.ClearColor), image.Point{}, draw.Src)
		if !state.Texture2D {
			return
		}
		target := Letterbox(bounds.Dx(), bounds.Dy(), aspect).Add(bounds.Min)
		v.Scaler.Scale(dst, target, &v.img, v.img.Rect, draw.Src, nil)
	})
	return nil
}

// Close is a no-op; the canvas owns all pixels
func (v *VideoPlane) Close() error { return nil }

// load points the YCbCr image at the frame planes, deinterleaving NV12
// chroma into buffers kept across frames.
func (v *VideoPlane) load(p render.VideoPlaneParams) error {
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrBadFrame, w, h)
	}
	cw, ch := (w+1)/2, (h+1)/2

	if err := checkPlane(p, 0, w, h, 1); err != nil {
		return err
	}

	v.img = image.YCbCr{
		Y:              p.Planes[0],
		YStride:        p.Strides[0],
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, w, h),
	}

	switch p.Conversion {
	case render.ConversionYUV420SemiPlanarToRGB:
		if err := checkPlane(p, 1, cw, ch, 2); err != nil {
			return err
		}
		v.cb = grow(v.cb, cw*ch)
		v.cr = grow(v.cr, cw*ch)
		uv, stride := p.Planes[1], p.Strides[1]
		for row := 0; row < ch; row++ {
			line := uv[row*stride:]
			for col := 0; col < cw; col++ {
				v.cb[row*cw+col] = line[2*col]
				v.cr[row*cw+col] = line[2*col+1]
			}
		}
		v.img.Cb, v.img.Cr, v.img.CStride = v.cb, v.cr, cw

	default:
		if err := checkPlane(p, 1, cw, ch, 1); err != nil {
			return err
		}
		if err := checkPlane(p, 2, cw, ch, 1); err != nil {
			return err
		}
		if p.Strides[1] == p.Strides[2] {
			v.img.Cb, v.img.Cr, v.img.CStride = p.Planes[1], p.Planes[2], p.Strides[1]
			break
		}
		// image.YCbCr needs a shared chroma stride
		v.cb = repack(v.cb, p.Planes[1], p.Strides[1], cw, ch)
		v.cr = repack(v.cr, p.Planes[2], p.Strides[2], cw, ch)
		v.img.Cb, v.img.Cr, v.img.CStride = v.cb, v.cr, cw
	}
	return nil
}

func checkPlane(p render.VideoPlaneParams, i, w, h, bytesPerSample int) error {
	if i >= len(p.Planes) || i >= len(p.Strides) {
		return fmt.Errorf("%w: missing plane %d", ErrBadFrame, i)
	}
	rowBytes := w * bytesPerSample
	if p.Strides[i] < rowBytes {
		return fmt.Errorf("%w: plane %d stride %d < %d", ErrBadFrame, i, p.Strides[i], rowBytes)
	}
	if need := (h-1)*p.Strides[i] + rowBytes; len(p.Planes[i]) < need {
		return fmt.Errorf("%w: plane %d has %d bytes, need %d", ErrBadFrame, i, len(p.Planes[i]), need)
	}
	return nil
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}

func repack(dst, src []byte, stride, w, h int) []byte {
	dst = grow(dst, w*h)
	for row := 0; row < h; row++ {
		copy(dst[row*w:(row+1)*w], src[row*stride:])
	}
	return dst
}

// Letterbox returns the largest rectangle of the given aspect ratio centered
// in a width x height area. A non-positive aspect fills the area.
func Letterbox(width, height int, aspect float64) image.Rectangle {
	if aspect <= 0 || width <= 0 || height <= 0 {
		return image.Rect(0, 0, width, height)
	}

	w, h := width, int(float64(width)/aspect+0.5)
	if h > height {
		w, h = int(float64(height)*aspect+0.5), height
	}
	x := (width - w) / 2
	y := (height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

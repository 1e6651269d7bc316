package software

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/denis-giri/pdraw/internal/logger"
)

// JPEGQuality is used for snapshots and the MJPEG stream
const JPEGQuality = 75

// blankJPEG renders color bars shown before the first frame is presented
func blankJPEG(width, height int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// White, Yellow, Cyan, Green, Magenta, Red, Blue, Black
	bars := []color.RGBA{
		{R: 255, G: 255, B: 255, A: 255},
		{R: 255, G: 255, B: 0, A: 255},
		{R: 0, G: 255, B: 255, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 255, G: 0, B: 255, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
		{R: 0, G: 0, B: 0, A: 255},
	}

	barWidth := max(width/len(bars), 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, bars[min(x/barWidth, len(bars)-1)])
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// jpegSource encodes the canvas only when a new frame was presented
type jpegSource struct {
	canvas  *Canvas
	version uint64
	data    []byte
}

func (s *jpegSource) next() ([]byte, bool) {
	v := s.canvas.Version()
	if v == 0 {
		return nil, false
	}
	if v != s.version || s.data == nil {
		data, err := s.canvas.SnapshotJPEG(JPEGQuality)
		if err != nil {
			return nil, false
		}
		s.version, s.data = v, data
	}
	return s.data, true
}

// SnapshotHandler serves the current window as a JPEG image
func SnapshotHandler(c *Canvas) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src := &jpegSource{canvas: c}
		data, ok := src.next()
		if !ok {
			b := c.Snapshot().Bounds()
			blank, err := blankJPEG(b.Dx(), b.Dy())
			if err != nil {
				http.Error(w, "Failed to render frame", http.StatusInternalServerError)
				return
			}
			data = blank
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	}
}

// MJPEGHandler streams the window as multipart JPEG at the given interval
func MJPEGHandler(c *Canvas, interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		b := c.Snapshot().Bounds()
		blank, err := blankJPEG(b.Dx(), b.Dy())
		if err != nil {
			http.Error(w, "Failed to render frame", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache")

		src := &jpegSource{canvas: c}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			jpegData := blank
			if data, ok := src.next(); ok {
				jpegData = data
			}

			if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
				logger.Debug("MJPEG", "Client disconnected during write: %v", err)
				return
			}
			if _, err := w.Write(jpegData); err != nil {
				logger.Debug("MJPEG", "Client disconnected during frame write: %v", err)
				return
			}
			if _, err := w.Write([]byte("\r\n")); err != nil {
				logger.Debug("MJPEG", "Client disconnected during delimiter write: %v", err)
				return
			}
			flusher.Flush()

			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
		}
	}
}

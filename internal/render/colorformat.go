package render

import (
	"github.com/denis-giri/pdraw/pkg/types"
)

// ColorConversion selects the YUV to RGB conversion applied by the video plane
type ColorConversion int

const (
	ConversionYUV420PlanarToRGB ColorConversion = iota
	ConversionYUV420SemiPlanarToRGB
)

func (c ColorConversion) String() string {
	switch c {
	case ConversionYUV420PlanarToRGB:
		return "YUV420P->RGB"
	case ConversionYUV420SemiPlanarToRGB:
		return "NV12->RGB"
	default:
		return "UNKNOWN"
	}
}

// ConversionFor maps a frame color format to its conversion. Formats other
// than the two YUV 4:2:0 layouts fall back to the planar conversion; ok is
// false in that case.
func ConversionFor(f types.ColorFormat) (c ColorConversion, ok bool) {
	switch f {
	case types.ColorFormatYUV420Planar:
		return ConversionYUV420PlanarToRGB, true
	case types.ColorFormatYUV420SemiPlanar:
		return ConversionYUV420SemiPlanarToRGB, true
	default:
		return ConversionYUV420PlanarToRGB, false
	}
}

package render

import (
	"testing"

	"github.com/denis-giri/pdraw/pkg/types"
)

func TestConversionFor(t *testing.T) {
	tests := []struct {
		format types.ColorFormat
		want   ColorConversion
		ok     bool
	}{
		{types.ColorFormatYUV420Planar, ConversionYUV420PlanarToRGB, true},
		{types.ColorFormatYUV420SemiPlanar, ConversionYUV420SemiPlanarToRGB, true},
		{types.ColorFormatUnknown, ConversionYUV420PlanarToRGB, false},
		{types.ColorFormat(99), ConversionYUV420PlanarToRGB, false},
	}
	for _, tt := range tests {
		got, ok := ConversionFor(tt.format)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ConversionFor(%s) = %s, %v; want %s, %v", tt.format, got, ok, tt.want, tt.ok)
		}
	}
}

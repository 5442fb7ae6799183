package hud

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayout(t *testing.T) {
	tests := []struct {
		name        string
		orientation Orientation
		resolution  Resolution
		frame       image.Point
		cell        int
		bar         image.Point
		offset      image.Point
		footage     image.Point
	}{
		{
			name:        "portrait 1080",
			orientation: Portrait,
			resolution:  Resolution1080,
			frame:       image.Pt(1080, 1920),
			cell:        216,
			bar:         image.Pt(1080, 216),
			offset:      image.Pt(0, 1704),
			footage:     image.Pt(1920, 1080),
		},
		{
			name:        "landscape 1080",
			orientation: Landscape,
			resolution:  Resolution1080,
			frame:       image.Pt(1920, 1080),
			cell:        216,
			bar:         image.Pt(216, 1080),
			offset:      image.Pt(1704, 0),
			footage:     image.Pt(1920, 1080),
		},
		{
			name:        "portrait 720",
			orientation: Portrait,
			resolution:  Resolution720,
			frame:       image.Pt(720, 1280),
			cell:        144,
			bar:         image.Pt(720, 144),
			offset:      image.Pt(0, 1136),
			footage:     image.Pt(1280, 720),
		},
		{
			name:        "landscape 720",
			orientation: Landscape,
			resolution:  Resolution720,
			frame:       image.Pt(1280, 720),
			cell:        144,
			bar:         image.Pt(144, 720),
			offset:      image.Pt(1136, 0),
			footage:     image.Pt(1280, 720),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLayout(tt.orientation, tt.resolution)
			require.NoError(t, err)

			assert.Equal(t, tt.frame, l.Frame)
			assert.Equal(t, tt.cell, l.Cell)
			assert.Equal(t, tt.bar, l.BarSize())
			assert.Equal(t, tt.offset, l.BarOffset())
			assert.Equal(t, tt.footage, l.FootageSize())
		})
	}
}

func TestNewLayout_Errors(t *testing.T) {
	tests := []struct {
		name        string
		orientation Orientation
		resolution  Resolution
		field       string
	}{
		{name: "unknown orientation", orientation: "diagonal", resolution: Resolution1080, field: "orientation"},
		{name: "empty orientation", orientation: "", resolution: Resolution1080, field: "orientation"},
		{name: "unknown resolution", orientation: Portrait, resolution: "4k", field: "resolution"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.orientation, tt.resolution)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.NotEmpty(t, cfgErr.Valid)
		})
	}
}

func TestConfigurationError_Message(t *testing.T) {
	err := ValidateOrientation("upside-down")
	assert.EqualError(t, err, "unsupported orientation 'upside-down', expected one of: portrait, landscape")
}

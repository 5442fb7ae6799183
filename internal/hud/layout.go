// Package hud assembles per-frame telemetry overlays into the HUD bar shown on the footage
package hud

import (
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/roman-kulish/ride-hud/internal/overlay"
)

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"

	Resolution1080 Resolution = "1080"
	Resolution720  Resolution = "720"
)

// Orientation of the output video. Portrait places the bar along the bottom edge,
// landscape along the right edge.
type Orientation string

// Resolution names an output frame size
type Resolution string

var validOrientations = map[Orientation]bool{
	Portrait:  true,
	Landscape: true,
}

var resolutions = map[Resolution]map[Orientation]image.Point{
	Resolution1080: {
		Portrait:  image.Pt(1080, 1920),
		Landscape: image.Pt(1920, 1080),
	},
	Resolution720: {
		Portrait:  image.Pt(720, 1280),
		Landscape: image.Pt(1280, 720),
	},
}

// ConfigurationError is returned for unsupported layout settings
type ConfigurationError struct {
	Field string
	Value string
	Valid []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unsupported %s '%s', expected one of: %s", e.Field, e.Value, strings.Join(e.Valid, ", "))
}

// ValidateOrientation returns *ConfigurationError for unknown orientations
func ValidateOrientation(o Orientation) error {
	if !validOrientations[o] {
		return &ConfigurationError{Field: "orientation", Value: string(o), Valid: []string{string(Portrait), string(Landscape)}}
	}
	return nil
}

// Layout holds the geometry of the output video and the HUD bar
type Layout struct {
	Orientation Orientation
	Resolution  Resolution
	Frame       image.Point // Output frame size
	Cell        int         // Side of the square cell of one metric
}

// NewLayout resolves the frame size and bar geometry. Cells are a fifth of the
// frame width in portrait and a fifth of the frame height in landscape.
func NewLayout(o Orientation, r Resolution) (Layout, error) {
	if err := ValidateOrientation(o); err != nil {
		return Layout{}, err
	}

	sizes, ok := resolutions[r]
	if !ok {
		valid := make([]string, 0, len(resolutions))
		for k := range resolutions {
			valid = append(valid, string(k))
		}
		slices.Sort(valid)
		return Layout{}, &ConfigurationError{Field: "resolution", Value: string(r), Valid: valid}
	}

	frame := sizes[o]
	cell := frame.X / len(overlay.Metrics)
	if o == Landscape {
		cell = frame.Y / len(overlay.Metrics)
	}

	return Layout{Orientation: o, Resolution: r, Frame: frame, Cell: cell}, nil
}

// BarSize returns the size of the HUD bar
func (l Layout) BarSize() image.Point {
	n := len(overlay.Metrics)
	if l.Orientation == Landscape {
		return image.Pt(l.Cell, l.Cell*n)
	}
	return image.Pt(l.Cell*n, l.Cell)
}

// BarOffset returns the position of the bar's top left corner on the output frame
func (l Layout) BarOffset() image.Point {
	bar := l.BarSize()
	if l.Orientation == Landscape {
		return image.Pt(l.Frame.X-bar.X, (l.Frame.Y-bar.Y)/2)
	}
	return image.Pt((l.Frame.X-bar.X)/2, l.Frame.Y-bar.Y)
}

// FootageSize returns the size the source footage is scaled to before any rotation.
// Portrait footage is recorded in landscape and turned a quarter afterwards.
func (l Layout) FootageSize() image.Point {
	if l.Orientation == Portrait {
		return image.Pt(l.Frame.Y, l.Frame.X)
	}
	return l.Frame
}

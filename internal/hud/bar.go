package hud

import (
	"fmt"
	"image"

	"github.com/roman-kulish/ride-hud/internal/graphics"
)

// ComposeBar places the metric cells side by side in portrait or stacked in landscape.
// Returns *ConfigurationError for any other orientation.
func ComposeBar(o Orientation, cell int, cells []image.Image) (*image.RGBA, error) {
	if err := ValidateOrientation(o); err != nil {
		return nil, err
	}
	if cell <= 0 {
		return nil, fmt.Errorf("invalid cell size %d", cell)
	}

	size := image.Pt(cell*len(cells), cell)
	step := image.Pt(cell, 0)
	if o == Landscape {
		size = image.Pt(cell, cell*len(cells))
		step = image.Pt(0, cell)
	}

	layers := make([]graphics.Layer, 0, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		layers = append(layers, graphics.Layer{Image: c, Offset: step.Mul(i)})
	}

	return graphics.Composite(size, layers...), nil
}

package overlay

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync"

	"github.com/roman-kulish/ride-hud/internal/graphics"
	"github.com/roman-kulish/ride-hud/internal/units"
)

const (
	defaultPadding = 10

	iconSpeed        = "speed.png"
	iconSpeedBg      = "speed_bg.png"
	iconSpeedPointer = "speed_pointer.png"
	iconPitch        = "pitch.png"
	iconRoll         = "roll.png"
	iconTemperature  = "temp.png"
	iconBattery      = "battery.png"
)

var (
	DefaultTextPosition = graphics.RelPoint{X: 0.5, Y: 0.8}
	DefaultUnitPosition = graphics.RelPoint{X: 0.5, Y: 0.2}

	textColor color.Color = color.White
)

// batteryTiers are the charge levels with a dedicated icon, highest first. A charge
// uses the icon of the lowest tier it does not exceed.
var batteryTiers = []int{100, 90, 80, 60, 50, 30, 20}

// BatteryIcon returns the icon file name for a battery charge in percent.
// Charges above 100 use the generic battery icon.
func BatteryIcon(charge float64) string {
	if charge > float64(batteryTiers[0]) {
		return iconBattery
	}

	name := iconBattery
	for _, tier := range batteryTiers {
		if charge > float64(tier) {
			break
		}
		name = fmt.Sprintf("battery_%d.png", tier)
	}
	return name
}

// DialConfig configures the animated speed dial. The pointer angle is mapped
// linearly from the speed range to the angle range.
type DialConfig struct {
	Enabled  bool    `yaml:"enabled"`
	VMin     float64 `yaml:"vMin"`
	VMax     float64 `yaml:"vMax"`
	AngleMin float64 `yaml:"angleMin"`
	AngleMax float64 `yaml:"angleMax"`
}

// DefaultDial maps 0 to 30 onto -90° to +90°
func DefaultDial() DialConfig {
	return DialConfig{VMin: 0, VMax: 30, AngleMin: -90, AngleMax: 90}
}

// PointerAngle returns the dial pointer angle in degrees for a speed, clamped to
// the angle range so the pointer never leaves the dial.
func (d DialConfig) PointerAngle(speed float64) float64 {
	if d.VMax == d.VMin {
		return d.AngleMin
	}

	t := (speed - d.VMin) / (d.VMax - d.VMin)
	t = math.Min(math.Max(t, 0), 1)

	return (d.AngleMax-d.AngleMin)*t + d.AngleMin
}

// RenderConfig configures the icon renderer
type RenderConfig struct {
	IconDir      string             // Directory holding the PNG icons
	CellSize     int                // Side of the square cell of one metric in pixels
	Padding      int                // Space between the icon and the cell border
	FontSize     float64            // Value text size, unit labels use half of it
	TextPosition graphics.RelPoint  // Centre of the value text relative to the cell
	UnitPosition graphics.RelPoint  // Centre of the unit label relative to the cell
	System       units.System       // Display unit system for labels
	Dial         DialConfig         // Animated speed dial, used when enabled
	Typeface     *graphics.Typeface // Font, nil selects the bundled default
}

// WithRendererLogger sets the logger for the renderer
func WithRendererLogger(logger *slog.Logger) func(r *IconRenderer) {
	return func(r *IconRenderer) {
		r.logger = logger.With(slog.String("component", "icon-renderer"))
	}
}

// IconRenderer renders metric overlays from icon files and text. It is safe for concurrent use.
type IconRenderer struct {
	config RenderConfig

	iconSize    int
	temperature graphics.Ramp

	mu    sync.Mutex
	icons map[string]*image.RGBA

	logger *slog.Logger
}

// NewIconRenderer validates the configuration and creates a renderer
func NewIconRenderer(config RenderConfig, options ...func(r *IconRenderer)) (*IconRenderer, error) {
	if config.CellSize <= 0 {
		return nil, fmt.Errorf("invalid cell size %d", config.CellSize)
	}
	if config.Padding == 0 {
		config.Padding = defaultPadding
	}
	if config.Padding < 0 || config.Padding >= config.CellSize {
		return nil, fmt.Errorf("invalid padding %d for cell size %d", config.Padding, config.CellSize)
	}
	if config.FontSize == 0 {
		config.FontSize = math.Round(float64(config.CellSize) / 4)
	}
	if config.TextPosition == (graphics.RelPoint{}) {
		config.TextPosition = DefaultTextPosition
	}
	if config.UnitPosition == (graphics.RelPoint{}) {
		config.UnitPosition = DefaultUnitPosition
	}
	if config.System == 0 {
		config.System = units.Metric
	}
	if config.Typeface == nil {
		tf, err := graphics.LoadTypeface("")
		if err != nil {
			return nil, fmt.Errorf("loading default font: %w", err)
		}
		config.Typeface = tf
	}

	temperature := graphics.TemperatureRamp
	if config.System == units.Imperial {
		temperature = temperature.Scaled(units.CelsiusToFahrenheit)
	}

	r := IconRenderer{
		config:      config,
		iconSize:    config.CellSize - config.Padding,
		temperature: temperature,
		icons:       make(map[string]*image.RGBA),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r, nil
}

// CellSize returns the side of a rendered fragment in pixels
func (r *IconRenderer) CellSize() int {
	return r.config.CellSize
}

// Render draws the overlay of a metric. The output depends only on the metric and key.
func (r *IconRenderer) Render(ctx context.Context, m Metric, k Key) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, ok := k.Float()
	text := k.String()
	ink := textColor
	if !ok {
		ink = graphics.NoDataColor
	}

	var (
		layers []graphics.Layer
		unit   string
		err    error
	)

	switch m {
	case Speed:
		unit = r.config.System.SpeedLabel()
		if r.config.Dial.Enabled {
			layers, err = r.dialLayers(value)
		} else {
			layers, err = r.iconLayers(iconSpeed, 0)
		}

	case Pitch, Roll:
		name := iconPitch
		if m == Roll {
			name = iconRoll
		}
		// the icon turns with the stored angle, absent values leave it level
		layers, err = r.iconLayers(name, value)

	case Battery:
		name := iconBattery
		if ok {
			name = BatteryIcon(value)
			ink = graphics.BatteryRamp.At(value)
			text += "%"
		}
		layers, err = r.iconLayers(name, 0)

	case Temperature:
		unit = r.config.System.TemperatureLabel()
		if ok {
			ink = r.temperature.At(value)
		}
		layers, err = r.iconLayers(iconTemperature, 0)

	default:
		return nil, fmt.Errorf("unknown metric '%s'", m)
	}
	if err != nil {
		return nil, err
	}

	cell := image.Pt(r.config.CellSize, r.config.CellSize)
	img := graphics.Composite(cell, layers...)

	if err = graphics.DrawText(img, text, r.config.Typeface, r.config.FontSize, ink, r.config.TextPosition); err != nil {
		return nil, err
	}
	if unit != "" {
		if err = graphics.DrawText(img, unit, r.config.Typeface, r.config.FontSize/2, textColor, r.config.UnitPosition); err != nil {
			return nil, err
		}
	}

	return img, nil
}

func (r *IconRenderer) iconLayers(name string, degrees float64) ([]graphics.Layer, error) {
	icon, err := r.icon(name)
	if err != nil {
		return nil, err
	}

	var img image.Image = icon
	if degrees != 0 {
		img = graphics.Rotate(icon, degrees)
	}

	return []graphics.Layer{graphics.Centered(img, image.Pt(r.config.CellSize, r.config.CellSize))}, nil
}

func (r *IconRenderer) dialLayers(speed float64) ([]graphics.Layer, error) {
	bg, err := r.icon(iconSpeedBg)
	if err != nil {
		return nil, err
	}
	pointer, err := r.icon(iconSpeedPointer)
	if err != nil {
		return nil, err
	}

	// positive dial angles turn the pointer clockwise
	angle := r.config.Dial.PointerAngle(speed)
	cell := image.Pt(r.config.CellSize, r.config.CellSize)

	return []graphics.Layer{
		graphics.Centered(bg, cell),
		graphics.Centered(graphics.Rotate(pointer, -angle), cell),
	}, nil
}

// icon loads and scales an icon once, later calls share the same image
func (r *IconRenderer) icon(name string) (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if img, ok := r.icons[name]; ok {
		return img, nil
	}

	path := filepath.Join(r.config.IconDir, name)
	img, err := graphics.LoadIcon(path, r.iconSize)
	if err != nil {
		return nil, err
	}
	r.icons[name] = img

	r.logger.Debug("icon loaded", slog.String("path", path), slog.Int("size", r.iconSize))

	return img, nil
}

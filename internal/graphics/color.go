package graphics

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	// BatteryRamp tints charge from red when empty to green when full
	BatteryRamp = Ramp{Min: 20, Max: 100, From: colorful.Hsv(0, 0.85, 0.95), To: colorful.Hsv(120, 0.75, 0.85)}

	// TemperatureRamp tints motor temperature from white to orange-red. The bounds are °C.
	TemperatureRamp = Ramp{Min: 40, Max: 80, From: colorful.Hsv(0, 0, 1), To: colorful.Hsv(14, 0.9, 1)}

	// NoDataColor is used for text of absent values
	NoDataColor color.Color = colorful.Hsv(0, 0, 0.7)
)

// Ramp maps values between Min and Max to a colour gradient blended in HCL space.
// Values outside the range are clamped.
type Ramp struct {
	Min, Max float64
	From, To colorful.Color
}

// At returns the ramp colour for v
func (r Ramp) At(v float64) color.Color {
	if r.Max <= r.Min {
		return r.To
	}

	t := (v - r.Min) / (r.Max - r.Min)
	t = math.Min(math.Max(t, 0), 1)

	return r.From.BlendHcl(r.To, t).Clamped()
}

// Scaled returns a copy of the ramp with its bounds passed through fn,
// e.g. to express a Celsius ramp in Fahrenheit
func (r Ramp) Scaled(fn func(float64) float64) Ramp {
	r.Min, r.Max = fn(r.Min), fn(r.Max)
	return r
}

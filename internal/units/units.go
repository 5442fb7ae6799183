// Package units converts ride telemetry between metric and imperial systems
package units

import (
	"fmt"
	"strings"
)

const (
	Metric   System = 'm'
	Imperial System = 'i'

	// KilometersPerMile is the exact international mile length in kilometers
	KilometersPerMile = 1.609344
)

// System is a measurement system, either Metric or Imperial
type System byte

func (s System) String() string {
	switch s {
	case Metric:
		return "metric"
	case Imperial:
		return "imperial"
	default:
		return "unknown"
	}
}

// SpeedLabel returns the label rendered next to speed values
func (s System) SpeedLabel() string {
	if s == Imperial {
		return "M.P.H."
	}
	return "Km/h"
}

// TemperatureLabel returns the label rendered next to temperature values
func (s System) TemperatureLabel() string {
	if s == Imperial {
		return "°F"
	}
	return "°C"
}

// ValidCodes contains all accepted two-letter unit codes. The first letter is the
// unit system the log was recorded in, the second is the one to display.
var ValidCodes = []string{"mm", "mi", "im", "ii"}

// Code is a two-letter unit conversion code, e.g. "mi" converts metric logs to imperial output
type Code struct {
	Input  System
	Output System
}

// ParseCode parses a unit code such as "mm" or "im"
func ParseCode(s string) (Code, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Code{}, fmt.Errorf("invalid unit code '%s', expected one of: %s", s, strings.Join(ValidCodes, ", "))
	}

	in, out := System(s[0]), System(s[1])
	for _, sys := range []System{in, out} {
		if sys != Metric && sys != Imperial {
			return Code{}, fmt.Errorf("invalid unit code '%s', expected one of: %s", s, strings.Join(ValidCodes, ", "))
		}
	}

	return Code{Input: in, Output: out}, nil
}

func (c Code) String() string {
	return string([]byte{byte(c.Input), byte(c.Output)})
}

// Converter converts distance, speed and temperature values for a unit code.
// Absent (nil) values stay absent.
type Converter struct {
	code Code
}

// NewConverter returns a converter for the given unit code
func NewConverter(code Code) Converter {
	return Converter{code: code}
}

// Code returns the unit code this converter was built for
func (c Converter) Code() Code {
	return c.code
}

// Output returns the display unit system
func (c Converter) Output() System {
	return c.code.Output
}

// Distance converts a distance (or speed) value between miles and kilometers
func (c Converter) Distance(v *float64) *float64 {
	if v == nil || c.code.Input == c.code.Output {
		return v
	}

	var r float64
	if c.code.Output == Metric {
		r = MileToKm(*v)
	} else {
		r = KmToMile(*v)
	}
	return &r
}

// Speed converts a speed value, the conversion factor is the same as for distances
func (c Converter) Speed(v *float64) *float64 {
	return c.Distance(v)
}

// Temperature converts a temperature value between Fahrenheit and Celsius
func (c Converter) Temperature(v *float64) *float64 {
	if v == nil || c.code.Input == c.code.Output {
		return v
	}

	var r float64
	if c.code.Output == Metric {
		r = FahrenheitToCelsius(*v)
	} else {
		r = CelsiusToFahrenheit(*v)
	}
	return &r
}

func MileToKm(mi float64) float64 {
	return mi * KilometersPerMile
}

func KmToMile(km float64) float64 {
	return km / KilometersPerMile
}

func FahrenheitToCelsius(f float64) float64 {
	return (f - 32.0) * 5.0 / 9.0
}

func CelsiusToFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32.0
}

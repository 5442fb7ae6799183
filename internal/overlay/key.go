// Package overlay renders per-metric HUD fragments and caches them by quantized value
package overlay

import (
	"math"
	"strconv"
	"strings"

	"github.com/roman-kulish/ride-hud/internal/telemetry"
)

// Metric is one of the values shown on the HUD bar
type Metric string

const (
	Speed       Metric = "speed"
	Pitch       Metric = "pitch"
	Roll        Metric = "roll"
	Battery     Metric = "battery"
	Temperature Metric = "temperature"
)

// Metrics lists the HUD metrics in bar order
var Metrics = []Metric{Speed, Pitch, Roll, Battery, Temperature}

// Field returns the telemetry field the metric displays
func (m Metric) Field() telemetry.Field {
	switch m {
	case Speed:
		return telemetry.Speed
	case Pitch:
		return telemetry.Pitch
	case Roll:
		return telemetry.Roll
	case Battery:
		return telemetry.Battery
	default:
		return telemetry.MotorTemp
	}
}

// Key is the quantized display value of a metric. Values producing the same key are
// rendered identically.
type Key string

// NoData is the key of absent values, it never collides with a number
const NoData Key = "--"

// rounding applied before truncation so float noise like 2.9999999999999996 shows as 3.0
const noiseDecimals = 6

// Quantize converts a raw value into its display key.
//
// Speed and angles keep one decimal, truncated toward zero, so 12.34 and 12.36 both
// become "12.3" and -4.56 becomes "-4.5". Battery and temperature are rounded to whole
// numbers, halves away from zero, so 86.5 becomes "87". Negative zero is normalised.
func Quantize(m Metric, v *float64) Key {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return NoData
	}

	switch m {
	case Battery, Temperature:
		return Key(normalizeZero(strconv.FormatFloat(math.Round(*v), 'f', 0, 64)))
	default:
		return Key(truncate(*v, 1))
	}
}

func truncate(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', noiseDecimals, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i+1+decimals]
	}
	return normalizeZero(s)
}

func normalizeZero(s string) string {
	if strings.Trim(s, "-0.") == "" {
		return strings.TrimPrefix(s, "-")
	}
	return s
}

// Float returns the numeric value of the key, false for NoData
func (k Key) Float() (float64, bool) {
	if k == NoData {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(k), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (k Key) String() string {
	return string(k)
}

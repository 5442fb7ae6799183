package telemetry

import (
	"time"
)

// Field identifies one of the numeric telemetry fields
type Field int

const (
	Speed Field = iota
	Battery
	Roll
	Pitch
	MotorTemp
	Distance
)

// Fields lists every numeric field in column order
var Fields = []Field{Speed, Battery, Roll, Pitch, MotorTemp, Distance}

var fieldNames = map[Field]string{
	Speed:     "speed",
	Battery:   "battery",
	Roll:      "roll",
	Pitch:     "pitch",
	MotorTemp: "motorTemp",
	Distance:  "distance",
}

func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return "unknown"
}

// Reading is a single row of the ride log. A nil field means the value is absent,
// which is distinct from zero.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`           // Timestamp of the log row
	Speed     *float64  `json:"speed,omitempty"`     // Speed in km/h or mph
	Battery   *float64  `json:"battery,omitempty"`   // Battery charge in percent
	Roll      *float64  `json:"roll,omitempty"`      // Roll angle in degrees, sign-inverted from the raw log
	Pitch     *float64  `json:"pitch,omitempty"`     // Pitch angle in degrees
	MotorTemp *float64  `json:"motorTemp,omitempty"` // Motor temperature in °C or °F
	Distance  *float64  `json:"distance,omitempty"`  // Odometer in km or miles
}

// Value returns the value of the given field
func (r *Reading) Value(f Field) *float64 {
	switch f {
	case Speed:
		return r.Speed
	case Battery:
		return r.Battery
	case Roll:
		return r.Roll
	case Pitch:
		return r.Pitch
	case MotorTemp:
		return r.MotorTemp
	case Distance:
		return r.Distance
	default:
		return nil
	}
}

// SetValue sets the value of the given field
func (r *Reading) SetValue(f Field, v *float64) {
	switch f {
	case Speed:
		r.Speed = v
	case Battery:
		r.Battery = v
	case Roll:
		r.Roll = v
	case Pitch:
		r.Pitch = v
	case MotorTemp:
		r.MotorTemp = v
	case Distance:
		r.Distance = v
	}
}

// Sample is a reading interpolated at an arbitrary instant Time
type Sample struct {
	Reading
	Index int // Index of the upper bracketing row in the store
}

// Time returns the instant the sample was interpolated at
func (s *Sample) Time() time.Time {
	return s.Timestamp
}

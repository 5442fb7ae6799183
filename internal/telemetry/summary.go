package telemetry

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a ride log as a whole
type Summary struct {
	Rows         int
	Start, End   time.Time
	Duration     time.Duration
	MeanInterval time.Duration // Mean time between consecutive log rows

	MaxSpeed     *float64
	MeanSpeed    *float64
	BatteryStart *float64
	BatteryEnd   *float64
	MaxMotorTemp *float64
	Distance     *float64 // Odometer difference between the first and last present reading
	MaxRoll      *float64 // Largest absolute roll angle
	MaxPitch     *float64 // Largest absolute pitch angle
}

// Summarize computes ride statistics. Absent values are skipped, a statistic with no
// present values at all is left absent.
func Summarize(s *Store) Summary {
	sum := Summary{
		Rows:     s.Len(),
		Start:    s.Start(),
		End:      s.End(),
		Duration: s.Duration(),
	}
	if s.Len() == 0 {
		return sum
	}

	if s.Len() > 1 {
		deltas := make([]float64, 0, s.Len()-1)
		for i := 1; i < s.Len(); i++ {
			deltas = append(deltas, s.readings[i].Timestamp.Sub(s.readings[i-1].Timestamp).Seconds())
		}
		sum.MeanInterval = time.Duration(stat.Mean(deltas, nil) * float64(time.Second))
	}

	speeds := present(s, Speed, false)
	if len(speeds) > 0 {
		sum.MaxSpeed = ptr(floats.Max(speeds))
		sum.MeanSpeed = ptr(stat.Mean(speeds, nil))
	}

	if temps := present(s, MotorTemp, false); len(temps) > 0 {
		sum.MaxMotorTemp = ptr(floats.Max(temps))
	}
	if rolls := present(s, Roll, true); len(rolls) > 0 {
		sum.MaxRoll = ptr(floats.Max(rolls))
	}
	if pitches := present(s, Pitch, true); len(pitches) > 0 {
		sum.MaxPitch = ptr(floats.Max(pitches))
	}

	if battery := present(s, Battery, false); len(battery) > 0 {
		sum.BatteryStart = ptr(battery[0])
		sum.BatteryEnd = ptr(battery[len(battery)-1])
	}
	if odo := present(s, Distance, false); len(odo) > 0 {
		sum.Distance = ptr(odo[len(odo)-1] - odo[0])
	}

	return sum
}

func present(s *Store, f Field, abs bool) []float64 {
	values := make([]float64, 0, s.Len())
	for i := range s.readings {
		if v := s.readings[i].Value(f); v != nil {
			if abs && *v < 0 {
				values = append(values, -*v)
				continue
			}
			values = append(values, *v)
		}
	}
	return values
}

func ptr(v float64) *float64 {
	return &v
}

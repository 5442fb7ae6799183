package telemetry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/ride-hud/internal/units"
)

const (
	// TimeLayout is the log timestamp layout once the zone suffix is removed
	TimeLayout = "2006-01-02T15:04:05.000"

	zoneSuffixLen = 5 // e.g. "-0700" or "+0000"

	ColumnTime      = "time"
	ColumnSpeed     = "speed"
	ColumnBattery   = "battery"
	ColumnRoll      = "tilt_angle_roll"
	ColumnPitch     = "tilt_angle_pitch"
	ColumnMotorTemp = "motor_temp"
	ColumnOdometer  = "odometer"
)

// RequiredColumns is the canonical list of columns a ride log must contain
var RequiredColumns = []string{
	ColumnTime,
	ColumnSpeed,
	ColumnBattery,
	ColumnRoll,
	ColumnPitch,
	ColumnMotorTemp,
	ColumnOdometer,
}

// ParseTime parses a log timestamp such as "2018-06-03T18:02:43.262-0700".
// The trailing zone suffix is dropped and the time is interpreted as UTC, the same
// way for both log rows and the footage anchor, so offsets between them are exact.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) <= zoneSuffixLen {
		return time.Time{}, fmt.Errorf("timestamp too short: '%s'", s)
	}

	t, err := time.Parse(TimeLayout, s[:len(s)-zoneSuffixLen])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp '%s': %w", s, err)
	}
	return t, nil
}

// ParseAngle converts a raw tilt value in tenths of a degree offset by 1800 into
// degrees between -180 and 180 with 0 being level. Inverted angles change sign.
func ParseAngle(s string, invert bool) *float64 {
	raw := parseFloat(s)
	if raw == nil {
		return nil
	}

	angle := *raw/10 - 180
	if invert {
		angle = -angle
	}
	return &angle
}

// ParseCSV reads a ride log. Cells that fail to parse as numbers leave the field
// absent. A timestamp that fails to parse aborts the load with *RowError.
// The name is only used in error messages.
func ParseCSV(r io.Reader, name string, conv units.Converter) ([]Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("telemetry: %s: missing header row", name)
		}
		return nil, fmt.Errorf("telemetry: %s: reading header: %w", name, err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range RequiredColumns {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("telemetry: %s: missing required column '%s'", name, c)
		}
	}

	var readings []Reading
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &RowError{File: name, Row: row, Column: "*", Err: err}
		}

		cell := func(column string) string {
			if i := columns[column]; i < len(record) {
				return record[i]
			}
			return ""
		}

		ts, err := ParseTime(cell(ColumnTime))
		if err != nil {
			return nil, &RowError{File: name, Row: row, Column: ColumnTime, Err: err}
		}

		readings = append(readings, Reading{
			Timestamp: ts,
			Speed:     conv.Speed(parseFloat(cell(ColumnSpeed))),
			Battery:   parseFloat(cell(ColumnBattery)),
			Roll:      ParseAngle(cell(ColumnRoll), true),
			Pitch:     ParseAngle(cell(ColumnPitch), false),
			MotorTemp: conv.Temperature(parseFloat(cell(ColumnMotorTemp))),
			Distance:  conv.Distance(parseFloat(cell(ColumnOdometer))),
		})
	}

	return readings, nil
}

// LoadFile parses the ride log at path into a store
func LoadFile(path string, conv units.Converter) (store *Store, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	readings, err := ParseCSV(f, path, conv)
	if err != nil {
		return nil, err
	}

	if store, err = NewStore(readings); err != nil {
		return nil, fmt.Errorf("telemetry: %s: %w", path, err)
	}
	return store, nil
}

// FileSource loads telemetry from a CSV ride log
type FileSource struct {
	Path      string
	Converter units.Converter
}

func (s FileSource) Load(_ context.Context) (*Store, error) {
	return LoadFile(s.Path, s.Converter)
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

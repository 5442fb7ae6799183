package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/ride-hud/internal/units"
)

const header = "time,speed,battery,tilt_angle_roll,tilt_angle_pitch,motor_temp,odometer\n"

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{
			name: "negative zone suffix",
			in:   "2018-06-03T18:02:43.262-0700",
			want: time.Date(2018, 6, 3, 18, 2, 43, 262_000_000, time.UTC),
		},
		{
			name: "positive zone suffix",
			in:   "2018-06-03T18:02:43.000+0000",
			want: time.Date(2018, 6, 3, 18, 2, 43, 0, time.UTC),
		},
		{name: "garbage", in: "yesterday-0700", wantErr: true},
		{name: "too short", in: "-0700", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseAngle(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		invert bool
		want   *float64
	}{
		{"level", "1800", false, f(0)},
		{"nose up", "1845", false, f(4.5)},
		{"nose down", "1755", false, f(-4.5)},
		{"roll right inverted", "1845", true, f(-4.5)},
		{"roll left inverted", "1755", true, f(4.5)},
		{"not a number", "n/a", false, nil},
		{"empty", "", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAngle(tt.raw, tt.invert)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestParseCSV(t *testing.T) {
	in := header +
		"2018-06-03T18:02:43.262-0700,12.5,87,1845,1755,31,1024.5\n" +
		"2018-06-03T18:02:43.312-0700,abc,,1800,1800,NaN,1024.6\n"

	readings, err := ParseCSV(strings.NewReader(in), "ride.csv", units.Converter{})
	require.NoError(t, err)
	require.Len(t, readings, 2)

	first := readings[0]
	assert.True(t, time.Date(2018, 6, 3, 18, 2, 43, 262_000_000, time.UTC).Equal(first.Timestamp))
	assert.Equal(t, f(12.5), first.Speed)
	assert.Equal(t, f(87), first.Battery)
	assert.Equal(t, f(-4.5), first.Roll)
	assert.Equal(t, f(-4.5), first.Pitch)
	assert.Equal(t, f(31), first.MotorTemp)
	assert.Equal(t, f(1024.5), first.Distance)

	second := readings[1]
	assert.Nil(t, second.Speed, "non-numeric cell is absent")
	assert.Nil(t, second.Battery, "empty cell is absent")
	assert.Nil(t, second.MotorTemp, "NaN cell is absent")
	assert.Equal(t, f(0), second.Roll)
	assert.Equal(t, f(0), second.Pitch)
}

func TestParseCSV_RollSign(t *testing.T) {
	// the same raw tilt on both axes must produce opposite signs, rendering
	// rotates the roll icon by the stored value so this pins the convention
	in := header + "2018-06-03T18:02:43.262-0700,0,0,1900,1900,0,0\n"

	readings, err := ParseCSV(strings.NewReader(in), "ride.csv", units.Converter{})
	require.NoError(t, err)
	require.Len(t, readings, 1)

	assert.Equal(t, f(-10), readings[0].Roll)
	assert.Equal(t, f(10), readings[0].Pitch)
}

func TestParseCSV_ColumnOrderAndBOM(t *testing.T) {
	in := "\ufeffodometer,motor_temp,tilt_angle_pitch,tilt_angle_roll,battery,speed,time,extra\n" +
		"5,20,1800,1800,50,10,2018-06-03T18:02:43.000-0700,ignored\n"

	readings, err := ParseCSV(strings.NewReader(in), "ride.csv", units.Converter{})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, f(10), readings[0].Speed)
	assert.Equal(t, f(5), readings[0].Distance)
}

func TestParseCSV_Conversion(t *testing.T) {
	code, err := units.ParseCode("im")
	require.NoError(t, err)

	in := header + "2018-06-03T18:02:43.000-0700,10,50,1800,1800,212,1\n"
	readings, err := ParseCSV(strings.NewReader(in), "ride.csv", units.NewConverter(code))
	require.NoError(t, err)
	require.Len(t, readings, 1)

	assert.InDelta(t, 16.09344, *readings[0].Speed, 1e-9)
	assert.InDelta(t, 1.609344, *readings[0].Distance, 1e-9)
	assert.InDelta(t, 100, *readings[0].MotorTemp, 1e-9)
	assert.Equal(t, f(50), readings[0].Battery, "battery is never converted")
}

func TestParseCSV_Errors(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		in := "time,speed,battery,tilt_angle_roll,tilt_angle_pitch,motor_temp\n"
		_, err := ParseCSV(strings.NewReader(in), "ride.csv", units.Converter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "odometer")
		assert.Contains(t, err.Error(), "ride.csv")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader(""), "ride.csv", units.Converter{})
		assert.Error(t, err)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		in := header +
			"2018-06-03T18:02:43.262-0700,1,1,1800,1800,1,1\n" +
			"not a time,1,1,1800,1800,1,1\n"

		_, err := ParseCSV(strings.NewReader(in), "ride.csv", units.Converter{})
		require.Error(t, err)

		var rowErr *RowError
		require.True(t, errors.As(err, &rowErr))
		assert.Equal(t, "ride.csv", rowErr.File)
		assert.Equal(t, 2, rowErr.Row)
		assert.Equal(t, ColumnTime, rowErr.Column)
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("sorted", func(t *testing.T) {
		path := filepath.Join(dir, "sorted.csv")
		require.NoError(t, os.WriteFile(path, []byte(header+
			"2018-06-03T18:02:43.000-0700,0,90,1800,1800,20,0\n"+
			"2018-06-03T18:02:44.000-0700,30,89,1800,1800,21,0.01\n"), 0o644))

		s, err := FileSource{Path: path}.Load(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, time.Second, s.Duration())
	})

	t.Run("unsorted", func(t *testing.T) {
		path := filepath.Join(dir, "unsorted.csv")
		require.NoError(t, os.WriteFile(path, []byte(header+
			"2018-06-03T18:02:44.000-0700,0,90,1800,1800,20,0\n"+
			"2018-06-03T18:02:43.000-0700,30,89,1800,1800,21,0.01\n"), 0o644))

		_, err := LoadFile(path, units.Converter{})
		var orderErr *OrderError
		require.True(t, errors.As(err, &orderErr))
		assert.Equal(t, 1, orderErr.Index)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.csv"), units.Converter{})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

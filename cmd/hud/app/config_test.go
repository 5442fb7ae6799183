package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/ride-hud/internal/graphics"
	"github.com/roman-kulish/ride-hud/internal/hud"
)

const sampleConfig = `
settings:
  logLevel: debug
  workers: 3
log:
  path: ride.csv
  unit: mi
  startDate: "2018-06-03T18:02:43.262-0700"
video:
  input: footage.mp4
  output: out.mp4
  orientation: landscape
  resolution: "720"
  startSecond: 12.5
  endSecond: 90
render:
  icons: assets/icons
  textPosition: {x: 0.5, y: 0.75}
  dial:
    enabled: true
    vMin: 0
    vMax: 40
    angleMin: -120
    angleMax: 120
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hud.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "debug", c.Settings.LogLevel)
	assert.Equal(t, 3, c.Settings.Workers)
	assert.Equal(t, "ride.csv", c.Log.Path)
	assert.Equal(t, "mi", c.Log.Unit)
	assert.Equal(t, string(hud.Landscape), c.Video.Orientation)
	assert.Equal(t, "720", c.Video.Resolution)
	assert.Equal(t, 12500*time.Millisecond, c.Video.StartSecond.Duration())
	assert.Equal(t, 90*time.Second, c.Video.EndSecond.Duration())
	assert.Equal(t, "assets/icons", c.Render.IconDir)
	assert.Equal(t, graphics.RelPoint{X: 0.5, Y: 0.75}, c.Render.TextPosition)
	assert.True(t, c.Render.Dial.Enabled)
	assert.Equal(t, 120.0, c.Render.Dial.AngleMax)

	// defaults survive for keys missing from the file
	assert.Equal(t, hud.DefaultFPS, c.Video.FPS)
	assert.Equal(t, "libx264", c.Video.Codec)

	anchor, err := c.Anchor()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 6, 3, 18, 2, 43, 262_000_000, time.UTC), anchor)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "video:\n  colour: red\n"},
		{name: "negative seconds", content: "video:\n  startSecond: -1\n"},
		{name: "bad seconds", content: "video:\n  endSecond: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewConfigFromCLI(t *testing.T) {
	c, err := NewConfigFromCLI([]string{
		"-log", "ride.csv",
		"-video", "footage.mp4",
		"-start-second", "3",
		"-end-second", "10.25",
		"-orientation", "LANDSCAPE",
		"-animated-speed",
		"-verbose",
	})
	require.NoError(t, err)

	assert.Equal(t, "ride.csv", c.Log.Path)
	assert.Equal(t, "footage.mp4", c.Video.Input)
	assert.Equal(t, 3*time.Second, c.Video.StartSecond.Duration())
	assert.Equal(t, 10250*time.Millisecond, c.Video.EndSecond.Duration())
	assert.Equal(t, "landscape", c.Video.Orientation)
	assert.Equal(t, "1080", c.Video.Resolution)
	assert.True(t, c.Render.Dial.Enabled)
	assert.Equal(t, "debug", c.Settings.LogLevel)

	anchor, err := c.Anchor()
	require.NoError(t, err)
	assert.True(t, anchor.IsZero())
}

func TestNewConfigFromCLI_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	c, err := NewConfigFromCLI([]string{"-c", path, "-orientation", "portrait", "-start-date", "2018-06-03T18:05:00.000"})
	require.NoError(t, err)

	assert.Equal(t, "portrait", c.Video.Orientation)
	assert.Equal(t, "720", c.Video.Resolution) // from the file
	assert.Equal(t, 3, c.Settings.Workers)     // from the file, flag default ignored

	anchor, err := c.Anchor()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 6, 3, 18, 5, 0, 0, time.UTC), anchor)
}

func TestNewConfigFromCLI_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no telemetry", args: []string{"-video", "v.mp4"}, want: "log file"},
		{name: "log and db", args: []string{"-log", "a.csv", "-db", "r.db", "-ride", "x", "-video", "v.mp4"}, want: "mutually exclusive"},
		{name: "db without ride", args: []string{"-db", "r.db", "-video", "v.mp4"}, want: "ride id"},
		{name: "no video", args: []string{"-log", "a.csv"}, want: "video"},
		{name: "bad orientation", args: []string{"-log", "a.csv", "-video", "v.mp4", "-orientation", "square"}, want: "orientation"},
		{name: "bad resolution", args: []string{"-log", "a.csv", "-video", "v.mp4", "-resolution", "4k"}, want: "resolution"},
		{name: "bad unit", args: []string{"-log", "a.csv", "-video", "v.mp4", "-unit", "xx"}, want: "unit code"},
		{name: "empty window", args: []string{"-log", "a.csv", "-video", "v.mp4", "-start-second", "5", "-end-second", "5"}, want: "end second"},
		{name: "bad start date", args: []string{"-log", "a.csv", "-video", "v.mp4", "-start-date", "yesterday"}, want: "start date"},
		{name: "unknown flag", args: []string{"-colour"}, want: "flag provided but not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigFromCLI(tt.args)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should contain %q", err, tt.want)
		})
	}
}

func TestConfig_Anchor(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "", want: time.Time{}},
		{in: "0", want: time.Time{}},
		{in: "2018-06-03T18:02:43", want: time.Date(2018, 6, 3, 18, 2, 43, 0, time.UTC)},
		{in: "2018-06-03T18:02:43.262", want: time.Date(2018, 6, 3, 18, 2, 43, 262e6, time.UTC)},
		{in: "2018-06-03T18:02:43-0700", want: time.Date(2018, 6, 3, 18, 2, 43, 0, time.UTC)},
		{in: " 2018-06-03T18:02:43.262+0200 ", want: time.Date(2018, 6, 3, 18, 2, 43, 262e6, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := NewConfig()
			c.Log.StartDate = tt.in

			got, err := c.Anchor()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, in := range []string{"yesterday", "2018-06-03", "2018-06-03T18:02:43Z"} {
		c := NewConfig()
		c.Log.StartDate = in

		_, err := c.Anchor()
		assert.ErrorContains(t, err, "invalid start date", in)
	}
}

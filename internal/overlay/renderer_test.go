package overlay

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/ride-hud/internal/telemetry"
)

const (
	testCell    = 60
	testPadding = 10
	testIcon    = testCell - testPadding
)

var (
	red  = color.RGBA{R: 0xff, A: 0xff}
	blue = color.RGBA{B: 0xff, A: 0xff}

	telemetryStart = time.Date(2018, 6, 3, 18, 2, 43, 0, time.UTC)
)

// writeIcons creates a full icon set. Every icon is transparent except for the
// marker rectangle so tests can follow rotations.
func writeIcons(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// marker right of the centre, an arrow pointing right
	arrow := image.Rect(40, 20, 50, 30)
	// marker above the centre, a dial pointer at rest pointing up
	pointer := image.Rect(22, 0, 28, 25)

	icons := map[string]image.Rectangle{
		iconSpeed:        arrow,
		iconSpeedPointer: pointer,
		iconPitch:        arrow,
		iconRoll:         arrow,
		iconTemperature:  arrow,
		iconBattery:      arrow,
	}
	for _, tier := range batteryTiers {
		icons[BatteryIcon(float64(tier))] = arrow
	}

	for name, marker := range icons {
		img := image.NewRGBA(image.Rect(0, 0, testIcon, testIcon))
		draw.Draw(img, marker, image.NewUniform(red), image.Point{}, draw.Src)
		writePNG(t, filepath.Join(dir, name), img)
	}

	bg := image.NewRGBA(image.Rect(0, 0, testIcon, testIcon))
	draw.Draw(bg, bg.Bounds(), image.NewUniform(blue), image.Point{}, draw.Src)
	writePNG(t, filepath.Join(dir, iconSpeedBg), bg)

	return dir
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()

	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, png.Encode(out, img))
}

func isRed(c color.RGBA) bool {
	return c.R > 200 && c.G < 60 && c.B < 60
}

func newRenderer(t *testing.T, dir string, dial bool) *IconRenderer {
	t.Helper()

	cfg := RenderConfig{IconDir: dir, CellSize: testCell, Padding: testPadding}
	if dial {
		cfg.Dial = DefaultDial()
		cfg.Dial.Enabled = true
	}

	r, err := NewIconRenderer(cfg)
	require.NoError(t, err)
	return r
}

func TestBatteryIcon(t *testing.T) {
	tests := []struct {
		charge float64
		want   string
	}{
		{150, "battery.png"},
		{100, "battery_100.png"},
		{95, "battery_100.png"},
		{90, "battery_90.png"},
		{87, "battery_90.png"},
		{80, "battery_80.png"},
		{61, "battery_80.png"},
		{60, "battery_60.png"},
		{55, "battery_60.png"},
		{50, "battery_50.png"},
		{31, "battery_50.png"},
		{30, "battery_30.png"},
		{21, "battery_30.png"},
		{20, "battery_20.png"},
		{0, "battery_20.png"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BatteryIcon(tt.charge), "charge %v", tt.charge)
	}
}

func TestPointerAngle(t *testing.T) {
	dial := DefaultDial()

	// a 0 to 30 ramp in steps of 3 moves the pointer by 18° per step
	for i := 0; i < 10; i++ {
		speed := float64(i) * 3
		assert.InDelta(t, -90+float64(i)*18, dial.PointerAngle(speed), 1e-9, "speed %v", speed)
	}

	assert.Equal(t, 0.0, dial.PointerAngle(15))
	assert.Equal(t, 90.0, dial.PointerAngle(30))
	assert.Equal(t, 90.0, dial.PointerAngle(45), "clamped above the range")
	assert.Equal(t, -90.0, dial.PointerAngle(-5), "clamped below the range")

	assert.Equal(t, -10.0, DialConfig{VMin: 5, VMax: 5, AngleMin: -10, AngleMax: 10}.PointerAngle(7))
}

func TestPointerAngle_ResampledRamp(t *testing.T) {
	// telemetry ramp from 0 to 30 over one second sampled every 100ms
	s, err := telemetry.NewStore([]telemetry.Reading{
		{Timestamp: telemetryStart, Speed: f(0)},
		{Timestamp: telemetryStart.Add(time.Second), Speed: f(30)},
	})
	require.NoError(t, err)

	dial := DefaultDial()
	r := telemetry.NewResampler(s, telemetryStart)
	for i := 0; i < 10; i++ {
		sample, err := r.At(telemetry.FrameOffset(i, 10))
		require.NoError(t, err)

		key := Quantize(Speed, sample.Speed)
		speed, ok := key.Float()
		require.True(t, ok)

		assert.InDelta(t, float64(i)*3, speed, 1e-9)
		assert.InDelta(t, -90+float64(i)*18, dial.PointerAngle(speed), 1e-9)
	}
}

func TestIconRenderer_Render(t *testing.T) {
	dir := writeIcons(t)
	r := newRenderer(t, dir, false)
	ctx := context.Background()

	for _, m := range Metrics {
		for _, k := range []Key{"12.0", NoData} {
			img, err := r.Render(ctx, m, k)
			require.NoError(t, err, "%s %s", m, k)
			assert.Equal(t, image.Rect(0, 0, testCell, testCell), img.Bounds())
		}
	}
}

func TestIconRenderer_Deterministic(t *testing.T) {
	r := newRenderer(t, writeIcons(t), false)
	ctx := context.Background()

	a, err := r.Render(ctx, Temperature, "23")
	require.NoError(t, err)
	b, err := r.Render(ctx, Temperature, "23")
	require.NoError(t, err)
	c, err := r.Render(ctx, Temperature, "24")
	require.NoError(t, err)

	assert.Equal(t, a.Pix, b.Pix)
	assert.NotEqual(t, a.Pix, c.Pix)
}

func TestIconRenderer_RollRotation(t *testing.T) {
	r := newRenderer(t, writeIcons(t), false)
	ctx := context.Background()

	// cell pixel above the centre, reached by the marker after a quarter turn
	// counter-clockwise
	top := image.Pt(29, 9)

	level, err := r.Render(ctx, Roll, "0.0")
	require.NoError(t, err)
	assert.False(t, isRed(level.RGBAAt(top.X, top.Y)))

	positive, err := r.Render(ctx, Roll, "90.0")
	require.NoError(t, err)
	assert.True(t, isRed(positive.RGBAAt(top.X, top.Y)), "positive roll turns counter-clockwise")

	negative, err := r.Render(ctx, Roll, "-90.0")
	require.NoError(t, err)
	assert.False(t, isRed(negative.RGBAAt(top.X, top.Y)), "negative roll turns clockwise")
}

func TestIconRenderer_Dial(t *testing.T) {
	r := newRenderer(t, writeIcons(t), true)
	ctx := context.Background()

	left, right := image.Pt(12, 30), image.Pt(48, 30)

	stopped, err := r.Render(ctx, Speed, "0.0")
	require.NoError(t, err)
	assert.True(t, isRed(stopped.RGBAAt(left.X, left.Y)), "pointer at -90° points left")
	assert.False(t, isRed(stopped.RGBAAt(right.X, right.Y)))

	full, err := r.Render(ctx, Speed, "30.0")
	require.NoError(t, err)
	assert.True(t, isRed(full.RGBAAt(right.X, right.Y)), "pointer at +90° points right")
	assert.False(t, isRed(full.RGBAAt(left.X, left.Y)))

	over, err := r.Render(ctx, Speed, "45.0")
	require.NoError(t, err)
	assert.True(t, isRed(over.RGBAAt(right.X, right.Y)), "pointer stays on the dial")
}

func TestIconRenderer_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing icon", func(t *testing.T) {
		r := newRenderer(t, t.TempDir(), false)
		_, err := r.Render(ctx, Pitch, "1.0")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown metric", func(t *testing.T) {
		r := newRenderer(t, writeIcons(t), false)
		_, err := r.Render(ctx, Metric("altitude"), "1.0")
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		r := newRenderer(t, writeIcons(t), false)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Render(cctx, Pitch, "1.0")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewIconRenderer(RenderConfig{CellSize: 0})
		assert.Error(t, err)
		_, err = NewIconRenderer(RenderConfig{CellSize: 10, Padding: 10})
		assert.Error(t, err)
	})
}

func TestIconRenderer_WithCache(t *testing.T) {
	r := newRenderer(t, writeIcons(t), false)
	c := NewCache(r)
	ctx := context.Background()

	a, err := c.Get(ctx, Speed, f(12.34), 0)
	require.NoError(t, err)
	b, err := c.Get(ctx, Speed, f(12.36), 0)
	require.NoError(t, err)

	assert.Same(t, a.Image, b.Image)
	assert.Equal(t, int64(1), c.Stats().Renders)
}

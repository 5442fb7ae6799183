package app

import (
	"errors"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/roman-kulish/ride-hud/internal/telemetry"
	"github.com/roman-kulish/ride-hud/internal/units"
)

// ErrNoChartData is returned when the ride has no value to plot
var ErrNoChartData = errors.New("no speed, battery or temperature values to plot")

type series struct {
	field telemetry.Field
	label string
	hue   float64
}

func chartSeries(system units.System) []series {
	return []series{
		{field: telemetry.Speed, label: "Speed, " + system.SpeedLabel(), hue: 210},
		{field: telemetry.Battery, label: "Battery, %", hue: 130},
		{field: telemetry.MotorTemp, label: "Motor, " + system.TemperatureLabel(), hue: 20},
	}
}

// seriesPoints returns the present values of a field against seconds since the ride start
func seriesPoints(store *telemetry.Store, f telemetry.Field) plotter.XYs {
	var pts plotter.XYs
	start := store.Start()
	for _, r := range store.All {
		if v := r.Value(f); v != nil {
			pts = append(pts, plotter.XY{X: r.Timestamp.Sub(start).Seconds(), Y: *v})
		}
	}
	return pts
}

// NewChart plots speed, battery and motor temperature over the ride
func NewChart(store *telemetry.Store, system units.System) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Ride telemetry"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Value"

	var plotted int
	for _, s := range chartSeries(system) {
		pts := seriesPoints(store, s.field)
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("plotting %s: %w", s.field, err)
		}
		line.Color = colorful.Hcl(s.hue, 0.7, 0.55).Clamped()
		line.Width = vg.Points(1)

		p.Add(line)
		p.Legend.Add(s.label, line)
		plotted++
	}

	if plotted == 0 {
		return nil, ErrNoChartData
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = vg.Points(10)
	p.Legend.YOffs = vg.Points(-10)

	return p, nil
}

// SaveChart renders the chart to path, the image format follows the file extension
func SaveChart(store *telemetry.Store, system units.System, path string) error {
	p, err := NewChart(store, system)
	if err != nil {
		return err
	}
	if err = p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("saving chart: %w", err)
	}
	return nil
}

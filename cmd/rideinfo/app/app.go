package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/roman-kulish/ride-hud/internal/storage"
	"github.com/roman-kulish/ride-hud/internal/telemetry"
	"github.com/roman-kulish/ride-hud/internal/units"
)

func Run(ctx context.Context, config *Config, out io.Writer, logger *slog.Logger) error {
	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	switch config.Command {
	case CommandImport:
		return importRide(ctx, store, config, out, logger)
	case CommandList:
		return listRides(ctx, store, out)
	case CommandSummary:
		readings, system, err := loadReadings(ctx, store, config)
		if err != nil {
			return err
		}
		return writeSummary(out, telemetry.Summarize(readings), system)
	case CommandChart:
		readings, system, err := loadReadings(ctx, store, config)
		if err != nil {
			return err
		}
		if err = SaveChart(readings, system, config.OutputFile); err != nil {
			return err
		}
		logger.Info("chart saved", slog.String("path", config.OutputFile))
		return nil
	}

	return fmt.Errorf("invalid command: %s", config.Command)
}

func importRide(ctx context.Context, store *storage.SqliteStore, config *Config, out io.Writer, logger *slog.Logger) error {
	code, err := units.ParseCode(config.Unit)
	if err != nil {
		return err
	}

	readings, err := telemetry.LoadFile(config.LogPath, units.NewConverter(code))
	if err != nil {
		return err
	}

	logger.Debug("log parsed", slog.String("path", config.LogPath), slog.Int("rows", readings.Len()))

	ride, err := store.ImportRide(ctx, config.Name, config.LogPath, code.String(), readings)
	if err != nil {
		return fmt.Errorf("importing ride: %w", err)
	}

	logger.Info("ride imported", slog.String("ride", ride.ID.String()), slog.String("rows", humanize.Comma(int64(ride.Rows))))
	_, err = fmt.Fprintln(out, ride.ID)
	return err
}

func listRides(ctx context.Context, store *storage.SqliteStore, out io.Writer) error {
	rides, err := store.Rides(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUNIT\tROWS\tSTART\tDURATION\tIMPORTED")
	for _, r := range rides {
		start, duration := "--", "--"
		if r.Start != nil && r.End != nil {
			start = r.Start.Format(time.DateTime)
			duration = r.End.Sub(*r.Start).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Name, r.Unit, humanize.Comma(int64(r.Rows)), start, duration, humanize.Time(r.ImportedAt))
	}
	return tw.Flush()
}

// loadReadings reads the log file or the imported ride and returns it with the unit
// system its values are expressed in
func loadReadings(ctx context.Context, store *storage.SqliteStore, config *Config) (*telemetry.Store, units.System, error) {
	if config.LogPath != "" {
		code, err := units.ParseCode(config.Unit)
		if err != nil {
			return nil, 0, err
		}
		readings, err := telemetry.FileSource{Path: config.LogPath, Converter: units.NewConverter(code)}.Load(ctx)
		return readings, code.Output, err
	}

	id, err := uuid.Parse(config.RideID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid ride id '%s': %w", config.RideID, err)
	}

	ride, err := store.Ride(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	code, err := units.ParseCode(ride.Unit)
	if err != nil {
		return nil, 0, err
	}

	readings, err := store.Source(id).Load(ctx)
	return readings, code.Output, err
}

func writeSummary(out io.Writer, sum telemetry.Summary, system units.System) error {
	distanceUnit := "km"
	if system == units.Imperial {
		distanceUnit = "mi"
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	row := func(label, value string) {
		fmt.Fprintf(tw, "%s\t%s\n", label, value)
	}

	row("Rows", humanize.Comma(int64(sum.Rows)))
	if sum.Rows > 0 {
		row("Start", sum.Start.Format(time.DateTime))
		row("End", sum.End.Format(time.DateTime))
	}
	row("Duration", sum.Duration.Round(time.Second).String())
	row("Log interval", sum.MeanInterval.Round(time.Millisecond).String())
	row("Max speed", formatValue(sum.MaxSpeed, 1, system.SpeedLabel()))
	row("Mean speed", formatValue(sum.MeanSpeed, 1, system.SpeedLabel()))
	row("Distance", formatValue(sum.Distance, 2, distanceUnit))
	row("Battery", formatValue(sum.BatteryStart, 0, "%")+" -> "+formatValue(sum.BatteryEnd, 0, "%"))
	row("Max motor temp", formatValue(sum.MaxMotorTemp, 0, system.TemperatureLabel()))
	row("Max pitch", formatValue(sum.MaxPitch, 1, "°"))
	row("Max roll", formatValue(sum.MaxRoll, 1, "°"))

	return tw.Flush()
}

func formatValue(v *float64, decimals int, unit string) string {
	if v == nil {
		return "--"
	}
	return humanize.FormatFloat("#,###."+strings.Repeat("#", decimals), *v) + " " + unit
}

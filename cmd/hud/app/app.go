package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/roman-kulish/ride-hud/internal/graphics"
	"github.com/roman-kulish/ride-hud/internal/hud"
	"github.com/roman-kulish/ride-hud/internal/overlay"
	"github.com/roman-kulish/ride-hud/internal/storage"
	"github.com/roman-kulish/ride-hud/internal/telemetry"
	"github.com/roman-kulish/ride-hud/internal/units"
	"github.com/roman-kulish/ride-hud/internal/video"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	logger = logger.With(slog.String("run", uuid.NewString()))

	ffmpeg, err := video.FindRuntime(config.Video.FFmpeg)
	if err != nil {
		return err
	}
	ffprobe, err := video.FindRuntime(config.Video.FFprobe)
	if err != nil {
		return err
	}

	store, system, err := loadTelemetry(ctx, config, logger)
	if err != nil {
		return err
	}

	sum := telemetry.Summarize(store)
	logger.Info("telemetry loaded",
		slog.String("rows", humanize.Comma(int64(sum.Rows))),
		slog.String("start", sum.Start.Format(time.DateTime)),
		slog.Duration("duration", sum.Duration),
		slog.Duration("meanInterval", sum.MeanInterval))

	footage, err := video.Probe(ctx, ffprobe, config.Video.Input)
	if err != nil {
		return err
	}
	logger.Info("footage probed",
		slog.String("path", footage.Path),
		slog.String("size", fmt.Sprintf("%dx%d", footage.Size.X, footage.Size.Y)),
		slog.Float64("fps", footage.FPS),
		slog.Duration("duration", footage.Duration))

	timing, err := computeTiming(config, store, footage)
	if err != nil {
		return err
	}

	layout, err := hud.NewLayout(hud.Orientation(config.Video.Orientation), hud.Resolution(config.Video.Resolution))
	if err != nil {
		return err
	}

	renderer, err := newRenderer(config, layout, system, logger)
	if err != nil {
		return err
	}
	cache := overlay.NewCache(renderer, overlay.WithCacheLogger(logger))

	buildProgress := NewProgress("overlays", os.Stderr, logger)
	builder, err := hud.NewBuilder(store, cache, layout, timing,
		hud.WithLogger(logger), hud.WithProgress(buildProgress.Update))
	if err != nil {
		return err
	}

	tl, err := builder.BuildParallel(ctx, config.Settings.Workers)
	if err != nil {
		return fmt.Errorf("building overlays: %w", err)
	}

	stats := cache.Stats()
	logger.Info("overlays ready",
		slog.String("frames", humanize.Comma(int64(tl.Len()))),
		slog.String("rendered", humanize.Comma(stats.Renders)),
		slog.String("hitRatio", fmt.Sprintf("%.1f%%", stats.HitRatio()*100)))

	encodeProgress := NewProgress("encoding", os.Stderr, logger)
	encoder, err := video.NewEncoder(video.EncoderConfig{
		Binary: ffmpeg,
		Input:  config.Video.Input,
		Output: config.Video.Output,
		Start:  config.Video.StartSecond.Duration(),
		End:    config.Video.EndSecond.Duration(),
		Layout: layout,
		FPS:    config.Video.FPS,
		Codec:  config.Video.Codec,
		Preset: config.Video.Preset,
	}, video.WithEncoderLogger(logger), video.WithFrameProgress(encodeProgress.Update))
	if err != nil {
		return err
	}

	if err = encoder.Encode(ctx, tl); err != nil {
		return fmt.Errorf("encoding video: %w", err)
	}

	if fi, err := os.Stat(config.Video.Output); err == nil {
		logger.Info("video written", slog.String("path", config.Video.Output), slog.String("size", humanize.Bytes(uint64(fi.Size()))))
	}

	return nil
}

// loadTelemetry reads the ride from the log file or the database and returns it with
// the unit system used for labels
func loadTelemetry(ctx context.Context, config *Config, logger *slog.Logger) (*telemetry.Store, units.System, error) {
	if config.Log.Path != "" {
		code, err := units.ParseCode(config.Log.Unit)
		if err != nil {
			return nil, 0, err
		}

		logger.Info("reading ride log", slog.String("path", config.Log.Path), slog.String("unit", code.String()))

		store, err := telemetry.FileSource{Path: config.Log.Path, Converter: units.NewConverter(code)}.Load(ctx)
		if err != nil {
			return nil, 0, err
		}
		return store, code.Output, nil
	}

	if _, err := os.Stat(config.Log.DBPath); err != nil && os.IsNotExist(err) {
		return nil, 0, fmt.Errorf("database file '%s' does not exist: %w", config.Log.DBPath, err)
	}

	rideID, err := uuid.Parse(config.Log.RideID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid ride id '%s': %w", config.Log.RideID, err)
	}

	db := storage.NewSqliteStore(config.Log.DBPath)
	defer db.Close()

	ride, err := db.Ride(ctx, rideID)
	if err != nil {
		return nil, 0, err
	}

	// readings were converted on import, the stored code tells the display system
	code, err := units.ParseCode(ride.Unit)
	if err != nil {
		return nil, 0, fmt.Errorf("ride %s: %w", ride.ID, err)
	}

	logger.Info("reading ride from database", slog.String("ride", ride.ID.String()), slog.String("name", ride.Name))

	store, err := db.Source(rideID).Load(ctx)
	if err != nil {
		return nil, 0, err
	}
	return store, code.Output, nil
}

// computeTiming resolves the telemetry anchor and the length of the trimmed footage
func computeTiming(config *Config, store *telemetry.Store, footage video.Footage) (hud.Timing, error) {
	anchor, err := config.Anchor()
	if err != nil {
		return hud.Timing{}, err
	}
	if anchor.IsZero() {
		anchor = store.Start()
	}

	start := config.Video.StartSecond.Duration()
	end := config.Video.EndSecond.Duration()
	if end == 0 || end > footage.Duration {
		end = footage.Duration
	}
	if end <= start {
		return hud.Timing{}, fmt.Errorf("start second %v is past the end of the footage (%v)", start.Seconds(), footage.Duration.Seconds())
	}

	return hud.Timing{Anchor: anchor, Duration: end - start, FPS: config.Video.FPS}, nil
}

func newRenderer(config *Config, layout hud.Layout, system units.System, logger *slog.Logger) (*overlay.IconRenderer, error) {
	tf, err := graphics.LoadTypeface(config.Render.Font)
	if err != nil {
		return nil, err
	}

	return overlay.NewIconRenderer(overlay.RenderConfig{
		IconDir:      config.Render.IconDir,
		CellSize:     layout.Cell,
		Padding:      config.Render.Padding,
		FontSize:     config.Render.FontSize,
		TextPosition: config.Render.TextPosition,
		UnitPosition: config.Render.UnitPosition,
		System:       system,
		Dial:         config.Render.Dial,
		Typeface:     tf,
	}, overlay.WithRendererLogger(logger))
}

package hud

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/ride-hud/internal/overlay"
	"github.com/roman-kulish/ride-hud/internal/telemetry"
)

// DefaultFPS is the output frame rate
const DefaultFPS = 60.0

// Timing aligns the footage with the telemetry log
type Timing struct {
	Anchor   time.Time     // Log timestamp shown on the first output frame
	Duration time.Duration // Length of the trimmed footage
	FPS      float64       // Output frame rate
}

// FrameCount returns the number of frames starting before the end of the footage
func (t Timing) FrameCount() int {
	if t.Duration <= 0 || t.FPS <= 0 {
		return 0
	}
	// small epsilon so a duration that is an exact multiple of the frame time does not
	// produce an extra frame from float noise
	return int(math.Ceil(t.Duration.Seconds()*t.FPS - 1e-9))
}

// FrameDuration returns the display time of a single frame
func (t Timing) FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / t.FPS)
}

// WithLogger sets the logger for the builder
func WithLogger(logger *slog.Logger) func(b *Builder) {
	return func(b *Builder) {
		b.logger = logger.With(slog.String("component", "hud-builder"))
	}
}

// WithProgress registers a callback invoked after each processed frame
func WithProgress(fn func(done, total int)) func(b *Builder) {
	return func(b *Builder) {
		b.progress = fn
	}
}

// Builder walks the output frames, resamples telemetry for each of them and collects
// the overlay fragments of every metric into tracks
type Builder struct {
	store  *telemetry.Store
	cache  *overlay.Cache
	layout Layout
	timing Timing

	progress func(done, total int)
	logger   *slog.Logger
}

// NewBuilder creates a builder. The cache is owned by the caller and may be shared
// with other builders of the same render pass.
func NewBuilder(store *telemetry.Store, cache *overlay.Cache, layout Layout, timing Timing, options ...func(b *Builder)) (*Builder, error) {
	if store.Len() == 0 {
		return nil, &telemetry.OutOfRangeError{Query: timing.Anchor}
	}
	if err := ValidateOrientation(layout.Orientation); err != nil {
		return nil, err
	}
	if timing.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %v", timing.FPS)
	}

	b := Builder{
		store:    store,
		cache:    cache,
		layout:   layout,
		timing:   timing,
		progress: func(int, int) {},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&b)
	}

	return &b, nil
}

// Timeline is the complete overlay of a render pass, one track per metric in bar order
type Timeline struct {
	Layout        Layout
	FrameDuration time.Duration
	Tracks        []*Track
	frames        int
}

func newTimeline(layout Layout, timing Timing) *Timeline {
	tl := Timeline{
		Layout:        layout,
		FrameDuration: timing.FrameDuration(),
		Tracks:        make([]*Track, len(overlay.Metrics)),
	}
	for i, m := range overlay.Metrics {
		tl.Tracks[i] = NewTrack(m)
	}
	return &tl
}

// Len returns the number of frames in the timeline
func (tl *Timeline) Len() int {
	return tl.frames
}

func (tl *Timeline) append(fragments []overlay.Fragment) {
	for i, fr := range fragments {
		tl.Tracks[i].Append(fr)
	}
	tl.frames++
}

// Build processes the frames one by one in a single goroutine
func (b *Builder) Build(ctx context.Context) (*Timeline, error) {
	total := b.timing.FrameCount()
	frameDuration := b.timing.FrameDuration()
	tl := newTimeline(b.layout, b.timing)

	b.logger.Info("building overlay timeline", slog.Int("frames", total), slog.Float64("fps", b.timing.FPS))

	resampler := telemetry.NewResampler(b.store, b.timing.Anchor)
	fragments := make([]overlay.Fragment, len(overlay.Metrics))

	for n := 0; n < total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sample, err := resampler.At(telemetry.FrameOffset(n, b.timing.FPS))
		if err != nil {
			return nil, fmt.Errorf("resampling frame %d: %w", n, err)
		}

		if err = b.fetch(ctx, &sample, frameDuration, fragments); err != nil {
			return nil, fmt.Errorf("frame %d: %w", n, err)
		}

		tl.append(fragments)
		b.progress(n+1, total)
	}

	return tl, nil
}

// BuildParallel resamples the frames in order and fetches their fragments with up to
// workers goroutines. The cache renders every distinct fragment once regardless of
// how many workers request it.
func (b *Builder) BuildParallel(ctx context.Context, workers int) (*Timeline, error) {
	if workers <= 1 {
		return b.Build(ctx)
	}

	total := b.timing.FrameCount()
	frameDuration := b.timing.FrameDuration()

	b.logger.Info("building overlay timeline", slog.Int("frames", total), slog.Float64("fps", b.timing.FPS), slog.Int("workers", workers))

	// resampling threads the cursor and stays sequential, it is cheap next to rendering
	samples := make([]telemetry.Sample, total)
	resampler := telemetry.NewResampler(b.store, b.timing.Anchor)
	for n := range samples {
		sample, err := resampler.At(telemetry.FrameOffset(n, b.timing.FPS))
		if err != nil {
			return nil, fmt.Errorf("resampling frame %d: %w", n, err)
		}
		samples[n] = sample
	}

	frames := make([][]overlay.Fragment, total)
	done := make(chan struct{}, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for i := 0; i < total; i++ {
			if _, ok := <-done; !ok {
				return
			}
			b.progress(i+1, total)
		}
	}()

	for n := range samples {
		g.Go(func() error {
			fragments := make([]overlay.Fragment, len(overlay.Metrics))
			if err := b.fetch(gctx, &samples[n], frameDuration, fragments); err != nil {
				return fmt.Errorf("frame %d: %w", n, err)
			}
			frames[n] = fragments
			done <- struct{}{}
			return nil
		})
	}

	err := g.Wait()
	close(done)
	<-progressDone

	if err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	tl := newTimeline(b.layout, b.timing)
	for _, fragments := range frames {
		tl.append(fragments)
	}
	return tl, nil
}

func (b *Builder) fetch(ctx context.Context, sample *telemetry.Sample, d time.Duration, out []overlay.Fragment) error {
	for i, m := range overlay.Metrics {
		fr, err := b.cache.Get(ctx, m, sample.Value(m.Field()), d)
		if err != nil {
			return err
		}
		out[i] = fr
	}
	return nil
}

// Frames composes the bar of every frame in order and passes it to yield. Bars are
// recomposed only when one of the fragments changes, so yield may receive the same
// image repeatedly and must not modify it.
func (tl *Timeline) Frames(ctx context.Context, yield func(n int, bar *image.RGBA) error) error {
	cursors := make([]int, len(tl.Tracks))   // current segment per track
	remaining := make([]int, len(tl.Tracks)) // frames left in the current segment
	cells := make([]image.Image, len(tl.Tracks))

	for i, t := range tl.Tracks {
		if len(t.segments) > 0 {
			remaining[i] = t.segments[0].Frames
		}
	}

	var bar *image.RGBA
	for n := 0; n < tl.frames; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		changed := bar == nil
		for i, t := range tl.Tracks {
			if remaining[i] == 0 {
				cursors[i]++
				if cursors[i] >= len(t.segments) {
					return fmt.Errorf("track %s ends at frame %d of %d", t.Metric, n, tl.frames)
				}
				remaining[i] = t.segments[cursors[i]].Frames
			}
			remaining[i]--

			if img := t.segments[cursors[i]].Image; cells[i] != image.Image(img) {
				cells[i] = img
				changed = true
			}
		}

		if changed {
			var err error
			if bar, err = ComposeBar(tl.Layout.Orientation, tl.Layout.Cell, cells); err != nil {
				return err
			}
		}

		if err := yield(n, bar); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}

	return nil
}

// ErrStop can be returned by a Frames callback to end the iteration early without error
var ErrStop = errors.New("stop iteration")

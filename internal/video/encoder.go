package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/ride-hud/internal/hud"
)

const (
	DefaultCodec  = "libx264"
	DefaultPreset = "medium"
)

// ErrBrokenPipe is returned when the encoder stops reading overlay frames or its
// stderr cannot be read
var ErrBrokenPipe = errors.New("broken pipe")

// EncoderConfig describes a single render of the footage with the HUD burned in
type EncoderConfig struct {
	Binary string // Path to ffmpeg
	Input  string
	Output string
	Start  time.Duration // Trim window on the footage, zero End means until the end
	End    time.Duration
	Layout hud.Layout
	FPS    float64
	Codec  string
	Preset string
}

// WithEncoderLogger sets the logger for the encoder
func WithEncoderLogger(logger *slog.Logger) func(e *Encoder) {
	return func(e *Encoder) {
		e.logger = logger.With(slog.String("component", "encoder"), slog.String("output", e.config.Output))
	}
}

// WithFrameProgress registers a callback invoked after each overlay frame is written
func WithFrameProgress(fn func(done, total int)) func(e *Encoder) {
	return func(e *Encoder) {
		e.progress = fn
	}
}

// Encoder runs ffmpeg with the trimmed footage as the first input and raw RGBA overlay
// frames, written to its stdin, as the second
type Encoder struct {
	config   EncoderConfig
	progress func(done, total int)
	logger   *slog.Logger
}

// NewEncoder creates an encoder with a discard logger
func NewEncoder(config EncoderConfig, options ...func(e *Encoder)) (*Encoder, error) {
	if config.Binary == "" {
		config.Binary = FFmpeg
	}
	if config.Codec == "" {
		config.Codec = DefaultCodec
	}
	if config.Preset == "" {
		config.Preset = DefaultPreset
	}
	if config.FPS <= 0 {
		config.FPS = hud.DefaultFPS
	}

	if config.Input == "" || config.Output == "" {
		return nil, fmt.Errorf("input and output paths are required")
	}
	if config.End > 0 && config.End <= config.Start {
		return nil, fmt.Errorf("end of the trim window %s is not after its start %s", config.End, config.Start)
	}
	if err := hud.ValidateOrientation(config.Layout.Orientation); err != nil {
		return nil, err
	}

	e := Encoder{
		config:   config,
		progress: func(int, int) {},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&e)
	}

	return &e, nil
}

// Args returns the ffmpeg command line without the binary
func (e *Encoder) Args() []string {
	c := e.config
	bar := c.Layout.BarSize()
	fps := formatFloat(c.FPS)

	args := []string{"-hide_banner", "-nostats", "-loglevel", "warning", "-y"}

	args = append(args, "-ss", formatSeconds(c.Start))
	if c.End > 0 {
		args = append(args, "-to", formatSeconds(c.End))
	}
	args = append(args, "-i", c.Input)

	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", bar.X, bar.Y),
		"-framerate", fps,
		"-i", "pipe:0",
	)

	args = append(args,
		"-filter_complex", e.filterGraph(),
		"-map", "[out]",
		"-map", "0:a?",
		"-c:v", c.Codec,
		"-preset", c.Preset,
		"-pix_fmt", "yuv420p",
		"-r", fps,
		"-c:a", "aac",
		c.Output,
	)

	return args
}

// filterGraph scales the footage to the output frame, portrait footage is recorded in
// landscape and turned clockwise, then overlays the bar
func (e *Encoder) filterGraph() string {
	l := e.config.Layout
	footage := l.FootageSize()
	offset := l.BarOffset()

	background := []string{fmt.Sprintf("scale=%d:%d", footage.X, footage.Y)}
	if l.Orientation == hud.Portrait {
		background = append(background, "transpose=1")
	}
	background = append(background, "fps="+formatFloat(e.config.FPS))

	return fmt.Sprintf("[0:v]%s[bg];[bg][1:v]overlay=%d:%d:eof_action=endall[out]",
		strings.Join(background, ","), offset.X, offset.Y)
}

// Encode starts ffmpeg and streams the bar of every timeline frame to it
func (e *Encoder) Encode(ctx context.Context, tl *hud.Timeline) error {
	cmd := exec.CommandContext(ctx, e.config.Binary, e.Args()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("error creating stdin pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("error creating stderr pipe: %w", err)
	}

	e.logger.Debug("starting encoder", slog.String("cmd", cmd.String()))

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("error starting command: %w", err)
	}

	e.logger.Info("encoding video...", slog.Int("frames", tl.Len()))

	done := make(chan error, 2) // expects two results from two goroutines

	go e.handleFrames(ctx, tl, stdin, done)
	go e.handleStderr(stderr, done)

	var (
		errs     []error
		writeErr *frameWriteError
	)
	for i := 0; i < cap(done); i++ {
		err := <-done
		if err == nil {
			continue
		}
		// ffmpeg may end the output before the last overlay frames, judged by its exit status
		if errors.As(err, &writeErr) {
			continue
		}
		e.logger.Error(err.Error())
		errs = append(errs, err)
	}

	// pipes are drained at this point, Wait closes them
	if err = cmd.Wait(); err != nil {
		if writeErr != nil {
			e.logger.Error(writeErr.Error())
			errs = append(errs, writeErr)
		}
		errs = append(errs, fmt.Errorf("command exited with error: %w", err))
	} else if writeErr != nil {
		e.logger.Warn("encoder finished before reading all overlay frames",
			slog.Int("frame", writeErr.frame),
			slog.Int("unconsumed", writeErr.total-writeErr.frame))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	e.logger.Info("encoding finished")

	return nil
}

// handleFrames writes the raw overlay frames to stdin and closes it when done
func (e *Encoder) handleFrames(ctx context.Context, tl *hud.Timeline, stdin io.WriteCloser, done chan<- error) {
	total := tl.Len()
	want := e.config.Layout.BarSize()

	err := tl.Frames(ctx, func(n int, bar *image.RGBA) error {
		if size := bar.Bounds().Size(); size != want {
			return fmt.Errorf("frame %d: bar size %v does not match the layout %v", n, size, want)
		}
		if _, err := stdin.Write(rawPixels(bar)); err != nil {
			return &frameWriteError{frame: n, total: total, err: err}
		}
		e.progress(n+1, total)
		return nil
	})

	if cerr := stdin.Close(); cerr != nil && err == nil && !errors.Is(cerr, fs.ErrClosed) {
		err = fmt.Errorf("error closing stdin: %w", cerr)
	}

	done <- err
}

// handleStderr logs ffmpeg diagnostics
func (e *Encoder) handleStderr(stderr io.Reader, done chan<- error) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		e.logger.Warn(fmt.Sprintf("%s >> %s", FFmpeg, line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		done <- fmt.Errorf("%w: error reading stderr: %w", ErrBrokenPipe, err)
		return
	}

	done <- nil
}

// frameWriteError reports the first overlay frame the encoder did not accept
type frameWriteError struct {
	frame, total int
	err          error
}

func (e *frameWriteError) Error() string {
	return fmt.Sprintf("%s: error writing frame %d of %d: %s", ErrBrokenPipe, e.frame, e.total, e.err)
}

func (e *frameWriteError) Unwrap() []error {
	return []error{ErrBrokenPipe, e.err}
}

// rawPixels returns the tightly packed RGBA bytes of the image
func rawPixels(img *image.RGBA) []byte {
	b := img.Bounds()
	rowLen := b.Dx() * 4
	if b.Min == (image.Point{}) && img.Stride == rowLen {
		return img.Pix[:rowLen*b.Dy()]
	}

	out := make([]byte, 0, rowLen*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		out = append(out, img.Pix[i:i+rowLen]...)
	}
	return out
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

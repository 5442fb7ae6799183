package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Footage describes the first video stream of a file
type Footage struct {
	Path     string
	Size     image.Point
	FPS      float64
	Duration time.Duration
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	Duration   string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Probe reads the size, frame rate and duration of the footage with ffprobe
func Probe(ctx context.Context, ffprobe, path string) (Footage, error) {
	cmd := exec.CommandContext(ctx, ffprobe, "-v", "error", "-print_format", "json", "-show_streams", "-show_format", path)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Footage{}, fmt.Errorf("probing '%s': %w: %s", path, err, msg)
		}
		return Footage{}, fmt.Errorf("probing '%s': %w", path, err)
	}

	footage, err := parseProbe(out)
	if err != nil {
		return Footage{}, fmt.Errorf("probing '%s': %w", path, err)
	}
	footage.Path = path

	return footage, nil
}

func parseProbe(b []byte) (Footage, error) {
	var p probeOutput
	if err := json.Unmarshal(b, &p); err != nil {
		return Footage{}, fmt.Errorf("error decoding ffprobe output: %w", err)
	}

	for _, s := range p.Streams {
		if s.CodecType != "video" {
			continue
		}

		fps, err := ParseFrameRate(s.RFrameRate)
		if err != nil {
			return Footage{}, err
		}

		// stream duration is missing for some containers, fall back to the format one
		raw := s.Duration
		if raw == "" {
			raw = p.Format.Duration
		}
		duration, err := parseSeconds(raw)
		if err != nil {
			return Footage{}, fmt.Errorf("invalid duration '%s': %w", raw, err)
		}

		return Footage{
			Size:     image.Pt(s.Width, s.Height),
			FPS:      fps,
			Duration: duration,
		}, nil
	}

	return Footage{}, fmt.Errorf("no video stream found")
}

// ParseFrameRate parses a rational frame rate such as "30000/1001" or a plain number
func ParseFrameRate(s string) (float64, error) {
	num, den, rational := strings.Cut(strings.TrimSpace(s), "/")

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate '%s': %w", s, err)
	}

	d := 1.0
	if rational {
		if d, err = strconv.ParseFloat(den, 64); err != nil {
			return 0, fmt.Errorf("invalid frame rate '%s': %w", s, err)
		}
	}

	if n <= 0 || d <= 0 {
		return 0, fmt.Errorf("invalid frame rate '%s'", s)
	}

	return n / d, nil
}

func parseSeconds(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Second)), nil
}

package hud

import (
	"image"
	"time"

	"github.com/roman-kulish/ride-hud/internal/overlay"
)

// Segment is a run of consecutive frames showing the same fragment image
type Segment struct {
	Key      overlay.Key
	Image    *image.RGBA
	Start    time.Duration // Offset of the first frame from the start of the track
	Duration time.Duration
	Frames   int
}

// Track is the sequence of fragments of one metric concatenated in time.
// Consecutive fragments sharing an image are merged into one segment.
type Track struct {
	Metric   overlay.Metric
	segments []Segment
	duration time.Duration
	frames   int
}

// NewTrack creates an empty track for the metric
func NewTrack(m overlay.Metric) *Track {
	return &Track{Metric: m}
}

// Append adds a fragment after the last one
func (t *Track) Append(fr overlay.Fragment) {
	if n := len(t.segments); n > 0 && t.segments[n-1].Image == fr.Image {
		t.segments[n-1].Duration += fr.Duration
		t.segments[n-1].Frames++
	} else {
		t.segments = append(t.segments, Segment{
			Key:      fr.Key,
			Image:    fr.Image,
			Start:    t.duration,
			Duration: fr.Duration,
			Frames:   1,
		})
	}

	t.duration += fr.Duration
	t.frames++
}

// Segments returns the merged segments in time order
func (t *Track) Segments() []Segment {
	return t.segments
}

// Duration returns the total duration of the track
func (t *Track) Duration() time.Duration {
	return t.duration
}

// Frames returns the number of fragments appended
func (t *Track) Frames() int {
	return t.frames
}

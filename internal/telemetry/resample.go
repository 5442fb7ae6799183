package telemetry

import (
	"time"
)

// Cursor is the scan position threaded through successive Resample calls.
// The zero value starts at the beginning of the store.
type Cursor struct {
	LastIndex int // Index of the upper bracketing row found by the previous call
}

// Resample linearly interpolates the store at query time q, scanning forward from cursor.
//
// Queries before the first reading or after the last one are clamped to the first or
// last reading respectively. A query that lands exactly on a stored timestamp returns
// the stored values unchanged. If either bracketing value of a field is absent the
// interpolated value is absent as well.
//
// Query times are expected to be non-decreasing between calls. A query earlier than the
// cursor position falls back to a scan from the beginning, which is correct but slow.
//
// Returns *OutOfRangeError if the store is empty.
func Resample(s *Store, q time.Time, cursor Cursor) (Sample, Cursor, error) {
	n := s.Len()
	if n == 0 {
		return Sample{}, cursor, &OutOfRangeError{Query: q}
	}

	start := min(max(cursor.LastIndex, 0), n-1)

	// all rows before the scan start must be strictly earlier than q
	if start > 0 && !s.readings[start-1].Timestamp.Before(q) {
		start = 0
	}

	i2 := -1
	for i := start; i < n; i++ {
		if !s.readings[i].Timestamp.Before(q) {
			i2 = i
			break
		}
	}

	switch {
	case i2 < 0: // after the last reading
		return clampedSample(s.readings[n-1], q, n-1), Cursor{LastIndex: n - 1}, nil

	case i2 == 0: // at or before the first reading
		return clampedSample(s.readings[0], q, 0), Cursor{LastIndex: 0}, nil

	case s.readings[i2].Timestamp.Equal(q):
		return clampedSample(s.readings[i2], q, i2), Cursor{LastIndex: i2}, nil
	}

	r1, r2 := &s.readings[i2-1], &s.readings[i2]
	x := float64(q.Sub(r1.Timestamp)) / float64(r2.Timestamp.Sub(r1.Timestamp))

	sample := Sample{Index: i2}
	sample.Timestamp = q
	for _, f := range Fields {
		sample.SetValue(f, lerp(r1.Value(f), r2.Value(f), x))
	}

	return sample, Cursor{LastIndex: i2}, nil
}

func clampedSample(r Reading, q time.Time, index int) Sample {
	sample := Sample{Index: index}
	sample.Timestamp = q
	for _, f := range Fields {
		sample.SetValue(f, clone(r.Value(f)))
	}
	return sample
}

func lerp(v1, v2 *float64, x float64) *float64 {
	if v1 == nil || v2 == nil {
		return nil
	}
	v := (*v2-*v1)*x + *v1
	return &v
}

func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Resampler resamples a store at offsets from an anchor timestamp, threading the
// cursor between calls. It is meant for a single forward pass and is not safe for
// concurrent use.
type Resampler struct {
	store  *Store
	anchor time.Time
	cursor Cursor
}

// NewResampler creates a resampler. The anchor is the log timestamp matching
// offset zero of the footage.
func NewResampler(store *Store, anchor time.Time) *Resampler {
	return &Resampler{store: store, anchor: anchor}
}

// At returns the sample at the given offset from the anchor
func (r *Resampler) At(offset time.Duration) (Sample, error) {
	sample, cursor, err := Resample(r.store, r.anchor.Add(offset), r.cursor)
	if err != nil {
		return Sample{}, err
	}
	r.cursor = cursor
	return sample, nil
}

// Cursor returns the current scan position
func (r *Resampler) Cursor() Cursor {
	return r.cursor
}

// FrameOffset returns the offset of frame n at the given frame rate
func FrameOffset(n int, fps float64) time.Duration {
	return time.Duration(float64(n) / fps * float64(time.Second))
}

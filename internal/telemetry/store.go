package telemetry

import (
	"time"
)

// Store holds the full ride log ordered by timestamp. It is immutable once created.
type Store struct {
	readings []Reading
}

// NewStore validates that the readings are sorted by timestamp and returns a store
// owning a copy of them. Equal timestamps are allowed, decreasing ones are rejected.
func NewStore(readings []Reading) (*Store, error) {
	for i := 1; i < len(readings); i++ {
		if readings[i].Timestamp.Before(readings[i-1].Timestamp) {
			return nil, &OrderError{
				Index:    i,
				Previous: readings[i-1].Timestamp,
				Current:  readings[i].Timestamp,
			}
		}
	}

	rs := make([]Reading, len(readings))
	copy(rs, readings)
	return &Store{readings: rs}, nil
}

// Len returns the number of readings
func (s *Store) Len() int {
	return len(s.readings)
}

// At returns the reading at index i
func (s *Store) At(i int) Reading {
	return s.readings[i]
}

// Start returns the timestamp of the first reading, zero time if empty
func (s *Store) Start() time.Time {
	if len(s.readings) == 0 {
		return time.Time{}
	}
	return s.readings[0].Timestamp
}

// End returns the timestamp of the last reading, zero time if empty
func (s *Store) End() time.Time {
	if len(s.readings) == 0 {
		return time.Time{}
	}
	return s.readings[len(s.readings)-1].Timestamp
}

// Duration returns the time span covered by the log
func (s *Store) Duration() time.Duration {
	return s.End().Sub(s.Start())
}

// All iterates over the readings in order
func (s *Store) All(yield func(int, Reading) bool) {
	for i, r := range s.readings {
		if !yield(i, r) {
			return
		}
	}
}

// First returns the first reading, false if the store is empty
func (s *Store) First() (Reading, bool) {
	if len(s.readings) == 0 {
		return Reading{}, false
	}
	return s.readings[0], true
}

// Last returns the last reading, false if the store is empty
func (s *Store) Last() (Reading, bool) {
	if len(s.readings) == 0 {
		return Reading{}, false
	}
	return s.readings[len(s.readings)-1], true
}

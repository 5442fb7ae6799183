package telemetry

import (
	"fmt"
	"time"
)

// OutOfRangeError is returned when there is no telemetry to resample at a query time
type OutOfRangeError struct {
	Query time.Time
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("telemetry: no readings to resample at %s: store is empty", e.Query.Format(time.RFC3339Nano))
}

// OrderError is returned when log rows are not sorted by timestamp
type OrderError struct {
	Index    int
	Previous time.Time
	Current  time.Time
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("telemetry: reading %d at %s precedes the previous one at %s",
		e.Index, e.Current.Format(time.RFC3339Nano), e.Previous.Format(time.RFC3339Nano))
}

// RowError is returned when a log row cannot be loaded
type RowError struct {
	File   string
	Row    int // 1-based data row number, header excluded
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("telemetry: %s: row %d: column %s: %s", e.File, e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

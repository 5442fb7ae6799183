package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/ride-hud/internal/telemetry"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rbErr := rb.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone && *err == nil {
		*err = rbErr
	}
}

func toNullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromNullFloat64(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func fromNullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}

func toReadingData(r telemetry.Reading) readingData {
	return readingData{
		Timestamp: r.Timestamp.UTC(),
		Speed:     toNullFloat64(r.Speed),
		Battery:   toNullFloat64(r.Battery),
		Roll:      toNullFloat64(r.Roll),
		Pitch:     toNullFloat64(r.Pitch),
		MotorTemp: toNullFloat64(r.MotorTemp),
		Distance:  toNullFloat64(r.Distance),
	}
}

func (d readingData) reading() telemetry.Reading {
	return telemetry.Reading{
		Timestamp: d.Timestamp.UTC(),
		Speed:     fromNullFloat64(d.Speed),
		Battery:   fromNullFloat64(d.Battery),
		Roll:      fromNullFloat64(d.Roll),
		Pitch:     fromNullFloat64(d.Pitch),
		MotorTemp: fromNullFloat64(d.MotorTemp),
		Distance:  fromNullFloat64(d.Distance),
	}
}

func (d rideData) ride() (*Ride, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing ride ID '%s': %w", d.ID, err)
	}

	return &Ride{
		ID:         id,
		Name:       d.Name,
		Source:     d.Source,
		Unit:       d.Unit,
		ImportedAt: d.ImportedAt.UTC(),
		Start:      fromNullTime(d.Start),
		End:        fromNullTime(d.End),
		Rows:       d.Rows,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRide(sc scanner) (*Ride, error) {
	var d rideData
	if err := sc.Scan(&d.ID, &d.Name, &d.Source, &d.Unit, &d.ImportedAt, &d.Start, &d.End, &d.Rows); err != nil {
		return nil, err
	}
	return d.ride()
}

// Package storage keeps imported ride logs in a SQLite database
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/ride-hud/internal/telemetry"
)

// DefaultMaxBatchSize is the number of readings inserted per statement. Each row binds
// 9 parameters, which keeps statements well below the SQLite variable limit.
const DefaultMaxBatchSize = 1000

// ErrRideNotFound is returned when a ride ID does not exist in the database
var ErrRideNotFound = errors.New("ride not found")

// WithMaxBatchSize sets the number of readings inserted per statement
func WithMaxBatchSize(size int) func(s *SqliteStore) {
	return func(s *SqliteStore) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath       string
	maxBatchSize int

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error

	now func() time.Time
}

// NewSqliteStore creates a store backed by the database file at dbPath. Connections
// are opened lazily, the schema is created with the first write.
func NewSqliteStore(dbPath string, options ...func(s *SqliteStore)) *SqliteStore {
	s := SqliteStore{
		dbPath:       dbPath,
		maxBatchSize: DefaultMaxBatchSize,
		now:          time.Now,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		// read-only connections cannot create the file and schema of a new database
		if _, err := s.getWriteDB(); err != nil {
			s.readDBErr = err
			return
		}

		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateRide registers a new ride and returns its ID
func (s *SqliteStore) CreateRide(ctx context.Context, name, source, unit string) (rideID uuid.UUID, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertRideSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	id := uuid.New()
	if _, err = stmt.ExecContext(ctx, id.String(), name, source, unit, s.now().UTC()); err != nil {
		err = fmt.Errorf("inserting ride: %w", err)
		return
	}

	return id, nil
}

// StoreReadings replaces the readings of a ride with the contents of the store and
// records the time range it covers. All rows are written in one transaction.
func (s *SqliteStore) StoreReadings(ctx context.Context, rideID uuid.UUID, store *telemetry.Store) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	var start, end sql.NullTime
	if store.Len() > 0 {
		start = sql.NullTime{Time: store.Start().UTC(), Valid: true}
		end = sql.NullTime{Time: store.End().UTC(), Valid: true}
	}

	result, err := tx.ExecContext(ctx, updateRideRangeSQL, start, end, store.Len(), rideID.String())
	if err != nil {
		return fmt.Errorf("updating ride: %w", err)
	}
	if n, rErr := result.RowsAffected(); rErr == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRideNotFound, rideID)
	}

	if _, err = tx.ExecContext(ctx, deleteReadingsSQL, rideID.String()); err != nil {
		return fmt.Errorf("deleting previous readings: %w", err)
	}

	batch := make([]telemetry.Reading, 0, s.maxBatchSize)
	seq := 0
	for _, r := range store.All {
		batch = append(batch, r)
		if len(batch) == s.maxBatchSize {
			if err = insertReadings(ctx, tx, rideID, seq, batch); err != nil {
				return err
			}
			seq += len(batch)
			batch = batch[:0]
		}
	}
	if err = insertReadings(ctx, tx, rideID, seq, batch); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func insertReadings(ctx context.Context, tx *sql.Tx, rideID uuid.UUID, seq int, readings []telemetry.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	values := make([]any, 0, len(readings)*9)
	valuesPlaceholder := "(?, ?, ?, ?, ?, ?, ?, ?, ?)"

	var sb strings.Builder
	sb.WriteString(insertReadingSQL)

	for i, r := range readings {
		data := toReadingData(r)
		values = append(values,
			rideID.String(),
			seq+i,
			data.Timestamp,
			data.Speed,
			data.Battery,
			data.Roll,
			data.Pitch,
			data.MotorTemp,
			data.Distance,
		)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valuesPlaceholder)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting readings: %w", err)
	}
	return nil
}

// ImportRide creates a ride and stores its readings in one call
func (s *SqliteStore) ImportRide(ctx context.Context, name, source, unit string, store *telemetry.Store) (*Ride, error) {
	id, err := s.CreateRide(ctx, name, source, unit)
	if err != nil {
		return nil, err
	}

	if err = s.StoreReadings(ctx, id, store); err != nil {
		if dErr := s.DeleteRide(ctx, id); dErr != nil {
			err = errors.Join(err, dErr)
		}
		return nil, err
	}

	return s.Ride(ctx, id)
}

// DeleteRide removes a ride with its readings
func (s *SqliteStore) DeleteRide(ctx context.Context, rideID uuid.UUID) error {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	result, err := db.ExecContext(ctx, deleteRideSQL, rideID.String())
	if err != nil {
		return fmt.Errorf("deleting ride: %w", err)
	}
	if n, rErr := result.RowsAffected(); rErr == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRideNotFound, rideID)
	}
	return nil
}

// Ride returns a single ride, ErrRideNotFound if it does not exist
func (s *SqliteStore) Ride(ctx context.Context, rideID uuid.UUID) (ride *Ride, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectRideSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	ride, err = scanRide(stmt.QueryRowContext(ctx, rideID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRideNotFound, rideID)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning ride: %w", err)
	}
	return ride, nil
}

// Rides lists all rides ordered by import time
func (s *SqliteStore) Rides(ctx context.Context) (rides []*Ride, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectRidesSQL)
	if err != nil {
		err = fmt.Errorf("querying rides: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var ride *Ride
		if ride, err = scanRide(rows); err != nil {
			err = fmt.Errorf("scanning ride: %w", err)
			return
		}
		rides = append(rides, ride)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating rides: %w", err)
	}
	return
}

// LoadReadings reads the readings of a ride back into a telemetry store
func (s *SqliteStore) LoadReadings(ctx context.Context, rideID uuid.UUID) (store *telemetry.Store, err error) {
	ride, err := s.Ride(ctx, rideID)
	if err != nil {
		return nil, err
	}

	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectReadingsSQL, rideID.String())
	if err != nil {
		err = fmt.Errorf("querying readings: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	readings := make([]telemetry.Reading, 0, ride.Rows)
	for rows.Next() {
		var d readingData
		if err = rows.Scan(&d.Timestamp, &d.Speed, &d.Battery, &d.Roll, &d.Pitch, &d.MotorTemp, &d.Distance); err != nil {
			err = fmt.Errorf("scanning reading: %w", err)
			return
		}
		readings = append(readings, d.reading())
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating readings: %w", err)
		return
	}

	if store, err = telemetry.NewStore(readings); err != nil {
		err = fmt.Errorf("ride %s: %w", rideID, err)
	}
	return
}

// Source returns a telemetry source reading the ride from this store
func (s *SqliteStore) Source(rideID uuid.UUID) telemetry.Source {
	return telemetry.SourceFunc(func(ctx context.Context) (*telemetry.Store, error) {
		return s.LoadReadings(ctx, rideID)
	})
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}

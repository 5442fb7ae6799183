package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Ride describes an imported ride log
type Ride struct {
	ID         uuid.UUID
	Name       string
	Source     string // Path of the imported log file
	Unit       string // Unit code the log was converted with
	ImportedAt time.Time
	Start      *time.Time
	End        *time.Time
	Rows       int
}

type rideData struct {
	ID         string
	Name       string
	Source     string
	Unit       string
	ImportedAt time.Time
	Start      sql.NullTime
	End        sql.NullTime
	Rows       int
}

type readingData struct {
	Timestamp time.Time
	Speed     sql.NullFloat64
	Battery   sql.NullFloat64
	Roll      sql.NullFloat64
	Pitch     sql.NullFloat64
	MotorTemp sql.NullFloat64
	Distance  sql.NullFloat64
}

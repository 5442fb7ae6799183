package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS rides (
    id          TEXT PRIMARY KEY,
    name        TEXT      NOT NULL,
    source      TEXT      NOT NULL,
    unit        TEXT      NOT NULL,
    imported_at TIMESTAMP NOT NULL,
    start_time  TIMESTAMP,
    end_time    TIMESTAMP,
    row_count   INTEGER   NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS readings (
    ride_id    TEXT      NOT NULL REFERENCES rides (id) ON DELETE CASCADE,
    seq        INTEGER   NOT NULL,
    timestamp  TIMESTAMP NOT NULL,
    speed      REAL,
    battery    REAL,
    roll       REAL,
    pitch      REAL,
    motor_temp REAL,
    distance   REAL,
    PRIMARY KEY (ride_id, seq)
);`

	insertRideSQL = `
INSERT INTO rides (id,
                   name,
                   source,
                   unit,
                   imported_at)
VALUES (?, ?, ?, ?, ?)`

	updateRideRangeSQL = `
UPDATE rides
SET start_time = ?,
    end_time   = ?,
    row_count  = ?
WHERE id = ?`

	selectRideSQL = `
SELECT
    id,
    name,
    source,
    unit,
    imported_at,
    start_time,
    end_time,
    row_count
FROM rides
WHERE
    id = ?`

	selectRidesSQL = `
SELECT
    id,
    name,
    source,
    unit,
    imported_at,
    start_time,
    end_time,
    row_count
FROM rides
ORDER BY imported_at`

	deleteRideSQL = `DELETE FROM rides WHERE id = ?`

	deleteReadingsSQL = `DELETE FROM readings WHERE ride_id = ?`

	insertReadingSQL = `
INSERT INTO readings (ride_id,
                      seq,
                      timestamp,
                      speed,
                      battery,
                      roll,
                      pitch,
                      motor_temp,
                      distance)
VALUES `

	selectReadingsSQL = `
SELECT
    timestamp,
    speed,
    battery,
    roll,
    pitch,
    motor_temp,
    distance
FROM readings
WHERE
    ride_id = ?
ORDER BY seq`
)

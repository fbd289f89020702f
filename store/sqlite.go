/*
 * HomeMetrics - Copyright (C) 2024 Nicolas Franchet.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/nfranchet/homemetrics/extract"
)

const timeLayout = time.RFC3339

const schema = `
CREATE TABLE IF NOT EXISTS sensors (
	sensor_id  TEXT PRIMARY KEY,
	location   TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sensor_readings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	sensor_id   TEXT NOT NULL REFERENCES sensors(sensor_id),
	timestamp   TEXT NOT NULL,
	temperature REAL NOT NULL,
	humidity    REAL,
	UNIQUE (sensor_id, timestamp)
);

CREATE TABLE IF NOT EXISTS pool_readings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp   TEXT NOT NULL,
	temperature REAL,
	ph          REAL,
	orp         INTEGER,
	message_id  TEXT NOT NULL,
	UNIQUE (timestamp, message_id)
);

CREATE INDEX IF NOT EXISTS idx_sensor_readings_sensor_time
	ON sensor_readings (sensor_id, timestamp DESC);
`

type sqliteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the schema. Pass ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	// The sqlite driver is single-writer; one connection keeps
	// transactions from tripping over each other.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	log.WithField("path", path).Debug("store_opened")
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) SaveSensorReadings(ctx context.Context, readings []extract.SensorReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for i := range readings {
		r := &readings[i]

		if err := ensureSensor(ctx, tx, r.SensorID, r.Location); err != nil {
			return 0, err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO sensor_readings (sensor_id, timestamp, temperature, humidity)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (sensor_id, timestamp) DO NOTHING`,
			r.SensorID, r.Timestamp.UTC().Format(timeLayout), r.Temperature, r.Humidity)
		if err != nil {
			return 0, fmt.Errorf("inserting reading for %s: %w", r.SensorID, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"total":    len(readings),
		"inserted": inserted,
	}).Debug("store_sensor_readings_saved")
	return inserted, nil
}

func ensureSensor(ctx context.Context, tx *sqlx.Tx, sensorID string, location *string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sensors (sensor_id, location, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (sensor_id) DO UPDATE SET
			location = COALESCE(excluded.location, sensors.location)`,
		sensorID, location, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upserting sensor %s: %w", sensorID, err)
	}
	return nil
}

func (s *sqliteStore) SavePoolReading(ctx context.Context, reading *extract.PoolReading) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pool_readings (timestamp, temperature, ph, orp, message_id)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (timestamp, message_id) DO NOTHING`,
		reading.Timestamp.UTC().Format(timeLayout),
		reading.Temperature, reading.PH, reading.ORP, reading.MessageID)
	if err != nil {
		return fmt.Errorf("inserting pool reading: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		log.WithField("message_id", reading.MessageID).Debug("store_pool_reading_duplicate")
	}
	return nil
}

type sensorReadingRow struct {
	SensorID    string   `db:"sensor_id"`
	Timestamp   string   `db:"timestamp"`
	Temperature float64  `db:"temperature"`
	Humidity    *float64 `db:"humidity"`
	Location    *string  `db:"location"`
}

func (s *sqliteStore) LatestSensorReadings(ctx context.Context, sensorID string, limit int) ([]extract.SensorReading, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT r.sensor_id, r.timestamp, r.temperature, r.humidity, s.location
		  FROM sensor_readings r
		  JOIN sensors s ON s.sensor_id = r.sensor_id`
	args := []interface{}{}

	if sensorID != "" {
		query += ` WHERE r.sensor_id = ?`
		args = append(args, sensorID)
	}

	query += ` ORDER BY r.timestamp DESC LIMIT ?`
	args = append(args, limit)

	var rows []sensorReadingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}

	readings := make([]extract.SensorReading, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(timeLayout, row.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("corrupt timestamp %q for %s: %w", row.Timestamp, row.SensorID, err)
		}

		readings = append(readings, extract.SensorReading{
			SensorID:    row.SensorID,
			Timestamp:   ts,
			Temperature: row.Temperature,
			Humidity:    row.Humidity,
			Location:    row.Location,
		})
	}
	return readings, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

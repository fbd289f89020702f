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

// Package store persists extracted readings. Writes are idempotent: a
// reading that already exists under its natural key is silently dropped, so
// reprocessing a message never duplicates data.
package store

import (
	"context"

	"github.com/nfranchet/homemetrics/extract"
)

type Store interface {
	// SaveSensorReadings stores a batch and reports how many rows were
	// actually new.
	SaveSensorReadings(ctx context.Context, readings []extract.SensorReading) (int, error)

	SavePoolReading(ctx context.Context, reading *extract.PoolReading) error

	// LatestSensorReadings returns up to limit readings for a sensor,
	// newest first. An empty sensorID means all sensors.
	LatestSensorReadings(ctx context.Context, sensorID string, limit int) ([]extract.SensorReading, error)

	Close() error
}

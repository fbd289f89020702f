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

// Package extract turns raw attachment bytes and email body text into typed
// sensor readings. Everything in here is side-effect free; callers decide
// what to do with the results and the errors.
package extract

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported attachment format")
	ErrNoData              = errors.New("no readings found")
	ErrNoMetricsFound      = errors.New("no pool metrics found")
	ErrMalformedValue      = errors.New("malformed value")
	ErrAmbiguousSensorName = errors.New("ambiguous sensor name")
)

// SensorReading is one temperature/humidity measurement from an X-Sense
// export. Humidity and Location are nullable in the store.
type SensorReading struct {
	SensorID    string
	Timestamp   time.Time
	Temperature float64
	Humidity    *float64
	Location    *string
}

// PoolReading is one Blue Riot pool chemistry report. The timestamp comes
// from the email's Date header, never from the body. Any of the three
// metrics may be absent; a reading with none is rejected at extraction.
type PoolReading struct {
	Timestamp   time.Time
	Temperature *float64
	PH          *float64
	ORP         *int
	MessageID   string
}

// IsDataFile reports whether an attachment filename looks like something
// worth feeding to the extractor.
func IsDataFile(filename string) bool {
	name := strings.ToLower(filename)
	for _, ext := range []string{".csv", ".json", ".txt", ".xml", ".xls", ".xlsx"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

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

package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// "Thermo-cabane_Exporter les données_20251104.csv" -> "cabane"
	thermoPattern = regexp.MustCompile(`Thermo-([^_]+)_`)

	// "Bureau_Exporter les données_20251031.csv" -> "Bureau"
	// "Kitchen_Export data_20251103.csv"         -> "Kitchen"
	// The export tool localizes the second token; only these two variants
	// have ever been observed.
	exportPattern = regexp.MustCompile(`^([^_]+)_(?:Exporter|Export)\b`)

	textLinePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2})\s+(\w+)\s+(-?\d+\.?\d*)`)
)

// xsenseTimeLayout is the timestamp format inside X-Sense CSV exports,
// e.g. "2023/12/26 23:59".
const xsenseTimeLayout = "2006/01/02 15:04"

// SensorName derives the sensor identifier from an attachment filename.
// A filename matching neither convention is an error rather than a guess;
// a guessed name would pollute the store's aggregation keys forever.
func SensorName(filename string) (string, error) {
	if m := thermoPattern.FindStringSubmatch(filename); m != nil {
		return m[1], nil
	}
	if m := exportPattern.FindStringSubmatch(filename); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrAmbiguousSensorName, filename)
}

// SensorReadings extracts temperature readings from a single attachment.
// The content kind is dispatched on the filename extension: CSV exports
// carry the sensor identity in the filename, JSON and plain-text payloads
// carry it per record.
func SensorReadings(filename string, content []byte) ([]SensorReading, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".csv"):
		sensor, err := SensorName(filename)
		if err != nil {
			return nil, err
		}
		return sensorReadingsFromCSV(content, sensor)
	case strings.HasSuffix(name, ".json"):
		return sensorReadingsFromJSON(content)
	case strings.HasSuffix(name, ".txt"):
		return sensorReadingsFromText(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

func sensorReadingsFromCSV(content []byte, sensor string) ([]SensorReading, error) {
	rdr := csv.NewReader(bytes.NewReader(content))
	rdr.FieldsPerRecord = -1
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable csv header: %v", ErrMalformedValue, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: csv has %d columns, expected at least 2", ErrMalformedValue, len(header))
	}

	var readings []SensorReading
	for {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Tolerate ragged rows; count only the well-formed ones.
			continue
		}
		if len(record) < 2 {
			continue
		}

		ts, err := time.Parse(xsenseTimeLayout, strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}

		temp, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			continue
		}

		reading := SensorReading{
			SensorID:    sensor,
			Timestamp:   ts.UTC(),
			Temperature: temp,
			Location:    strptr(sensor),
		}
		if len(record) >= 3 {
			if hum, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64); err == nil {
				reading.Humidity = &hum
			}
		}
		readings = append(readings, reading)
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: csv for sensor %q", ErrNoData, sensor)
	}
	return readings, nil
}

func sensorReadingsFromJSON(content []byte) ([]SensorReading, error) {
	var root interface{}
	if err := json.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrMalformedValue, err)
	}

	var items []interface{}
	switch v := root.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		for _, key := range []string{"data", "readings"} {
			if arr, ok := v[key].([]interface{}); ok {
				items = arr
				break
			}
		}
	}

	var readings []SensorReading
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if reading, ok := sensorReadingFromObject(obj); ok {
			readings = append(readings, reading)
		}
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: json payload", ErrNoData)
	}
	return readings, nil
}

func sensorReadingFromObject(obj map[string]interface{}) (SensorReading, bool) {
	tsStr, ok := stringField(obj, "timestamp", "time", "date")
	if !ok {
		return SensorReading{}, false
	}
	ts, err := ParseTimestamp(tsStr)
	if err != nil {
		return SensorReading{}, false
	}

	temp, ok := floatField(obj, "temperature", "temp")
	if !ok {
		return SensorReading{}, false
	}

	sensor, ok := stringField(obj, "sensor_id", "sensor", "device_id")
	if !ok {
		sensor = "unknown"
	}

	reading := SensorReading{
		SensorID:    sensor,
		Timestamp:   ts,
		Temperature: temp,
	}
	if hum, ok := floatField(obj, "humidity", "hum"); ok {
		reading.Humidity = &hum
	}
	if loc, ok := stringField(obj, "location", "room"); ok {
		reading.Location = &loc
	}
	return reading, true
}

func sensorReadingsFromText(content []byte) ([]SensorReading, error) {
	var readings []SensorReading
	for _, line := range strings.Split(string(content), "\n") {
		m := textLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, err := ParseTimestamp(m[1])
		if err != nil {
			continue
		}
		temp, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		readings = append(readings, SensorReading{
			SensorID:    m[2],
			Timestamp:   ts,
			Temperature: temp,
		})
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: text payload", ErrNoData)
	}
	return readings, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
}

// ParseTimestamp tries the timestamp layouts seen across export formats.
// Layouts without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unsupported timestamp %q", ErrMalformedValue, s)
}

func stringField(obj map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			return s, true
		}
	}
	return "", false
}

func floatField(obj map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		if f, ok := obj[key].(float64); ok {
			return f, true
		}
	}
	return 0, false
}

func strptr(s string) *string {
	return &s
}

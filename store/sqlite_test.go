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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nfranchet/homemetrics/extract"
)

func newTestStore(t *testing.T) Store {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }

func testReadings() []extract.SensorReading {
	return []extract.SensorReading{
		{
			SensorID:    "cabane",
			Timestamp:   time.Date(2023, 12, 26, 23, 59, 0, 0, time.UTC),
			Temperature: 19.3,
			Humidity:    floatPtr(52.0),
			Location:    strPtr("cabane"),
		},
		{
			SensorID:    "cabane",
			Timestamp:   time.Date(2023, 12, 27, 0, 59, 0, 0, time.UTC),
			Temperature: 18.9,
			Humidity:    floatPtr(53.5),
			Location:    strPtr("cabane"),
		},
	}
}

func TestSaveSensorReadings(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	n, err := st.SaveSensorReadings(ctx, testReadings())
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSaveSensorReadingsDedup(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	n, err := st.SaveSensorReadings(ctx, testReadings())
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	// Reprocessing the same export must be a no-op, not an error.
	n, err = st.SaveSensorReadings(ctx, testReadings())
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	readings, err := st.LatestSensorReadings(ctx, "cabane", 10)
	assert.NoError(t, err)
	assert.Len(t, readings, 2)
}

func TestSaveSensorReadingsEmpty(t *testing.T) {
	st := newTestStore(t)

	n, err := st.SaveSensorReadings(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLatestSensorReadings(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	readings := append(testReadings(), extract.SensorReading{
		SensorID:    "Bureau",
		Timestamp:   time.Date(2023, 12, 27, 8, 0, 0, 0, time.UTC),
		Temperature: 21.0,
	})

	_, err := st.SaveSensorReadings(ctx, readings)
	assert.NoError(t, err)

	got, err := st.LatestSensorReadings(ctx, "cabane", 1)
	assert.NoError(t, err)
	if !assert.Len(t, got, 1) {
		t.FailNow()
	}

	// Newest first.
	assert.Equal(t, "cabane", got[0].SensorID)
	assert.Equal(t, time.Date(2023, 12, 27, 0, 59, 0, 0, time.UTC), got[0].Timestamp)
	assert.Equal(t, 18.9, got[0].Temperature)
	if assert.NotNil(t, got[0].Location) {
		assert.Equal(t, "cabane", *got[0].Location)
	}

	all, err := st.LatestSensorReadings(ctx, "", 10)
	assert.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSavePoolReading(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	reading := &extract.PoolReading{
		Timestamp:   time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC),
		Temperature: floatPtr(24.5),
		PH:          floatPtr(7.2),
		ORP:         intPtr(710),
		MessageID:   "msg-1",
	}

	assert.NoError(t, st.SavePoolReading(ctx, reading))

	// The same message again dedups silently.
	assert.NoError(t, st.SavePoolReading(ctx, reading))
}

func TestSavePoolReadingPartial(t *testing.T) {
	st := newTestStore(t)

	reading := &extract.PoolReading{
		Timestamp: time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC),
		PH:        floatPtr(7.2),
		MessageID: "msg-2",
	}

	assert.NoError(t, st.SavePoolReading(context.Background(), reading))
}

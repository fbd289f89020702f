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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var poolDate = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

func TestPoolMetricsFullReport(t *testing.T) {
	text := "Votre piscine\nTempérature: 24,5 °C\npH: 7.2\nORP: 710 mV\n"

	r, err := PoolMetrics(text, poolDate, "msg-1")
	assert.NoError(t, err)

	if assert.NotNil(t, r.Temperature) {
		assert.Equal(t, 24.5, *r.Temperature)
	}
	if assert.NotNil(t, r.PH) {
		assert.Equal(t, 7.2, *r.PH)
	}
	if assert.NotNil(t, r.ORP) {
		assert.Equal(t, 710, *r.ORP)
	}
	assert.Equal(t, poolDate, r.Timestamp)
	assert.Equal(t, "msg-1", r.MessageID)
}

func TestPoolMetricsPartialReport(t *testing.T) {
	// A single metric is a valid reading.
	r, err := PoolMetrics("pH : 7.2", poolDate, "msg-2")
	assert.NoError(t, err)

	assert.Nil(t, r.Temperature)
	assert.Nil(t, r.ORP)
	if assert.NotNil(t, r.PH) {
		assert.Equal(t, 7.2, *r.PH)
	}
}

func TestPoolMetricsNoMetrics(t *testing.T) {
	_, err := PoolMetrics("Your weekly newsletter", poolDate, "msg-3")
	assert.ErrorIs(t, err, ErrNoMetricsFound)
}

func TestPoolMetricsDecimalComma(t *testing.T) {
	r, err := PoolMetrics("Temp: 26,1", poolDate, "msg-4")
	assert.NoError(t, err)
	if assert.NotNil(t, r.Temperature) {
		assert.Equal(t, 26.1, *r.Temperature)
	}
}

func TestPoolMetricsImplausibleValuesIgnored(t *testing.T) {
	// ORP beyond 1000 mV is noise, not a reading. The in-range pH keeps
	// the reading itself valid.
	r, err := PoolMetrics("pH: 7.1\nORP: 9999 mV", poolDate, "msg-5")
	assert.NoError(t, err)
	assert.Nil(t, r.ORP)
	assert.NotNil(t, r.PH)

	_, err = PoolMetrics("ORP: 9999 mV", poolDate, "msg-6")
	assert.ErrorIs(t, err, ErrNoMetricsFound)
}

func TestPoolMetricsAlternatePhrasings(t *testing.T) {
	r, err := PoolMetrics("redox: 655 mV et 23,0 °C", poolDate, "msg-7")
	assert.NoError(t, err)
	if assert.NotNil(t, r.ORP) {
		assert.Equal(t, 655, *r.ORP)
	}
	if assert.NotNil(t, r.Temperature) {
		assert.Equal(t, 23.0, *r.Temperature)
	}
}

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

package stream

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nfranchet/homemetrics/extract"
	"github.com/nfranchet/homemetrics/mailbox"
	"github.com/nfranchet/homemetrics/store"
)

// sensorHandler extracts temperature and humidity readings from the data
// file attachments of sensor export emails.
type sensorHandler struct{}

func NewSensorHandler() Handler {
	return sensorHandler{}
}

func (sensorHandler) Extract(env *mailbox.Envelope) (Records, error) {
	attachments, err := env.Attachments()
	if err != nil {
		return nil, fmt.Errorf("reading attachments of %s: %w", env.ID, err)
	}

	var readings []extract.SensorReading
	var firstErr error

	for _, att := range attachments {
		if !extract.IsDataFile(att.Filename) {
			continue
		}

		rs, err := extract.SensorReadings(att.Filename, att.Content)
		if err != nil {
			if firstErr == nil && !isNoData(err) {
				firstErr = fmt.Errorf("attachment %s: %w", att.Filename, err)
			}
			log.WithError(err).WithFields(log.Fields{
				"message_id": env.ID,
				"filename":   att.Filename,
			}).Debug("sensor_attachment_skipped")
			continue
		}

		readings = append(readings, rs...)
	}

	if len(readings) == 0 {
		// A hard error on one attachment outranks "no data anywhere"
		// but only when nothing else was extractable.
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, extract.ErrNoData
	}

	return sensorRecords(readings), nil
}

func isNoData(err error) bool {
	return errors.Is(err, extract.ErrNoData) || errors.Is(err, extract.ErrUnsupportedFormat)
}

type sensorRecords []extract.SensorReading

func (r sensorRecords) Len() int {
	return len(r)
}

func (r sensorRecords) Save(ctx context.Context, st store.Store) (int, error) {
	return st.SaveSensorReadings(ctx, r)
}

func (r sensorRecords) Summary() string {
	// Sensor exports arrive daily and are not alert-worthy.
	return ""
}

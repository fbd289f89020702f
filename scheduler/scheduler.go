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

// Package scheduler runs ingestion streams, either once on demand or on a
// daily wall-clock schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nfranchet/homemetrics/stream"
)

// ErrInvalidSchedule is returned when a schedule entry isn't a valid HH:MM
// wall-clock time.
var ErrInvalidSchedule = errors.New("invalid schedule time")

// Stream is a runnable ingestion stream. *stream.Processor implements it.
type Stream interface {
	Name() string
	ProcessBatch(ctx context.Context, limit int, dryRun bool) (*stream.Report, error)
}

// ParseTimes validates a list of HH:MM entries and returns them normalized.
func ParseTimes(times []string) ([]string, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no times given", ErrInvalidSchedule)
	}

	parsed := make([]string, 0, len(times))
	for _, s := range times {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, s)
		}
		parsed = append(parsed, t.Format("15:04"))
	}
	return parsed, nil
}

// RunOnce processes every stream concurrently and returns one report per
// stream, in stream order. A stream that errors before producing a report
// yields a report with BatchErr set.
func RunOnce(ctx context.Context, streams []Stream, limit int, dryRun bool) []*stream.Report {
	reports := make([]*stream.Report, len(streams))

	var wg sync.WaitGroup
	for i, s := range streams {
		wg.Add(1)
		go func(i int, s Stream) {
			defer wg.Done()

			report, err := s.ProcessBatch(ctx, limit, dryRun)
			if err != nil {
				log.WithError(err).WithField("stream", s.Name()).Error("scheduler_stream_error")
				if report == nil {
					report = &stream.Report{Stream: s.Name(), DryRun: dryRun}
				}
				report.BatchErr = err.Error()
			}

			reports[i] = report
		}(i, s)
	}
	wg.Wait()

	return reports
}

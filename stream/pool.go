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
	"fmt"

	"github.com/nfranchet/homemetrics/extract"
	"github.com/nfranchet/homemetrics/mailbox"
	"github.com/nfranchet/homemetrics/notify"
	"github.com/nfranchet/homemetrics/store"
)

// poolHandler extracts water chemistry metrics from the body text of pool
// monitor report emails.
type poolHandler struct{}

func NewPoolHandler() Handler {
	return poolHandler{}
}

func (poolHandler) Extract(env *mailbox.Envelope) (Records, error) {
	text, err := env.BodyText()
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", env.ID, err)
	}

	reading, err := extract.PoolMetrics(text, env.Date, env.ID)
	if err != nil {
		return nil, err
	}

	return poolRecords{reading: reading}, nil
}

type poolRecords struct {
	reading *extract.PoolReading
}

func (r poolRecords) Len() int {
	return 1
}

func (r poolRecords) Save(ctx context.Context, st store.Store) (int, error) {
	if err := st.SavePoolReading(ctx, r.reading); err != nil {
		return 0, err
	}
	return 1, nil
}

func (r poolRecords) Summary() string {
	return notify.PoolSummary(r.reading)
}

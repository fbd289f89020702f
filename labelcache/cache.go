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

// Package labelcache maps label names to provider ids without hitting the
// provider on every lookup.
package labelcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/nfranchet/homemetrics/mailbox"
)

// ErrUnknownLabel is returned by Resolve when the provider has no label with
// the requested name, even after a refresh.
var ErrUnknownLabel = errors.New("unknown label")

type Cache struct {
	client mailbox.Client

	mtx    sync.RWMutex
	byName map[string]string
	gen    uint64

	// refreshMtx serializes provider listings so a burst of misses costs a
	// single round-trip.
	refreshMtx sync.Mutex
}

func New(client mailbox.Client) *Cache {
	return &Cache{
		client: client,
		byName: map[string]string{},
	}
}

// Refresh replaces the cached mapping with a fresh listing. Concurrent
// callers coalesce: whoever arrives while a listing is in flight waits for
// it and reuses its result instead of issuing another.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mtx.RLock()
	startGen := c.gen
	c.mtx.RUnlock()

	c.refreshMtx.Lock()
	defer c.refreshMtx.Unlock()

	c.mtx.RLock()
	cur := c.gen
	c.mtx.RUnlock()
	if cur != startGen {
		// Somebody else refreshed while we waited for the lock.
		return nil
	}

	labels, err := c.client.ListLabels(ctx)
	if err != nil {
		return fmt.Errorf("listing labels: %w", err)
	}

	byName := make(map[string]string, len(labels))
	for _, l := range labels {
		byName[l.Name] = l.ID
	}

	c.mtx.Lock()
	c.byName = byName
	c.gen++
	c.mtx.Unlock()

	log.WithField("count", len(byName)).Debug("labelcache_refreshed")
	return nil
}

// Resolve returns the provider id for a label name. A miss triggers one
// refresh before giving up; labels created since the last listing are
// picked up this way.
func (c *Cache) Resolve(ctx context.Context, name string) (string, error) {
	c.mtx.RLock()
	id, ok := c.byName[name]
	c.mtx.RUnlock()
	if ok {
		return id, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return "", err
	}

	c.mtx.RLock()
	id, ok = c.byName[name]
	c.mtx.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownLabel, name)
	}
	return id, nil
}

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

// Package session keeps a long-lived mailbox session healthy between
// batches by probing it on a timer. Probing exercises the credential early
// so an expired grant surfaces as a log line instead of a midnight batch
// failure.
package session

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nfranchet/homemetrics/mailbox"
)

const (
	// DefaultInterval keeps comfortably ahead of the one-hour OAuth2
	// access token lifetime.
	DefaultInterval = 45 * time.Minute

	// MaxInterval is the longest probe gap that still leaves headroom
	// before token expiry. Configured intervals beyond it fall back to
	// the default.
	MaxInterval = 55 * time.Minute

	probeTimeout = 1 * time.Minute
)

type Config struct {
	Client   mailbox.Client
	Interval time.Duration
}

type Coordinator struct {
	client   mailbox.Client
	interval time.Duration

	wantQuit chan struct{}
	hasQuit  chan struct{}
}

// NewCoordinator validates the interval and starts the probe loop.
func NewCoordinator(cfg *Config) *Coordinator {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	} else if interval > MaxInterval {
		log.WithFields(log.Fields{
			"interval": interval,
			"max":      MaxInterval,
		}).Warn("session_interval_too_long")
		interval = DefaultInterval
	}

	c := &Coordinator{
		client:   cfg.Client,
		interval: interval,

		wantQuit: make(chan struct{}, 1),
		hasQuit:  make(chan struct{}, 1),
	}

	go c.run()
	return c
}

func (c *Coordinator) Interval() time.Duration {
	return c.interval
}

func (c *Coordinator) run() {
	defer close(c.hasQuit)

	log.WithField("interval", c.interval).Info("session_coordinator_start")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.wantQuit:
			log.Info("session_coordinator_stop")
			return
		case <-ticker.C:
			c.probe()
		}
	}
}

func (c *Coordinator) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := c.client.Probe(ctx); err != nil {
		// Not fatal; the next batch retries with a fresh token anyway.
		log.WithError(err).Warn("session_probe_failed")
		return
	}

	log.Debug("session_probe_ok")
}

// Close stops the probe loop and waits for it to exit.
func (c *Coordinator) Close() {
	c.wantQuit <- struct{}{}
	<-c.hasQuit
}

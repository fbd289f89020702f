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

package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/nfranchet/homemetrics/notify"
)

// DaemonConfig configures the daily schedule. Times are HH:MM in the
// process's local timezone.
type DaemonConfig struct {
	Times    []string
	Limit    int
	DryRun   bool
	Notifier notify.Notifier
}

// Daemon triggers RunOnce at the configured wall-clock times.
type Daemon struct {
	streams []Stream
	cfg     DaemonConfig

	cron   *cron.Cron
	cancel context.CancelFunc

	wantQuit chan struct{}
	hasQuit  chan struct{}
}

// NewDaemon validates the schedule and builds the daemon; Run starts it.
func NewDaemon(streams []Stream, cfg DaemonConfig) (*Daemon, error) {
	times, err := ParseTimes(cfg.Times)
	if err != nil {
		return nil, err
	}
	cfg.Times = times

	if cfg.Notifier == nil {
		cfg.Notifier = notify.NopNotifier{}
	}

	return &Daemon{
		streams: streams,
		cfg:     cfg,

		wantQuit: make(chan struct{}, 1),
		hasQuit:  make(chan struct{}, 1),
	}, nil
}

// Run blocks until Close is called. In-flight batches are cancelled on
// shutdown; their messages keep their todo labels and are picked up by the
// next run.
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	defer cancel()

	d.cron = cron.New()

	for _, t := range d.cfg.Times {
		spec := fmt.Sprintf("%s %s * * *", t[3:], t[:2])
		if _, err := d.cron.AddFunc(spec, func() { d.trigger(ctx) }); err != nil {
			return fmt.Errorf("scheduling %q: %w", t, err)
		}
	}

	log.WithField("times", strings.Join(d.cfg.Times, ",")).Info("daemon_start")
	d.cron.Start()

	heartbeat := time.NewTicker(1 * time.Hour)
	defer heartbeat.Stop()

	defer close(d.hasQuit)
	for {
		select {
		case <-d.wantQuit:
			log.Info("daemon_stop")
			cronCtx := d.cron.Stop()
			cancel()
			<-cronCtx.Done()
			return nil
		case <-heartbeat.C:
			log.WithField("next", d.nextRun()).Info("daemon_heartbeat")
		}
	}
}

func (d *Daemon) trigger(ctx context.Context) {
	log.Info("daemon_scheduled_run")

	reports := RunOnce(ctx, d.streams, d.cfg.Limit, d.cfg.DryRun)
	for _, r := range reports {
		log.Info(r.Summary())

		if len(r.Failures) == 0 && r.BatchErr == "" {
			continue
		}

		var sb strings.Builder
		sb.WriteString(r.Summary())
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("\n- %s: %s", f.MessageID, f.Reason))
		}
		d.cfg.Notifier.Notify(ctx, sb.String())
	}
}

func (d *Daemon) nextRun() time.Time {
	var next time.Time
	for _, e := range d.cron.Entries() {
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// Close stops the schedule and waits for Run to return.
func (d *Daemon) Close() {
	d.wantQuit <- struct{}{}
	<-d.hasQuit
}

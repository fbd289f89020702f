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

package daemon

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/nfranchet/homemetrics/cmd/config"
	"github.com/nfranchet/homemetrics/labelcache"
	"github.com/nfranchet/homemetrics/scheduler"
	"github.com/nfranchet/homemetrics/session"
	"github.com/nfranchet/homemetrics/store"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &config.CliConfig{}
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "daemon",
		Usage:  "Run the ingestion schedule until interrupted",
		Flags:  cfg.Parameters(),
		Action: func(context *cli.Context) error { return run(context, cfg) },
	})
	return app
}

func run(c *cli.Context, cfg *config.CliConfig) error {
	cfg.SetupLogging()

	log.WithFields(log.Fields{
		"transport":        cfg.Transport,
		"database":         cfg.DatabasePath,
		"schedule":         strings.Join(cfg.ScheduleTimes.Value(), ","),
		"refresh_interval": cfg.RefreshInterval,
		"limit":            cfg.Limit,
		"dry_run":          cfg.DryRun,
		"log_level":        cfg.LogLevel,
		"log_format":       cfg.LogFormat,
	}).Info("starting")

	client, err := cfg.BuildMailboxClient(c.Context)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	st, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	labels := labelcache.New(client)
	notifier := cfg.BuildNotifier()

	streams, err := cfg.BuildStreams(client, labels, st, notifier)
	if err != nil {
		return err
	}

	d, err := scheduler.NewDaemon(streams, scheduler.DaemonConfig{
		Times:    cfg.ScheduleTimes.Value(),
		Limit:    cfg.Limit,
		DryRun:   cfg.DryRun,
		Notifier: notifier,
	})
	if err != nil {
		return err
	}

	coordinator := session.NewCoordinator(&session.Config{
		Client:   client,
		Interval: cfg.RefreshInterval,
	})
	defer coordinator.Close()

	doneChan := make(chan error, 1)
	go func() { doneChan <- d.Run() }()

	sigchan := make(chan os.Signal, 10)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	sigcount := 0
	for {
		select {
		case sig := <-sigchan:
			log.WithFields(log.Fields{"signal": sig, "count": sigcount}).Trace("caught_signal")

			sigcount += 1
			if sigcount > 1 {
				log.WithFields(log.Fields{"signal": sig}).Warn("received_interrupt_force_exit")
				os.Exit(1)
			}
			log.WithFields(log.Fields{"signal": sig}).Info("received_interrupt")

			go d.Close()
		case err := <-doneChan:
			log.Info("daemon_terminated")
			return err
		}
	}
}

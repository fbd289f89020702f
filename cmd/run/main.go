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

package run

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/nfranchet/homemetrics/cmd/config"
	"github.com/nfranchet/homemetrics/labelcache"
	"github.com/nfranchet/homemetrics/scheduler"
	"github.com/nfranchet/homemetrics/store"
	"github.com/nfranchet/homemetrics/stream"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &config.CliConfig{}
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "run",
		Usage:  "Process all enabled streams once and exit",
		Flags:  cfg.Parameters(),
		Action: func(context *cli.Context) error { return run(context, cfg) },
	})
	return app
}

func run(c *cli.Context, cfg *config.CliConfig) error {
	cfg.SetupLogging()

	log.WithFields(log.Fields{
		"transport": cfg.Transport,
		"database":  cfg.DatabasePath,
		"limit":     cfg.Limit,
		"dry_run":   cfg.DryRun,
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

	streams, err := cfg.BuildStreams(client, labels, st, cfg.BuildNotifier())
	if err != nil {
		return err
	}

	reports := scheduler.RunOnce(c.Context, streams, cfg.Limit, cfg.DryRun)
	return printReports(reports)
}

// printReports prints every report and decides the exit status. Per-message
// failures are report content only; a non-zero exit is reserved for streams
// whose batch could not run at all.
func printReports(reports []*stream.Report) error {
	batchErrs := 0
	for _, r := range reports {
		fmt.Println(r.Summary())
		for _, f := range r.Failures {
			fmt.Printf("  %s: %s\n", f.MessageID, f.Reason)
		}
		if r.BatchErr != "" {
			batchErrs++
		}
	}

	if batchErrs > 0 {
		return fmt.Errorf("%d stream(s) failed", batchErrs)
	}
	return nil
}

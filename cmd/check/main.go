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

package check

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/nfranchet/homemetrics/cmd/config"
	"github.com/nfranchet/homemetrics/labelcache"
	"github.com/nfranchet/homemetrics/store"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &config.CliConfig{}
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "check",
		Usage:  "Verify mailbox connectivity, labels and database access",
		Flags:  cfg.Parameters(),
		Action: func(context *cli.Context) error { return run(context, cfg) },
	})
	return app
}

func run(c *cli.Context, cfg *config.CliConfig) error {
	cfg.SetupLogging()

	client, err := cfg.BuildMailboxClient(c.Context)
	if err != nil {
		return fmt.Errorf("mailbox: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Probe(c.Context); err != nil {
		return fmt.Errorf("mailbox probe: %w", err)
	}
	fmt.Println("mailbox: ok")

	labels := labelcache.New(client)
	for _, sc := range []struct {
		name string
		cfg  config.StreamConfig
	}{
		{"xsense", cfg.XSense},
		{"blueriot", cfg.BlueRiot},
	} {
		if !sc.cfg.Enabled {
			fmt.Printf("%s: disabled\n", sc.name)
			continue
		}

		for _, name := range []string{sc.cfg.TodoLabel, sc.cfg.DoneLabel} {
			if _, err := labels.Resolve(c.Context, name); err != nil {
				return fmt.Errorf("%s: %w", sc.name, err)
			}
		}

		if sc.cfg.ArchiveLabel != "" {
			if _, err := labels.Resolve(c.Context, sc.cfg.ArchiveLabel); err != nil {
				fmt.Printf("%s: archive label missing: %v\n", sc.name, err)
			}
		}

		fmt.Printf("%s: labels ok\n", sc.name)
	}

	st, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { _ = st.Close() }()

	readings, err := st.LatestSensorReadings(c.Context, "", 1)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if len(readings) == 0 {
		fmt.Println("database: ok, no readings yet")
	} else {
		fmt.Printf("database: ok, latest reading %s at %s\n",
			readings[0].SensorID, readings[0].Timestamp.Format("2006-01-02 15:04"))
	}

	return nil
}

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

package labels

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/nfranchet/homemetrics/cmd/config"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &config.CliConfig{}
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "labels",
		Usage:  "List the mailbox's labels",
		Flags:  cfg.Parameters(),
		Action: func(context *cli.Context) error { return run(context, cfg) },
	})
	return app
}

func run(c *cli.Context, cfg *config.CliConfig) error {
	cfg.SetupLogging()

	client, err := cfg.BuildMailboxClient(c.Context)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	labels, err := client.ListLabels(c.Context)
	if err != nil {
		return err
	}

	// The homemetrics hierarchy first, then everything else.
	sort.Slice(labels, func(i, j int) bool {
		iOurs := strings.HasPrefix(labels[i].Name, "homemetrics/")
		jOurs := strings.HasPrefix(labels[j].Name, "homemetrics/")
		if iOurs != jOurs {
			return iOurs
		}
		return labels[i].Name < labels[j].Name
	})

	for _, l := range labels {
		fmt.Printf("%-50s %s\n", l.Name, l.ID)
	}
	return nil
}

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

package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/nfranchet/homemetrics/labelcache"
	"github.com/nfranchet/homemetrics/mailbox"
	"github.com/nfranchet/homemetrics/notify"
	"github.com/nfranchet/homemetrics/scheduler"
	"github.com/nfranchet/homemetrics/store"
	"github.com/nfranchet/homemetrics/stream"
)

func DefaultConfig() CliConfig {
	return CliConfig{
		Transport: "gmail",
		Gmail: GmailConfig{
			CredentialsPath: "credentials.json",
			TokenPath:       "token.json",
		},
		DatabasePath: "homemetrics.db",
		XSense: StreamConfig{
			Enabled:      true,
			TodoLabel:    "homemetrics/todo/xsense",
			DoneLabel:    "homemetrics/done/xsense",
			ArchiveLabel: "homemetrics/xsense",
		},
		BlueRiot: StreamConfig{
			Enabled:      true,
			TodoLabel:    "homemetrics/todo/blueriot",
			DoneLabel:    "homemetrics/done/blueriot",
			ArchiveLabel: "homemetrics/blueriot",
		},
		ScheduleTimes:   *cli.NewStringSlice("07:00"),
		RefreshInterval: 45 * time.Minute,
		Limit:           0,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

func (cfg *StreamConfig) makeStreamParameters(lowerPrefix string, def StreamConfig) []cli.Flag {
	upperPrefix := strings.ToUpper(lowerPrefix)

	return []cli.Flag{
		&cli.BoolFlag{
			Name:        fmt.Sprintf("%v-enabled", lowerPrefix),
			Usage:       fmt.Sprintf("enable the %v stream", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("HOMEMETRICS_%v_ENABLED", upperPrefix)},
			Destination: &cfg.Enabled,
			Value:       def.Enabled,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-todo-label", lowerPrefix),
			Usage:       fmt.Sprintf("%v pending-work label", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("HOMEMETRICS_%v_TODO_LABEL", upperPrefix)},
			Destination: &cfg.TodoLabel,
			Value:       def.TodoLabel,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-done-label", lowerPrefix),
			Usage:       fmt.Sprintf("%v completed-work label", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("HOMEMETRICS_%v_DONE_LABEL", upperPrefix)},
			Destination: &cfg.DoneLabel,
			Value:       def.DoneLabel,
		},
		&cli.StringFlag{
			Name:        fmt.Sprintf("%v-archive-label", lowerPrefix),
			Usage:       fmt.Sprintf("%v archive label, empty disables archiving", lowerPrefix),
			EnvVars:     []string{fmt.Sprintf("HOMEMETRICS_%v_ARCHIVE_LABEL", upperPrefix)},
			Destination: &cfg.ArchiveLabel,
			Value:       def.ArchiveLabel,
		},
	}
}

func (cfg *CliConfig) Parameters() []cli.Flag {
	def := DefaultConfig()

	var flags []cli.Flag
	flags = append(flags, []cli.Flag{
		&cli.StringFlag{
			Name:        "transport",
			Usage:       "mailbox transport (gmail/imap)",
			EnvVars:     []string{"HOMEMETRICS_TRANSPORT"},
			Destination: &cfg.Transport,
			Value:       def.Transport,
		},
		&cli.StringFlag{
			Name:        "gmail-credentials",
			Usage:       "gmail oauth2 client credentials file",
			EnvVars:     []string{"HOMEMETRICS_GMAIL_CREDENTIALS"},
			Destination: &cfg.Gmail.CredentialsPath,
			Value:       def.Gmail.CredentialsPath,
		},
		&cli.StringFlag{
			Name:        "gmail-token",
			Usage:       "gmail oauth2 token cache file",
			EnvVars:     []string{"HOMEMETRICS_GMAIL_TOKEN"},
			Destination: &cfg.Gmail.TokenPath,
			Value:       def.Gmail.TokenPath,
		},
		&cli.StringFlag{
			Name:        "imap-url",
			Usage:       "imap url",
			EnvVars:     []string{"HOMEMETRICS_IMAP_URL"},
			Destination: &cfg.IMAP.URL,
			Value:       def.IMAP.URL,
		},
		&cli.StringFlag{
			Name:        "imap-username",
			Usage:       "imap username",
			EnvVars:     []string{"HOMEMETRICS_IMAP_USERNAME"},
			Destination: &cfg.IMAP.Username,
			Value:       def.IMAP.Username,
		},
		&cli.StringFlag{
			Name:        "imap-password",
			Usage:       "imap password",
			EnvVars:     []string{"HOMEMETRICS_IMAP_PASSWORD"},
			Destination: &cfg.IMAP.Password,
			Value:       def.IMAP.Password,
		},
		&cli.StringFlag{
			Name:        "imap-password-file",
			Usage:       "imap password file",
			EnvVars:     []string{"HOMEMETRICS_IMAP_PASSWORD_FILE"},
			Destination: &cfg.IMAP.PasswordFile,
			Value:       def.IMAP.PasswordFile,
		},
		&cli.BoolFlag{
			Name:        "imap-tls-skip-verify",
			Usage:       "skip imap tls verification",
			EnvVars:     []string{"HOMEMETRICS_IMAP_TLS_SKIP_VERIFY"},
			Destination: &cfg.IMAP.TLSSkipVerify,
			Value:       def.IMAP.TLSSkipVerify,
		},
		&cli.BoolFlag{
			Name:        "imap-debug",
			Usage:       "display imap debug info",
			EnvVars:     []string{"HOMEMETRICS_IMAP_DEBUG"},
			Destination: &cfg.IMAP.Debug,
			Value:       def.IMAP.Debug,
			Hidden:      true,
		},
		&cli.StringFlag{
			Name:        "database",
			Usage:       "sqlite database path",
			EnvVars:     []string{"HOMEMETRICS_DATABASE"},
			Destination: &cfg.DatabasePath,
			Value:       def.DatabasePath,
		},
		&cli.StringSliceFlag{
			Name:        "schedule",
			Usage:       "daily run times (HH:MM, repeatable)",
			EnvVars:     []string{"HOMEMETRICS_SCHEDULE"},
			Destination: &cfg.ScheduleTimes,
			Value:       cli.NewStringSlice(def.ScheduleTimes.Value()...),
		},
		&cli.DurationFlag{
			Name:        "refresh-interval",
			Usage:       "session probe interval",
			EnvVars:     []string{"HOMEMETRICS_REFRESH_INTERVAL"},
			Destination: &cfg.RefreshInterval,
			Value:       def.RefreshInterval,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "maximum messages per stream per batch, 0 means no cap",
			EnvVars:     []string{"HOMEMETRICS_LIMIT"},
			Destination: &cfg.Limit,
			Value:       def.Limit,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "extract without storing or relabelling",
			EnvVars:     []string{"HOMEMETRICS_DRY_RUN"},
			Destination: &cfg.DryRun,
			Value:       def.DryRun,
		},
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "slack webhook for pool notifications",
			EnvVars:     []string{"HOMEMETRICS_SLACK_WEBHOOK_URL"},
			Destination: &cfg.SlackWebhookURL,
			Value:       def.SlackWebhookURL,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "logging level",
			EnvVars:     []string{"HOMEMETRICS_LOG_LEVEL"},
			Destination: &cfg.LogLevel,
			Value:       def.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "logging format (text/json)",
			EnvVars:     []string{"HOMEMETRICS_LOG_FORMAT"},
			Destination: &cfg.LogFormat,
			Value:       def.LogFormat,
		},
	}...)

	flags = append(flags, cfg.XSense.makeStreamParameters("xsense", def.XSense)...)
	flags = append(flags, cfg.BlueRiot.makeStreamParameters("blueriot", def.BlueRiot)...)

	return flags
}

// SetupLogging applies the log level and format. An unknown level is
// ignored and logrus's default stands.
func (cfg *CliConfig) SetupLogging() {
	logLevel, err := log.ParseLevel(cfg.LogLevel)
	if err == nil {
		log.SetLevel(logLevel)
	}

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// BuildMailboxClient connects the configured transport.
func (cfg *CliConfig) BuildMailboxClient(ctx context.Context) (mailbox.Client, error) {
	switch strings.ToLower(cfg.Transport) {
	case "gmail":
		return mailbox.NewGmailClient(ctx, &mailbox.GmailConfig{
			CredentialsPath: cfg.Gmail.CredentialsPath,
			TokenPath:       cfg.Gmail.TokenPath,
		})
	case "imap":
		imapConfig, err := cfg.IMAP.resolve()
		if err != nil {
			return nil, err
		}
		return mailbox.NewIMAPClient(imapConfig)
	default:
		return nil, fmt.Errorf("%w: %s", errInvalidTransport, cfg.Transport)
	}
}

// BuildNotifier returns the configured notifier, or a no-op when no webhook
// is set.
func (cfg *CliConfig) BuildNotifier() notify.Notifier {
	if cfg.SlackWebhookURL == "" {
		return notify.NopNotifier{}
	}
	return notify.NewSlackNotifier(cfg.SlackWebhookURL)
}

// BuildStreams wires the enabled streams against shared infrastructure.
func (cfg *CliConfig) BuildStreams(client mailbox.Client, labels *labelcache.Cache, st store.Store, notifier notify.Notifier) ([]scheduler.Stream, error) {
	type streamDef struct {
		name    string
		cfg     StreamConfig
		handler stream.Handler
	}

	defs := []streamDef{
		{name: "xsense", cfg: cfg.XSense, handler: stream.NewSensorHandler()},
		{name: "blueriot", cfg: cfg.BlueRiot, handler: stream.NewPoolHandler()},
	}

	var streams []scheduler.Stream
	for _, def := range defs {
		if !def.cfg.Enabled {
			continue
		}

		p, err := stream.New(stream.Config{
			Name:         def.name,
			TodoLabel:    def.cfg.TodoLabel,
			DoneLabel:    def.cfg.DoneLabel,
			ArchiveLabel: def.cfg.ArchiveLabel,
			Handler:      def.handler,
			Mailbox:      client,
			Labels:       labels,
			Store:        st,
			Notifier:     notifier,
		})
		if err != nil {
			return nil, err
		}

		streams = append(streams, p)
	}

	if len(streams) == 0 {
		return nil, fmt.Errorf("no streams enabled")
	}

	return streams, nil
}

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
	"errors"
	"time"

	"github.com/urfave/cli/v2"
)

var (
	errInvalidScheme    = errors.New("invalid uri scheme")
	errInvalidTransport = errors.New("invalid transport")
)

// StreamConfig holds the label wiring of one ingestion stream. Label names
// are plain configuration; nothing in the pipeline hardcodes them.
type StreamConfig struct {
	Enabled      bool   `json:"enabled"`
	TodoLabel    string `json:"todo_label"`
	DoneLabel    string `json:"done_label"`
	ArchiveLabel string `json:"archive_label"`
}

type GmailConfig struct {
	CredentialsPath string `json:"credentials_path"`
	TokenPath       string `json:"token_path"`
}

type IMAPConfig struct {
	URL           string `json:"url"`
	Username      string `json:"username"`
	Password      string `json:"-"`
	PasswordFile  string `json:"password_file"`
	TLSSkipVerify bool   `json:"tls_skip_verify"`
	Debug         bool   `json:"debug"`
}

type CliConfig struct {
	Transport string      `json:"transport"`
	Gmail     GmailConfig `json:"gmail"`
	IMAP      IMAPConfig  `json:"imap"`

	DatabasePath string `json:"database_path"`

	XSense   StreamConfig `json:"xsense"`
	BlueRiot StreamConfig `json:"blueriot"`

	ScheduleTimes   cli.StringSlice `json:"schedule_times"`
	RefreshInterval time.Duration   `json:"refresh_interval"`
	Limit           int             `json:"limit"`
	DryRun          bool            `json:"dry_run"`

	SlackWebhookURL string `json:"-"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

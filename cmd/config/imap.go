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
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/nfranchet/homemetrics/mailbox"
)

func extractUrl(u *url.URL) (string, bool, error) {
	var defaultPort string
	var useTLS bool
	switch strings.ToLower(u.Scheme) {
	case "imap":
		defaultPort = "143"
		useTLS = false
	case "imaps":
		defaultPort = "993"
		useTLS = true
	default:
		return "", false, errInvalidScheme
	}

	host := u.Hostname()
	port := u.Port()

	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(host, port), useTLS, nil
}

func (cfg *IMAPConfig) password() (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}

	if cfg.PasswordFile != "" {
		pass, err := os.ReadFile(cfg.PasswordFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(pass)), nil
	}

	return "", fmt.Errorf("at least one of the \"imap-password\" or \"imap-password-file\" flags is required")
}

func (cfg *IMAPConfig) resolve() (*mailbox.IMAPConfig, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("\"imap-url\" is required when using the imap transport")
	}

	if cfg.Username == "" {
		return nil, fmt.Errorf("\"imap-username\" is required when using the imap transport")
	}

	sourceURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}

	hostPort, wantTLS, err := extractUrl(sourceURL)
	if err != nil {
		return nil, err
	}

	password, err := cfg.password()
	if err != nil {
		return nil, err
	}

	imapConfig := &mailbox.IMAPConfig{
		HostPort: hostPort,
		Auth:     mailbox.NewNormalAuthenticator(cfg.Username, password),
		TLS:      wantTLS,
		Debug:    cfg.Debug,
	}

	if cfg.TLSSkipVerify {
		// #nosec G402
		imapConfig.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return imapConfig, nil
}

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

package mailbox

import (
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"golang.org/x/oauth2"
)

// Authenticator logs an IMAP connection in. The concrete strategy is picked
// by the config layer; NewIMAPClient only sees this interface.
type Authenticator interface {
	Authenticate(c *client.Client) error
}

type loginAuthenticator struct {
	username string
	password string
}

// NewNormalAuthenticator authenticates with a plain LOGIN, the path taken
// when a password or password file is configured.
func NewNormalAuthenticator(username string, password string) Authenticator {
	return &loginAuthenticator{username: username, password: password}
}

func (a *loginAuthenticator) Authenticate(c *client.Client) error {
	return c.Login(a.username, a.password)
}

type saslAuthenticator struct {
	client sasl.Client
}

// NewSASLAuthenticator authenticates with an arbitrary SASL mechanism, for
// servers that disable LOGIN.
func NewSASLAuthenticator(client sasl.Client) Authenticator {
	return &saslAuthenticator{client: client}
}

func (a *saslAuthenticator) Authenticate(c *client.Client) error {
	return c.Authenticate(a.client)
}

type oauthBearerAuthenticator struct {
	username string
	source   oauth2.TokenSource
}

// NewOAuthBearerAuthenticator authenticates with OAUTHBEARER using whatever
// token the source currently holds. Gmail and most providers accept this for
// IMAP with the same grant used for their REST APIs.
func NewOAuthBearerAuthenticator(username string, source oauth2.TokenSource) Authenticator {
	return &oauthBearerAuthenticator{username: username, source: source}
}

func (a *oauthBearerAuthenticator) Authenticate(c *client.Client) error {
	tok, err := a.source.Token()
	if err != nil {
		return err
	}

	return c.Authenticate(sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: a.username,
		Token:    tok.AccessToken,
	}))
}

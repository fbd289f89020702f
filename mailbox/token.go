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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// LoadToken reads an OAuth2 token from the token-cache file produced by the
// initial interactive grant.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token cache %s: %w", path, err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("decoding token cache %s: %w", path, err)
	}
	return tok, nil
}

// persistingTokenSource wraps a refreshing token source and writes every
// renewed token back to the cache file, so the long-lived refresh token and
// its replacement access tokens survive process restarts.
type persistingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

// NewPersistingTokenSource builds a token source that refreshes through cfg
// and persists renewals to path. It is safe for concurrent use.
func NewPersistingTokenSource(cfg *oauth2.Config, tok *oauth2.Token, path string) oauth2.TokenSource {
	return &persistingTokenSource{
		base: cfg.TokenSource(context.Background(), tok),
		path: path,
		last: tok.AccessToken,
	}
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			// Persistence failure is not fatal; the token is still valid
			// in memory for the rest of this process's lifetime.
			log.WithError(err).WithField("path", s.path).Warn("token_persist_failed")
		} else {
			log.WithField("path", s.path).Debug("token_persisted")
		}
	}

	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

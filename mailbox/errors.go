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
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
)

var (
	ErrNotFound    = errors.New("message not found")
	ErrRateLimited = errors.New("rate limited by provider")
	ErrAuthExpired = errors.New("credentials expired")
	ErrTransient   = errors.New("transient mailbox error")
)

// classifyError folds provider-specific failures into the package's error
// taxonomy so call sites can decide on retries without knowing the
// transport.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuthExpired, err)
		case gerr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case gerr.Code >= 500:
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
	}

	return err
}

const (
	retryAttempts = 3
	retryBaseWait = 500 * time.Millisecond
)

// Retry runs fn, retrying with doubling backoff on rate-limit and transient
// errors. An expired-credential error gets exactly one immediate retry: the
// refresh coordinator is expected to have healed the token, and if it has
// not, looping would hide a configuration problem from the operator.
func Retry(ctx context.Context, op string, fn func() error) error {
	var err error
	authRetried := false

	wait := retryBaseWait
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		if errors.Is(err, ErrAuthExpired) && !authRetried {
			authRetried = true
			log.WithError(err).WithField("op", op).Warn("mailbox_auth_retry")
			continue
		}

		if !errors.Is(err, ErrRateLimited) && !errors.Is(err, ErrTransient) {
			return err
		}

		log.WithError(err).WithFields(log.Fields{
			"op":      op,
			"attempt": attempt + 1,
		}).Warn("mailbox_retry")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
	}

	return err
}

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

package session

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	mock_mailbox "github.com/nfranchet/homemetrics/mailbox/mocks"
)

func TestCoordinatorProbes(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)

	var probes int32
	client.EXPECT().Probe(gomock.Any()).DoAndReturn(func(interface{}) error {
		atomic.AddInt32(&probes, 1)
		return nil
	}).MinTimes(2)

	c := NewCoordinator(&Config{
		Client:   client,
		Interval: 10 * time.Millisecond,
	})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&probes) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	c.Close()
}

func TestCoordinatorProbeFailureNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)

	var probes int32
	client.EXPECT().Probe(gomock.Any()).DoAndReturn(func(interface{}) error {
		atomic.AddInt32(&probes, 1)
		return errors.New("token refresh failed")
	}).MinTimes(2)

	c := NewCoordinator(&Config{
		Client:   client,
		Interval: 10 * time.Millisecond,
	})

	// The loop keeps probing after failures.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&probes) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	c.Close()
}

func TestCoordinatorIntervalValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)
	client.EXPECT().Probe(gomock.Any()).Return(nil).AnyTimes()

	t.Run("default", func(t *testing.T) {
		c := NewCoordinator(&Config{Client: client})
		defer c.Close()
		assert.Equal(t, DefaultInterval, c.Interval())
	})

	t.Run("over_max_falls_back", func(t *testing.T) {
		c := NewCoordinator(&Config{Client: client, Interval: 2 * time.Hour})
		defer c.Close()
		assert.Equal(t, DefaultInterval, c.Interval())
	})

	t.Run("in_range_kept", func(t *testing.T) {
		c := NewCoordinator(&Config{Client: client, Interval: 30 * time.Minute})
		defer c.Close()
		assert.Equal(t, 30*time.Minute, c.Interval())
	})
}

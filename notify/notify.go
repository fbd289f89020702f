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

// Package notify pushes human-readable summaries to the operator.
// Notifications are best-effort; a delivery failure is logged and never
// interferes with ingestion.
package notify

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"github.com/nfranchet/homemetrics/extract"
)

type Notifier interface {
	Notify(ctx context.Context, text string)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, text string) {}

type slackNotifier struct {
	webhookURL string
}

func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{webhookURL: webhookURL}
}

func (n *slackNotifier) Notify(ctx context.Context, text string) {
	err := slack.PostWebhookContext(ctx, n.webhookURL, &slack.WebhookMessage{Text: text})
	if err != nil {
		log.WithError(err).Warn("notify_slack_failed")
		return
	}

	log.Debug("notify_slack_sent")
}

// PoolSummary renders a pool reading for a notification, flagging values
// outside the optimal windows.
func PoolSummary(r *extract.PoolReading) string {
	var parts []string

	if r.Temperature != nil {
		parts = append(parts, fmt.Sprintf("water %.1f°C", *r.Temperature))
	}

	if r.PH != nil {
		s := fmt.Sprintf("pH %.1f", *r.PH)
		if *r.PH < extract.PHOptimalMin {
			s += " (low)"
		} else if *r.PH > extract.PHOptimalMax {
			s += " (high)"
		}
		parts = append(parts, s)
	}

	if r.ORP != nil {
		s := fmt.Sprintf("ORP %d mV", *r.ORP)
		if *r.ORP < extract.ORPOptimalMin {
			s += " (low)"
		} else if *r.ORP > extract.ORPOptimalMax {
			s += " (high)"
		}
		parts = append(parts, s)
	}

	if len(parts) == 0 {
		return "pool: no metrics"
	}

	return fmt.Sprintf("pool %s: %s", r.Timestamp.Format("2006-01-02 15:04"), strings.Join(parts, ", "))
}

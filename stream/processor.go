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

package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/nfranchet/homemetrics/extract"
	"github.com/nfranchet/homemetrics/mailbox"
	"github.com/nfranchet/homemetrics/notify"
)

type Processor struct {
	cfg Config
}

func New(cfg Config) (*Processor, error) {
	if cfg.Name == "" {
		return nil, errors.New("stream name is required")
	}

	if cfg.TodoLabel == "" || cfg.DoneLabel == "" {
		return nil, fmt.Errorf("stream %s: todo and done labels are required", cfg.Name)
	}

	if cfg.Handler == nil || cfg.Mailbox == nil || cfg.Labels == nil || cfg.Store == nil {
		return nil, fmt.Errorf("stream %s: handler, mailbox, labels and store are required", cfg.Name)
	}

	if cfg.Notifier == nil {
		cfg.Notifier = notify.NopNotifier{}
	}

	return &Processor{cfg: cfg}, nil
}

func (p *Processor) Name() string {
	return p.cfg.Name
}

// ProcessBatch runs one pass over the stream's todo label. A limit of 0
// means no cap. One broken message never aborts the batch; it is reported
// in the returned Report and retried next time. With dryRun set, messages
// are fetched and extracted but nothing is stored or relabelled.
func (p *Processor) ProcessBatch(ctx context.Context, limit int, dryRun bool) (*Report, error) {
	report := &Report{
		Stream:  p.cfg.Name,
		BatchID: uuid.NewString(),
		DryRun:  dryRun,
	}

	logger := log.WithFields(log.Fields{
		"stream":   p.cfg.Name,
		"batch_id": report.BatchID,
	})

	// Label ids can change between batches if the operator recreates
	// labels, so never trust a stale mapping at batch start.
	if err := p.cfg.Labels.Refresh(ctx); err != nil {
		logger.WithError(err).Warn("stream_label_refresh_failed")
	}

	todoID, err := p.cfg.Labels.Resolve(ctx, p.cfg.TodoLabel)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", p.cfg.TodoLabel, err)
	}

	doneID, err := p.cfg.Labels.Resolve(ctx, p.cfg.DoneLabel)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", p.cfg.DoneLabel, err)
	}

	archiveID := ""
	if p.cfg.ArchiveLabel != "" {
		archiveID, err = p.cfg.Labels.Resolve(ctx, p.cfg.ArchiveLabel)
		if err != nil {
			logger.WithError(err).Warn("stream_archive_label_unavailable")
			archiveID = ""
		}
	}

	var ids []string
	err = mailbox.Retry(ctx, "search", func() error {
		var serr error
		ids, serr = p.cfg.Mailbox.Search(ctx, todoID, limit)
		return serr
	})
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", p.cfg.TodoLabel, err)
	}

	report.Found = len(ids)
	logger.WithField("found", len(ids)).Info("stream_batch_start")

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome, inserted, perr := p.processMessage(ctx, id, todoID, doneID, archiveID, dryRun)

		switch outcome {
		case Processed:
			report.Processed++
			report.Records += inserted
		case SkippedNoMetrics:
			report.Skipped++
		case Failed:
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				MessageID: id,
				Reason:    perr.Error(),
			})
			logger.WithError(perr).WithField("message_id", id).Warn("stream_message_failed")
		}
	}

	logger.WithFields(log.Fields{
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"records":   report.Records,
	}).Info("stream_batch_done")

	return report, nil
}

func (p *Processor) processMessage(ctx context.Context, id, todoID, doneID, archiveID string, dryRun bool) (Outcome, int, error) {
	var env *mailbox.Envelope
	err := mailbox.Retry(ctx, "fetch", func() error {
		var ferr error
		env, ferr = p.cfg.Mailbox.Fetch(ctx, id)
		return ferr
	})
	if err != nil {
		return Failed, 0, fmt.Errorf("fetching: %w", err)
	}

	records, err := p.cfg.Handler.Extract(env)
	if err != nil {
		if errors.Is(err, extract.ErrNoData) || errors.Is(err, extract.ErrNoMetricsFound) {
			return SkippedNoMetrics, 0, nil
		}
		return Failed, 0, fmt.Errorf("extracting: %w", err)
	}

	if records.Len() == 0 {
		return SkippedNoMetrics, 0, nil
	}

	if dryRun {
		return Processed, records.Len(), nil
	}

	inserted, err := records.Save(ctx, p.cfg.Store)
	if err != nil {
		return Failed, 0, fmt.Errorf("storing: %w", err)
	}

	// Everything below here is idempotent-safe to fail: the readings are
	// stored, and reprocessing the message next batch dedups to a no-op.
	err = mailbox.Retry(ctx, "mark_read", func() error {
		return p.cfg.Mailbox.MarkRead(ctx, id)
	})
	if err != nil {
		return Failed, inserted, fmt.Errorf("marking read: %w", err)
	}

	err = mailbox.Retry(ctx, "relabel", func() error {
		return p.cfg.Mailbox.Relabel(ctx, id, todoID, doneID)
	})
	if err != nil {
		return Failed, inserted, fmt.Errorf("relabelling: %w", err)
	}

	if archiveID != "" {
		err = mailbox.Retry(ctx, "archive", func() error {
			return p.cfg.Mailbox.Archive(ctx, id, archiveID)
		})
		if err != nil {
			return Failed, inserted, fmt.Errorf("archiving: %w", err)
		}
	}

	if summary := records.Summary(); summary != "" {
		p.cfg.Notifier.Notify(ctx, summary)
	}

	return Processed, inserted, nil
}

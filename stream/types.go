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

// Package stream drives one ingestion stream: find labelled messages,
// extract their readings, persist them, and mark the messages done.
package stream

import (
	"context"
	"fmt"

	"github.com/nfranchet/homemetrics/labelcache"
	"github.com/nfranchet/homemetrics/mailbox"
	"github.com/nfranchet/homemetrics/notify"
	"github.com/nfranchet/homemetrics/store"
)

// Outcome classifies what happened to a single message.
type Outcome int

const (
	// Processed means readings were stored and the message was relabelled.
	Processed Outcome = iota

	// SkippedNoMetrics means the message carried no extractable data. It
	// keeps its todo label so a later extractor improvement can revisit it.
	SkippedNoMetrics

	// Failed means extraction, storage or relabelling broke. The message
	// keeps its todo label and is retried next batch.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case SkippedNoMetrics:
		return "skipped_no_metrics"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Records is the extracted payload of one message, ready to persist.
type Records interface {
	Len() int

	// Save persists the records and reports how many were actually new.
	Save(ctx context.Context, st store.Store) (int, error)

	// Summary renders the records for a notification. Empty means nothing
	// worth notifying about.
	Summary() string
}

// Handler turns a fetched message into records. Implementations signal "no
// data in this message" with the extract package's sentinel errors.
type Handler interface {
	Extract(env *mailbox.Envelope) (Records, error)
}

// Failure records why a single message could not be processed.
type Failure struct {
	MessageID string
	Reason    string
}

// Report is the outcome of one batch.
type Report struct {
	Stream  string
	BatchID string

	Found     int
	Processed int
	Skipped   int
	Failed    int

	// Records is the number of new rows the batch added to the store.
	Records int

	Failures []Failure
	DryRun   bool

	// BatchErr is set when the batch itself could not run (missing todo
	// label, search failure). Per-message trouble goes to Failures instead.
	BatchErr string
}

func (r *Report) Summary() string {
	s := fmt.Sprintf("%s: %d message(s), %d processed, %d skipped, %d failed, %d new record(s)",
		r.Stream, r.Found, r.Processed, r.Skipped, r.Failed, r.Records)
	if r.DryRun {
		s += " (dry run)"
	}
	if r.BatchErr != "" {
		s += fmt.Sprintf(" [batch error: %s]", r.BatchErr)
	}
	return s
}

// Config wires one stream together. TodoLabel and DoneLabel must exist on
// the provider; ArchiveLabel is optional.
type Config struct {
	Name string

	TodoLabel    string
	DoneLabel    string
	ArchiveLabel string

	Handler  Handler
	Mailbox  mailbox.Client
	Labels   *labelcache.Cache
	Store    store.Store
	Notifier notify.Notifier
}

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

// Package mailbox abstracts the mail provider behind a small capability
// interface. Two transports implement it: the Gmail REST API and plain
// IMAP. Everything above this package is transport-agnostic.
package mailbox

import (
	"context"
	"time"
)

// Label is a provider-side label (or folder, on IMAP) with its
// provider-assigned identifier.
type Label struct {
	Name string
	ID   string
}

// Client is the capability the ingestion core consumes. Implementations
// must be safe for concurrent use; the session refresh coordinator and the
// stream processors share one instance.
type Client interface {
	// Search returns the ids of messages carrying the given label.
	// A limit of 0 means no limit.
	Search(ctx context.Context, labelID string, limit int) ([]string, error)

	// Fetch retrieves a complete message by id.
	Fetch(ctx context.Context, id string) (*Envelope, error)

	// ListLabels returns every label the provider knows about.
	ListLabels(ctx context.Context) ([]Label, error)

	// Relabel atomically removes one label from a message and adds another.
	Relabel(ctx context.Context, id string, removeLabelID, addLabelID string) error

	// Archive moves a message out of the inbox into the given destination.
	Archive(ctx context.Context, id string, destination string) error

	// MarkRead clears the message's unread marker.
	MarkRead(ctx context.Context, id string) error

	// Probe issues one minimal authenticated call. Its only purpose is to
	// exercise the credential layer so tokens are renewed before expiry.
	Probe(ctx context.Context) error

	Close() error
}

// Envelope is a read-only view of a fetched message. The core never
// mutates it; state changes go back through the Client.
type Envelope struct {
	ID      string
	Subject string
	From    string
	Date    time.Time
	Raw     []byte
}

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
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	log "github.com/sirupsen/logrus"

	_ "github.com/emersion/go-message/charset"
)

// Attachment is one decoded MIME attachment.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// ParseEnvelope builds an Envelope from a raw RFC822 message. A missing or
// unparsable Date header falls back to the current time so the message can
// still be ingested.
func ParseEnvelope(id string, raw []byte) (*Envelope, error) {
	r, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message %s: %w", id, err)
	}

	env := &Envelope{ID: id, Raw: raw}

	env.Subject, _ = r.Header.Subject()

	if addrs, err := r.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		if addrs[0].Name != "" {
			env.From = fmt.Sprintf("%s <%s>", addrs[0].Name, addrs[0].Address)
		} else {
			env.From = addrs[0].Address
		}
	}

	if date, err := r.Header.Date(); err == nil && !date.IsZero() {
		env.Date = date.UTC()
	} else {
		log.WithField("id", id).Warn("mailbox_message_missing_date")
		env.Date = time.Now().UTC()
	}

	return env, nil
}

// Attachments walks the message's MIME parts and returns every attachment.
func (e *Envelope) Attachments() ([]Attachment, error) {
	r, err := mail.CreateReader(bytes.NewReader(e.Raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message %s: %w", e.ID, err)
	}

	var attachments []Attachment
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken part doesn't invalidate the ones already decoded.
			log.WithError(err).WithField("id", e.ID).Warn("mailbox_broken_mime_part")
			break
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}

		filename, err := h.Filename()
		if err != nil || filename == "" {
			continue
		}

		content, err := io.ReadAll(p.Body)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"id":       e.ID,
				"filename": filename,
			}).Warn("mailbox_attachment_read_failed")
			continue
		}

		contentType, _, _ := h.ContentType()
		attachments = append(attachments, Attachment{
			Filename:    filename,
			ContentType: contentType,
			Content:     content,
		})
	}

	return attachments, nil
}

// BodyText returns the message's plain-text body. When only an HTML part
// exists its tags are stripped, which is enough for the labeled-value
// report layout the extractors scan for.
func (e *Envelope) BodyText() (string, error) {
	r, err := mail.CreateReader(bytes.NewReader(e.Raw))
	if err != nil {
		return "", fmt.Errorf("parsing message %s: %w", e.ID, err)
	}

	var plain, html strings.Builder
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		switch contentType {
		case "text/plain":
			_, _ = io.Copy(&plain, p.Body)
		case "text/html":
			_, _ = io.Copy(&html, p.Body)
		}
	}

	if plain.Len() > 0 {
		return plain.String(), nil
	}
	if html.Len() > 0 {
		stripped := strings.NewReplacer("<br>", "\n", "<BR>", "\n", "</p>", "\n", "</P>", "\n").Replace(html.String())
		return htmlTagPattern.ReplaceAllString(stripped, ""), nil
	}

	// Some senders put the report straight into a non-MIME body.
	return string(e.Raw), nil
}

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
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	log "github.com/sirupsen/logrus"
)

// IMAPConfig configures the IMAP transport.
type IMAPConfig struct {
	HostPort  string
	Auth      Authenticator
	TLS       bool
	TLSConfig *tls.Config
	Debug     bool
}

// imapClient adapts a provider-neutral IMAP session to the Client interface.
// Labels are folders; a message id is the folder the message was found in by
// Search plus its UID there, so every UID-addressed operation re-selects the
// id's own folder even when another stream has moved the session elsewhere in
// between. The underlying protocol library isn't safe for concurrent
// commands, so every operation holds the mutex.
type imapClient struct {
	mtx      sync.Mutex
	c        *client.Client
	selected string
}

// idSeparator joins folder and UID in a message id. US (0x1f) can't appear
// in a mailbox name, which keeps the id splittable.
const idSeparator = "\x1f"

func formatMessageID(folder string, uid uint32) string {
	return folder + idSeparator + strconv.FormatUint(uint64(uid), 10)
}

func splitMessageID(id string) (string, uint32, error) {
	i := strings.LastIndex(id, idSeparator)
	if i < 1 {
		return "", 0, fmt.Errorf("%w: invalid message id %q", ErrNotFound, id)
	}

	uid, err := strconv.ParseUint(id[i+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid message id %q", ErrNotFound, id)
	}
	return id[:i], uint32(uid), nil
}

func NewIMAPClient(cfg *IMAPConfig) (Client, error) {
	var c *client.Client
	var err error
	if cfg.TLS {
		c, err = client.DialTLS(cfg.HostPort, cfg.TLSConfig)
	} else {
		c, err = client.Dial(cfg.HostPort)
	}

	if err != nil {
		return nil, err
	}

	wantCleanup := true
	defer func() {
		if wantCleanup {
			_ = c.Logout()
		}
	}()

	if cfg.Debug {
		c.SetDebug(os.Stderr)
	}

	c.Timeout = 30 * time.Second

	if err := cfg.Auth.Authenticate(c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	log.WithField("host", cfg.HostPort).Info("imap_client_ready")

	wantCleanup = false
	return &imapClient{c: c}, nil
}

func (c *imapClient) selectFolder(name string) error {
	if c.selected == name {
		return nil
	}

	if _, err := c.c.Select(name, false); err != nil {
		c.selected = ""
		return err
	}

	c.selected = name
	return nil
}

func (c *imapClient) Search(ctx context.Context, labelID string, limit int) ([]string, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.selectFolder(labelID); err != nil {
		return nil, err
	}

	uids, err := c.c.UidSearch(&imap.SearchCriteria{})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}

	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, formatMessageID(labelID, uid))
	}
	return ids, nil
}

func (c *imapClient) Fetch(ctx context.Context, id string) (*Envelope, error) {
	folder, uid, err := splitMessageID(id)
	if err != nil {
		return nil, err
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.selectFolder(folder); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	// Peek so fetching doesn't flip \Seen; read state is set explicitly
	// once the message is stored.
	section := &imap.BodySectionName{Peek: true}

	ch := make(chan *imap.Message, 1)
	if err := c.c.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, ch); err != nil {
		return nil, err
	}

	msg := <-ch
	if msg == nil {
		return nil, ErrNotFound
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %s has no body section", id)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	return ParseEnvelope(id, raw)
}

func (c *imapClient) ListLabels(ctx context.Context) ([]Label, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.c.List("", "*", ch)
	}()

	var labels []Label
	for info := range ch {
		labels = append(labels, Label{Name: info.Name, ID: info.Name})
	}

	if err := <-done; err != nil {
		return nil, err
	}
	return labels, nil
}

// Relabel moves the message from its id's folder to the destination folder.
// The UID it acquires there is unknown, so later UID operations on the same
// id address a message that no longer exists in the id's folder and match
// nothing.
func (c *imapClient) Relabel(ctx context.Context, id string, removeLabelID, addLabelID string) error {
	folder, uid, err := splitMessageID(id)
	if err != nil {
		return err
	}

	if folder != removeLabelID {
		log.WithFields(log.Fields{
			"id":     id,
			"remove": removeLabelID,
		}).Warn("imap_relabel_folder_mismatch")
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.selectFolder(folder); err != nil {
		return err
	}

	return c.moveLocked(uid, addLabelID)
}

// Archive moves the message out of its id's folder. IMAP has no separate
// archive label concept, so when Relabel has already moved the message the
// UID matches nothing in the id's folder and this is a no-op.
func (c *imapClient) Archive(ctx context.Context, id string, destination string) error {
	folder, uid, err := splitMessageID(id)
	if err != nil {
		return err
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.selectFolder(folder); err != nil {
		return err
	}

	return c.moveLocked(uid, destination)
}

func (c *imapClient) moveLocked(uid uint32, destination string) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	err := c.c.UidMove(seqset, destination)
	if err == nil {
		return nil
	}

	// The destination may simply not exist yet. Create it and try again.
	if cerr := c.c.Create(destination); cerr != nil {
		return err
	}

	log.WithField("folder", destination).Info("imap_folder_created")
	return c.c.UidMove(seqset, destination)
}

func (c *imapClient) MarkRead(ctx context.Context, id string) error {
	folder, uid, err := splitMessageID(id)
	if err != nil {
		return err
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.selectFolder(folder); err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return c.c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil)
}

func (c *imapClient) Probe(ctx context.Context) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return c.c.Noop()
}

func (c *imapClient) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.c.Logout()
}

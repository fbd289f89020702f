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
	"encoding/base64"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail system label ids. These are fixed provider constants, unlike the
// operator-defined homemetrics labels which are always resolved by name.
const (
	gmailLabelInbox  = "INBOX"
	gmailLabelUnread = "UNREAD"
)

const gmailUser = "me"

// GmailConfig configures the Gmail API transport.
type GmailConfig struct {
	// CredentialsPath is the OAuth2 client credentials JSON file.
	CredentialsPath string

	// TokenPath is the token cache produced by the initial interactive
	// grant; renewed tokens are written back to it.
	TokenPath string
}

type gmailClient struct {
	svc *gmail.Service
}

// NewGmailClient builds a Client backed by the Gmail REST API. The access
// token renews automatically through the underlying token source; renewals
// are persisted to the token cache.
func NewGmailClient(ctx context.Context, cfg *GmailConfig) (Client, error) {
	creds, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading oauth credentials %s: %w", cfg.CredentialsPath, err)
	}

	oauthCfg, err := google.ConfigFromJSON(creds, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing oauth credentials: %w", err)
	}

	tok, err := LoadToken(cfg.TokenPath)
	if err != nil {
		return nil, err
	}

	ts := NewPersistingTokenSource(oauthCfg, tok, cfg.TokenPath)

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	log.Info("gmail_client_ready")
	return &gmailClient{svc: svc}, nil
}

func (c *gmailClient) Search(ctx context.Context, labelID string, limit int) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		call := c.svc.Users.Messages.List(gmailUser).LabelIds(labelID).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, classifyError(err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
			if limit > 0 && len(ids) >= limit {
				return ids, nil
			}
		}

		pageToken = res.NextPageToken
		if pageToken == "" {
			return ids, nil
		}
	}
}

func (c *gmailClient) Fetch(ctx context.Context, id string) (*Envelope, error) {
	msg, err := c.svc.Users.Messages.Get(gmailUser, id).Format("raw").Context(ctx).Do()
	if err != nil {
		return nil, classifyError(err)
	}

	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(msg.Raw)
	if err != nil {
		return nil, fmt.Errorf("decoding raw content of %s: %w", id, err)
	}

	return ParseEnvelope(id, raw)
}

func (c *gmailClient) ListLabels(ctx context.Context) ([]Label, error) {
	res, err := c.svc.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return nil, classifyError(err)
	}

	labels := make([]Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, Label{Name: l.Name, ID: l.Id})
	}
	return labels, nil
}

func (c *gmailClient) Relabel(ctx context.Context, id string, removeLabelID, addLabelID string) error {
	req := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{removeLabelID},
		AddLabelIds:    []string{addLabelID},
	}
	_, err := c.svc.Users.Messages.Modify(gmailUser, id, req).Context(ctx).Do()
	return classifyError(err)
}

// Archive removes the message from the inbox and, when a destination label
// is given, attaches it. On Gmail "moving to /homemetrics/<stream>" is
// exactly this label operation.
func (c *gmailClient) Archive(ctx context.Context, id string, destination string) error {
	req := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{gmailLabelInbox},
	}
	if destination != "" {
		req.AddLabelIds = []string{destination}
	}
	_, err := c.svc.Users.Messages.Modify(gmailUser, id, req).Context(ctx).Do()
	return classifyError(err)
}

func (c *gmailClient) MarkRead(ctx context.Context, id string) error {
	req := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{gmailLabelUnread},
	}
	_, err := c.svc.Users.Messages.Modify(gmailUser, id, req).Context(ctx).Do()
	return classifyError(err)
}

// Probe issues the cheapest authenticated call the API offers. The request
// forces the token source to inspect token age and renew when close to the
// one-hour expiry.
func (c *gmailClient) Probe(ctx context.Context) error {
	_, err := c.svc.Users.GetProfile(gmailUser).Context(ctx).Do()
	return classifyError(err)
}

func (c *gmailClient) Close() error {
	return nil
}

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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nfranchet/homemetrics/internal"
)

func buildTestIMAPClient(t *testing.T) (Client, func(uid uint32, subject, body string)) {
	_, addr, mb := internal.BuildTestIMAPServer(t)

	client, err := NewIMAPClient(&IMAPConfig{
		HostPort: addr,
		Auth:     NewNormalAuthenticator("username", "password"),
	})
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	t.Cleanup(func() { _ = client.Close() })

	return client, func(uid uint32, subject, body string) {
		internal.AppendTestMessage(mb, uid, subject, body)
	}
}

func TestIMAPSearchAndFetch(t *testing.T) {
	client, appendMsg := buildTestIMAPClient(t)
	appendMsg(6, "Pool report", "pH: 7.2\nORP: 700 mV")

	ctx := context.Background()

	ids, err := client.Search(ctx, "INBOX", 0)
	assert.NoError(t, err)
	if !assert.Len(t, ids, 1) {
		t.FailNow()
	}
	assert.Equal(t, formatMessageID("INBOX", 6), ids[0])

	env, err := client.Fetch(ctx, ids[0])
	assert.NoError(t, err)
	assert.Equal(t, "Pool report", env.Subject)

	text, err := env.BodyText()
	assert.NoError(t, err)
	assert.Contains(t, text, "pH: 7.2")
}

func TestIMAPSearchLimit(t *testing.T) {
	client, appendMsg := buildTestIMAPClient(t)
	appendMsg(1, "one", "a")
	appendMsg(2, "two", "b")
	appendMsg(3, "three", "c")

	ids, err := client.Search(context.Background(), "INBOX", 2)
	assert.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestIMAPListLabels(t *testing.T) {
	client, _ := buildTestIMAPClient(t)

	labels, err := client.ListLabels(context.Background())
	assert.NoError(t, err)

	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
		// Folders are their own ids on IMAP.
		assert.Equal(t, l.Name, l.ID)
	}
	assert.Contains(t, names, "INBOX")
}

func TestIMAPMarkRead(t *testing.T) {
	client, appendMsg := buildTestIMAPClient(t)
	appendMsg(1, "subject", "body")

	ctx := context.Background()

	ids, err := client.Search(ctx, "INBOX", 0)
	assert.NoError(t, err)
	if !assert.Len(t, ids, 1) {
		t.FailNow()
	}

	assert.NoError(t, client.MarkRead(ctx, ids[0]))
}

func TestIMAPMessageIDRoundTrip(t *testing.T) {
	id := formatMessageID("homemetrics/todo/xsense", 42)

	folder, uid, err := splitMessageID(id)
	assert.NoError(t, err)
	assert.Equal(t, "homemetrics/todo/xsense", folder)
	assert.Equal(t, uint32(42), uid)

	for _, bad := range []string{"", "42", "folder\x1fnope", "\x1f42"} {
		_, _, err := splitMessageID(bad)
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

// Two streams share one session, so a Search for one stream must not redirect
// another stream's Fetch to its folder.
func TestIMAPFetchAfterOtherFolderSearch(t *testing.T) {
	user, addr, inbox := internal.BuildTestIMAPServer(t)
	other := internal.CreateTestMailbox(t, user, "todo-pool")

	internal.AppendTestMessage(inbox, 1, "Sensor export", "attached")
	internal.AppendTestMessage(other, 1, "Pool report", "pH: 7.2")

	client, err := NewIMAPClient(&IMAPConfig{
		HostPort: addr,
		Auth:     NewNormalAuthenticator("username", "password"),
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()

	sensorIDs, err := client.Search(ctx, "INBOX", 0)
	assert.NoError(t, err)
	if !assert.Len(t, sensorIDs, 1) {
		t.FailNow()
	}

	// Reselects the session's folder out from under the first search.
	_, err = client.Search(ctx, "todo-pool", 0)
	assert.NoError(t, err)

	env, err := client.Fetch(ctx, sensorIDs[0])
	assert.NoError(t, err)
	assert.Equal(t, "Sensor export", env.Subject)

	// The same id stays addressable for the read flag too.
	assert.NoError(t, client.MarkRead(ctx, sensorIDs[0]))
}

func TestIMAPProbe(t *testing.T) {
	client, _ := buildTestIMAPClient(t)
	assert.NoError(t, client.Probe(context.Background()))
}

func TestIMAPBadCredentials(t *testing.T) {
	_, addr, _ := internal.BuildTestIMAPServer(t)

	_, err := NewIMAPClient(&IMAPConfig{
		HostPort: addr,
		Auth:     NewNormalAuthenticator("username", "wrong"),
	})
	assert.ErrorIs(t, err, ErrAuthExpired)
}

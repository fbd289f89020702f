package internal

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
)

func BuildTestIMAPServer(t *testing.T) (backend.User, string, *memory.Mailbox) {
	be := memory.New()
	user, err := be.Login(nil, "username", "password")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	mb, err := user.GetMailbox("INBOX")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	mailbox := mb.(*memory.Mailbox)
	mailbox.Messages = nil

	s := server.New(be)
	t.Cleanup(func() { _ = s.Close() })

	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	go func() { err = s.Serve(l) }()

	return user, l.Addr().String(), mailbox
}

// CreateTestMailbox adds an extra, empty folder to the test server.
func CreateTestMailbox(t *testing.T, user backend.User, name string) *memory.Mailbox {
	err := user.CreateMailbox(name)
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	mb, err := user.GetMailbox(name)
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	return mb.(*memory.Mailbox)
}

// AppendTestMessage adds a plain-text message to the mailbox with the given
// UID.
func AppendTestMessage(mailbox *memory.Mailbox, uid uint32, subject, body string) {
	raw := fmt.Sprintf("From: sensor@example.com\r\n"+
		"Date: Sat, 15 Jun 2024 09:30:00 +0000\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain\r\n"+
		"\r\n"+
		"%s\r\n", subject, body)

	mailbox.Messages = append(mailbox.Messages, &memory.Message{
		Uid:   uid,
		Date:  time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC),
		Flags: []string{},
		Size:  uint32(len(raw)),
		Body:  []byte(raw),
	})
}

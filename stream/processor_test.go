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
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/nfranchet/homemetrics/extract"
	"github.com/nfranchet/homemetrics/labelcache"
	"github.com/nfranchet/homemetrics/mailbox"
	mock_mailbox "github.com/nfranchet/homemetrics/mailbox/mocks"
	"github.com/nfranchet/homemetrics/store"
)

type fakeStore struct{}

func (fakeStore) SaveSensorReadings(ctx context.Context, readings []extract.SensorReading) (int, error) {
	return len(readings), nil
}
func (fakeStore) SavePoolReading(ctx context.Context, reading *extract.PoolReading) error {
	return nil
}
func (fakeStore) LatestSensorReadings(ctx context.Context, sensorID string, limit int) ([]extract.SensorReading, error) {
	return nil, nil
}
func (fakeStore) Close() error { return nil }

type fakeRecords struct {
	count   int
	saveN   int
	saveErr error
	summary string
}

func (r fakeRecords) Len() int { return r.count }
func (r fakeRecords) Save(ctx context.Context, st store.Store) (int, error) {
	return r.saveN, r.saveErr
}
func (r fakeRecords) Summary() string { return r.summary }

type handlerFunc func(env *mailbox.Envelope) (Records, error)

func (f handlerFunc) Extract(env *mailbox.Envelope) (Records, error) { return f(env) }

type captureNotifier struct {
	texts []string
}

func (n *captureNotifier) Notify(ctx context.Context, text string) {
	n.texts = append(n.texts, text)
}

var testLabels = []mailbox.Label{
	{Name: "homemetrics/todo/xsense", ID: "Label_todo"},
	{Name: "homemetrics/done/xsense", ID: "Label_done"},
	{Name: "homemetrics/xsense", ID: "Label_archive"},
}

func newTestProcessor(t *testing.T, client *mock_mailbox.MockClient, handler Handler) *Processor {
	p, err := New(Config{
		Name:         "xsense",
		TodoLabel:    "homemetrics/todo/xsense",
		DoneLabel:    "homemetrics/done/xsense",
		ArchiveLabel: "homemetrics/xsense",
		Handler:      handler,
		Mailbox:      client,
		Labels:       labelcache.New(client),
		Store:        fakeStore{},
	})
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}
	return p
}

func TestProcessBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)

	client.EXPECT().ListLabels(gomock.Any()).Return(testLabels, nil).AnyTimes()
	client.EXPECT().Search(gomock.Any(), "Label_todo", 0).Return([]string{"m1", "m2"}, nil)

	for _, id := range []string{"m1", "m2"} {
		client.EXPECT().Fetch(gomock.Any(), id).Return(&mailbox.Envelope{ID: id}, nil)
		client.EXPECT().MarkRead(gomock.Any(), id).Return(nil)
		client.EXPECT().Relabel(gomock.Any(), id, "Label_todo", "Label_done").Return(nil)
		client.EXPECT().Archive(gomock.Any(), id, "Label_archive").Return(nil)
	}

	handler := handlerFunc(func(env *mailbox.Envelope) (Records, error) {
		return fakeRecords{count: 3, saveN: 3}, nil
	})

	p := newTestProcessor(t, client, handler)

	report, err := p.ProcessBatch(context.Background(), 0, false)
	assert.NoError(t, err)

	assert.Equal(t, 2, report.Found)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 6, report.Records)
	assert.NotEmpty(t, report.BatchID)
}

func TestProcessBatchIdempotentReingest(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)

	client.EXPECT().ListLabels(gomock.Any()).Return(testLabels, nil).AnyTimes()
	client.EXPECT().Search(gomock.Any(), "Label_todo", 0).Return([]string{"m1"}, nil)
	client.EXPECT().Fetch(gomock.Any(), "m1").Return(&mailbox.Envelope{ID: "m1"}, nil)
	client.EXPECT().MarkRead(gomock.Any(), "m1").Return(nil)
	client.EXPECT().Relabel(gomock.Any(), "m1", "Label_todo", "Label_done").Return(nil)
	client.EXPECT().Archive(gomock.Any(), "m1", "Label_archive").Return(nil)

	// Every reading is a duplicate: the save succeeds with zero new rows
	// and the message still completes its label transition.
	handler := handlerFunc(func(env *mailbox.Envelope) (Records, error) {
		return fakeRecords{count: 3, saveN: 0}, nil
	})

	p := newTestProcessor(t, client, handler)

	report, err := p.ProcessBatch(context.Background(), 0, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Records)
}

func TestProcessBatchDryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)

	client.EXPECT().ListLabels(gomock.Any()).Return(testLabels, nil).AnyTimes()
	client.EXPECT().Search(gomock.Any(), "Label_todo", 0).Return([]string{"m1"}, nil)
	client.EXPECT().Fetch(gomock.Any(), "m1").Return(&mailbox.Envelope{ID: "m1"}, nil)

	// No MarkRead, Relabel, Archive or Save expectations: any such call
	// fails the test.
	handler := handlerFunc(func(env *mailbox.Envelope) (Records, error) {
		return fakeRecords{count: 2, saveN: 2, saveErr: errors.New("save must not be called")}, nil
	})

	p := newTestProcessor(t, client, handler)

	report, err := p.ProcessBatch(context.Background(), 0, true)
	assert.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.Records)
}

func TestProcessBatchSkipsMessagesWithoutMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)

	client.EXPECT().ListLabels(gomock.Any()).Return(testLabels, nil).AnyTimes()
	client.EXPECT().Search(gomock.Any(), "Label_todo", 0).Return([]string{"m1"}, nil)
	client.EXPECT().Fetch(gomock.Any(), "m1").Return(&mailbox.Envelope{ID: "m1"}, nil)

	// The message keeps its todo label: no Relabel expectation.
	handler := handlerFunc(func(env *mailbox.Envelope) (Records, error) {
		return nil, extract.ErrNoMetricsFound
	})

	p := newTestProcessor(t, client, handler)

	report, err := p.ProcessBatch(context.Background(), 0, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 0, report.Failed)
}

func TestProcessBatchOneFailureDoesNotAbort(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)

	client.EXPECT().ListLabels(gomock.Any()).Return(testLabels, nil).AnyTimes()
	client.EXPECT().Search(gomock.Any(), "Label_todo", 0).Return([]string{"m1", "m2"}, nil)

	client.EXPECT().Fetch(gomock.Any(), "m1").Return(nil, errors.New("corrupt message"))

	client.EXPECT().Fetch(gomock.Any(), "m2").Return(&mailbox.Envelope{ID: "m2"}, nil)
	client.EXPECT().MarkRead(gomock.Any(), "m2").Return(nil)
	client.EXPECT().Relabel(gomock.Any(), "m2", "Label_todo", "Label_done").Return(nil)
	client.EXPECT().Archive(gomock.Any(), "m2", "Label_archive").Return(nil)

	handler := handlerFunc(func(env *mailbox.Envelope) (Records, error) {
		return fakeRecords{count: 1, saveN: 1}, nil
	})

	p := newTestProcessor(t, client, handler)

	report, err := p.ProcessBatch(context.Background(), 0, false)
	assert.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
	if assert.Len(t, report.Failures, 1) {
		assert.Equal(t, "m1", report.Failures[0].MessageID)
	}
}

func TestProcessBatchUnknownTodoLabel(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)

	client.EXPECT().ListLabels(gomock.Any()).Return([]mailbox.Label{
		{Name: "INBOX", ID: "INBOX"},
	}, nil).AnyTimes()

	handler := handlerFunc(func(env *mailbox.Envelope) (Records, error) {
		return fakeRecords{}, nil
	})

	p := newTestProcessor(t, client, handler)

	_, err := p.ProcessBatch(context.Background(), 0, false)
	assert.ErrorIs(t, err, labelcache.ErrUnknownLabel)
}

func TestProcessBatchNotifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_mailbox.NewMockClient(ctrl)

	client.EXPECT().ListLabels(gomock.Any()).Return(testLabels, nil).AnyTimes()
	client.EXPECT().Search(gomock.Any(), "Label_todo", 0).Return([]string{"m1"}, nil)
	client.EXPECT().Fetch(gomock.Any(), "m1").Return(&mailbox.Envelope{ID: "m1"}, nil)
	client.EXPECT().MarkRead(gomock.Any(), "m1").Return(nil)
	client.EXPECT().Relabel(gomock.Any(), "m1", "Label_todo", "Label_done").Return(nil)
	client.EXPECT().Archive(gomock.Any(), "m1", "Label_archive").Return(nil)

	notifier := &captureNotifier{}

	p, err := New(Config{
		Name:         "blueriot",
		TodoLabel:    "homemetrics/todo/xsense",
		DoneLabel:    "homemetrics/done/xsense",
		ArchiveLabel: "homemetrics/xsense",
		Handler: handlerFunc(func(env *mailbox.Envelope) (Records, error) {
			return fakeRecords{count: 1, saveN: 1, summary: "pool pH 7.2"}, nil
		}),
		Mailbox:  client,
		Labels:   labelcache.New(client),
		Store:    fakeStore{},
		Notifier: notifier,
	})
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	_, err = p.ProcessBatch(context.Background(), 0, false)
	assert.NoError(t, err)
	assert.Equal(t, []string{"pool pH 7.2"}, notifier.texts)
}

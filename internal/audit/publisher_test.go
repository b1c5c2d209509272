package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	id "bucketlist/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSink) Write(context.Context, []Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("sink down")
}

func TestPublisherDeliversOnClose(t *testing.T) {
	sink := NewMemorySink()
	p := NewPublisher(sink, slog.Default())

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Emit(context.Background(), Event{Action: EventBucketlistCreated, UserID: id.UserID(7)}))
	}
	require.NoError(t, p.Emit(context.Background(), Event{Action: EventLoginSucceeded, UserID: id.UserID(8)}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))

	assert.Len(t, sink.ListByUser(id.UserID(7)), 10)
	events := sink.ListByUser(id.UserID(8))
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp should be stamped on emit")
}

func TestPublisherRejectsAfterClose(t *testing.T) {
	p := NewPublisher(NewMemorySink(), slog.Default())
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()), "close is idempotent")

	err := p.Emit(context.Background(), Event{Action: EventUserDeleted})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisherSurvivesSinkErrors(t *testing.T) {
	sink := &failingSink{}
	p := NewPublisher(sink, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	require.NoError(t, p.Emit(context.Background(), Event{Action: EventUserRegistered}))
	require.NoError(t, p.Close(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.GreaterOrEqual(t, sink.calls, 1)
}

func TestLogSinkWritesAuditRecords(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := sink.Write(context.Background(), []Event{{
		Action:    EventBucketlistDeleted,
		UserID:    id.UserID(3),
		Subject:   "12",
		RequestID: "req-1",
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"log_type":"audit"`)
	assert.Contains(t, out, `"event":"bucketlist_deleted"`)
	assert.Contains(t, out, `"subject":"12"`)
	assert.Contains(t, out, `"request_id":"req-1"`)
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	mem := NewMemorySink()
	multi := MultiSink{&failingSink{}, mem}

	err := multi.Write(context.Background(), []Event{{Action: EventItemCreated}})
	require.Error(t, err)
	assert.Equal(t, []Action{EventItemCreated}, mem.Actions(), "later sinks still receive events")
}

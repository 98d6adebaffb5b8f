package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu     sync.Mutex
	frames []Event
	failOn string
	notify chan Event
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{notify: make(chan Event, 100)}
}

func (w *recordingWriter) WriteFrame(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOn != "" && ev.Type == w.failOn {
		return errors.New("broken pipe")
	}
	w.frames = append(w.frames, ev)
	w.notify <- ev
	return nil
}

func (w *recordingWriter) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-w.notify:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Event{}
	}
}

func serveAsync(ctx context.Context, s *Stream, w FrameWriter) <-chan State {
	result := make(chan State, 1)
	go func() {
		result <- s.Serve(ctx, w)
	}()
	return result
}

func waitState(t *testing.T, result <-chan State) State {
	t.Helper()
	select {
	case state := <-result:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream to finish")
		return StateConnecting
	}
}

func TestStream_ConnectedThenEventsThenClientClose(t *testing.T) {
	b := NewBroadcaster()
	s := NewStream("client-1", "alice", b, time.Hour, 8)
	w := newRecordingWriter()
	ctx, cancel := context.WithCancel(context.Background())

	assert.Equal(t, StateConnecting, s.State())
	result := serveAsync(ctx, s, w)

	connected := w.next(t)
	assert.Equal(t, TypeConnected, connected.Type)
	assert.Equal(t, "client-1", connected.Payload["clientId"])
	assert.NotZero(t, connected.Timestamp)

	require.Eventually(t, func() bool { return s.State() == StateOpen }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, b.CountForUser("alice"))

	assert.Equal(t, 1, b.Publish(New(TypeMessageReceived, "alice", map[string]interface{}{"data": "x"})))
	assert.Equal(t, TypeMessageReceived, w.next(t).Type)

	cancel()
	assert.Equal(t, StateClosedByClient, waitState(t, result))
	assert.Equal(t, StateClosedByClient, s.State())
	assert.Equal(t, 0, b.Count())

	// Double close must not panic
	assert.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send(Heartbeat()), ErrStreamClosed)
}

func TestStream_Heartbeat(t *testing.T) {
	b := NewBroadcaster()
	s := NewStream("client-1", "alice", b, 10*time.Millisecond, 8)
	w := newRecordingWriter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := serveAsync(ctx, s, w)

	assert.Equal(t, TypeConnected, w.next(t).Type)
	assert.Equal(t, TypeHeartbeat, w.next(t).Type)
	assert.Equal(t, TypeHeartbeat, w.next(t).Type)

	cancel()
	waitState(t, result)
}

func TestStream_HeartbeatWriteFailure(t *testing.T) {
	b := NewBroadcaster()
	s := NewStream("client-1", "alice", b, 10*time.Millisecond, 8)
	w := newRecordingWriter()
	w.failOn = TypeHeartbeat

	state := waitState(t, serveAsync(context.Background(), s, w))

	assert.Equal(t, StateClosedByError, state)
	assert.Equal(t, 0, b.Count())
}

func TestStream_ConnectedWriteFailure(t *testing.T) {
	b := NewBroadcaster()
	s := NewStream("client-1", "alice", b, time.Hour, 8)
	w := newRecordingWriter()
	w.failOn = TypeConnected

	state := waitState(t, serveAsync(context.Background(), s, w))

	assert.Equal(t, StateClosedByError, state)
	assert.Equal(t, 0, b.Count())
}

func TestStream_FullBufferEvictsConnection(t *testing.T) {
	b := NewBroadcaster()
	s := NewStream("client-1", "alice", b, time.Hour, 1)
	b.Register(s.ID(), s, "alice")

	assert.Equal(t, 1, b.Publish(New(TypeMessageReceived, "alice", nil)))
	// Nobody drains the queue, so the second publish overflows
	assert.Equal(t, 0, b.Publish(New(TypeMessageReceived, "alice", nil)))
	assert.Equal(t, 0, b.Count())
	assert.ErrorIs(t, s.Send(Heartbeat()), ErrStreamClosed)
}

func TestStream_ExternalCloseEndsServe(t *testing.T) {
	b := NewBroadcaster()
	s := NewStream("client-1", "alice", b, time.Hour, 8)
	w := newRecordingWriter()

	result := serveAsync(context.Background(), s, w)
	w.next(t)

	require.NoError(t, s.Close())
	assert.Equal(t, StateClosedByError, waitState(t, result))
	assert.Equal(t, 0, b.Count())
}

func TestStream_ReplacedConnectionKeepsSuccessor(t *testing.T) {
	b := NewBroadcaster()
	first := NewStream("client-1", "alice", b, time.Hour, 8)
	w := newRecordingWriter()
	ctx, cancel := context.WithCancel(context.Background())

	result := serveAsync(ctx, first, w)
	w.next(t)

	successor := &fakeHandle{}
	b.Register("client-1", successor, "alice")

	cancel()
	waitState(t, result)

	assert.Equal(t, 1, b.Count())
	b.Publish(New(TypeMessageReceived, "alice", nil))
	assert.Len(t, successor.received(), 1)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closed_by_client", StateClosedByClient.String())
	assert.Equal(t, "closed_by_error", StateClosedByError.String())
	assert.Equal(t, "unknown", State(42).String())
}

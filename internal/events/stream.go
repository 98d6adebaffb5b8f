package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"mindscape-agent/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultBufferSize        = 64
)

var (
	ErrStreamClosed = errors.New("stream closed")
	ErrStreamFull   = errors.New("stream buffer full")
)

// State is the lifecycle of a stream connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosedByClient
	StateClosedByError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedByClient:
		return "closed_by_client"
	case StateClosedByError:
		return "closed_by_error"
	default:
		return "unknown"
	}
}

// FrameWriter writes one event to the client transport.
type FrameWriter interface {
	WriteFrame(Event) error
}

// Stream adapts a transport to the Broadcaster. Published events are queued
// in a bounded buffer and written by Serve; Send never blocks.
type Stream struct {
	id          string
	userID      string
	broadcaster *Broadcaster
	heartbeat   time.Duration

	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
}

func NewStream(id, userID string, broadcaster *Broadcaster, heartbeat time.Duration, bufferSize int) *Stream {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Stream{
		id:          id,
		userID:      userID,
		broadcaster: broadcaster,
		heartbeat:   heartbeat,
		queue:       make(chan Event, bufferSize),
		done:        make(chan struct{}),
	}
}

func (s *Stream) ID() string {
	return s.id
}

func (s *Stream) State() State {
	return State(s.state.Load())
}

// Send queues ev for delivery. A full buffer counts as a failed write.
func (s *Stream) Send(ev Event) error {
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}

	select {
	case s.queue <- ev:
		return nil
	case <-s.done:
		return ErrStreamClosed
	default:
		return ErrStreamFull
	}
}

// Close stops the stream. Safe to call repeatedly.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

// Serve registers the stream, writes the connected event, then forwards
// queued events and heartbeats until ctx is cancelled, the stream is closed,
// or a write fails. It always unregisters and closes before returning.
func (s *Stream) Serve(ctx context.Context, w FrameWriter) State {
	s.broadcaster.Register(s.id, s, s.userID)
	defer func() {
		s.broadcaster.unregisterHandle(s.id, s)
		_ = s.Close()
		logger.Info("Stream closed",
			zap.String("client_id", s.id),
			zap.String("user_id", s.userID),
			zap.String("state", s.State().String()),
		)
	}()

	if err := w.WriteFrame(Connected(s.id)); err != nil {
		return s.finish(StateClosedByError, err)
	}
	s.state.Store(int32(StateOpen))
	logger.Info("Stream opened", zap.String("client_id", s.id), zap.String("user_id", s.userID))

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.finish(StateClosedByClient, nil)

		case <-s.done:
			return s.finish(StateClosedByError, ErrStreamClosed)

		case ev := <-s.queue:
			if err := w.WriteFrame(ev); err != nil {
				return s.finish(StateClosedByError, err)
			}

		case <-ticker.C:
			if err := w.WriteFrame(Heartbeat()); err != nil {
				return s.finish(StateClosedByError, err)
			}
		}
	}
}

func (s *Stream) finish(state State, err error) State {
	s.state.Store(int32(state))
	if err != nil {
		logger.Debug("Stream write loop ended", zap.String("client_id", s.id), zap.Error(err))
	}
	return state
}

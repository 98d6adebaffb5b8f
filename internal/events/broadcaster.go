package events

import (
	"sync"

	"mindscape-agent/internal/metrics"
	"mindscape-agent/pkg/logger"

	"go.uber.org/zap"
)

// Handle is a live client connection. Implementations must be comparable
// (pointer types) and Close must be safe to call more than once.
type Handle interface {
	Send(Event) error
	Close() error
}

type connection struct {
	handle Handle
	userID string
}

type target struct {
	id     string
	handle Handle
}

// Broadcaster is the process-wide registry of live connections.
type Broadcaster struct {
	mu    sync.RWMutex
	conns map[string]connection
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{conns: make(map[string]connection)}
}

// Register adds a connection, silently replacing any handle already registered under id.
func (b *Broadcaster) Register(id string, handle Handle, userID string) {
	b.mu.Lock()
	b.conns[id] = connection{handle: handle, userID: userID}
	n := len(b.conns)
	b.mu.Unlock()

	metrics.StreamConnections.Set(float64(n))
	logger.Debug("Connection registered", zap.String("client_id", id), zap.String("user_id", userID), zap.Int("connections", n))
}

// Unregister removes id. Missing ids are ignored.
func (b *Broadcaster) Unregister(id string) {
	b.mu.Lock()
	_, ok := b.conns[id]
	delete(b.conns, id)
	n := len(b.conns)
	b.mu.Unlock()

	if ok {
		metrics.StreamConnections.Set(float64(n))
		logger.Debug("Connection unregistered", zap.String("client_id", id), zap.Int("connections", n))
	}
}

// unregisterHandle removes id only while it still maps to handle, so a replaced
// connection cannot evict its successor.
func (b *Broadcaster) unregisterHandle(id string, handle Handle) bool {
	b.mu.Lock()
	conn, ok := b.conns[id]
	if ok && conn.handle == handle {
		delete(b.conns, id)
	} else {
		ok = false
	}
	n := len(b.conns)
	b.mu.Unlock()

	if ok {
		metrics.StreamConnections.Set(float64(n))
	}
	return ok
}

// Publish delivers ev to every connection of ev.UserID, or to all connections
// when UserID is empty. Connections whose write fails are unregistered and
// closed. Returns the number of successful deliveries.
func (b *Broadcaster) Publish(ev Event) int {
	b.mu.RLock()
	targets := make([]target, 0, len(b.conns))
	for id, conn := range b.conns {
		if ev.UserID == "" || conn.userID == ev.UserID {
			targets = append(targets, target{id: id, handle: conn.handle})
		}
	}
	b.mu.RUnlock()

	delivered := 0
	for _, t := range targets {
		if b.deliver(t, ev) {
			delivered++
		}
	}

	if !ev.IsControl() {
		metrics.EventsPublished.WithLabelValues(ev.Type).Inc()
		logger.Debug("Event published",
			zap.String("type", ev.Type),
			zap.String("user_id", ev.UserID),
			zap.Int("delivered", delivered),
			zap.Int("targets", len(targets)),
		)
	}
	return delivered
}

// PublishToOne delivers ev to a single connection. A missing id is a no-op.
func (b *Broadcaster) PublishToOne(id string, ev Event) bool {
	b.mu.RLock()
	conn, ok := b.conns[id]
	b.mu.RUnlock()

	if !ok {
		return false
	}
	return b.deliver(target{id: id, handle: conn.handle}, ev)
}

func (b *Broadcaster) deliver(t target, ev Event) bool {
	if err := t.handle.Send(ev); err != nil {
		metrics.EventDeliveryFailures.Inc()
		logger.Warn("Event delivery failed, dropping connection",
			zap.String("client_id", t.id),
			zap.String("type", ev.Type),
			zap.Error(err),
		)
		if b.unregisterHandle(t.id, t.handle) {
			_ = t.handle.Close()
		}
		return false
	}
	return true
}

// Count returns the number of registered connections
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// CountForUser returns the number of connections owned by userID
func (b *Broadcaster) CountForUser(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, conn := range b.conns {
		if conn.userID == userID {
			n++
		}
	}
	return n
}

// CloseAll closes and removes every connection, used on shutdown.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	conns := b.conns
	b.conns = make(map[string]connection)
	b.mu.Unlock()

	for _, conn := range conns {
		_ = conn.handle.Close()
	}
	metrics.StreamConnections.Set(0)
}

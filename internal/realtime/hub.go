// Package realtime is the best-effort event layer. Durable state (the
// notification row, the message row) is the only thing guaranteed to
// survive; everything here is a convenience on top of it. Publishing never
// fails the originating request.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Frame is what goes over the wire to a client.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// envelope wraps a frame with its routing for the cross-instance bridge.
type envelope struct {
	Scope   string          `json:"scope"` // "user" or "broadcast"
	UserID  uuid.UUID       `json:"user_id,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

const (
	scopeUser      = "user"
	scopeBroadcast = "broadcast"
)

// remote forwards envelopes to every instance (including this one).
type remote interface {
	forward(env envelope) error
}

// Hub maps a user identity to zero or more live connections. A user with
// multiple devices has multiple subscribers, all receiving the same user
// events. Mutated only by connect/disconnect; publish paths take the read
// lock.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[*subscriber]struct{}

	remote remote
	logger *zap.Logger
}

type subscriber struct {
	userID uuid.UUID
	send   chan Frame
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[*subscriber]struct{}),
		logger:      logger,
	}
}

// UseRemote routes all published events through the cross-instance bridge.
// Local delivery then happens only when the bridge loops the envelope back,
// so every instance — this one included — sees the identical stream.
func (h *Hub) UseRemote(r remote) {
	h.remote = r
}

// Subscribe registers a connection for a user and returns the channel the
// connection's writer drains. sendBuffer frames may queue per connection;
// beyond that, events for the lagging connection are dropped.
const sendBuffer = 32

func (h *Hub) Subscribe(userID uuid.UUID) *Subscription {
	sub := &subscriber{userID: userID, send: make(chan Frame, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[userID]; !ok {
		h.subscribers[userID] = make(map[*subscriber]struct{})
	}
	h.subscribers[userID][sub] = struct{}{}

	return &Subscription{hub: h, sub: sub}
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.subscribers[sub.userID]; ok {
		delete(conns, sub)
		if len(conns) == 0 {
			delete(h.subscribers, sub.userID)
		}
	}
}

// PublishToUser delivers an event to every connection of one user.
// Fire-and-forget: no connection means the event is dropped, not queued.
func (h *Hub) PublishToUser(userID uuid.UUID, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("drop event: marshal payload", zap.String("event", event), zap.Error(err))
		return
	}
	h.dispatch(envelope{Scope: scopeUser, UserID: userID, Event: event, Payload: raw})
}

// Broadcast delivers an event to every connected client regardless of user.
func (h *Hub) Broadcast(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("drop event: marshal payload", zap.String("event", event), zap.Error(err))
		return
	}
	h.dispatch(envelope{Scope: scopeBroadcast, Event: event, Payload: raw})
}

func (h *Hub) dispatch(env envelope) {
	if h.remote != nil {
		if err := h.remote.forward(env); err == nil {
			return
		} else {
			// Bridge down: degrade to local-only delivery rather
			// than losing the event on this instance too.
			h.logger.Warn("event bridge unavailable, delivering locally",
				zap.String("event", env.Event), zap.Error(err))
		}
	}
	h.deliver(env)
}

// deliver fans an envelope out to local connections.
func (h *Hub) deliver(env envelope) {
	frame := Frame{Event: env.Event, Payload: env.Payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	switch env.Scope {
	case scopeUser:
		for sub := range h.subscribers[env.UserID] {
			h.offer(sub, frame)
		}
	case scopeBroadcast:
		for _, conns := range h.subscribers {
			for sub := range conns {
				h.offer(sub, frame)
			}
		}
	}
}

// offer is non-blocking: a connection that cannot keep up loses this event
// instead of stalling the publisher.
func (h *Hub) offer(sub *subscriber, frame Frame) {
	select {
	case sub.send <- frame:
	default:
		h.logger.Debug("drop event: slow connection",
			zap.String("event", frame.Event),
			zap.String("user_id", sub.userID.String()))
	}
}

// ConnectionCount reports the number of live connections across all users.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.subscribers {
		count += len(conns)
	}
	return count
}

// Subscription is one live connection's handle on the hub.
type Subscription struct {
	hub *Hub
	sub *subscriber
}

// C is the stream of frames for this connection.
func (s *Subscription) C() <-chan Frame {
	return s.sub.send
}

// Close removes the connection from the hub. Safe to call once the writer
// has stopped draining C.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.sub)
}

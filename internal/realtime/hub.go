package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const adminRole = "admin"

// Envelope is the frame pushed to subscribers.
type Envelope struct {
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

func NewEnvelope(room, event string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return Envelope{Room: room, Event: event, Payload: raw, SentAt: time.Now().UTC()}, nil
}

// Subscriber receives encoded frames. Deliver must not block; it returns false when the frame was dropped.
type Subscriber interface {
	Deliver(frame []byte) bool
}

// Member is a subscriber that knows whose connection it is, so a room can be narrowed to a set of users.
type Member interface {
	Subscriber
	MemberID() uuid.UUID
	MemberRole() string
}

// Hub is an in-process room registry with presence-based, best-effort delivery.
// Nothing is stored for subscribers that are offline when a frame is published.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[Subscriber]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]map[Subscriber]struct{}),
		logger: logger,
	}
}

func (h *Hub) Join(room string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[Subscriber]struct{})
		h.rooms[room] = members
	}
	members[s] = struct{}{}
}

func (h *Hub) Leave(room string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, s)
}

// LeaveAll removes the subscriber from every room, typically on disconnect.
func (h *Hub) LeaveAll(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.rooms {
		h.leaveLocked(room, s)
	}
}

func (h *Hub) leaveLocked(room string, s Subscriber) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Restrict removes every subscriber of room that keep rejects and returns how many were removed.
// Subscribers that are not a Member have no identity to check and are removed too.
func (h *Hub) Restrict(room string, keep func(id uuid.UUID, role string) bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for s := range h.rooms[room] {
		if m, ok := s.(Member); ok && keep(m.MemberID(), m.MemberRole()) {
			continue
		}
		h.leaveLocked(room, s)
		removed++
	}
	return removed
}

// RestrictRoom narrows room to the given users, keeping admins.
func (h *Hub) RestrictRoom(ctx context.Context, room string, userIDs []uuid.UUID) error {
	if removed := h.Restrict(room, participantsOnly(userIDs)); removed > 0 {
		h.logger.Info("Removed non-participants from room", "room", room, "removed", removed)
	}
	return nil
}

func participantsOnly(userIDs []uuid.UUID) func(uuid.UUID, string) bool {
	return func(id uuid.UUID, role string) bool {
		if role == adminRole {
			return true
		}
		for _, u := range userIDs {
			if u == id {
				return true
			}
		}
		return false
	}
}

func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish delivers the event to the subscribers currently in room. It never waits on a slow subscriber.
func (h *Hub) Publish(ctx context.Context, room, event string, payload any) error {
	env, err := NewEnvelope(room, event, payload)
	if err != nil {
		return err
	}
	h.Deliver(env)
	return nil
}

// Deliver fans a prepared envelope out to the room and returns how many subscribers accepted it.
func (h *Hub) Deliver(env Envelope) int {
	frame, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("Failed to encode envelope", "room", env.Room, "event", env.Event, "error", err)
		return 0
	}

	h.mu.RLock()
	members := make([]Subscriber, 0, len(h.rooms[env.Room]))
	for s := range h.rooms[env.Room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range members {
		if s.Deliver(frame) {
			delivered++
		}
	}
	if dropped := len(members) - delivered; dropped > 0 {
		h.logger.Warn("Dropped realtime frames", "room", env.Room, "event", env.Event, "dropped", dropped)
	}
	h.logger.Debug("Realtime event published", "room", env.Room, "event", env.Event, "delivered", delivered)
	return delivered
}

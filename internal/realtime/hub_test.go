package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubSubscriber struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
}

func (s *stubSubscriber) Deliver(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *stubSubscriber) envelopes(t *testing.T) []Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, 0, len(s.frames))
	for _, f := range s.frames {
		var env Envelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("frame is not an envelope: %v", err)
		}
		out = append(out, env)
	}
	return out
}

func TestPublishReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub(testLogger)
	customer := uuid.New()
	inRoom, elsewhere := &stubSubscriber{}, &stubSubscriber{}
	hub.Join(UserRoom(customer), inRoom)
	hub.Join(AdminsRoom, elsewhere)

	if err := hub.Publish(context.Background(), UserRoom(customer), "booking_created", map[string]string{"id": "b1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := inRoom.envelopes(t)
	if len(got) != 1 || got[0].Event != "booking_created" || got[0].Room != UserRoom(customer) {
		t.Fatalf("unexpected frames %+v", got)
	}
	var payload map[string]string
	if err := json.Unmarshal(got[0].Payload, &payload); err != nil || payload["id"] != "b1" {
		t.Errorf("payload not preserved: %s", got[0].Payload)
	}
	if len(elsewhere.envelopes(t)) != 0 {
		t.Errorf("subscriber outside the room received a frame")
	}
}

func TestPublishToEmptyRoomIsNotAnError(t *testing.T) {
	hub := NewHub(testLogger)
	if err := hub.Publish(context.Background(), BookingRoom(uuid.New()), "booking_status_updated", nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestFullSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(testLogger)
	slow, fast := &stubSubscriber{full: true}, &stubSubscriber{}
	hub.Join(AvailableProvidersRoom, slow)
	hub.Join(AvailableProvidersRoom, fast)

	env, err := NewEnvelope(AvailableProvidersRoom, "new_booking_request", struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	if delivered := hub.Deliver(env); delivered != 1 {
		t.Fatalf("delivered to %d subscribers, want 1", delivered)
	}
	if len(fast.envelopes(t)) != 1 {
		t.Errorf("fast subscriber missed the frame")
	}
}

func TestLeaveAllRemovesEveryMembership(t *testing.T) {
	hub := NewHub(testLogger)
	s := &stubSubscriber{}
	hub.Join(RoleRoom("provider"), s)
	hub.Join(AvailableProvidersRoom, s)
	hub.Join(BookingRoom(uuid.New()), s)

	hub.LeaveAll(s)

	if n := hub.Members(AvailableProvidersRoom); n != 0 {
		t.Errorf("still a member of %d subscribers", n)
	}
	if err := hub.Publish(context.Background(), RoleRoom("provider"), "ping", nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(s.envelopes(t)) != 0 {
		t.Errorf("frame delivered after LeaveAll")
	}
}

func TestSamePublishCarriesSamePayloadToEveryMember(t *testing.T) {
	hub := NewHub(testLogger)
	room := BookingRoom(uuid.New())
	a, b := &stubSubscriber{}, &stubSubscriber{}
	hub.Join(room, a)
	hub.Join(room, b)

	if err := hub.Publish(context.Background(), room, "booking_status_updated", map[string]string{"status": "accepted"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	ea, eb := a.envelopes(t), b.envelopes(t)
	if len(ea) != 1 || len(eb) != 1 || string(ea[0].Payload) != string(eb[0].Payload) {
		t.Fatalf("members saw different frames: %+v vs %+v", ea, eb)
	}
}

func TestBridgeReplaysEnvelopesIntoHub(t *testing.T) {
	hub := NewHub(testLogger)
	bridge := NewRedisBridge(nil, hub, "", testLogger)
	customer := uuid.New()
	s := &stubSubscriber{}
	hub.Join(UserRoom(customer), s)

	env, err := NewEnvelope(UserRoom(customer), "booking_accepted", map[string]string{"status": "accepted"})
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	data, _ := json.Marshal(env)

	bridge.handleMessage(string(data))
	bridge.handleMessage("not json")
	bridge.handleMessage(`{"room":"","event":"x"}`)

	got := s.envelopes(t)
	if len(got) != 1 || got[0].Event != "booking_accepted" {
		t.Fatalf("unexpected frames %+v", got)
	}
}

func TestRoomNames(t *testing.T) {
	id := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	if got := UserRoom(id); got != "user:7c9e6679-7425-40de-944b-e07fc1f90ae7" {
		t.Errorf("UserRoom() = %q", got)
	}
	if got := BookingRoom(id); got != "booking:7c9e6679-7425-40de-944b-e07fc1f90ae7" {
		t.Errorf("BookingRoom() = %q", got)
	}
	if got := RoleRoom("admin"); got != "role:admin" {
		t.Errorf("RoleRoom() = %q", got)
	}
}

type memberSubscriber struct {
	stubSubscriber
	id   uuid.UUID
	role string
}

func (m *memberSubscriber) MemberID() uuid.UUID { return m.id }

func (m *memberSubscriber) MemberRole() string { return m.role }

func TestRestrictRoomKeepsParticipantsAndAdmins(t *testing.T) {
	hub := NewHub(testLogger)
	room := BookingRoom(uuid.New())
	customer := &memberSubscriber{id: uuid.New(), role: "user"}
	assigned := &memberSubscriber{id: uuid.New(), role: "provider"}
	outsider := &memberSubscriber{id: uuid.New(), role: "provider"}
	admin := &memberSubscriber{id: uuid.New(), role: "admin"}
	anonymous := &stubSubscriber{}
	for _, s := range []Subscriber{customer, assigned, outsider, admin, anonymous} {
		hub.Join(room, s)
	}
	hub.Join(AvailableProvidersRoom, outsider)

	if err := hub.RestrictRoom(context.Background(), room, []uuid.UUID{customer.id, assigned.id}); err != nil {
		t.Fatalf("RestrictRoom() error = %v", err)
	}
	if n := hub.Members(room); n != 3 {
		t.Fatalf("room has %d members, want 3", n)
	}

	if err := hub.Publish(context.Background(), room, "booking_status_updated", map[string]string{"status": "accepted"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	for name, s := range map[string]*memberSubscriber{"customer": customer, "assigned provider": assigned, "admin": admin} {
		if len(s.envelopes(t)) != 1 {
			t.Errorf("%s missed the frame", name)
		}
	}
	if len(outsider.envelopes(t)) != 0 || len(anonymous.envelopes(t)) != 0 {
		t.Errorf("removed subscribers still received booking frames")
	}
	if hub.Members(AvailableProvidersRoom) != 1 {
		t.Errorf("restriction leaked into another room")
	}
}

func TestBridgeAppliesRoomRestriction(t *testing.T) {
	hub := NewHub(testLogger)
	bridge := NewRedisBridge(nil, hub, "", testLogger)
	room := BookingRoom(uuid.New())
	customer := &memberSubscriber{id: uuid.New(), role: "user"}
	outsider := &memberSubscriber{id: uuid.New(), role: "provider"}
	hub.Join(room, customer)
	hub.Join(room, outsider)

	env, err := NewEnvelope(room, restrictEvent, restriction{UserIDs: []uuid.UUID{customer.id}})
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	data, _ := json.Marshal(env)
	bridge.handleMessage(string(data))

	if hub.Members(room) != 1 {
		t.Fatalf("room has %d members, want 1", hub.Members(room))
	}
	if len(customer.envelopes(t)) != 0 {
		t.Errorf("control envelope was delivered to a socket")
	}
}

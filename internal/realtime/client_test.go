package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func nextReply(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("reply is not an envelope: %v", err)
		}
		return env
	default:
		t.Fatal("no reply was queued")
		return Envelope{}
	}
}

func TestJoinBookingRequiresAuthorization(t *testing.T) {
	hub := NewHub(testLogger)
	c := NewClient(nil, hub, uuid.New(), "provider", testLogger)
	allowed, refused := uuid.New(), uuid.New()
	authorize := func(ctx context.Context, bookingID uuid.UUID) error {
		if bookingID == allowed {
			return nil
		}
		return errors.New("forbidden")
	}

	c.handle(context.Background(), Command{Action: ActionJoinBooking, BookingID: refused}, authorize)
	if env := nextReply(t, c); env.Event != "error" {
		t.Errorf("refused join replied %q, want error", env.Event)
	}
	if hub.Members(BookingRoom(refused)) != 0 {
		t.Errorf("refused client joined the booking room")
	}

	c.handle(context.Background(), Command{Action: ActionJoinBooking, BookingID: allowed}, authorize)
	if env := nextReply(t, c); env.Event != "joined" {
		t.Errorf("allowed join replied %q, want joined", env.Event)
	}
	if hub.Members(BookingRoom(allowed)) != 1 {
		t.Errorf("allowed client is not in the booking room")
	}

	c.handle(context.Background(), Command{Action: ActionLeaveBooking, BookingID: allowed}, authorize)
	if env := nextReply(t, c); env.Event != "left" {
		t.Errorf("leave replied %q, want left", env.Event)
	}
	if hub.Members(BookingRoom(allowed)) != 0 {
		t.Errorf("client still in the booking room after leaving")
	}
}

func TestHandleRejectsMalformedCommands(t *testing.T) {
	hub := NewHub(testLogger)
	c := NewClient(nil, hub, uuid.New(), "user", testLogger)

	c.handle(context.Background(), Command{Action: ActionJoinBooking}, nil)
	if env := nextReply(t, c); env.Event != "error" {
		t.Errorf("missing booking id replied %q", env.Event)
	}
	c.handle(context.Background(), Command{Action: ActionJoinBooking, BookingID: uuid.New()}, nil)
	if env := nextReply(t, c); env.Event != "error" {
		t.Errorf("join without an authorizer replied %q", env.Event)
	}
	c.handle(context.Background(), Command{Action: "subscribe_all", BookingID: uuid.New()}, nil)
	if env := nextReply(t, c); env.Event != "error" {
		t.Errorf("unknown action replied %q", env.Event)
	}
}

func TestDeliverAfterCloseIsDropped(t *testing.T) {
	c := NewClient(nil, NewHub(testLogger), uuid.New(), "user", testLogger)
	if !c.Deliver([]byte(`{}`)) {
		t.Fatal("open client refused a frame")
	}
	close(c.done)
	if c.Deliver([]byte(`{}`)) {
		t.Error("closed client accepted a frame")
	}
}

func TestDeliverDropsWhenQueueIsFull(t *testing.T) {
	c := NewClient(nil, NewHub(testLogger), uuid.New(), "user", testLogger)
	for i := 0; i < sendBuffer; i++ {
		if !c.Deliver([]byte(`{}`)) {
			t.Fatalf("frame %d refused before the queue was full", i)
		}
	}
	if c.Deliver([]byte(`{}`)) {
		t.Error("full queue accepted a frame")
	}
}

func TestClientIsARoomMember(t *testing.T) {
	id := uuid.New()
	var m Member = NewClient(nil, NewHub(testLogger), id, "provider", testLogger)
	if m.MemberID() != id || m.MemberRole() != "provider" {
		t.Errorf("member identity = %v/%s", m.MemberID(), m.MemberRole())
	}
}

package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/joshua-takyi/servicehub/internal/realtime"
)

type roomMember struct {
	id     uuid.UUID
	role   string
	mu     sync.Mutex
	frames int
}

func (m *roomMember) Deliver(frame []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
	return true
}

func (m *roomMember) MemberID() uuid.UUID { return m.id }
func (m *roomMember) MemberRole() string  { return m.role }

func (m *roomMember) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

func TestClaimedBookingRoomStopsReachingOtherProviders(t *testing.T) {
	f := newBookingFixture(t)
	hub := realtime.NewHub(discardLogger)
	matcher := NewMatchingService(f.catalog, f.catalog, DefaultMaxKm, discardLogger)
	f.svc = NewBookingService(f.bookings, f.catalog, f.catalog, f.payments, matcher, NewStatusMachine(), hub, f.publisher, f.uploader, discardLogger)

	customerID := uuid.New()
	b := f.create(t, customerID, nil)

	claimer := newProvider("claimer", "cleaning", nil)
	onlooker := newProvider("onlooker", "cleaning", nil)
	f.catalog.providers = []*models.Provider{claimer, onlooker}

	room := realtime.BookingRoom(b.ID)
	customer := &roomMember{id: customerID, role: models.RoleUser}
	watcher := &roomMember{id: onlooker.ID, role: models.RoleProvider}
	admin := &roomMember{id: uuid.New(), role: models.RoleAdmin}
	for _, m := range []*roomMember{customer, watcher, admin} {
		hub.Join(room, m)
	}

	if _, err := f.svc.ClaimBooking(context.Background(), b.ID, claimer.ID); err != nil {
		t.Fatalf("ClaimBooking() error = %v", err)
	}
	f.change(t, b.ID, claimer.ID, models.RoleProvider, models.StatusAccepted)
	f.change(t, b.ID, claimer.ID, models.RoleProvider, models.StatusInProgress)

	if n := watcher.count(); n != 0 {
		t.Errorf("provider who lost the claim received %d booking frames", n)
	}
	if customer.count() != 3 || admin.count() != 3 {
		t.Errorf("customer got %d frames and admin %d, want 3 each", customer.count(), admin.count())
	}
	if got := hub.Members(room); got != 2 {
		t.Errorf("room has %d members, want 2", got)
	}
}

func TestAcceptingBookingNarrowsRoom(t *testing.T) {
	f := newBookingFixture(t)
	provider := newProvider("assigned", "cleaning", nil)
	f.catalog.providers = []*models.Provider{provider}
	customer := uuid.New()
	b := f.create(t, customer, nil)

	f.change(t, b.ID, provider.ID, models.RoleProvider, models.StatusAccepted)

	members, ok := f.gateway.restrictedTo(realtime.BookingRoom(b.ID))
	if !ok {
		t.Fatalf("booking room was not narrowed when the booking left pending")
	}
	if len(members) != 2 || members[0] != customer || members[1] != provider.ID {
		t.Errorf("booking room narrowed to %v", members)
	}
}

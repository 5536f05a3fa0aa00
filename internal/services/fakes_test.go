package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/models"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[uuid.UUID]*models.Booking)}
}

func (r *memBookingRepo) CreateBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := b.BeforeCreate(); err != nil {
		return nil, err
	}
	r.bookings[b.ID] = b.Clone()
	return b, nil
}

func (r *memBookingRepo) GetBookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	return b.Clone(), nil
}

func (r *memBookingRepo) UpdateBooking(ctx context.Context, b *models.Booking, expectedVersion int64) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[b.ID]
	if !ok || stored.Version != expectedVersion {
		return nil, models.ErrVersionConflict
	}
	b.Version = expectedVersion + 1
	b.Recalculate()
	r.bookings[b.ID] = b.Clone()
	return b, nil
}

func (r *memBookingRepo) ListBookings(ctx context.Context, f models.BookingFilter, offset, limit int) ([]*models.Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*models.Booking
	for _, b := range r.bookings {
		if f.CustomerID != nil && b.CustomerID != *f.CustomerID {
			continue
		}
		if f.ProviderID != nil && !b.IsAssignedTo(*f.ProviderID) {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		matched = append(matched, b.Clone())
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memBookingRepo) CountBookings(ctx context.Context, f models.BookingFilter) (int64, error) {
	_, total, err := r.ListBookings(ctx, f, 0, 0)
	return int64(total), err
}

// put stores a booking directly, bypassing creation hooks.
func (r *memBookingRepo) put(b *models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = b.Clone()
}

type memCatalog struct {
	services  map[uuid.UUID]*models.Service
	providers []*models.Provider
}

func newMemCatalog() *memCatalog {
	return &memCatalog{services: make(map[uuid.UUID]*models.Service)}
}

func (c *memCatalog) GetServiceByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	s, ok := c.services[id]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	cp := *s
	return &cp, nil
}

func (c *memCatalog) GetProviderByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	for _, p := range c.providers {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, models.ErrDocumentNotFound
}

// FindMatchingProviders returns every provider; eligibility is decided by the matcher.
func (c *memCatalog) FindMatchingProviders(ctx context.Context, serviceID uuid.UUID, category string) ([]*models.Provider, error) {
	out := make([]*models.Provider, 0, len(c.providers))
	for _, p := range c.providers {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*models.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[uuid.UUID]*models.Payment)}
}

func (r *memPaymentRepo) CreatePayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := p.BeforeCreate(); err != nil {
		return nil, err
	}
	cp := *p
	r.payments[p.BookingID] = &cp
	return p, nil
}

func (r *memPaymentRepo) GetPaymentByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[bookingID]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPaymentRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentRecordStatus) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			p.Status = status
			cp := *p
			return &cp, nil
		}
	}
	return nil, models.ErrDocumentNotFound
}

func (r *memPaymentRepo) SetPaymentProvider(ctx context.Context, bookingID, providerID uuid.UUID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[bookingID]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	id := providerID
	p.ProviderID = &id
	cp := *p
	return &cp, nil
}

type published struct {
	room    string
	event   string
	payload any
}

type recordingGateway struct {
	mu           sync.Mutex
	sent         []published
	restrictions map[string][]uuid.UUID
	err          error
}

func (g *recordingGateway) Publish(ctx context.Context, room, event string, payload any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, published{room: room, event: event, payload: payload})
	return nil
}

func (g *recordingGateway) RestrictRoom(ctx context.Context, room string, userIDs []uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.restrictions == nil {
		g.restrictions = make(map[string][]uuid.UUID)
	}
	g.restrictions[room] = append([]uuid.UUID(nil), userIDs...)
	return nil
}

func (g *recordingGateway) restrictedTo(room string) ([]uuid.UUID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids, ok := g.restrictions[room]
	return ids, ok
}

func (g *recordingGateway) find(room, event string) (published, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.sent {
		if p.room == room && p.event == event {
			return p, true
		}
	}
	return published{}, false
}

func (g *recordingGateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	return nil
}

type fakeUploader struct {
	calls int
}

func (u *fakeUploader) UploadImages(ctx context.Context, images []string, folder string) ([]string, error) {
	u.calls++
	urls := make([]string, 0, len(images))
	for i := range images {
		urls = append(urls, "https://cdn.example.com/"+folder+"/"+string(rune('a'+i))+".jpg")
	}
	return urls, nil
}

var errTransport = errors.New("transport down")

func ptr[T any](v T) *T { return &v }

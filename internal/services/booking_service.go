package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/joshua-takyi/servicehub/internal/realtime"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ImageUploader stores images and returns their public URLs.
type ImageUploader interface {
	UploadImages(ctx context.Context, images []string, folder string) ([]string, error)
}

type CreateBookingInput struct {
	CustomerID    uuid.UUID               `json:"-" validate:"required"`
	ServiceID     uuid.UUID               `json:"service_id" validate:"required"`
	Date          string                  `json:"date" validate:"required"`
	Time          string                  `json:"time" validate:"required"`
	Address       string                  `json:"address" validate:"max=500"`
	PaymentMethod string                  `json:"payment_method" validate:"omitempty,oneof=cash card mobile_money"`
	Notes         string                  `json:"notes" validate:"max=1000"`
	TotalAmount   float64                 `json:"total_amount" validate:"gte=0"`
	Location      *models.BookingLocation `json:"customer_location"`
}

type ChangeStatusInput struct {
	BookingID uuid.UUID
	ActorID   uuid.UUID
	ActorRole string
	Target    models.BookingStatus
	Reason    string
	Note      string
}

type ListBookingsInput struct {
	ActorID   uuid.UUID
	ActorRole string
	Status    models.BookingStatus
	Offset    int
	Limit     int
}

// BookingService orchestrates the booking lifecycle: creation with dispatch,
// status changes and the typed update commands. Notifications are sent only
// after the booking write is durable.
type BookingService struct {
	bookingRepo  models.BookingRepo
	serviceRepo  models.ServiceRepo
	providerRepo models.ProviderRepo
	paymentRepo  models.PaymentRepo
	matcher      *MatchingService
	machine      *StatusMachine
	gateway      NotificationGateway
	events       EventPublisher
	uploader     ImageUploader
	logger       *slog.Logger
	now          func() time.Time
}

// NewBookingService wires the orchestrator. events and uploader may be nil.
func NewBookingService(
	bookingRepo models.BookingRepo,
	serviceRepo models.ServiceRepo,
	providerRepo models.ProviderRepo,
	paymentRepo models.PaymentRepo,
	matcher *MatchingService,
	machine *StatusMachine,
	gateway NotificationGateway,
	events EventPublisher,
	uploader ImageUploader,
	logger *slog.Logger,
) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	if machine == nil {
		machine = NewStatusMachine()
	}
	return &BookingService{
		bookingRepo:  bookingRepo,
		serviceRepo:  serviceRepo,
		providerRepo: providerRepo,
		paymentRepo:  paymentRepo,
		matcher:      matcher,
		machine:      machine,
		gateway:      gateway,
		events:       events,
		uploader:     uploader,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (bs *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if err := models.Validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	service, err := bs.serviceRepo.GetServiceByID(ctx, in.ServiceID)
	if err != nil {
		return nil, mapRepoErr(err, "service")
	}
	if !service.IsActive {
		return nil, fmt.Errorf("service is not available: %w", ErrNotFound)
	}

	scheduled, err := ParseSchedule(in.Date, in.Time)
	if err != nil {
		return nil, err
	}

	provider, err := bs.matcher.Assign(ctx, service.ID, in.Location.Point(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to match provider: %w", err)
	}

	total := in.TotalAmount
	if total == 0 {
		total = service.Price
	}

	now := bs.now()
	booking := &models.Booking{
		CustomerID:       in.CustomerID,
		ServiceID:        service.ID,
		ScheduledTime:    scheduled,
		Address:          in.Address,
		PaymentMethod:    in.PaymentMethod,
		Notes:            in.Notes,
		Status:           models.StatusPending,
		TotalAmount:      total,
		CommissionRate:   service.CommissionRate,
		PaymentStatus:    models.PaymentPending,
		CustomerLocation: in.Location,
		StatusHistory: []models.StatusHistoryEntry{{
			Status:    models.StatusPending,
			ChangedBy: in.CustomerID,
			Role:      models.RoleUser,
			Note:      "Booking created",
			ChangedAt: now,
		}},
		CreatedAt: now,
	}
	if booking.CustomerLocation != nil && booking.Address == "" {
		booking.Address = booking.CustomerLocation.Address
	}
	if provider != nil {
		id := provider.ID
		booking.ProviderID = &id
		booking.AssignedAt = &now
	}

	created, err := bs.bookingRepo.CreateBooking(ctx, booking)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	payment := &models.Payment{
		BookingID:        created.ID,
		CustomerID:       created.CustomerID,
		ProviderID:       created.ProviderID,
		Amount:           created.TotalAmount,
		CommissionAmount: created.CommissionAmount,
		ProviderPayout:   created.ProviderPayout,
		Method:           created.PaymentMethod,
		Status:           models.PaymentRecordPending,
	}
	if _, err := bs.paymentRepo.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	bs.logger.Info("Booking created",
		"booking_id", created.ID,
		"service_id", created.ServiceID,
		"assigned", created.ProviderID != nil,
	)

	snapshot := BookingEvent{Booking: created, Status: created.Status}
	var notices []notice
	if created.ProviderID != nil {
		notices = append(notices, notice{room: realtime.UserRoom(*created.ProviderID), event: EventNewBooking, payload: snapshot})
	} else {
		notices = append(notices, notice{room: realtime.AvailableProvidersRoom, event: EventNewBookingRequest, payload: snapshot})
	}
	createdEvent := BookingEvent{Booking: created, Status: created.Status, Message: assignmentMessage(created)}
	notices = append(notices,
		notice{room: realtime.UserRoom(created.CustomerID), event: EventBookingCreated, payload: createdEvent},
		notice{room: realtime.AdminsRoom, event: EventBookingCreated, payload: createdEvent},
	)

	msg := newLifecycleEvent(KeyBookingCreated, created, "", created.CustomerID, models.RoleUser)
	return created, bs.dispatch(ctx, notices, KeyBookingCreated, msg)
}

func assignmentMessage(b *models.Booking) string {
	if b.ProviderID != nil {
		return "Your booking has been created and a provider has been assigned"
	}
	return "Your booking has been created. We are finding a provider for you"
}

func (bs *BookingService) ChangeStatus(ctx context.Context, in ChangeStatusInput) (*models.Booking, error) {
	if !in.Target.IsValid() {
		return nil, fmt.Errorf("unknown status %q: %w", in.Target, ErrInvalidInput)
	}

	current, err := bs.bookingRepo.GetBookingByID(ctx, in.BookingID)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}

	next, err := bs.machine.Apply(current, TransitionCommand{
		Target:    in.Target,
		ActorID:   in.ActorID,
		ActorRole: in.ActorRole,
		Note:      in.Note,
		Reason:    in.Reason,
	})
	if err != nil {
		return nil, err
	}

	payment, err := bs.paymentRepo.GetPaymentByBookingID(ctx, current.ID)
	if err != nil && !errors.Is(err, models.ErrDocumentNotFound) {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	paymentTarget := paymentTransition(next.Status, payment)
	if paymentTarget == models.PaymentRecordPartiallyRefunded {
		next.PaymentStatus = models.PaymentRefunded
	}

	saved, err := bs.bookingRepo.UpdateBooking(ctx, next, current.Version)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}

	if paymentTarget != "" {
		if _, err := bs.paymentRepo.UpdatePaymentStatus(ctx, payment.ID, paymentTarget); err != nil {
			return saved, fmt.Errorf("booking %s saved but payment update failed: %w", saved.Status, err)
		}
	}

	bs.logger.Info("Booking status changed",
		"booking_id", saved.ID,
		"from", current.Status,
		"to", saved.Status,
		"role", in.ActorRole,
	)

	event := BookingEvent{Booking: saved, Status: saved.Status, Message: statusMessage(saved.Status)}
	notices := participantNotices(saved, EventBookingStatusUpdated, event)
	if name, ok := customerStatusEvents[saved.Status]; ok {
		notices = append(notices, notice{room: realtime.UserRoom(saved.CustomerID), event: name, payload: event})
	}

	msg := newLifecycleEvent(KeyBookingStatusChanged, saved, current.Status, in.ActorID, in.ActorRole)
	if current.Status == models.StatusPending {
		return saved, bs.dispatchToParticipants(ctx, saved, notices, KeyBookingStatusChanged, msg)
	}
	return saved, bs.dispatch(ctx, notices, KeyBookingStatusChanged, msg)
}

// paymentTransition returns the payment record status implied by a booking status, or "" for none.
func paymentTransition(status models.BookingStatus, payment *models.Payment) models.PaymentRecordStatus {
	if payment == nil {
		return ""
	}
	switch status {
	case models.StatusCompleted:
		if payment.Status == models.PaymentRecordPending {
			return models.PaymentRecordCompleted
		}
	case models.StatusCancelled:
		if payment.Status == models.PaymentRecordCompleted {
			return models.PaymentRecordPartiallyRefunded
		}
	}
	return ""
}

func (bs *BookingService) GetBooking(ctx context.Context, id, actorID uuid.UUID, role string) (*models.Booking, error) {
	b, err := bs.bookingRepo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	if canView(b, actorID, role) {
		return b, nil
	}
	if role == models.RoleProvider && isOpenRequest(b) {
		err := bs.checkProviderCanServe(ctx, b, actorID)
		switch {
		case err == nil:
			return b, nil
		case !errors.Is(err, ErrForbidden) && !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	return nil, fmt.Errorf("booking: %w", ErrForbidden)
}

// canView allows admins, the owning customer and the assigned provider.
func canView(b *models.Booking, actorID uuid.UUID, role string) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleUser:
		return b.CustomerID == actorID
	case models.RoleProvider:
		return b.IsAssignedTo(actorID)
	default:
		return false
	}
}

// isOpenRequest reports whether the booking is still broadcast to available providers.
// Providers able to serve it may view it so they can decide whether to claim it.
func isOpenRequest(b *models.Booking) bool {
	return b.ProviderID == nil && b.Status == models.StatusPending
}

func (bs *BookingService) ListBookings(ctx context.Context, in ListBookingsInput) ([]*models.Booking, int, error) {
	if in.Status != "" && !in.Status.IsValid() {
		return nil, 0, fmt.Errorf("unknown status %q: %w", in.Status, ErrInvalidInput)
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	if in.Limit <= 0 {
		in.Limit = DefaultPageSize
	}
	if in.Limit > MaxPageSize {
		in.Limit = MaxPageSize
	}

	filter := models.BookingFilter{Status: in.Status}
	switch in.ActorRole {
	case models.RoleAdmin:
	case models.RoleUser:
		id := in.ActorID
		filter.CustomerID = &id
	case models.RoleProvider:
		id := in.ActorID
		filter.ProviderID = &id
	default:
		return nil, 0, fmt.Errorf("bookings: %w", ErrForbidden)
	}

	bookings, total, err := bs.bookingRepo.ListBookings(ctx, filter, in.Offset, in.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

// FindCandidates exposes provider matching for a service, e.g. for admin dispatch screens.
func (bs *BookingService) FindCandidates(ctx context.Context, serviceID uuid.UUID, customer *models.GeoPoint) ([]Candidate, error) {
	return bs.matcher.FindCandidates(ctx, serviceID, customer)
}

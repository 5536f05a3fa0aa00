package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/joshua-takyi/servicehub/internal/realtime"
)

const (
	ServicePhotosFolder = "service-photos"
	MaxServicePhotos    = 10
	MaxNotesLength      = 1000
)

type RescheduleInput struct {
	BookingID uuid.UUID
	ActorID   uuid.UUID
	ActorRole string
	Date      string
	Time      string
}

// ClaimBooking lets a provider take an unassigned pending booking that was broadcast to available providers.
func (bs *BookingService) ClaimBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*models.Booking, error) {
	current, err := bs.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	if current.Status != models.StatusPending {
		return nil, fmt.Errorf("booking is %s: %w", current.Status, ErrConflict)
	}
	if current.ProviderID != nil {
		return nil, fmt.Errorf("booking already has a provider: %w", ErrConflict)
	}

	if err := bs.checkProviderCanServe(ctx, current, providerID); err != nil {
		return nil, err
	}

	next := current.Clone()
	id := providerID
	next.ProviderID = &id
	now := bs.now()
	setOnce(&next.AssignedAt, now)

	saved, err := bs.bookingRepo.UpdateBooking(ctx, next, current.Version)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	if err := bs.assignPaymentProvider(ctx, saved.ID, providerID); err != nil {
		return saved, err
	}
	bs.logger.Info("Booking claimed", "booking_id", saved.ID, "provider_id", providerID)

	event := BookingEvent{Booking: saved, Status: saved.Status, Message: "A provider has been assigned to your booking"}
	notices := []notice{
		{room: realtime.UserRoom(saved.CustomerID), event: EventBookingAssigned, payload: event},
		{room: realtime.BookingRoom(saved.ID), event: EventBookingAssigned, payload: event},
		{room: realtime.AvailableProvidersRoom, event: EventBookingClaimed, payload: BookingEvent{Booking: saved, Status: saved.Status}},
		{room: realtime.AdminsRoom, event: EventBookingAssigned, payload: event},
	}
	msg := newLifecycleEvent(KeyBookingAssigned, saved, saved.Status, providerID, models.RoleProvider)
	return saved, bs.dispatchToParticipants(ctx, saved, notices, KeyBookingAssigned, msg)
}

// AssignProvider assigns or reassigns the provider of a pending booking.
func (bs *BookingService) AssignProvider(ctx context.Context, bookingID, providerID, adminID uuid.UUID) (*models.Booking, error) {
	current, err := bs.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	if current.Status != models.StatusPending {
		return nil, fmt.Errorf("only pending bookings can be reassigned, booking is %s: %w", current.Status, ErrConflict)
	}
	if current.IsAssignedTo(providerID) {
		return current, nil
	}

	if err := bs.checkProviderCanServe(ctx, current, providerID); err != nil {
		return nil, err
	}

	previous := current.ProviderID
	next := current.Clone()
	id := providerID
	next.ProviderID = &id
	setOnce(&next.AssignedAt, bs.now())

	saved, err := bs.bookingRepo.UpdateBooking(ctx, next, current.Version)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	if err := bs.assignPaymentProvider(ctx, saved.ID, providerID); err != nil {
		return saved, err
	}
	bs.logger.Info("Booking assigned by admin", "booking_id", saved.ID, "provider_id", providerID, "admin_id", adminID)

	snapshot := BookingEvent{Booking: saved, Status: saved.Status}
	event := BookingEvent{Booking: saved, Status: saved.Status, Message: "A provider has been assigned to your booking"}
	notices := []notice{
		{room: realtime.UserRoom(providerID), event: EventNewBooking, payload: snapshot},
		{room: realtime.UserRoom(saved.CustomerID), event: EventBookingAssigned, payload: event},
		{room: realtime.BookingRoom(saved.ID), event: EventBookingAssigned, payload: event},
	}
	if previous == nil {
		notices = append(notices, notice{room: realtime.AvailableProvidersRoom, event: EventBookingClaimed, payload: snapshot})
	} else {
		notices = append(notices, notice{
			room:    realtime.UserRoom(*previous),
			event:   EventBookingAssigned,
			payload: BookingEvent{Booking: saved, Status: saved.Status, Message: "This booking has been reassigned"},
		})
	}
	msg := newLifecycleEvent(KeyBookingAssigned, saved, saved.Status, adminID, models.RoleAdmin)
	return saved, bs.dispatchToParticipants(ctx, saved, notices, KeyBookingAssigned, msg)
}

// assignPaymentProvider points the booking's payment record at its new payee.
// A booking without a payment record has nothing to update.
func (bs *BookingService) assignPaymentProvider(ctx context.Context, bookingID, providerID uuid.UUID) error {
	_, err := bs.paymentRepo.SetPaymentProvider(ctx, bookingID, providerID)
	if err != nil && !errors.Is(err, models.ErrDocumentNotFound) {
		return fmt.Errorf("booking saved but payment provider update failed: %w", err)
	}
	return nil
}

func (bs *BookingService) checkProviderCanServe(ctx context.Context, b *models.Booking, providerID uuid.UUID) error {
	provider, err := bs.providerRepo.GetProviderByID(ctx, providerID)
	if err != nil {
		return mapRepoErr(err, "provider")
	}
	service, err := bs.serviceRepo.GetServiceByID(ctx, b.ServiceID)
	if err != nil {
		return mapRepoErr(err, "service")
	}
	if !provider.IsActive || !provider.IsApproved {
		return fmt.Errorf("provider is not active and approved: %w", ErrForbidden)
	}
	if !provider.Offers(service) {
		return fmt.Errorf("provider does not offer this service: %w", ErrForbidden)
	}
	return nil
}

// RescheduleBooking moves a pending or accepted booking to a new date and time.
func (bs *BookingService) RescheduleBooking(ctx context.Context, in RescheduleInput) (*models.Booking, error) {
	scheduled, err := ParseSchedule(in.Date, in.Time)
	if err != nil {
		return nil, err
	}

	current, err := bs.bookingRepo.GetBookingByID(ctx, in.BookingID)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	switch in.ActorRole {
	case models.RoleAdmin:
	case models.RoleUser:
		if current.CustomerID != in.ActorID {
			return nil, fmt.Errorf("booking belongs to another customer: %w", ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("%s cannot reschedule bookings: %w", in.ActorRole, ErrForbidden)
	}
	if current.Status != models.StatusPending && current.Status != models.StatusAccepted {
		return nil, fmt.Errorf("booking is %s and can no longer be rescheduled: %w", current.Status, ErrConflict)
	}

	next := current.Clone()
	next.ScheduledTime = scheduled
	return bs.saveUpdate(ctx, current, next, in.ActorID, in.ActorRole, "Your booking has been rescheduled")
}

// SetNotes replaces the free-text notes of a booking that is still open.
func (bs *BookingService) SetNotes(ctx context.Context, bookingID, actorID uuid.UUID, role, notes string) (*models.Booking, error) {
	notes = strings.TrimSpace(notes)
	if len(notes) > MaxNotesLength {
		return nil, fmt.Errorf("notes exceed %d characters: %w", MaxNotesLength, ErrInvalidInput)
	}

	current, err := bs.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	allowed := role == models.RoleAdmin ||
		(role == models.RoleUser && current.CustomerID == actorID) ||
		(role == models.RoleProvider && current.IsAssignedTo(actorID))
	if !allowed {
		return nil, fmt.Errorf("booking: %w", ErrForbidden)
	}
	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("booking is %s: %w", current.Status, ErrConflict)
	}

	next := current.Clone()
	next.Notes = notes
	return bs.saveUpdate(ctx, current, next, actorID, role, "Booking notes updated")
}

// AttachServicePhotos uploads photos of the work and appends their URLs to the booking.
func (bs *BookingService) AttachServicePhotos(ctx context.Context, bookingID, providerID uuid.UUID, images []string) (*models.Booking, error) {
	if bs.uploader == nil {
		return nil, fmt.Errorf("photo uploads are not configured")
	}
	var cleaned []string
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			cleaned = append(cleaned, img)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("at least one image is required: %w", ErrInvalidInput)
	}

	current, err := bs.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	if !current.IsAssignedTo(providerID) {
		return nil, fmt.Errorf("booking is not assigned to this provider: %w", ErrForbidden)
	}
	if current.Status != models.StatusInProgress && current.Status != models.StatusCompleted {
		return nil, fmt.Errorf("photos can only be attached once the service has started: %w", ErrConflict)
	}
	if len(current.ServicePhotos)+len(cleaned) > MaxServicePhotos {
		return nil, fmt.Errorf("a booking holds at most %d photos: %w", MaxServicePhotos, ErrInvalidInput)
	}

	urls, err := bs.uploader.UploadImages(ctx, cleaned, ServicePhotosFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to upload service photos: %w", err)
	}

	next := current.Clone()
	next.ServicePhotos = append(next.ServicePhotos, urls...)
	return bs.saveUpdate(ctx, current, next, providerID, models.RoleProvider, "Service photos added")
}

// saveUpdate persists a typed update that does not change status and notifies the participants.
func (bs *BookingService) saveUpdate(ctx context.Context, current, next *models.Booking, actorID uuid.UUID, role, message string) (*models.Booking, error) {
	saved, err := bs.bookingRepo.UpdateBooking(ctx, next, current.Version)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	bs.logger.Info("Booking updated", "booking_id", saved.ID, "role", role, "change", message)

	event := BookingEvent{Booking: saved, Status: saved.Status, Message: message}
	msg := newLifecycleEvent(KeyBookingUpdated, saved, current.Status, actorID, role)
	return saved, bs.dispatch(ctx, participantNotices(saved, EventBookingUpdated, event), KeyBookingUpdated, msg)
}

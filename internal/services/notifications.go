package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/joshua-takyi/servicehub/internal/realtime"
)

// NotificationGateway is the room-keyed real-time transport. Publish is fire-and-forget:
// subscribers that are not connected when it runs receive nothing.
type NotificationGateway interface {
	Publish(ctx context.Context, room, event string, payload any) error
}

// RoomRestrictor narrows a room to the given users plus admins. Gateways that track
// member identity implement it so a booking room stops reaching former viewers.
type RoomRestrictor interface {
	RestrictRoom(ctx context.Context, room string, userIDs []uuid.UUID) error
}

// EventPublisher emits lifecycle events to the durable event stream.
type EventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

const (
	EventBookingCreated       = "booking_created"
	EventNewBooking           = "new_booking"
	EventNewBookingRequest    = "new_booking_request"
	EventBookingStatusUpdated = "booking_status_updated"
	EventBookingAccepted      = "booking_accepted"
	EventBookingRejected      = "booking_rejected"
	EventServiceStarted       = "service_started"
	EventServiceCompleted     = "service_completed"
	EventBookingAssigned      = "booking_assigned"
	EventBookingClaimed       = "booking_claimed"
	EventBookingUpdated       = "booking_updated"
)

// Routing keys on the bookings exchange.
const (
	KeyBookingCreated       = "booking.created"
	KeyBookingStatusChanged = "booking.status_changed"
	KeyBookingAssigned      = "booking.assigned"
	KeyBookingUpdated       = "booking.updated"
)

var customerStatusEvents = map[models.BookingStatus]string{
	models.StatusAccepted:   EventBookingAccepted,
	models.StatusRejected:   EventBookingRejected,
	models.StatusInProgress: EventServiceStarted,
	models.StatusCompleted:  EventServiceCompleted,
}

var statusMessages = map[models.BookingStatus]string{
	models.StatusPending:    "Your booking is pending",
	models.StatusAccepted:   "Your booking has been accepted by the provider",
	models.StatusInProgress: "Your service has started",
	models.StatusCompleted:  "Your service has been completed",
	models.StatusCancelled:  "Your booking has been cancelled",
	models.StatusRejected:   "Your booking has been rejected",
}

func statusMessage(s models.BookingStatus) string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("Your booking status changed to %s", s)
}

// BookingEvent is the payload of every real-time booking event.
type BookingEvent struct {
	Booking *models.Booking      `json:"booking"`
	Status  models.BookingStatus `json:"status"`
	Message string               `json:"message,omitempty"`
}

// LifecycleEvent is the message written to the event stream.
type LifecycleEvent struct {
	Type           string               `json:"type"`
	BookingID      uuid.UUID            `json:"booking_id"`
	CustomerID     uuid.UUID            `json:"customer_id"`
	ProviderID     *uuid.UUID           `json:"provider_id,omitempty"`
	Status         models.BookingStatus `json:"status"`
	PreviousStatus models.BookingStatus `json:"previous_status,omitempty"`
	ActorID        uuid.UUID            `json:"actor_id"`
	ActorRole      string               `json:"actor_role"`
	TotalAmount    float64              `json:"total_amount"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

func newLifecycleEvent(key string, b *models.Booking, previous models.BookingStatus, actorID uuid.UUID, role string) LifecycleEvent {
	return LifecycleEvent{
		Type:           key,
		BookingID:      b.ID,
		CustomerID:     b.CustomerID,
		ProviderID:     b.ProviderID,
		Status:         b.Status,
		PreviousStatus: previous,
		ActorID:        actorID,
		ActorRole:      role,
		TotalAmount:    b.TotalAmount,
		OccurredAt:     b.UpdatedAt,
	}
}

type notice struct {
	room    string
	event   string
	payload any
}

// participantNotices addresses the booking room, the customer, the assigned provider and the admins.
func participantNotices(b *models.Booking, event string, payload any) []notice {
	notices := []notice{
		{room: realtime.BookingRoom(b.ID), event: event, payload: payload},
		{room: realtime.UserRoom(b.CustomerID), event: event, payload: payload},
	}
	if b.ProviderID != nil {
		notices = append(notices, notice{room: realtime.UserRoom(*b.ProviderID), event: event, payload: payload})
	}
	return append(notices, notice{room: realtime.AdminsRoom, event: event, payload: payload})
}

// dispatch runs after the write is durable. Every notice is attempted; failures are
// collected into a DeliveryError rather than undoing the write.
func (bs *BookingService) dispatch(ctx context.Context, notices []notice, key string, msg LifecycleEvent) error {
	var errs []error
	for _, n := range notices {
		if err := bs.gateway.Publish(ctx, n.room, n.event, n.payload); err != nil {
			bs.logger.Error("Failed to publish notification", "room", n.room, "event", n.event, "error", err)
			errs = append(errs, fmt.Errorf("%s to %s: %w", n.event, n.room, err))
		}
	}

	if bs.events != nil && key != "" {
		if err := bs.events.PublishJSON(ctx, key, msg); err != nil {
			bs.logger.Error("Failed to publish lifecycle event", "routing_key", key, "booking_id", msg.BookingID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	if len(errs) > 0 {
		return &DeliveryError{Errs: errs}
	}
	return nil
}

// narrowBookingRoom drops everyone but the customer, the assigned provider and admins from the booking room.
func (bs *BookingService) narrowBookingRoom(ctx context.Context, b *models.Booking) error {
	r, ok := bs.gateway.(RoomRestrictor)
	if !ok {
		return nil
	}
	participants := []uuid.UUID{b.CustomerID}
	if b.ProviderID != nil {
		participants = append(participants, *b.ProviderID)
	}
	room := realtime.BookingRoom(b.ID)
	if err := r.RestrictRoom(ctx, room, participants); err != nil {
		bs.logger.Error("Failed to restrict booking room", "room", room, "error", err)
		return fmt.Errorf("restrict %s: %w", room, err)
	}
	return nil
}

// dispatchToParticipants narrows the booking room before sending, so frames about a
// booking that is no longer open only reach the people on it.
func (bs *BookingService) dispatchToParticipants(ctx context.Context, b *models.Booking, notices []notice, key string, msg LifecycleEvent) error {
	var errs []error
	if err := bs.narrowBookingRoom(ctx, b); err != nil {
		errs = append(errs, err)
	}
	if err := bs.dispatch(ctx, notices, key, msg); err != nil {
		var de *DeliveryError
		if errors.As(err, &de) {
			errs = append(errs, de.Errs...)
		} else {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &DeliveryError{Errs: errs}
	}
	return nil
}

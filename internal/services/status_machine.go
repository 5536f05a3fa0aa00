package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/models"
)

// allowedTransitions is the booking lifecycle. Terminal states have no entry.
var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPending:    {models.StatusAccepted, models.StatusRejected, models.StatusCancelled},
	models.StatusAccepted:   {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCancelled},
}

var providerTargets = map[models.BookingStatus]bool{
	models.StatusAccepted:   true,
	models.StatusRejected:   true,
	models.StatusInProgress: true,
	models.StatusCompleted:  true,
	models.StatusCancelled:  true,
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to models.BookingStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TransitionCommand struct {
	Target    models.BookingStatus
	ActorID   uuid.UUID
	ActorRole string
	Note      string
	Reason    string
}

// StatusMachine validates and applies booking status changes.
type StatusMachine struct {
	now func() time.Time
}

func NewStatusMachine() *StatusMachine {
	return &StatusMachine{now: func() time.Time { return time.Now().UTC() }}
}

// Apply returns a transitioned copy of b. On error b is left exactly as it was.
func (sm *StatusMachine) Apply(b *models.Booking, cmd TransitionCommand) (*models.Booking, error) {
	if !CanTransition(b.Status, cmd.Target) {
		return nil, &TransitionError{From: b.Status, To: cmd.Target, Err: ErrInvalidTransition}
	}
	if err := authorizeTransition(b, cmd); err != nil {
		return nil, err
	}
	if cmd.Target == models.StatusAccepted && b.ProviderID == nil {
		return nil, &TransitionError{From: b.Status, To: cmd.Target, Role: cmd.ActorRole, Reason: "booking has no assigned provider", Err: ErrInvalidInput}
	}

	now := sm.now()
	next := b.Clone()
	next.Status = cmd.Target

	switch cmd.Target {
	case models.StatusAccepted:
		setOnce(&next.AcceptedAt, now)
	case models.StatusInProgress:
		setOnce(&next.InProgressAt, now)
	case models.StatusCompleted:
		setOnce(&next.CompletedAt, now)
		if next.PaymentStatus != models.PaymentFailed {
			next.PaymentStatus = models.PaymentPaid
		}
	case models.StatusRejected:
		setOnce(&next.RejectedAt, now)
		if cmd.Reason != "" {
			next.RejectionReason = cmd.Reason
		}
	case models.StatusCancelled:
		setOnce(&next.CancelledAt, now)
		actor := cmd.ActorID
		next.CancelledBy = &actor
		next.CancellationReason = cmd.Reason
	}

	note := cmd.Note
	if note == "" {
		note = cmd.Reason
	}
	next.StatusHistory = append(next.StatusHistory, models.StatusHistoryEntry{
		Status:    cmd.Target,
		ChangedBy: cmd.ActorID,
		Role:      cmd.ActorRole,
		Note:      note,
		ChangedAt: now,
	})
	return next, nil
}

func authorizeTransition(b *models.Booking, cmd TransitionCommand) error {
	deny := func(reason string) error {
		return &TransitionError{From: b.Status, To: cmd.Target, Role: cmd.ActorRole, Reason: reason, Err: ErrForbidden}
	}

	switch cmd.ActorRole {
	case models.RoleAdmin:
		return nil
	case models.RoleUser:
		if cmd.Target != models.StatusCancelled {
			return deny("customers may only cancel")
		}
		if b.CustomerID != cmd.ActorID {
			return deny("booking belongs to another customer")
		}
		if b.Status != models.StatusPending && b.Status != models.StatusAccepted {
			return deny("booking can no longer be cancelled by the customer")
		}
		return nil
	case models.RoleProvider:
		if !b.IsAssignedTo(cmd.ActorID) {
			return deny("booking is not assigned to this provider")
		}
		if !providerTargets[cmd.Target] {
			return deny("providers cannot set this status")
		}
		return nil
	default:
		return deny("unknown role")
	}
}

func setOnce(field **time.Time, t time.Time) {
	if *field == nil {
		v := t
		*field = &v
	}
}

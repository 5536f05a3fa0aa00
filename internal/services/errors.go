package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joshua-takyi/servicehub/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflicting update")
)

// TransitionError describes a rejected status change in terms the caller already knows.
type TransitionError struct {
	From   models.BookingStatus
	To     models.BookingStatus
	Role   string
	Reason string
	Err    error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%v: cannot move booking from %q to %q", e.Err, e.From, e.To)
	if e.Role != "" {
		msg += fmt.Sprintf(" as %s", e.Role)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return e.Err }

// DeliveryError is returned alongside a persisted booking when real-time or
// event-stream publishing failed after the write.
type DeliveryError struct {
	Errs []error
}

func (e *DeliveryError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		parts = append(parts, err.Error())
	}
	return "notification delivery failed: " + strings.Join(parts, "; ")
}

func (e *DeliveryError) Unwrap() []error { return e.Errs }

// mapRepoErr translates repository sentinels into the service taxonomy.
func mapRepoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrDocumentNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, models.ErrVersionConflict):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	default:
		return err
	}
}

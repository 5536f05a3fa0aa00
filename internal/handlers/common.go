package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/helpers"
	"github.com/joshua-takyi/servicehub/internal/middleware"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/joshua-takyi/servicehub/internal/services"
)

const deliveryWarning = "the change was saved but some real-time notifications could not be delivered"

// BookingAPI is the booking surface the HTTP layer depends on.
type BookingAPI interface {
	CreateBooking(ctx context.Context, in services.CreateBookingInput) (*models.Booking, error)
	ChangeStatus(ctx context.Context, in services.ChangeStatusInput) (*models.Booking, error)
	GetBooking(ctx context.Context, id, actorID uuid.UUID, role string) (*models.Booking, error)
	ListBookings(ctx context.Context, in services.ListBookingsInput) ([]*models.Booking, int, error)
	ClaimBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*models.Booking, error)
	AssignProvider(ctx context.Context, bookingID, providerID, adminID uuid.UUID) (*models.Booking, error)
	RescheduleBooking(ctx context.Context, in services.RescheduleInput) (*models.Booking, error)
	SetNotes(ctx context.Context, bookingID, actorID uuid.UUID, role, notes string) (*models.Booking, error)
	AttachServicePhotos(ctx context.Context, bookingID, providerID uuid.UUID, images []string) (*models.Booking, error)
	FindCandidates(ctx context.Context, serviceID uuid.UUID, customer *models.GeoPoint) ([]services.Candidate, error)
}

// actor returns the caller's id and role, writing 401 when the claims are unusable.
func actor(c *gin.Context) (uuid.UUID, string, bool) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, helpers.ErrorResponse("unauthorized"))
		return uuid.Nil, "", false
	}
	id, err := claims.UserUUID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, helpers.ErrorResponse("invalid user ID in token"))
		return uuid.Nil, "", false
	}
	return id, claims.Role, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := strings.Trim(strings.TrimSpace(c.Param(name)), "\"'")
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid "+name+" format"))
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (offset, limit int, ok bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageSize)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid limit parameter"))
		return 0, 0, false
	}
	if limit > services.MaxPageSize {
		limit = services.MaxPageSize
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid offset parameter"))
		return 0, 0, false
	}
	return offset, limit, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, helpers.ErrorResponse("internal server error"))
		return
	}
	c.JSON(code, helpers.ErrorResponse(err.Error()))
}

// respondMutation answers a write. A DeliveryError after a durable write is still a success.
func respondMutation(c *gin.Context, code int, data any, persisted bool, err error, message string) {
	if err != nil {
		var de *services.DeliveryError
		if persisted && errors.As(err, &de) {
			_ = c.Error(err)
			c.JSON(code, helpers.SuccessWithWarning(data, message, deliveryWarning))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(code, helpers.SuccessResponse(data, message))
}

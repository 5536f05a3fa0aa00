package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/helpers"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/joshua-takyi/servicehub/internal/services"
)

// AdminBooking is a booking as the admin dashboard sees it.
type AdminBooking struct {
	*models.Booking
	AdminStatus string `json:"admin_status"`
}

func adminView(b *models.Booking) any {
	if b == nil {
		return nil
	}
	return AdminBooking{Booking: b, AdminStatus: ToAdminStatus(b.Status)}
}

func AdminUpdateBookingStatus(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, role, ok := actor(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid request payload: "+err.Error()))
			return
		}
		target, ok := FromAdminStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("unknown status "+req.Status))
			return
		}

		booking, err := bs.ChangeStatus(c.Request.Context(), services.ChangeStatusInput{
			BookingID: id,
			ActorID:   adminID,
			ActorRole: role,
			Target:    target,
			Reason:    req.Reason,
			Note:      req.Note,
		})
		respondMutation(c, http.StatusOK, adminView(booking), booking != nil, err, "booking status updated successfully")
	}
}

func AssignProvider(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, _, ok := actor(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var req struct {
			ProviderID string `json:"provider_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid request payload: "+err.Error()))
			return
		}
		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid provider_id format"))
			return
		}

		booking, err := bs.AssignProvider(c.Request.Context(), id, providerID, adminID)
		respondMutation(c, http.StatusOK, adminView(booking), booking != nil, err, "provider assigned successfully")
	}
}
